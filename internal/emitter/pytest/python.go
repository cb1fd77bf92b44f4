package pytest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/swagger2pytest/internal/gen"
)

// pyLiteral renders a sampled value as Python source. Map keys are emitted
// sorted so the same payload always renders to the same text.
func pyLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case string:
		return pyString(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return pyFloat(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = pyLiteral(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(val))
		for _, k := range keys {
			parts = append(parts, pyString(k)+": "+pyLiteral(val[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func pyString(s string) string {
	return strconv.Quote(s)
}

// pyFloat keeps the decimal point so the Python value stays a float.
func pyFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// pyNumber renders a schema bound: integral values without a decimal point.
func pyNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// pyIdent maps an arbitrary name onto a Python identifier.
func pyIdent(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "_" + s
	}
	return s
}

func selector(root string, path []gen.Step) string {
	out := root
	for _, step := range path {
		if step.IsIndex {
			out += "[" + strconv.Itoa(step.Index) + "]"
		} else {
			out += "[" + pyString(step.Key) + "]"
		}
	}
	return out
}

func isinstanceExpr(types []string) string {
	if len(types) == 1 {
		return types[0]
	}
	return "(" + strings.Join(types, ", ") + ")"
}

// renderAssertions turns assertion descriptors into Python statements
// addressing the decoded body bound to root.
func renderAssertions(asserts []gen.Assertion, root string) []string {
	var out []string
	for _, a := range asserts {
		out = append(out, renderAssertion(a, root)...)
	}
	return out
}

func renderAssertion(a gen.Assertion, root string) []string {
	sel := selector(root, a.Path)
	switch a.Kind {
	case gen.CheckTypeIs:
		return []string{"assert isinstance(" + sel + ", " + isinstanceExpr(a.Types) + ")"}
	case gen.CheckHasKey:
		return []string{"assert " + pyString(a.Key) + " in " + sel}
	case gen.CheckInEnum:
		return []string{"assert " + sel + " in " + pyLiteral(a.Enum)}
	case gen.CheckGTE:
		return []string{"assert " + sel + " >= " + pyNumber(a.Bound)}
	case gen.CheckLTE:
		return []string{"assert " + sel + " <= " + pyNumber(a.Bound)}
	case gen.CheckLenGTE:
		return []string{"assert len(" + sel + ") >= " + strconv.FormatUint(a.Length, 10)}
	case gen.CheckLenLTE:
		return []string{"assert len(" + sel + ") <= " + strconv.FormatUint(a.Length, 10)}
	case gen.CheckIfNonEmpty:
		out := []string{"if len(" + sel + ") > 0:"}
		for _, line := range renderAssertions(a.Children, root) {
			out = append(out, "    "+line)
		}
		return out
	case gen.CheckIfHasKey:
		children := renderAssertions(a.Children, root)
		cond := "if " + pyString(a.Key) + " in " + sel + ":"
		if len(children) == 1 {
			return []string{cond + " " + children[0]}
		}
		out := []string{cond}
		for _, line := range children {
			out = append(out, "    "+line)
		}
		return out
	}
	return nil
}
