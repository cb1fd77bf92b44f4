package gen

import (
	"strconv"

	"github.com/mark3labs/swagger2pytest/internal/ir"
)

// CheckKind discriminates the structural checks an Assertion can state.
type CheckKind uint8

const (
	// CheckTypeIs asserts the value is an instance of one of Types.
	CheckTypeIs CheckKind = iota
	// CheckHasKey asserts the mapping contains Key.
	CheckHasKey
	// CheckInEnum asserts the value is one of Enum.
	CheckInEnum
	// CheckGTE / CheckLTE assert numeric bounds.
	CheckGTE
	CheckLTE
	// CheckLenGTE / CheckLenLTE assert length bounds.
	CheckLenGTE
	CheckLenLTE
	// CheckIfNonEmpty guards Children behind a non-empty sequence; the
	// children address element 0.
	CheckIfNonEmpty
	// CheckIfHasKey guards Children behind Key being present.
	CheckIfHasKey
)

// Step addresses one hop from the decoded response root: an object member
// by name, or a sequence position.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

// Assertion is one renderer-agnostic predicate over a value path of the
// decoded response body.
type Assertion struct {
	Path     []Step
	Kind     CheckKind
	Types    []string // CheckTypeIs: target-language type names
	Key      string   // CheckHasKey, CheckIfHasKey
	Enum     []any    // CheckInEnum
	Bound    float64  // CheckGTE, CheckLTE
	Length   uint64   // CheckLenGTE, CheckLenLTE
	Children []Assertion
}

// ResponseAssertions builds the structural checks for a response schema.
//
// Checks are approximate: object properties get presence plus a shallow
// type check, arrays recurse fully into element 0 only, and oneOf/anyOf
// validate against member 0 alone.
func ResponseAssertions(node *ir.SchemaNode, table map[string]*ir.SchemaNode) []Assertion {
	return fullAssertions(node, table, nil, 0)
}

func fullAssertions(node *ir.SchemaNode, table map[string]*ir.SchemaNode, path []Step, depth int) []Assertion {
	if node == nil || depth > maxDepth {
		return nil
	}
	if node.Kind == ir.KindReference {
		target, ok := table[node.Ref]
		if !ok || target == nil {
			return nil
		}
		return fullAssertions(target, table, path, depth+1)
	}

	var out []Assertion
	switch node.Kind {
	case ir.KindObject:
		out = append(out, Assertion{Path: path, Kind: CheckTypeIs, Types: []string{"dict"}})
		for _, name := range node.PropertyNames() {
			prop := node.Properties[name]
			if prop != nil && prop.WriteOnly {
				continue
			}
			out = append(out, Assertion{Path: path, Kind: CheckHasKey, Key: name})
			out = append(out, typeOnlyAssertions(prop, table, extend(path, Step{Key: name}), depth+1)...)
		}
	case ir.KindArray:
		out = append(out, Assertion{Path: path, Kind: CheckTypeIs, Types: []string{"list"}})
		if node.Items != nil {
			children := fullAssertions(node.Items, table, extend(path, Step{IsIndex: true}), depth+1)
			if len(children) > 0 {
				out = append(out, Assertion{Path: path, Kind: CheckIfNonEmpty, Children: children})
			}
		}
	case ir.KindString:
		out = append(out, Assertion{Path: path, Kind: CheckTypeIs, Types: []string{"str"}})
		out = append(out, constraintAssertions(node, path)...)
	case ir.KindInteger:
		out = append(out, Assertion{Path: path, Kind: CheckTypeIs, Types: []string{"int"}})
		out = append(out, constraintAssertions(node, path)...)
	case ir.KindNumber:
		out = append(out, Assertion{Path: path, Kind: CheckTypeIs, Types: []string{"int", "float"}})
		out = append(out, constraintAssertions(node, path)...)
	case ir.KindBoolean:
		out = append(out, Assertion{Path: path, Kind: CheckTypeIs, Types: []string{"bool"}})
		out = append(out, constraintAssertions(node, path)...)
	case ir.KindOneOf, ir.KindAnyOf:
		if len(node.Alternatives) > 0 {
			out = fullAssertions(node.Alternatives[0], table, path, depth+1)
		}
	}
	return out
}

func constraintAssertions(node *ir.SchemaNode, path []Step) []Assertion {
	var out []Assertion
	if len(node.Enum) > 0 {
		out = append(out, Assertion{Path: path, Kind: CheckInEnum, Enum: node.Enum})
	}
	switch node.Kind {
	case ir.KindString:
		if node.MinLength != nil {
			out = append(out, Assertion{Path: path, Kind: CheckLenGTE, Length: *node.MinLength})
		}
		if node.MaxLength != nil {
			out = append(out, Assertion{Path: path, Kind: CheckLenLTE, Length: *node.MaxLength})
		}
	case ir.KindInteger, ir.KindNumber:
		if node.Min != nil {
			out = append(out, Assertion{Path: path, Kind: CheckGTE, Bound: *node.Min})
		}
		if node.Max != nil {
			out = append(out, Assertion{Path: path, Kind: CheckLTE, Bound: *node.Max})
		}
	}
	return out
}

// typeOnlyAssertions is the shallow check applied to object properties:
// just the native type, no constraint or member recursion.
func typeOnlyAssertions(node *ir.SchemaNode, table map[string]*ir.SchemaNode, path []Step, depth int) []Assertion {
	if node == nil || depth > maxDepth {
		return nil
	}
	if node.Kind == ir.KindReference {
		target, ok := table[node.Ref]
		if !ok || target == nil {
			return nil
		}
		return typeOnlyAssertions(target, table, path, depth+1)
	}
	var types []string
	switch node.Kind {
	case ir.KindString:
		types = []string{"str"}
	case ir.KindInteger:
		types = []string{"int"}
	case ir.KindNumber:
		types = []string{"int", "float"}
	case ir.KindBoolean:
		types = []string{"bool"}
	case ir.KindObject:
		types = []string{"dict"}
	case ir.KindArray:
		types = []string{"list"}
	case ir.KindOneOf, ir.KindAnyOf:
		if len(node.Alternatives) > 0 {
			return typeOnlyAssertions(node.Alternatives[0], table, path, depth+1)
		}
		return nil
	default:
		return nil
	}
	return []Assertion{{Path: path, Kind: CheckTypeIs, Types: types}}
}

// ErrorAssertions builds the body checks for a negative test. A declared
// client-error schema gets the full structural treatment; without one the
// generic error shape (code, message, details) is checked behind presence
// guards.
func ErrorAssertions(node *ir.SchemaNode, table map[string]*ir.SchemaNode) []Assertion {
	if node != nil && node.Kind != ir.KindEmpty {
		if out := ResponseAssertions(node, table); len(out) > 0 {
			return out
		}
	}
	return []Assertion{
		{Kind: CheckTypeIs, Types: []string{"dict"}},
		{Kind: CheckIfHasKey, Key: "code", Children: []Assertion{
			{Path: []Step{{Key: "code"}}, Kind: CheckTypeIs, Types: []string{"int"}},
		}},
		{Kind: CheckIfHasKey, Key: "message", Children: []Assertion{
			{Path: []Step{{Key: "message"}}, Kind: CheckTypeIs, Types: []string{"str"}},
		}},
		{Kind: CheckIfHasKey, Key: "details", Children: []Assertion{
			{Path: []Step{{Key: "details"}}, Kind: CheckTypeIs, Types: []string{"list"}},
		}},
	}
}

// ErrorResponseSchema picks the declared schema an operation's negative
// tests should validate against: the lowest numeric 4xx response, then the
// 4XX wildcard, then default. Nil when none is declared.
func ErrorResponseSchema(op ir.Operation) *ir.SchemaNode {
	for _, code := range op.ResponseCodes() {
		if n, err := strconv.Atoi(code); err == nil && n >= 400 && n < 500 {
			return op.Responses[code]
		}
	}
	if node, ok := op.Responses["4XX"]; ok {
		return node
	}
	if node, ok := op.Responses["4xx"]; ok {
		return node
	}
	if node, ok := op.Responses["default"]; ok {
		return node
	}
	return nil
}

func extend(path []Step, s Step) []Step {
	out := make([]Step, len(path), len(path)+1)
	copy(out, path)
	return append(out, s)
}
