package testfile

import (
	"strings"
)

// Test is one function the materializer manages: its decorators, its
// name, and the body lines that live between the marker pair. Body lines
// are given unindented; the patcher indents them to the region it writes.
type Test struct {
	Name       string
	Decorators []string
	Body       []string
}

const bodyIndent = "    "

// Materialize combines freshly synthesized tests with whatever already
// exists at the target location.
//
// With no prior content the result is header, imports, then one delimited
// function per test. With prior content the recognized header lines are
// replaced, each named function's first marker pair is rewritten in
// place, functions without markers get a fresh delimited region inserted
// right after their def line, and missing functions are appended at end
// of file. Nothing outside the header and the delimited regions is
// touched; repeated application is idempotent.
func Materialize(existing string, header Header, imports []string, tests []Test) string {
	if strings.TrimSpace(existing) == "" {
		return renderFresh(header, imports, tests)
	}

	lines := strings.Split(strings.TrimRight(existing, "\n"), "\n")

	// Replace the managed header wherever its lines sit.
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if !isHeaderLine(line) {
			kept = append(kept, line)
		}
	}
	for len(kept) > 0 && strings.TrimSpace(kept[0]) == "" {
		kept = kept[1:]
	}
	out := append([]string{}, header.Lines()...)
	out = append(out, "")
	out = append(out, kept...)

	for _, test := range tests {
		if region, ok := findFunction(out, test.Name); ok {
			out = patchFunction(out, region, test)
		} else {
			out = appendFunction(out, test)
		}
	}

	return strings.Join(out, "\n") + "\n"
}

func renderFresh(header Header, imports []string, tests []Test) string {
	out := append([]string{}, header.Lines()...)
	out = append(out, "")
	if len(imports) > 0 {
		out = append(out, imports...)
		out = append(out, "")
	}
	for i, test := range tests {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, renderFunction(test)...)
	}
	return strings.Join(out, "\n") + "\n"
}

func renderFunction(test Test) []string {
	out := make([]string, 0, len(test.Body)+len(test.Decorators)+3)
	out = append(out, test.Decorators...)
	out = append(out, "def "+test.Name+"():")
	out = append(out, bodyIndent+MarkerStart)
	out = append(out, indentBody(test.Body, bodyIndent)...)
	out = append(out, bodyIndent+MarkerEnd)
	return out
}

func indentBody(body []string, indent string) []string {
	out := make([]string, 0, len(body))
	for _, line := range body {
		if line == "" {
			out = append(out, "")
			continue
		}
		out = append(out, indent+line)
	}
	return out
}

// funcRegion is the line span of one top-level function: start is its
// def line, end is one past its last line.
type funcRegion struct {
	start int
	end   int
}

// findFunction locates the top-level function named name. The function
// extends from its def line up to the next non-blank line at column
// zero.
func findFunction(lines []string, name string) (funcRegion, bool) {
	needle := "def " + name + "("
	for i, line := range lines {
		if !strings.HasPrefix(line, needle) {
			continue
		}
		end := len(lines)
		for j := i + 1; j < len(lines); j++ {
			trimmed := strings.TrimSpace(lines[j])
			if trimmed != "" && !strings.HasPrefix(lines[j], " ") && !strings.HasPrefix(lines[j], "\t") {
				end = j
				break
			}
		}
		return funcRegion{start: i, end: end}, true
	}
	return funcRegion{}, false
}

// patchFunction rewrites the first marker pair inside the function, or
// inserts a fresh delimited region right after the def line when the
// function carries no recognized pair. A dangling start marker without
// its end counts as no pair; ambiguous trailing content is left alone.
func patchFunction(lines []string, region funcRegion, test Test) []string {
	startIdx, endIdx := -1, -1
	for i := region.start + 1; i < region.end; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if startIdx < 0 && trimmed == MarkerStart {
			startIdx = i
			continue
		}
		if startIdx >= 0 && trimmed == MarkerEnd {
			endIdx = i
			break
		}
	}

	if startIdx >= 0 && endIdx >= 0 {
		indent := lines[startIdx][:len(lines[startIdx])-len(strings.TrimLeft(lines[startIdx], " \t"))]
		out := make([]string, 0, len(lines))
		out = append(out, lines[:startIdx+1]...)
		out = append(out, indentBody(test.Body, indent)...)
		out = append(out, lines[endIdx:]...)
		return out
	}

	fresh := []string{bodyIndent + MarkerStart}
	fresh = append(fresh, indentBody(test.Body, bodyIndent)...)
	fresh = append(fresh, bodyIndent+MarkerEnd)
	out := make([]string, 0, len(lines)+len(fresh))
	out = append(out, lines[:region.start+1]...)
	out = append(out, fresh...)
	out = append(out, lines[region.start+1:]...)
	return out
}

func appendFunction(lines []string, test Test) []string {
	out := lines
	if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
		out = append(out, "")
	}
	return append(out, renderFunction(test)...)
}
