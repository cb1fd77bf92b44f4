package gen

import (
	"maps"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/swagger2pytest/internal/ir"
)

// injectionPayloads is version 1 of the adversarial-string catalogue.
// Entries are order-significant: the index is baked into mutation
// descriptions, so changing this list renames generated tests.
var injectionPayloads = []string{
	`' OR 1=1 --`,
	`"; DROP TABLE users; --`,
	`<script>alert(1)</script>`,
	`<img src=x onerror=alert(1)>`,
	`../../etc/passwd`,
	`$(whoami)`,
	`{{7*7}}`,
}

// Mutations derives the negative-case payloads for a request schema and
// its valid baseline payload (normally the SamplePayload result). Only
// object-shaped payloads are mutated; each case perturbs exactly one field
// of the baseline. Case order and descriptions are stable across runs:
// required-field removals first (sorted), the extra-field case, then
// per-property mutations in sorted property order.
func Mutations(node *ir.SchemaNode, table map[string]*ir.SchemaNode, base map[string]any) []ir.MutationCase {
	resolved := ir.Deref(node, table)
	if resolved == nil || resolved.Kind != ir.KindObject || base == nil {
		return nil
	}

	var out []ir.MutationCase

	required := append([]string(nil), resolved.Required...)
	sort.Strings(required)
	for _, field := range required {
		if _, present := base[field]; !present {
			continue
		}
		mutated := maps.Clone(base)
		delete(mutated, field)
		out = append(out, ir.MutationCase{Description: "missing_required_field_" + field, Payload: mutated})
	}

	mutated := maps.Clone(base)
	mutated["hacker_extra_field"] = "unexpected_value"
	out = append(out, ir.MutationCase{Description: "extra_unexpected_field", Payload: mutated})

	for _, name := range resolved.PropertyNames() {
		out = append(out, propertyMutations(name, resolved.Properties[name], table, base)...)
	}
	return out
}

func propertyMutations(name string, schema *ir.SchemaNode, table map[string]*ir.SchemaNode, base map[string]any) []ir.MutationCase {
	resolved := ir.Deref(schema, table)
	if resolved == nil {
		return nil
	}
	if _, present := base[name]; !present {
		return nil
	}

	var out []ir.MutationCase
	set := func(description string, value any) {
		mutated := maps.Clone(base)
		mutated[name] = value
		out = append(out, ir.MutationCase{Description: description, Payload: mutated})
	}

	set("invalid_type_"+name, wrongTypeValue(resolved.Kind))

	if !resolved.Nullable {
		set("null_injection_"+name, nil)
	}

	if len(resolved.Enum) > 0 {
		set("invalid_enum_"+name, invalidEnumValue(resolved.Enum))
	}

	if resolved.Kind == ir.KindInteger || resolved.Kind == ir.KindNumber {
		if resolved.Min != nil {
			set("boundary_min_violation_"+name, boundaryValue(resolved.Kind, *resolved.Min-1))
		}
		if resolved.Max != nil {
			set("boundary_max_violation_"+name, boundaryValue(resolved.Kind, *resolved.Max+1))
		}
	}

	if resolved.Kind == ir.KindString {
		if resolved.MinLength != nil && *resolved.MinLength > 0 {
			set("boundary_min_length_violation_"+name, strings.Repeat("a", int(*resolved.MinLength-1)))
		}
		if resolved.MaxLength != nil {
			set("boundary_max_length_violation_"+name, strings.Repeat("a", int(*resolved.MaxLength+1)))
		} else {
			set("oversized_string_"+name, strings.Repeat("a", 5000))
		}
	}

	switch resolved.Format {
	case "email":
		set("invalid_format_email_"+name, "not-an-email")
	case "uuid":
		set("invalid_format_uuid_"+name, "not-a-uuid")
	}

	for i, payload := range injectionPayloads {
		set("injection_"+name+"_"+strconv.Itoa(i), payload)
	}
	return out
}

func wrongTypeValue(kind ir.Kind) any {
	switch kind {
	case ir.KindInteger, ir.KindNumber:
		return "not-a-number"
	case ir.KindBoolean:
		return "not-a-boolean"
	case ir.KindArray:
		return "not-an-array"
	case ir.KindObject:
		return "not-an-object"
	}
	// String-shaped and untyped properties alike get a numeric literal.
	return 123
}

// invalidEnumValue returns a literal guaranteed absent from the declared
// set without sacrificing determinism.
func invalidEnumValue(enum []any) string {
	val := "__invalid_enum_value__"
	for enumContains(enum, val) {
		val += "_x"
	}
	return val
}

func enumContains(enum []any, s string) bool {
	for _, e := range enum {
		if str, ok := e.(string); ok && str == s {
			return true
		}
	}
	return false
}

func boundaryValue(kind ir.Kind, v float64) any {
	if kind == ir.KindInteger && v == math.Trunc(v) {
		return int64(v)
	}
	return v
}
