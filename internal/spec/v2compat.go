package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// rewriteV2ForConversion fixes up Swagger v2 operations that openapi2conv
// cannot convert as written:
//
//   - several body parameters on one operation collapse into a single body
//     parameter whose schema is an object keyed by the original names;
//   - an operation mixing body and formData parameters has its body
//     parameters demoted to formData and multipart/form-data added to its
//     consumes list.
//
// Returns the possibly-rewritten YAML, whether anything changed, and any
// parse error. On error the input comes back untouched with changed=false.
func rewriteV2ForConversion(data []byte) ([]byte, bool, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	paths, _ := doc["paths"].(map[string]any)
	changed := false
	for _, raw := range paths {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for method, rawOp := range item {
			if !isHTTPMethod(method) {
				continue
			}
			op, ok := rawOp.(map[string]any)
			if !ok {
				continue
			}
			if rewriteV2Operation(op) {
				changed = true
			}
		}
	}
	if !changed {
		return data, false, nil
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func isHTTPMethod(s string) bool {
	switch strings.ToLower(s) {
	case "get", "put", "post", "delete", "options", "head", "patch":
		return true
	}
	return false
}

// rewriteV2Operation applies both fixups to a single operation map and
// reports whether it mutated anything.
func rewriteV2Operation(op map[string]any) bool {
	params, _ := op["parameters"].([]any)
	if len(params) == 0 {
		return false
	}

	var body, form, rest []map[string]any
	for _, p := range params {
		pm, _ := p.(map[string]any)
		if pm == nil {
			continue
		}
		switch {
		case strings.EqualFold(stringAt(pm, "in"), "body"):
			body = append(body, pm)
		case strings.EqualFold(stringAt(pm, "in"), "formData"):
			form = append(form, pm)
		default:
			rest = append(rest, pm)
		}
	}
	if len(body) == 0 {
		return false
	}

	if len(form) > 0 {
		// Mixed body+formData: demote every body param to formData.
		merged := make([]any, 0, len(params))
		for _, pm := range rest {
			merged = append(merged, pm)
		}
		for _, pm := range form {
			merged = append(merged, pm)
		}
		for _, pm := range body {
			merged = append(merged, demoteBodyToFormData(pm))
		}
		op["parameters"] = merged
		consumes, _ := op["consumes"].([]any)
		if !hasString(consumes, "multipart/form-data") {
			op["consumes"] = append(consumes, "multipart/form-data")
		}
		return true
	}

	if len(body) == 1 {
		return false
	}

	// Multiple body params: collapse into one object-typed body.
	props := map[string]any{}
	var required []any
	for _, pm := range body {
		name := stringAt(pm, "name")
		if name == "" {
			name = "field"
		}
		schema := bodyParamSchema(pm)
		if schema == nil {
			schema = map[string]any{"type": "string"}
		}
		props[name] = schema
		if req, _ := pm["required"].(bool); req {
			required = append(required, name)
		}
	}
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	merged := make([]any, 0, len(rest)+1)
	merged = append(merged, map[string]any{"in": "body", "name": "body", "schema": schema})
	for _, pm := range rest {
		merged = append(merged, pm)
	}
	op["parameters"] = merged
	return true
}

// bodyParamSchema returns the parameter's schema, synthesizing one from the
// flat v2 type/items/format fields when no schema object is present.
func bodyParamSchema(pm map[string]any) map[string]any {
	if sch, ok := pm["schema"].(map[string]any); ok {
		return sch
	}
	typ := stringAt(pm, "type")
	if typ == "" {
		return nil
	}
	out := map[string]any{"type": typ}
	if items, ok := pm["items"].(map[string]any); ok {
		out["items"] = items
	}
	if f := stringAt(pm, "format"); f != "" {
		out["format"] = f
	}
	return out
}

// demoteBodyToFormData rewrites a body parameter as a flat formData one.
// Referenced object schemas cannot be expressed in formData and degrade to
// string.
func demoteBodyToFormData(pm map[string]any) map[string]any {
	name := stringAt(pm, "name")
	if name == "" {
		name = "field"
	}
	out := map[string]any{"in": "formData", "name": name}
	if desc := stringAt(pm, "description"); desc != "" {
		out["description"] = desc
	}
	if req, ok := pm["required"].(bool); ok {
		out["required"] = req
	}

	typ, format := "", ""
	var items any
	if sch, ok := pm["schema"].(map[string]any); ok {
		typ = stringAt(sch, "type")
		format = stringAt(sch, "format")
		if it, ok := sch["items"].(map[string]any); ok {
			items = it
		}
		if typ == "" && sch["$ref"] != nil {
			typ = "string"
		}
	}
	if typ == "" {
		typ = stringAt(pm, "type")
		format = stringAt(pm, "format")
		if it, ok := pm["items"].(map[string]any); ok {
			items = it
		}
	}
	if typ == "" {
		typ = "string"
	}
	out["type"] = typ
	if items != nil {
		out["items"] = items
	}
	if format != "" {
		out["format"] = format
	}
	return out
}

func stringAt(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func hasString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}
