package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Fingerprint returns the content address of a schema node: SHA-256 over
// the canonical serialization of its semantic projection, as lowercase hex.
//
// The projection sorts object keys and keeps sequence order (enum, oneOf,
// anyOf, allOf members), so two nodes that differ only in property
// declaration order hash identically while reorderings that change meaning
// do not. Non-semantic content (descriptions live on Operation, vendor
// keys in Extra) never enters the projection. A nil node hashes like the
// empty schema.
func Fingerprint(n *SchemaNode) string {
	b, err := json.Marshal(projection(n))
	if err != nil {
		// Projection values come from parsed YAML/JSON and always marshal;
		// this path exists only for hand-built nodes carrying exotic enum
		// values.
		b = []byte(fmt.Sprintf("%v", projection(n)))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// projection builds the ordered key-value view Fingerprint hashes.
// encoding/json emits map keys sorted, which supplies the canonical key
// order for free.
func projection(n *SchemaNode) map[string]any {
	p := map[string]any{}
	if n == nil {
		return p
	}

	switch n.Kind {
	case KindEmpty:
		// No type key. Constraints still apply: untyped enum-only schemas
		// are legal and semantic.
	case KindReference:
		p["$ref"] = n.Ref
		return p
	case KindString:
		p["type"] = "string"
	case KindInteger:
		p["type"] = "integer"
	case KindNumber:
		p["type"] = "number"
	case KindBoolean:
		p["type"] = "boolean"
	case KindObject:
		p["type"] = "object"
	case KindArray:
		p["type"] = "array"
	case KindOneOf:
		p["oneOf"] = memberProjections(n.Alternatives)
	case KindAnyOf:
		p["anyOf"] = memberProjections(n.Alternatives)
	}

	if len(n.Properties) > 0 {
		props := make(map[string]any, len(n.Properties))
		for name, child := range n.Properties {
			props[name] = projection(child)
		}
		p["properties"] = props
	}
	if len(n.Required) > 0 {
		required := append([]string(nil), n.Required...)
		sort.Strings(required)
		p["required"] = required
	}
	if n.Items != nil {
		p["items"] = projection(n.Items)
	}
	if len(n.MergedFrom) > 0 {
		p["allOf"] = memberProjections(n.MergedFrom)
	}

	if n.Nullable {
		p["nullable"] = true
	}
	if len(n.Enum) > 0 {
		p["enum"] = n.Enum
	}
	if n.MinLength != nil {
		p["minLength"] = *n.MinLength
	}
	if n.MaxLength != nil {
		p["maxLength"] = *n.MaxLength
	}
	if n.Min != nil {
		p["minimum"] = *n.Min
	}
	if n.Max != nil {
		p["maximum"] = *n.Max
	}
	if n.Pattern != "" {
		p["pattern"] = n.Pattern
	}
	if n.Format != "" {
		p["format"] = n.Format
	}
	if n.ReadOnly {
		p["readOnly"] = true
	}
	if n.WriteOnly {
		p["writeOnly"] = true
	}
	return p
}

func memberProjections(members []*SchemaNode) []any {
	out := make([]any, len(members))
	for i, m := range members {
		out[i] = projection(m)
	}
	return out
}
