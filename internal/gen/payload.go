// Package gen synthesizes test artifacts from the canonical schema model:
// sample payloads, structural response assertions, negative-case mutations,
// and security scenarios. Everything here is a pure function of its inputs;
// two calls with the same schema produce identical output.
package gen

import (
	"math"
	"strings"

	"github.com/mark3labs/swagger2pytest/internal/ir"
)

// maxDepth bounds reference chasing so a self-referential schema table
// cannot hang generation.
const maxDepth = 32

// SamplePayload builds the deterministic valid example value for node.
// References resolve against table one hop per visit. Properties marked
// readOnly are omitted: they are server-populated and invalid in a request.
func SamplePayload(node *ir.SchemaNode, table map[string]*ir.SchemaNode) any {
	return samplePayload(node, table, 0)
}

func samplePayload(node *ir.SchemaNode, table map[string]*ir.SchemaNode, depth int) any {
	if node == nil || depth > maxDepth {
		return nil
	}
	if node.Kind == ir.KindReference {
		target, ok := table[node.Ref]
		if !ok || target == nil {
			return nil
		}
		return samplePayload(target, table, depth+1)
	}
	// The enum rule precedes every type rule.
	if len(node.Enum) > 0 {
		return node.Enum[0]
	}
	switch node.Kind {
	case ir.KindString:
		return sampleString(node)
	case ir.KindInteger:
		return sampleInteger(node)
	case ir.KindNumber:
		return sampleNumber(node)
	case ir.KindBoolean:
		return true
	case ir.KindArray:
		if node.Items == nil {
			return []any{}
		}
		return []any{samplePayload(node.Items, table, depth+1)}
	case ir.KindObject:
		out := map[string]any{}
		for _, name := range node.PropertyNames() {
			prop := node.Properties[name]
			if prop != nil && prop.ReadOnly {
				continue
			}
			out[name] = samplePayload(prop, table, depth+1)
		}
		return out
	case ir.KindOneOf, ir.KindAnyOf:
		if len(node.Alternatives) == 0 {
			return nil
		}
		return samplePayload(node.Alternatives[0], table, depth+1)
	}
	return nil
}

func sampleString(node *ir.SchemaNode) string {
	val := "test"
	if node.MinLength != nil && uint64(len(val)) < *node.MinLength {
		val = strings.Repeat("a", int(*node.MinLength))
	}
	if node.MaxLength != nil && uint64(len(val)) > *node.MaxLength {
		val = val[:*node.MaxLength]
	}
	return val
}

func sampleInteger(node *ir.SchemaNode) int64 {
	val := float64(1)
	if node.Min != nil && *node.Min > val {
		val = math.Ceil(*node.Min)
	}
	if node.Max != nil && *node.Max < val {
		val = math.Floor(*node.Max)
	}
	return int64(val)
}

func sampleNumber(node *ir.SchemaNode) float64 {
	val := float64(1)
	if node.Min != nil && *node.Min > val {
		val = *node.Min
	}
	if node.Max != nil && *node.Max < val {
		val = *node.Max
	}
	return val
}
