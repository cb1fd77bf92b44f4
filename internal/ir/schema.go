// Package ir holds the canonical, immutable representation of an API
// description: the resolved schema tree, the operations built on it, and
// the fingerprints that drive incremental regeneration. Every generator
// consumes this package and nothing upstream of it.
package ir

import "sort"

// Kind discriminates the closed set of schema node variants. Consumers
// switch on Kind exhaustively instead of inspecting string-typed fields.
type Kind uint8

const (
	// KindEmpty is the schema {}; it matches any value.
	KindEmpty Kind = iota
	KindReference
	KindString
	KindInteger
	KindNumber
	KindBoolean
	KindObject
	KindArray
	KindOneOf
	KindAnyOf
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindReference:
		return "reference"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindOneOf:
		return "oneOf"
	case KindAnyOf:
		return "anyOf"
	}
	return "unknown"
}

// SchemaNode is one node of a resolved schema tree.
//
// Nodes are immutable once constructed: every transformation allocates a
// new node. Two nodes are semantically equal iff their fingerprints are
// equal, regardless of how either was constructed.
//
// allOf compositions do not survive resolution as their own kind: they are
// merged into an object-shaped node up front, with the resolved member
// list retained in MergedFrom. oneOf/anyOf stay unmerged in Alternatives,
// declared order intact, because member order is significant downstream.
type SchemaNode struct {
	Kind Kind

	// Ref names a schema-table entry for KindReference nodes. References
	// are never inlined at resolution time; consumers dereference against
	// the table when they need the target.
	Ref string

	// Properties and Required describe object shape. Iterate through
	// PropertyNames for deterministic order.
	Properties map[string]*SchemaNode
	Required   []string

	// Items is the element schema of KindArray nodes; nil when the
	// document declared none.
	Items *SchemaNode

	// Alternatives holds oneOf/anyOf members, declared order preserved.
	Alternatives []*SchemaNode

	// MergedFrom retains the resolved allOf members after merging. The
	// merged view (Properties/Required/Kind) is authoritative for
	// generation; MergedFrom exists for completeness and fingerprinting.
	MergedFrom []*SchemaNode

	Enum      []any
	Min       *float64
	Max       *float64
	MinLength *uint64
	MaxLength *uint64
	Pattern   string
	Format    string
	ReadOnly  bool
	WriteOnly bool
	Nullable  bool

	// Extra carries unrecognized vendor keys. It is excluded from the
	// fingerprint and never consulted by generation.
	Extra map[string]any
}

// PropertyNames returns the node's property names sorted lexicographically.
// All iteration over Properties goes through this so payloads, assertions,
// mutations, and fingerprints agree on order.
func (n *SchemaNode) PropertyNames() []string {
	if len(n.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRequired reports whether name appears in the node's required set.
func (n *SchemaNode) IsRequired(name string) bool {
	for _, r := range n.Required {
		if r == name {
			return true
		}
	}
	return false
}

// IsPrimitive reports whether the node is one of the four primitive kinds.
func (n *SchemaNode) IsPrimitive() bool {
	switch n.Kind {
	case KindString, KindInteger, KindNumber, KindBoolean:
		return true
	}
	return false
}

// Deref resolves a reference node against table exactly once. Non-reference
// nodes and unknown targets come back unchanged; recursion is the caller's
// business so that reference chains stay bounded by the caller's own depth
// policy.
func Deref(n *SchemaNode, table map[string]*SchemaNode) *SchemaNode {
	if n == nil || n.Kind != KindReference {
		return n
	}
	if target, ok := table[n.Ref]; ok && target != nil {
		return target
	}
	return n
}
