package gen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mark3labs/swagger2pytest/internal/ir"
)

func f64(v float64) *float64 { return &v }
func u64(v uint64) *uint64   { return &v }

func TestSamplePayload_Strings(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		node *ir.SchemaNode
		want string
	}{
		{"baseline", &ir.SchemaNode{Kind: ir.KindString}, "test"},
		{"stretched to min length", &ir.SchemaNode{Kind: ir.KindString, MinLength: u64(8)}, "aaaaaaaa"},
		{"truncated to max length", &ir.SchemaNode{Kind: ir.KindString, MaxLength: u64(2)}, "te"},
		{"min length shorter than baseline", &ir.SchemaNode{Kind: ir.KindString, MinLength: u64(3)}, "test"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := SamplePayload(tc.node, nil)
			if got != tc.want {
				t.Fatalf("got %v, want %q", got, tc.want)
			}
		})
	}
}

func TestSamplePayload_Numerics(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		node *ir.SchemaNode
		want any
	}{
		{"integer baseline", &ir.SchemaNode{Kind: ir.KindInteger}, int64(1)},
		{"integer clamped up", &ir.SchemaNode{Kind: ir.KindInteger, Min: f64(10)}, int64(10)},
		{"integer minimum below baseline ignored", &ir.SchemaNode{Kind: ir.KindInteger, Min: f64(0)}, int64(1)},
		{"integer clamped down", &ir.SchemaNode{Kind: ir.KindInteger, Max: f64(0)}, int64(0)},
		{"integer fractional minimum rounds up", &ir.SchemaNode{Kind: ir.KindInteger, Min: f64(2.5)}, int64(3)},
		{"number baseline", &ir.SchemaNode{Kind: ir.KindNumber}, 1.0},
		{"number clamped up", &ir.SchemaNode{Kind: ir.KindNumber, Min: f64(1.5)}, 1.5},
		{"number clamped down", &ir.SchemaNode{Kind: ir.KindNumber, Max: f64(0.25)}, 0.25},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := SamplePayload(tc.node, nil)
			if got != tc.want {
				t.Fatalf("got %v (%T), want %v (%T)", got, got, tc.want, tc.want)
			}
		})
	}
}

func TestSamplePayload_EnumPrecedesType(t *testing.T) {
	t.Parallel()
	node := &ir.SchemaNode{Kind: ir.KindString, Enum: []any{"green", "red"}, MinLength: u64(50)}
	if got := SamplePayload(node, nil); got != "green" {
		t.Fatalf("enum must win over type rules, got %v", got)
	}
	numeric := &ir.SchemaNode{Kind: ir.KindInteger, Enum: []any{7, 9}}
	if got := SamplePayload(numeric, nil); got != 7 {
		t.Fatalf("first enum literal expected, got %v", got)
	}
}

func TestSamplePayload_ObjectSkipsReadOnly(t *testing.T) {
	t.Parallel()
	node := &ir.SchemaNode{
		Kind: ir.KindObject,
		Properties: map[string]*ir.SchemaNode{
			"id":     {Kind: ir.KindInteger, ReadOnly: true},
			"name":   {Kind: ir.KindString},
			"secret": {Kind: ir.KindString, WriteOnly: true},
		},
		Required: []string{"id", "name"},
	}
	want := map[string]any{"name": "test", "secret": "test"}
	got := SamplePayload(node, nil)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSamplePayload_ArrayAndComposition(t *testing.T) {
	t.Parallel()
	arr := &ir.SchemaNode{Kind: ir.KindArray, Items: &ir.SchemaNode{Kind: ir.KindBoolean}}
	if diff := cmp.Diff([]any{true}, SamplePayload(arr, nil)); diff != "" {
		t.Fatalf("array payload mismatch (-want +got):\n%s", diff)
	}

	bare := &ir.SchemaNode{Kind: ir.KindArray}
	if diff := cmp.Diff([]any{}, SamplePayload(bare, nil)); diff != "" {
		t.Fatalf("itemless array mismatch (-want +got):\n%s", diff)
	}

	alt := &ir.SchemaNode{Kind: ir.KindOneOf, Alternatives: []*ir.SchemaNode{
		{Kind: ir.KindString},
		{Kind: ir.KindInteger},
	}}
	if got := SamplePayload(alt, nil); got != "test" {
		t.Fatalf("oneOf must use member 0, got %v", got)
	}

	if got := SamplePayload(&ir.SchemaNode{Kind: ir.KindEmpty}, nil); got != nil {
		t.Fatalf("empty schema yields nil, got %v", got)
	}
}

func TestSamplePayload_ReferenceResolution(t *testing.T) {
	t.Parallel()
	table := map[string]*ir.SchemaNode{
		"User": {Kind: ir.KindObject, Properties: map[string]*ir.SchemaNode{"id": {Kind: ir.KindInteger}}},
	}
	got := SamplePayload(&ir.SchemaNode{Kind: ir.KindReference, Ref: "User"}, table)
	if diff := cmp.Diff(map[string]any{"id": int64(1)}, got); diff != "" {
		t.Fatalf("reference payload mismatch (-want +got):\n%s", diff)
	}

	if got := SamplePayload(&ir.SchemaNode{Kind: ir.KindReference, Ref: "Missing"}, table); got != nil {
		t.Fatalf("unknown reference yields nil, got %v", got)
	}
}

func TestSamplePayload_CyclicReferencesTerminate(t *testing.T) {
	t.Parallel()
	table := map[string]*ir.SchemaNode{}
	table["A"] = &ir.SchemaNode{Kind: ir.KindObject, Properties: map[string]*ir.SchemaNode{
		"next": {Kind: ir.KindReference, Ref: "B"},
	}}
	table["B"] = &ir.SchemaNode{Kind: ir.KindObject, Properties: map[string]*ir.SchemaNode{
		"back": {Kind: ir.KindReference, Ref: "A"},
	}}
	got := SamplePayload(&ir.SchemaNode{Kind: ir.KindReference, Ref: "A"}, table)
	if _, ok := got.(map[string]any); !ok {
		t.Fatalf("cyclic reference chain must still produce a value, got %T", got)
	}
}

func TestSamplePayload_Deterministic(t *testing.T) {
	t.Parallel()
	node := &ir.SchemaNode{
		Kind: ir.KindObject,
		Properties: map[string]*ir.SchemaNode{
			"name":  {Kind: ir.KindString, MinLength: u64(5)},
			"score": {Kind: ir.KindNumber, Min: f64(2)},
			"tags":  {Kind: ir.KindArray, Items: &ir.SchemaNode{Kind: ir.KindString}},
		},
	}
	first := SamplePayload(node, nil)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, SamplePayload(node, nil)); diff != "" {
			t.Fatalf("payload varies between runs (-first +now):\n%s", diff)
		}
	}
	name := first.(map[string]any)["name"].(string)
	if len(name) != 5 || strings.Trim(name, "a") != "" {
		t.Fatalf("stretched string malformed: %q", name)
	}
}
