package spec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/swagger2pytest/internal/ir"
)

const (
	localSchemaPrefix = "#/components/schemas/"

	// maxMergeDepth backstops allOf expansion through reference chains.
	// Cycles are detected explicitly; the bound catches degenerate
	// non-cyclic nesting.
	maxMergeDepth = 32
)

// Media types the generator understands. Anything else on a request or
// response is a fatal UnsupportedMediaType: emitting a test against a
// representation we cannot build payloads or assertions for would only
// produce garbage.
const (
	mediaJSON = "application/json"
	mediaForm = "application/x-www-form-urlencoded"
)

// methodOrder fixes the operation sequence within a path. Paths themselves
// are sorted, so the whole operation list is deterministic.
var methodOrder = []string{"GET", "PUT", "POST", "DELETE", "OPTIONS", "HEAD", "PATCH", "TRACE"}

// Resolve converts a loaded, validated document into the canonical model:
// the named schema table, the ordered operation list, and the declared
// security schemes. Local schema references stay symbolic (never inlined);
// shared parameter/response references are resolved in place; allOf is
// merged eagerly with explicit cycle rejection.
func Resolve(doc *openapi3.T) (*ir.Specification, error) {
	r := &resolver{doc: doc}
	return r.run()
}

type resolver struct {
	doc *openapi3.T

	// expanding tracks component names currently being expanded through
	// allOf so reference cycles fail instead of recursing forever.
	expanding []string
}

func (r *resolver) run() (*ir.Specification, error) {
	out := &ir.Specification{
		Schemas:         map[string]*ir.SchemaNode{},
		SecuritySchemes: map[string]ir.SecurityScheme{},
	}
	if r.doc.Info != nil {
		out.Title = r.doc.Info.Title
		out.Version = r.doc.Info.Version
	}
	for _, srv := range r.doc.Servers {
		if srv != nil && srv.URL != "" {
			out.Servers = append(out.Servers, srv.URL)
		}
	}

	if r.doc.Components != nil {
		names := make([]string, 0, len(r.doc.Components.Schemas))
		for name := range r.doc.Components.Schemas {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r.expanding = r.expanding[:0]
			r.expanding = append(r.expanding, name)
			node, err := r.schemaRef(r.doc.Components.Schemas[name])
			if err != nil {
				return nil, err
			}
			out.Schemas[name] = node
		}
		r.expanding = r.expanding[:0]

		for name, ref := range r.doc.Components.SecuritySchemes {
			if ref == nil || ref.Value == nil {
				continue
			}
			v := ref.Value
			out.SecuritySchemes[name] = ir.SecurityScheme{
				Type:         v.Type,
				Scheme:       v.Scheme,
				Name:         v.Name,
				In:           v.In,
				BearerFormat: v.BearerFormat,
			}
		}
	}

	paths := make([]string, 0, len(r.doc.Paths))
	for p := range r.doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, path := range paths {
		item := r.doc.Paths[path]
		if item == nil {
			continue
		}
		for _, method := range methodOrder {
			rawOp := item.GetOperation(method)
			if rawOp == nil {
				continue
			}
			op, err := r.operation(method, path, item, rawOp)
			if err != nil {
				return nil, err
			}
			out.Operations = append(out.Operations, op)
		}
	}
	return out, nil
}

func (r *resolver) operation(method, path string, item *openapi3.PathItem, raw *openapi3.Operation) (ir.Operation, error) {
	op := ir.Operation{
		Method:    method,
		Path:      path,
		Summary:   raw.Summary,
		Responses: map[string]*ir.SchemaNode{},
	}

	params, err := r.parameters(item.Parameters, raw.Parameters)
	if err != nil {
		return op, wrapOpErr(err, method, path)
	}
	op.Parameters = params

	if raw.RequestBody != nil && raw.RequestBody.Value != nil {
		body, err := r.requestBody(raw.RequestBody.Value)
		if err != nil {
			return op, wrapOpErr(err, method, path)
		}
		op.Request = body
	}

	for code, rref := range raw.Responses {
		if rref == nil || rref.Value == nil {
			op.Responses[code] = &ir.SchemaNode{Kind: ir.KindEmpty}
			continue
		}
		node, err := r.responseSchema(rref.Value)
		if err != nil {
			return op, wrapOpErr(err, method, path)
		}
		op.Responses[code] = node
	}

	op.Security = r.effectiveSecurity(raw)
	return op, nil
}

// parameters merges path-level parameters under operation-level ones,
// keyed by (location, name); the operation wins on conflict.
func (r *resolver) parameters(pathLevel, opLevel openapi3.Parameters) ([]ir.Parameter, error) {
	merged := map[string]ir.Parameter{}
	order := []string{}
	add := func(list openapi3.Parameters) error {
		for _, pref := range list {
			if pref == nil || pref.Value == nil {
				continue
			}
			p := pref.Value
			node, err := r.schemaRef(p.Schema)
			if err != nil {
				return err
			}
			key := strings.ToLower(p.In) + "\x00" + p.Name
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = ir.Parameter{Name: p.Name, In: p.In, Required: p.Required, Schema: node}
		}
		return nil
	}
	if err := add(pathLevel); err != nil {
		return nil, err
	}
	if err := add(opLevel); err != nil {
		return nil, err
	}
	out := make([]ir.Parameter, 0, len(order))
	for _, key := range order {
		out = append(out, merged[key])
	}
	return out, nil
}

func (r *resolver) requestBody(rb *openapi3.RequestBody) (*ir.RequestBody, error) {
	if len(rb.Content) == 0 {
		return nil, nil
	}
	for _, ct := range []string{mediaJSON, mediaForm} {
		if mt, ok := rb.Content[ct]; ok && mt != nil {
			node, err := r.schemaRef(mt.Schema)
			if err != nil {
				return nil, err
			}
			return &ir.RequestBody{ContentType: ct, Required: rb.Required, Schema: node}, nil
		}
	}
	return nil, &SpecError{
		Code:    UnsupportedMediaType,
		Message: fmt.Sprintf("spec: unsupported request media type(s) %s", contentTypes(rb.Content)),
	}
}

// responseSchema returns the JSON schema of a response, or the Empty node
// for bodiless responses. A response whose content carries no JSON
// representation at all is unsupported.
func (r *resolver) responseSchema(resp *openapi3.Response) (*ir.SchemaNode, error) {
	if len(resp.Content) == 0 {
		return &ir.SchemaNode{Kind: ir.KindEmpty}, nil
	}
	if mt, ok := resp.Content[mediaJSON]; ok && mt != nil {
		return r.schemaRef(mt.Schema)
	}
	return nil, &SpecError{
		Code:    UnsupportedMediaType,
		Message: fmt.Sprintf("spec: unsupported response media type(s) %s", contentTypes(resp.Content)),
	}
}

func contentTypes(c openapi3.Content) string {
	types := make([]string, 0, len(c))
	for ct := range c {
		types = append(types, ct)
	}
	sort.Strings(types)
	return strings.Join(types, ", ")
}

// effectiveSecurity applies the override rule: an operation-level
// requirement list, even an empty one, replaces the document-global list.
func (r *resolver) effectiveSecurity(raw *openapi3.Operation) []ir.SecurityRequirement {
	var src openapi3.SecurityRequirements
	if raw.Security != nil {
		src = *raw.Security
	} else {
		src = r.doc.Security
	}
	out := make([]ir.SecurityRequirement, 0, len(src))
	for _, req := range src {
		conv := ir.SecurityRequirement{}
		for scheme, scopes := range req {
			conv[scheme] = append([]string(nil), scopes...)
		}
		out = append(out, conv)
	}
	return out
}

// schemaRef converts one schema reference. Local schema-table refs become
// symbolic Reference nodes; everything else is converted structurally.
func (r *resolver) schemaRef(ref *openapi3.SchemaRef) (*ir.SchemaNode, error) {
	if ref == nil {
		return &ir.SchemaNode{Kind: ir.KindEmpty}, nil
	}
	if ref.Ref != "" {
		if name, ok := strings.CutPrefix(ref.Ref, localSchemaPrefix); ok {
			return &ir.SchemaNode{Kind: ir.KindReference, Ref: name}, nil
		}
		// Shared responses/parameters arrive pre-resolved; a schema ref
		// outside the table with no resolved value is beyond the
		// single-document contract.
		if ref.Value == nil {
			return nil, &SpecError{Code: UnsupportedReference, Message: fmt.Sprintf("spec: unresolvable reference %q", ref.Ref)}
		}
	}
	return r.schema(ref.Value)
}

func (r *resolver) schema(s *openapi3.Schema) (*ir.SchemaNode, error) {
	if s == nil {
		return &ir.SchemaNode{Kind: ir.KindEmpty}, nil
	}
	if len(s.AllOf) > 0 {
		return r.mergeAllOf(s)
	}
	if len(s.OneOf) > 0 {
		return r.alternatives(ir.KindOneOf, s, s.OneOf)
	}
	if len(s.AnyOf) > 0 {
		return r.alternatives(ir.KindAnyOf, s, s.AnyOf)
	}

	node := &ir.SchemaNode{}
	switch s.Type {
	case "object":
		node.Kind = ir.KindObject
	case "array":
		node.Kind = ir.KindArray
	case "string":
		node.Kind = ir.KindString
	case "integer":
		node.Kind = ir.KindInteger
	case "number":
		node.Kind = ir.KindNumber
	case "boolean":
		node.Kind = ir.KindBoolean
	case "":
		if len(s.Properties) > 0 {
			node.Kind = ir.KindObject
		} else if s.Items != nil {
			node.Kind = ir.KindArray
		} else {
			node.Kind = ir.KindEmpty
		}
	default:
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("spec: unknown schema type %q", s.Type)}
	}

	if node.Kind == ir.KindObject && len(s.Properties) > 0 {
		props, err := r.properties(s.Properties)
		if err != nil {
			return nil, err
		}
		node.Properties = props
		node.Required = append([]string(nil), s.Required...)
	} else if node.Kind == ir.KindObject {
		node.Required = append([]string(nil), s.Required...)
	}
	if node.Kind == ir.KindArray && s.Items != nil {
		items, err := r.schemaRef(s.Items)
		if err != nil {
			return nil, err
		}
		node.Items = items
	}

	applyConstraints(node, s)
	return node, nil
}

func (r *resolver) properties(src openapi3.Schemas) (map[string]*ir.SchemaNode, error) {
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[string]*ir.SchemaNode, len(names))
	for _, name := range names {
		node, err := r.schemaRef(src[name])
		if err != nil {
			return nil, err
		}
		out[name] = node
	}
	return out, nil
}

func (r *resolver) alternatives(kind ir.Kind, s *openapi3.Schema, refs openapi3.SchemaRefs) (*ir.SchemaNode, error) {
	node := &ir.SchemaNode{Kind: kind}
	for _, mref := range refs {
		member, err := r.schemaRef(mref)
		if err != nil {
			return nil, err
		}
		node.Alternatives = append(node.Alternatives, member)
	}
	applyConstraints(node, s)
	return node, nil
}

// mergeAllOf flattens an allOf composition into one generation-ready node:
// right-biased property union (later members, then local properties, win),
// required set union, type from the last member that declares one with
// object as the fallback. Reference members are expanded exactly one level
// so their properties become visible; the unmerged member list is retained
// on the node.
func (r *resolver) mergeAllOf(s *openapi3.Schema) (*ir.SchemaNode, error) {
	if len(r.expanding) > maxMergeDepth {
		return nil, &SpecError{
			Code:    ValidationError,
			Message: fmt.Sprintf("spec: allOf nesting deeper than %d levels", maxMergeDepth),
		}
	}

	members := make([]*ir.SchemaNode, 0, len(s.AllOf))
	props := map[string]*ir.SchemaNode{}
	var required []string
	seenRequired := map[string]bool{}
	mergedType := ""

	addRequired := func(names []string) {
		for _, name := range names {
			if !seenRequired[name] {
				seenRequired[name] = true
				required = append(required, name)
			}
		}
	}

	for _, mref := range s.AllOf {
		member, err := r.schemaRef(mref)
		if err != nil {
			return nil, err
		}
		members = append(members, member)

		view := member
		if member.Kind == ir.KindReference {
			view, err = r.expandComponent(member.Ref)
			if err != nil {
				return nil, err
			}
		}
		for _, name := range view.PropertyNames() {
			props[name] = view.Properties[name]
		}
		addRequired(view.Required)
		if t := declaredType(view.Kind); t != "" {
			mergedType = t
		}
	}

	if len(s.Properties) > 0 {
		local, err := r.properties(s.Properties)
		if err != nil {
			return nil, err
		}
		for name, child := range local {
			props[name] = child
		}
	}
	addRequired(s.Required)

	kind := ir.KindObject
	switch mergedType {
	case "", "object":
	case "string":
		kind = ir.KindString
	case "integer":
		kind = ir.KindInteger
	case "number":
		kind = ir.KindNumber
	case "boolean":
		kind = ir.KindBoolean
	case "array":
		kind = ir.KindArray
	}

	node := &ir.SchemaNode{
		Kind:       kind,
		Properties: props,
		Required:   required,
		MergedFrom: members,
	}
	applyConstraints(node, s)
	return node, nil
}

// expandComponent resolves a schema-table member for allOf merging,
// rejecting cycles by name.
func (r *resolver) expandComponent(name string) (*ir.SchemaNode, error) {
	for _, active := range r.expanding {
		if active == name {
			return nil, &SpecError{
				Code:    ValidationError,
				Message: fmt.Sprintf("spec: allOf reference cycle through %q (chain: %s)", name, strings.Join(append(r.expanding, name), " -> ")),
			}
		}
	}
	if r.doc.Components == nil {
		return nil, &SpecError{Code: UnsupportedReference, Message: fmt.Sprintf("spec: unresolvable reference %q", name)}
	}
	ref, ok := r.doc.Components.Schemas[name]
	if !ok {
		return nil, &SpecError{Code: UnsupportedReference, Message: fmt.Sprintf("spec: unresolvable reference %q", name)}
	}
	r.expanding = append(r.expanding, name)
	node, err := r.schemaRef(ref)
	r.expanding = r.expanding[:len(r.expanding)-1]
	return node, err
}

func declaredType(k ir.Kind) string {
	switch k {
	case ir.KindObject:
		return "object"
	case ir.KindArray:
		return "array"
	case ir.KindString:
		return "string"
	case ir.KindInteger:
		return "integer"
	case ir.KindNumber:
		return "number"
	case ir.KindBoolean:
		return "boolean"
	}
	return ""
}

func applyConstraints(node *ir.SchemaNode, s *openapi3.Schema) {
	if len(s.Enum) > 0 {
		node.Enum = append([]any(nil), s.Enum...)
	}
	if s.Min != nil {
		v := *s.Min
		node.Min = &v
	}
	if s.Max != nil {
		v := *s.Max
		node.Max = &v
	}
	if s.MinLength > 0 {
		v := s.MinLength
		node.MinLength = &v
	}
	if s.MaxLength != nil {
		v := *s.MaxLength
		node.MaxLength = &v
	}
	node.Pattern = s.Pattern
	node.Format = s.Format
	node.ReadOnly = s.ReadOnly
	node.WriteOnly = s.WriteOnly
	node.Nullable = s.Nullable
	if len(s.Extensions) > 0 {
		node.Extra = make(map[string]any, len(s.Extensions))
		for k, v := range s.Extensions {
			node.Extra[k] = v
		}
	}
}

func wrapOpErr(err error, method, path string) error {
	var se *SpecError
	if errors.As(err, &se) && se.JSONPointer == "" {
		return &SpecError{
			Code:        se.Code,
			Message:     fmt.Sprintf("%s %s: %s", strings.ToUpper(method), path, se.Message),
			Location:    se.Location,
			JSONPointer: fmt.Sprintf("#/paths/%s/%s", escapePointer(path), strings.ToLower(method)),
			Cause:       se,
		}
	}
	return err
}

func escapePointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}
