package ir

import (
	"sort"
	"strconv"
	"strings"
)

// Parameter describes one operation parameter.
type Parameter struct {
	Name     string
	In       string // "path", "query", "header", "cookie"
	Required bool
	Schema   *SchemaNode
}

// RequestBody describes an operation's request payload.
type RequestBody struct {
	ContentType string
	Required    bool
	Schema      *SchemaNode
}

// SecurityRequirement maps scheme names to their requested scopes.
type SecurityRequirement map[string][]string

// SecurityScheme is a declared authentication scheme, carried so the
// security-scenario generator knows how credentials travel.
type SecurityScheme struct {
	Type         string // "http", "apiKey", "oauth2", "openIdConnect"
	Scheme       string // "bearer", "basic" (http type)
	Name         string // header/query name (apiKey type)
	In           string // "header", "query", "cookie" (apiKey type)
	BearerFormat string
}

// Operation is one addressable unit of the API. Summary is non-semantic
// and never fingerprinted.
type Operation struct {
	Method     string
	Path       string
	Summary    string
	Parameters []Parameter
	Request    *RequestBody
	Responses  map[string]*SchemaNode // status code or "default" -> schema
	Security   []SecurityRequirement  // effective (operation overrides global)
}

// ID returns the operation identity, the diff join key. Unique within a
// Specification.
func (o *Operation) ID() string {
	return strings.ToUpper(o.Method) + " " + o.Path
}

// ResponseCodes returns the declared status codes sorted numerically, with
// non-numeric codes (range wildcards) after them and "default" always last.
func (o *Operation) ResponseCodes() []string {
	codes := make([]string, 0, len(o.Responses))
	for code := range o.Responses {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		return responseCodeRank(codes[i]) < responseCodeRank(codes[j]) ||
			(responseCodeRank(codes[i]) == responseCodeRank(codes[j]) && codes[i] < codes[j])
	})
	return codes
}

func responseCodeRank(code string) int {
	if code == "default" {
		return 1 << 20
	}
	if n, err := strconv.Atoi(code); err == nil {
		return n
	}
	// Range wildcards like "2XX" sort after exact codes.
	return 1 << 19
}

// PrimaryResponse picks the response the positive test exercises: the
// lowest declared 2xx code, else a 2XX range wildcard, else "default".
// Returns ("", nil) when nothing qualifies.
func (o *Operation) PrimaryResponse() (string, *SchemaNode) {
	best := ""
	bestNum := 0
	for code := range o.Responses {
		n, err := strconv.Atoi(code)
		if err != nil || n < 200 || n > 299 {
			continue
		}
		if best == "" || n < bestNum {
			best, bestNum = code, n
		}
	}
	if best != "" {
		return best, o.Responses[best]
	}
	for _, code := range []string{"2XX", "2xx", "default"} {
		if node, ok := o.Responses[code]; ok {
			return code, node
		}
	}
	return "", nil
}

// RequestFingerprint returns the fingerprint of the request schema, or ""
// when the operation declares no request body.
func (o *Operation) RequestFingerprint() string {
	if o.Request == nil {
		return ""
	}
	return Fingerprint(o.Request.Schema)
}

// ResponseFingerprints maps every declared status code to its schema
// fingerprint.
func (o *Operation) ResponseFingerprints() map[string]string {
	out := make(map[string]string, len(o.Responses))
	for code, node := range o.Responses {
		out[code] = Fingerprint(node)
	}
	return out
}

// Specification is a fully resolved interface description.
type Specification struct {
	Title   string
	Version string
	Servers []string

	// Schemas is the shared named-schema table Reference nodes point into.
	Schemas map[string]*SchemaNode

	// Operations is ordered: paths sorted lexicographically, methods in
	// canonical order within a path.
	Operations []Operation

	SecuritySchemes map[string]SecurityScheme
}

// SchemaNames returns the schema-table names sorted lexicographically.
func (s *Specification) SchemaNames() []string {
	names := make([]string, 0, len(s.Schemas))
	for name := range s.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerationRecord is the per-artifact state recovered by scanning a
// previously generated file. Records are rebuilt from disk on every run;
// the generated files are the only persistence.
type GenerationRecord struct {
	OperationID    string
	RequestHash    string // "" when the artifact recorded no request schema
	ResponseHashes map[string]string
	Path           string // artifact path relative to the repository root, slash-separated
}

// MutationCase is one negative-test perturbation: a stable description slug
// (the idempotence key) and a payload differing from the valid baseline in
// exactly one field.
type MutationCase struct {
	Description string
	Payload     map[string]any
}
