// Package testfile defines the on-disk contract of generated artifacts:
// the metadata header lines, the delimited auto-generated regions, the
// deterministic file and function naming, and the patcher that rewrites
// delimited regions while leaving every other byte of a file alone.
package testfile

import (
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/swagger2pytest/internal/ir"
)

// Marker pair delimiting a managed region inside a test function. Both
// the scanner and subsequent regenerations depend on these exact strings.
const (
	MarkerStart = "# --- AUTO-GENERATED START ---"
	MarkerEnd   = "# --- AUTO-GENERATED END ---"
)

// Fixed header line prefixes. ParseRecord recognizes exactly these.
const (
	prefixEndpointID   = "endpoint_id:"
	prefixGeneratedAt  = "last_generated:"
	prefixRequestHash  = "request_schema_hash:"
	prefixResponseHash = "response_schema_hash_"
)

// Kind names an artifact group; it doubles as the directory name under
// the test root.
type Kind string

const (
	Positive Kind = "positive"
	Negative Kind = "negative"
	Security Kind = "security"
)

// Header is the metadata block stamped at the top of every artifact.
type Header struct {
	OperationID    string
	GeneratedAt    time.Time
	RequestHash    string // empty when the operation has no request body
	ResponseHashes map[string]string
}

// NewHeader computes the header for op as of now.
func NewHeader(op ir.Operation, now time.Time) Header {
	return Header{
		OperationID:    op.ID(),
		GeneratedAt:    now,
		RequestHash:    op.RequestFingerprint(),
		ResponseHashes: op.ResponseFingerprints(),
	}
}

// Lines renders the header in its canonical order: identity, timestamp,
// request hash when present, then one response hash line per status code.
func (h Header) Lines() []string {
	out := []string{
		"# " + prefixEndpointID + " " + h.OperationID,
		"# " + prefixGeneratedAt + " " + h.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if h.RequestHash != "" {
		out = append(out, "# "+prefixRequestHash+" "+h.RequestHash)
	}
	codes := make([]string, 0, len(h.ResponseHashes))
	for code := range h.ResponseHashes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		out = append(out, "# "+prefixResponseHash+code+": "+h.ResponseHashes[code])
	}
	return out
}

// isHeaderLine reports whether a line belongs to the managed header block
// and must be replaced on regeneration.
func isHeaderLine(line string) bool {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "#")
	if !ok {
		return false
	}
	rest = strings.TrimSpace(rest)
	return strings.HasPrefix(rest, prefixEndpointID) ||
		strings.HasPrefix(rest, prefixGeneratedAt) ||
		strings.HasPrefix(rest, prefixRequestHash) ||
		strings.HasPrefix(rest, prefixResponseHash)
}

// ParseRecord extracts the generation record from artifact content. The
// second return is false when the content carries no identity header, in
// which case the file is not managed by this tool and must be ignored.
func ParseRecord(content string, relPath string) (ir.GenerationRecord, bool) {
	rec := ir.GenerationRecord{Path: relPath}
	for _, line := range strings.Split(content, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "#")
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		switch {
		case strings.HasPrefix(rest, prefixEndpointID):
			rec.OperationID = strings.TrimSpace(strings.TrimPrefix(rest, prefixEndpointID))
		case strings.HasPrefix(rest, prefixRequestHash):
			rec.RequestHash = strings.TrimSpace(strings.TrimPrefix(rest, prefixRequestHash))
		case strings.HasPrefix(rest, prefixResponseHash):
			entry := strings.TrimPrefix(rest, prefixResponseHash)
			code, hash, found := strings.Cut(entry, ":")
			if !found || code == "" {
				continue
			}
			if rec.ResponseHashes == nil {
				rec.ResponseHashes = map[string]string{}
			}
			rec.ResponseHashes[code] = strings.TrimSpace(hash)
		}
	}
	return rec, rec.OperationID != ""
}

// Slug maps a URL path to its filename component: every byte outside
// [a-zA-Z0-9] becomes an underscore, then outer underscores are trimmed.
// Runs are kept as-is so distinct paths stay distinct.
func Slug(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for _, r := range path {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// FileName returns the artifact path for an operation relative to the
// test root, e.g. "positive/get_users__id.py". Paths that differ only
// in non-alphanumeric characters map to the same name; callers detect
// such collisions.
func FileName(kind Kind, method, path string) string {
	return string(kind) + "/" + strings.ToLower(method) + "_" + Slug(path) + ".py"
}

// BaseTestName returns the function-name stem every test of an operation
// starts with.
func BaseTestName(method, path string) string {
	return "test_" + strings.ToLower(method) + "_" + Slug(path)
}
