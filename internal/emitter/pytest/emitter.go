// Package pytest renders generated test content: one artifact per test
// kind and operation, plus the bootstrap files the generated code relies
// on. Rendering is pure; the engine decides what reaches disk.
package pytest

import (
	"path"
	"strconv"
	"strings"

	"github.com/mark3labs/swagger2pytest/internal/gen"
	"github.com/mark3labs/swagger2pytest/internal/ir"
	"github.com/mark3labs/swagger2pytest/internal/testfile"
)

const formContentType = "application/x-www-form-urlencoded"

// Options selects which artifact kinds Build produces and where their
// paths are anchored.
type Options struct {
	TestDir  string
	Negative bool
	Security bool
}

// Artifact is one renderable test file.
type Artifact struct {
	Kind    testfile.Kind
	Path    string // repo-root relative, slash separated
	Imports []string
	Tests   []testfile.Test
}

// defaultImports head every fresh artifact. pytest is always imported:
// positive tests may skip, the other kinds carry marks.
var defaultImports = []string{"import pytest", "", "from client import client"}

// Build renders every artifact an operation warrants: the positive file
// always, the negative file when enabled and the request schema yields
// mutations, the security file when enabled and the operation requires
// credentials.
func Build(op ir.Operation, table map[string]*ir.SchemaNode, opts Options) []Artifact {
	out := []Artifact{{
		Kind:    testfile.Positive,
		Path:    artifactPath(opts.TestDir, testfile.Positive, op),
		Imports: defaultImports,
		Tests:   positiveTests(op, table),
	}}
	if opts.Negative {
		if art, ok := negativeArtifact(op, table, opts); ok {
			out = append(out, art)
		}
	}
	if opts.Security {
		if art, ok := securityArtifact(op, table, opts); ok {
			out = append(out, art)
		}
	}
	return out
}

func artifactPath(testDir string, kind testfile.Kind, op ir.Operation) string {
	return path.Join(testDir, testfile.FileName(kind, op.Method, op.Path))
}

// requestSetup renders path-parameter assignments and the params dict for
// required query parameters, returning the extra call arguments.
func requestSetup(op ir.Operation, table map[string]*ir.SchemaNode) (lines, args []string) {
	for _, p := range op.Parameters {
		if p.In != "path" {
			continue
		}
		lines = append(lines, pyIdent(p.Name)+" = "+pyLiteral(paramSample(p, table)))
	}
	query := map[string]any{}
	for _, p := range op.Parameters {
		if p.In != "query" || !p.Required {
			continue
		}
		query[p.Name] = paramSample(p, table)
	}
	if len(query) > 0 {
		lines = append(lines, "params = "+pyLiteral(query))
		args = append(args, "params=params")
	}
	return lines, args
}

func paramSample(p ir.Parameter, table map[string]*ir.SchemaNode) any {
	if v := gen.SamplePayload(p.Schema, table); v != nil {
		return v
	}
	return "test"
}

// payloadSetup renders the request payload assignment when the operation
// declares a body with a sampleable schema.
func payloadSetup(op ir.Operation, table map[string]*ir.SchemaNode) (lines, args []string) {
	if op.Request == nil || op.Request.Schema == nil {
		return nil, nil
	}
	sample := gen.SamplePayload(op.Request.Schema, table)
	if sample == nil {
		return nil, nil
	}
	return []string{"payload = " + pyLiteral(sample)}, []string{bodyArg(op)}
}

func bodyArg(op ir.Operation) string {
	if op.Request != nil && op.Request.ContentType == formContentType {
		return "data=payload"
	}
	return "json=payload"
}

// fstringPath renders the request path as an f-string, rewriting each
// path-parameter placeholder to its Python identifier.
func fstringPath(op ir.Operation) string {
	p := op.Path
	for _, param := range op.Parameters {
		if param.In != "path" {
			continue
		}
		p = strings.ReplaceAll(p, "{"+param.Name+"}", "{"+pyIdent(param.Name)+"}")
	}
	return `f"` + p + `"`
}

func requestLine(clientExpr string, op ir.Operation, args []string) string {
	call := clientExpr + "." + strings.ToLower(op.Method) + "(" + fstringPath(op)
	for _, a := range args {
		call += ", " + a
	}
	return "response = " + call + ")"
}

func statusAssertion(code string) string {
	switch code {
	case "2XX", "2xx":
		return "assert 200 <= response.status_code < 300"
	case "default", "":
		return "assert response.status_code < 400"
	}
	return "assert response.status_code == " + code
}

// responseChecks decodes the body and asserts its declared shape. Nothing
// is rendered for bodiless responses.
func responseChecks(node *ir.SchemaNode, table map[string]*ir.SchemaNode) []string {
	if node == nil || node.Kind == ir.KindEmpty {
		return nil
	}
	asserts := gen.ResponseAssertions(node, table)
	if len(asserts) == 0 {
		return nil
	}
	return append([]string{"data = response.json()"}, renderAssertions(asserts, "data")...)
}

func positiveTests(op ir.Operation, table map[string]*ir.SchemaNode) []testfile.Test {
	setup, args := requestSetup(op, table)
	payLines, payArgs := payloadSetup(op, table)
	setup = append(setup, payLines...)
	args = append(args, payArgs...)

	primaryCode, primarySchema := op.PrimaryResponse()

	body := append([]string{}, setup...)
	body = append(body, requestLine("client", op, args))
	body = append(body, statusAssertion(primaryCode))
	body = append(body, responseChecks(primarySchema, table)...)

	baseName := testfile.BaseTestName(op.Method, op.Path)
	tests := []testfile.Test{{Name: baseName, Body: body}}

	// Secondary success codes get their own guarded test: same request,
	// skipped unless the endpoint actually answered with that code.
	for _, code := range op.ResponseCodes() {
		if code == primaryCode {
			continue
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < 200 || n > 299 {
			continue
		}
		alt := append([]string{}, setup...)
		alt = append(alt, requestLine("client", op, args))
		alt = append(alt, "if response.status_code != "+code+":")
		alt = append(alt, `    pytest.skip("endpoint answered with a different success code")`)
		alt = append(alt, responseChecks(op.Responses[code], table)...)
		tests = append(tests, testfile.Test{Name: baseName + "_" + code, Body: alt})
	}
	return tests
}

func negativeArtifact(op ir.Operation, table map[string]*ir.SchemaNode, opts Options) (Artifact, bool) {
	if op.Request == nil || op.Request.Schema == nil {
		return Artifact{}, false
	}
	base, ok := gen.SamplePayload(op.Request.Schema, table).(map[string]any)
	if !ok {
		return Artifact{}, false
	}
	cases := gen.Mutations(op.Request.Schema, table, base)
	if len(cases) == 0 {
		return Artifact{}, false
	}

	setup, args := requestSetup(op, table)
	errChecks := append([]string{"data = response.json()"},
		renderAssertions(gen.ErrorAssertions(gen.ErrorResponseSchema(op), table), "data")...)
	baseName := testfile.BaseTestName(op.Method, op.Path)

	tests := make([]testfile.Test, 0, len(cases))
	for _, c := range cases {
		body := append([]string{}, setup...)
		body = append(body, "payload = "+pyLiteral(c.Payload))
		body = append(body, requestLine("client", op, append(append([]string{}, args...), bodyArg(op))))
		body = append(body, "assert 400 <= response.status_code < 500")
		body = append(body, errChecks...)
		tests = append(tests, testfile.Test{
			Name:       baseName + "_" + pyIdent(c.Description),
			Decorators: []string{"@pytest.mark.negative"},
			Body:       body,
		})
	}
	return Artifact{
		Kind:    testfile.Negative,
		Path:    artifactPath(opts.TestDir, testfile.Negative, op),
		Imports: defaultImports,
		Tests:   tests,
	}, true
}

func securityArtifact(op ir.Operation, table map[string]*ir.SchemaNode, opts Options) (Artifact, bool) {
	scenarios := gen.SecurityScenarios(op)
	if len(scenarios) == 0 {
		return Artifact{}, false
	}

	setup, args := requestSetup(op, table)
	payLines, payArgs := payloadSetup(op, table)
	setup = append(setup, payLines...)
	args = append(args, payArgs...)
	baseName := testfile.BaseTestName(op.Method, op.Path)

	tests := make([]testfile.Test, 0, len(scenarios))
	for _, sc := range scenarios {
		clientExpr := "client.with_token(None)"
		if sc.Token != nil {
			clientExpr = "client.with_token(" + pyString(*sc.Token) + ")"
		}
		body := append([]string{}, setup...)
		body = append(body, requestLine(clientExpr, op, args))
		body = append(body, "assert response.status_code in (401, 403)")
		tests = append(tests, testfile.Test{
			Name:       baseName + "_" + sc.Name,
			Decorators: []string{"@pytest.mark.security"},
			Body:       body,
		})
	}
	return Artifact{
		Kind:    testfile.Security,
		Path:    artifactPath(opts.TestDir, testfile.Security, op),
		Imports: defaultImports,
		Tests:   tests,
	}, true
}
