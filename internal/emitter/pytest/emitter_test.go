package pytest

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mark3labs/swagger2pytest/internal/ir"
	"github.com/mark3labs/swagger2pytest/internal/testfile"
)

func getUsersOp() ir.Operation {
	return ir.Operation{
		Method: "GET",
		Path:   "/users",
		Responses: map[string]*ir.SchemaNode{
			"200": {Kind: ir.KindObject, Properties: map[string]*ir.SchemaNode{"id": {Kind: ir.KindInteger}}},
		},
	}
}

func TestBuild_PositiveOnlyByDefault(t *testing.T) {
	t.Parallel()
	arts := Build(getUsersOp(), nil, Options{TestDir: "tests"})
	if len(arts) != 1 {
		t.Fatalf("expected one artifact, got %d", len(arts))
	}
	if arts[0].Kind != testfile.Positive || arts[0].Path != "tests/positive/get_users.py" {
		t.Fatalf("unexpected artifact: %+v", arts[0])
	}
	if len(arts[0].Tests) != 1 || arts[0].Tests[0].Name != "test_get_users" {
		t.Fatalf("unexpected tests: %+v", arts[0].Tests)
	}
}

func TestPositiveBody_PathAndQueryParameters(t *testing.T) {
	t.Parallel()
	op := ir.Operation{
		Method: "GET",
		Path:   "/items/{item-id}",
		Parameters: []ir.Parameter{
			{Name: "item-id", In: "path", Required: true, Schema: &ir.SchemaNode{Kind: ir.KindString}},
			{Name: "pageSize", In: "query", Required: true, Schema: &ir.SchemaNode{Kind: ir.KindInteger}},
			{Name: "filter", In: "query", Required: false, Schema: &ir.SchemaNode{Kind: ir.KindString}},
		},
		Responses: map[string]*ir.SchemaNode{
			"200": {Kind: ir.KindObject, Properties: map[string]*ir.SchemaNode{"id": {Kind: ir.KindInteger}}},
		},
	}

	arts := Build(op, nil, Options{TestDir: "tests"})
	want := []string{
		`item_id = "test"`,
		`params = {"pageSize": 1}`,
		`response = client.get(f"/items/{item_id}", params=params)`,
		"assert response.status_code == 200",
		"data = response.json()",
		"assert isinstance(data, dict)",
		`assert "id" in data`,
		`assert isinstance(data["id"], int)`,
	}
	if diff := cmp.Diff(want, arts[0].Tests[0].Body); diff != "" {
		t.Fatalf("positive body mismatch (-want +got):\n%s", diff)
	}
}

func TestPositiveBody_JSONPayload(t *testing.T) {
	t.Parallel()
	op := ir.Operation{
		Method: "POST",
		Path:   "/users",
		Request: &ir.RequestBody{
			ContentType: "application/json",
			Schema: &ir.SchemaNode{
				Kind:       ir.KindObject,
				Properties: map[string]*ir.SchemaNode{"name": {Kind: ir.KindString}},
			},
		},
		Responses: map[string]*ir.SchemaNode{"201": {Kind: ir.KindObject}},
	}

	body := Build(op, nil, Options{})[0].Tests[0].Body
	joined := strings.Join(body, "\n")
	if !strings.Contains(joined, `payload = {"name": "test"}`) {
		t.Fatalf("payload line missing:\n%s", joined)
	}
	if !strings.Contains(joined, `response = client.post(f"/users", json=payload)`) {
		t.Fatalf("request line missing:\n%s", joined)
	}
	if !strings.Contains(joined, "assert response.status_code == 201") {
		t.Fatalf("status assertion missing:\n%s", joined)
	}
}

func TestPositiveBody_FormPayload(t *testing.T) {
	t.Parallel()
	op := ir.Operation{
		Method: "POST",
		Path:   "/items",
		Request: &ir.RequestBody{
			ContentType: formContentType,
			Schema: &ir.SchemaNode{
				Kind:       ir.KindObject,
				Properties: map[string]*ir.SchemaNode{"name": {Kind: ir.KindString}},
			},
		},
		Responses: map[string]*ir.SchemaNode{"201": {Kind: ir.KindEmpty}},
	}
	joined := strings.Join(Build(op, nil, Options{})[0].Tests[0].Body, "\n")
	if !strings.Contains(joined, "data=payload") || strings.Contains(joined, "json=payload") {
		t.Fatalf("form payload must travel as data=:\n%s", joined)
	}
}

func TestPositiveBody_StatusForms(t *testing.T) {
	t.Parallel()
	cases := []struct {
		code string
		want string
	}{
		{"2XX", "assert 200 <= response.status_code < 300"},
		{"default", "assert response.status_code < 400"},
	}
	for _, tc := range cases {
		op := ir.Operation{Method: "GET", Path: "/x", Responses: map[string]*ir.SchemaNode{tc.code: {Kind: ir.KindEmpty}}}
		joined := strings.Join(Build(op, nil, Options{})[0].Tests[0].Body, "\n")
		if !strings.Contains(joined, tc.want) {
			t.Errorf("code %s: want %q in:\n%s", tc.code, tc.want, joined)
		}
	}
}

func TestPositiveBody_SecondarySuccessCode(t *testing.T) {
	t.Parallel()
	op := ir.Operation{
		Method: "POST",
		Path:   "/jobs",
		Responses: map[string]*ir.SchemaNode{
			"200": {Kind: ir.KindObject},
			"202": {Kind: ir.KindObject, Properties: map[string]*ir.SchemaNode{"status": {Kind: ir.KindString}}},
		},
	}
	tests := Build(op, nil, Options{})[0].Tests
	if len(tests) != 2 {
		t.Fatalf("expected primary plus one secondary test, got %d", len(tests))
	}
	if tests[1].Name != "test_post_jobs_202" {
		t.Fatalf("secondary test name %q", tests[1].Name)
	}
	joined := strings.Join(tests[1].Body, "\n")
	if !strings.Contains(joined, "if response.status_code != 202:") ||
		!strings.Contains(joined, "pytest.skip(") {
		t.Fatalf("secondary test must guard on its code:\n%s", joined)
	}
	if !strings.Contains(joined, `assert "status" in data`) {
		t.Fatalf("secondary test must assert its own schema:\n%s", joined)
	}
}

func negativeFixture() ir.Operation {
	return ir.Operation{
		Method: "POST",
		Path:   "/users",
		Request: &ir.RequestBody{
			ContentType: "application/json",
			Schema: &ir.SchemaNode{
				Kind:     ir.KindObject,
				Required: []string{"name"},
				Properties: map[string]*ir.SchemaNode{
					"name": {Kind: ir.KindString},
				},
			},
		},
		Responses: map[string]*ir.SchemaNode{"201": {Kind: ir.KindObject}},
	}
}

func TestNegativeArtifact(t *testing.T) {
	t.Parallel()
	arts := Build(negativeFixture(), nil, Options{TestDir: "tests", Negative: true})
	if len(arts) != 2 {
		t.Fatalf("expected positive and negative artifacts, got %d", len(arts))
	}
	neg := arts[1]
	if neg.Kind != testfile.Negative || neg.Path != "tests/negative/post_users.py" {
		t.Fatalf("unexpected negative artifact: %+v", neg)
	}
	if len(neg.Tests) == 0 {
		t.Fatalf("no negative tests rendered")
	}
	first := neg.Tests[0]
	if first.Name != "test_post_users_missing_required_field_name" {
		t.Fatalf("first mutation test name %q", first.Name)
	}
	if len(first.Decorators) != 1 || first.Decorators[0] != "@pytest.mark.negative" {
		t.Fatalf("negative mark missing: %+v", first.Decorators)
	}
	joined := strings.Join(first.Body, "\n")
	for _, want := range []string{
		"payload = {}",
		`response = client.post(f"/users", json=payload)`,
		"assert 400 <= response.status_code < 500",
		"data = response.json()",
		"assert isinstance(data, dict)",
		`if "code" in data: assert isinstance(data["code"], int)`,
		`if "message" in data: assert isinstance(data["message"], str)`,
		`if "details" in data: assert isinstance(data["details"], list)`,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestNegativeArtifact_DeclaredErrorSchema(t *testing.T) {
	t.Parallel()
	op := negativeFixture()
	op.Responses["400"] = &ir.SchemaNode{
		Kind:       ir.KindObject,
		Properties: map[string]*ir.SchemaNode{"error": {Kind: ir.KindString}},
	}
	arts := Build(op, nil, Options{Negative: true})
	joined := strings.Join(arts[1].Tests[0].Body, "\n")
	if !strings.Contains(joined, `assert "error" in data`) {
		t.Fatalf("declared error schema must drive the assertions:\n%s", joined)
	}
	if strings.Contains(joined, `if "code" in data`) {
		t.Fatalf("generic fallback must not render when a schema is declared:\n%s", joined)
	}
}

func TestNegativeSkippedWithoutObjectBody(t *testing.T) {
	t.Parallel()
	arts := Build(getUsersOp(), nil, Options{Negative: true, Security: true})
	for _, a := range arts {
		if a.Kind == testfile.Negative {
			t.Fatalf("bodiless operation must not produce a negative artifact")
		}
	}
}

func TestSecurityArtifact(t *testing.T) {
	t.Parallel()
	op := getUsersOp()
	op.Security = []ir.SecurityRequirement{{"bearerAuth": nil}}
	arts := Build(op, nil, Options{TestDir: "tests", Security: true})
	if len(arts) != 2 {
		t.Fatalf("expected positive and security artifacts, got %d", len(arts))
	}
	sec := arts[1]
	if sec.Path != "tests/security/get_users.py" {
		t.Fatalf("security path %q", sec.Path)
	}
	if len(sec.Tests) != 3 {
		t.Fatalf("expected three scenarios, got %d", len(sec.Tests))
	}

	wantNames := []string{
		"test_get_users_security_no_token",
		"test_get_users_security_invalid_token",
		"test_get_users_security_expired_token",
	}
	for i, test := range sec.Tests {
		if test.Name != wantNames[i] {
			t.Errorf("scenario %d name %q, want %q", i, test.Name, wantNames[i])
		}
		if len(test.Decorators) != 1 || test.Decorators[0] != "@pytest.mark.security" {
			t.Errorf("scenario %d mark missing: %+v", i, test.Decorators)
		}
		joined := strings.Join(test.Body, "\n")
		if !strings.Contains(joined, "assert response.status_code in (401, 403)") {
			t.Errorf("scenario %d status assertion missing:\n%s", i, joined)
		}
	}

	if !strings.Contains(strings.Join(sec.Tests[0].Body, "\n"), "client.with_token(None).get(") {
		t.Fatalf("no-token scenario must drop the credential")
	}
	if !strings.Contains(strings.Join(sec.Tests[1].Body, "\n"), `client.with_token("INVALID_TOKEN_123")`) {
		t.Fatalf("invalid-token scenario literal wrong")
	}
	if !strings.Contains(strings.Join(sec.Tests[2].Body, "\n"), `client.with_token("eyJ`) {
		t.Fatalf("expired-token scenario must carry the minted JWT")
	}
}

func TestSecuritySkippedWithoutRequirements(t *testing.T) {
	t.Parallel()
	arts := Build(getUsersOp(), nil, Options{Security: true})
	if len(arts) != 1 {
		t.Fatalf("operation without security must not produce a security artifact")
	}
}

func TestBootstrapFiles(t *testing.T) {
	t.Parallel()
	files := BootstrapFiles(BootstrapOptions{})
	for _, name := range []string{"conftest.py", "client.py", "pytest.ini"} {
		if files[name] == "" {
			t.Fatalf("bootstrap file %s missing", name)
		}
	}
	if !strings.Contains(files["client.py"], `os.environ.get("API_BASE_URL", "http://localhost:8000")`) {
		t.Fatalf("default base url not baked:\n%s", files["client.py"])
	}
	if !strings.Contains(files["client.py"], `os.environ.get("API_TOKEN")`) {
		t.Fatalf("token must default to the environment:\n%s", files["client.py"])
	}
	if !strings.Contains(files["pytest.ini"], "negative:") || !strings.Contains(files["pytest.ini"], "security:") {
		t.Fatalf("markers must be registered:\n%s", files["pytest.ini"])
	}

	baked := BootstrapFiles(BootstrapOptions{BaseURL: "https://api.example.com/v1", Token: "t0k"})
	if !strings.Contains(baked["client.py"], `"https://api.example.com/v1"`) {
		t.Fatalf("base url not baked:\n%s", baked["client.py"])
	}
	if !strings.Contains(baked["client.py"], `os.environ.get("API_TOKEN", "t0k")`) {
		t.Fatalf("token default not baked:\n%s", baked["client.py"])
	}
}
