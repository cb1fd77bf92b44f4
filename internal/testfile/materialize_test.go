package testfile

import (
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/swagger2pytest/internal/ir"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedHeader(t *testing.T) Header {
	t.Helper()
	op := ir.Operation{
		Method:    "GET",
		Path:      "/users",
		Responses: map[string]*ir.SchemaNode{"200": {Kind: ir.KindObject}},
	}
	return NewHeader(op, fixedNow)
}

func bodyTest(name string, body ...string) Test {
	return Test{Name: name, Body: body}
}

func TestMaterialize_FreshFile(t *testing.T) {
	t.Parallel()
	h := fixedHeader(t)
	got := Materialize("", h, []string{"import pytest"}, []Test{
		bodyTest("test_get_users",
			`response = client.get("/users")`,
			"assert response.status_code == 200",
		),
	})

	want := strings.Join(append(append([]string{}, h.Lines()...),
		"",
		"import pytest",
		"",
		"def test_get_users():",
		"    "+MarkerStart,
		`    response = client.get("/users")`,
		"    assert response.status_code == 200",
		"    "+MarkerEnd,
	), "\n") + "\n"

	if got != want {
		t.Fatalf("fresh render mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestMaterialize_FreshFileDecorators(t *testing.T) {
	t.Parallel()
	h := fixedHeader(t)
	got := Materialize("", h, nil, []Test{
		{Name: "test_get_users_no_token", Decorators: []string{"@pytest.mark.security"}, Body: []string{"pass"}},
	})
	if !strings.Contains(got, "@pytest.mark.security\ndef test_get_users_no_token():") {
		t.Fatalf("decorator must precede def line:\n%s", got)
	}
}

func TestMaterialize_Idempotent(t *testing.T) {
	t.Parallel()
	h := fixedHeader(t)
	imports := []string{"import pytest"}
	tests := []Test{
		bodyTest("test_get_users", "a = 1", "", "assert a == 1"),
		{Name: "test_get_users_negative", Decorators: []string{"@pytest.mark.negative"}, Body: []string{"pass"}},
	}

	first := Materialize("", h, imports, tests)
	second := Materialize(first, h, imports, tests)
	if first != second {
		t.Fatalf("second application diverged:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if n := strings.Count(second, MarkerStart); n != len(tests) {
		t.Fatalf("marker pairs duplicated: %d start markers for %d tests", n, len(tests))
	}
	if n := strings.Count(second, MarkerEnd); n != len(tests) {
		t.Fatalf("marker pairs duplicated: %d end markers for %d tests", n, len(tests))
	}
}

func TestMaterialize_PreservesUserCode(t *testing.T) {
	t.Parallel()
	h := fixedHeader(t)
	first := Materialize("", h, []string{"import pytest"}, []Test{
		bodyTest("test_get_users", "old_assertion = True"),
	})

	edited := first + "\n" + strings.Join([]string{
		"def useful_helper():",
		"    # hand-written, must survive",
		"    return 42",
	}, "\n") + "\n"

	second := Materialize(edited, h, []string{"import pytest"}, []Test{
		bodyTest("test_get_users", "new_assertion = True"),
	})

	if !strings.Contains(second, "def useful_helper():\n    # hand-written, must survive\n    return 42") {
		t.Fatalf("user function lost:\n%s", second)
	}
	if !strings.Contains(second, "new_assertion") {
		t.Fatalf("regenerated body missing:\n%s", second)
	}
	if strings.Contains(second, "old_assertion") {
		t.Fatalf("stale generated body kept:\n%s", second)
	}
}

func TestMaterialize_MarkerlessFunctionGetsRegion(t *testing.T) {
	t.Parallel()
	h := fixedHeader(t)
	existing := "def test_get_users():\n    assert manual_check()\n"

	got := Materialize(existing, h, nil, []Test{bodyTest("test_get_users", "generated = 1")})

	wantOrder := []string{
		"def test_get_users():",
		"    " + MarkerStart,
		"    generated = 1",
		"    " + MarkerEnd,
		"    assert manual_check()",
	}
	if !strings.Contains(got, strings.Join(wantOrder, "\n")) {
		t.Fatalf("fresh region must sit between def line and hand-written body:\n%s", got)
	}
}

func TestMaterialize_DanglingStartMarker(t *testing.T) {
	t.Parallel()
	h := fixedHeader(t)
	existing := strings.Join([]string{
		"def test_get_users():",
		"    " + MarkerStart,
		"    orphaned = 1",
	}, "\n") + "\n"

	got := Materialize(existing, h, nil, []Test{bodyTest("test_get_users", "fresh = 1")})
	if !strings.Contains(got, "fresh = 1") {
		t.Fatalf("fresh body missing:\n%s", got)
	}
	if !strings.Contains(got, "orphaned = 1") {
		t.Fatalf("content after the dangling marker must be left alone:\n%s", got)
	}

	again := Materialize(got, h, nil, []Test{bodyTest("test_get_users", "fresh = 1")})
	if got != again {
		t.Fatalf("repair must converge:\nfirst:\n%s\nsecond:\n%s", got, again)
	}
}

func TestMaterialize_DuplicatePairsFirstWins(t *testing.T) {
	t.Parallel()
	h := fixedHeader(t)
	existing := strings.Join([]string{
		"def test_get_users():",
		"    " + MarkerStart,
		"    one = 1",
		"    " + MarkerEnd,
		"    " + MarkerStart,
		"    two = 2",
		"    " + MarkerEnd,
	}, "\n") + "\n"

	got := Materialize(existing, h, nil, []Test{bodyTest("test_get_users", "replaced = 1")})
	if !strings.Contains(got, "replaced = 1") || strings.Contains(got, "one = 1") {
		t.Fatalf("first pair must be rewritten:\n%s", got)
	}
	if !strings.Contains(got, "two = 2") {
		t.Fatalf("second pair must be untouched:\n%s", got)
	}
}

func TestMaterialize_AppendsMissingFunction(t *testing.T) {
	t.Parallel()
	h := fixedHeader(t)
	existing := "def test_get_users():\n    " + MarkerStart + "\n    a = 1\n    " + MarkerEnd + "\n"

	got := Materialize(existing, h, nil, []Test{
		bodyTest("test_get_users", "a = 1"),
		bodyTest("test_get_users_invalid_type_name", "b = 2"),
	})

	appended := "\n\ndef test_get_users_invalid_type_name():\n    " + MarkerStart + "\n    b = 2\n    " + MarkerEnd + "\n"
	if !strings.HasSuffix(got, appended) {
		t.Fatalf("missing function must be appended at end of file:\n%s", got)
	}
}

func TestMaterialize_ReindentsToExistingMarkers(t *testing.T) {
	t.Parallel()
	h := fixedHeader(t)
	existing := strings.Join([]string{
		"def test_get_users():",
		"    if condition:",
		"        " + MarkerStart,
		"        old = 1",
		"        " + MarkerEnd,
	}, "\n") + "\n"

	got := Materialize(existing, h, nil, []Test{bodyTest("test_get_users", "moved = 1")})
	if !strings.Contains(got, "        moved = 1") {
		t.Fatalf("body must adopt the marker pair's indentation:\n%s", got)
	}
}

func TestMaterialize_ReplacesStaleHeader(t *testing.T) {
	t.Parallel()
	op := ir.Operation{Method: "GET", Path: "/users", Responses: map[string]*ir.SchemaNode{"200": {Kind: ir.KindObject}}}
	stale := NewHeader(op, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	existing := Materialize("", stale, nil, []Test{bodyTest("test_get_users", "pass")})

	fresh := NewHeader(op, fixedNow)
	got := Materialize(existing, fresh, nil, []Test{bodyTest("test_get_users", "pass")})

	if strings.Contains(got, "2020-01-01") {
		t.Fatalf("stale timestamp kept:\n%s", got)
	}
	if n := strings.Count(got, "# endpoint_id: "); n != 1 {
		t.Fatalf("identity line must appear exactly once, got %d:\n%s", n, got)
	}
	if !strings.HasPrefix(got, "# endpoint_id: GET /users\n# last_generated: 2026-01-02T03:04:05Z\n") {
		t.Fatalf("fresh header must lead the file:\n%s", got)
	}
}
