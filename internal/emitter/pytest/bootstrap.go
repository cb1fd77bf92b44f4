package pytest

import "fmt"

// BootstrapOptions bakes run-time defaults into the generated client
// stub. Environment variables always win at test execution time.
type BootstrapOptions struct {
	BaseURL string
	Token   string
}

const defaultBaseURL = "http://localhost:8000"

// BootstrapFiles returns the support files seeded into the test root on
// first generation, keyed by file name. They are written only when absent:
// after the first run they belong to the user.
func BootstrapFiles(opts BootstrapOptions) map[string]string {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	tokenDefault := `os.environ.get("API_TOKEN")`
	if opts.Token != "" {
		tokenDefault = fmt.Sprintf(`os.environ.get("API_TOKEN", %s)`, pyString(opts.Token))
	}
	return map[string]string{
		"conftest.py": conftestPy,
		"client.py":   fmt.Sprintf(clientPy, pyString(baseURL), tokenDefault),
		"pytest.ini":  pytestIni,
	}
}

const conftestPy = `import os
import sys

# Make the stub client importable from every generated test module.
sys.path.insert(0, os.path.dirname(__file__))
`

const pytestIni = `[pytest]
markers =
    negative: request-rejection tests generated from payload mutations
    security: authentication and authorization failure tests
`

const clientPy = `import os

import requests


class APIClient:
    """Thin requests.Session wrapper used by the generated tests."""

    def __init__(self, base_url=None, token=None):
        self.base_url = (base_url or os.environ.get("API_BASE_URL", %s)).rstrip("/")
        self.token = token if token is not None else %s
        self.session = requests.Session()

    def with_token(self, token):
        """Returns a client presenting the given credential (None sends none)."""
        derived = APIClient(base_url=self.base_url, token=token)
        derived.token = token
        return derived

    def request(self, method, path, **kwargs):
        headers = kwargs.pop("headers", {})
        if self.token:
            headers.setdefault("Authorization", f"Bearer {self.token}")
        return self.session.request(method, self.base_url + path, headers=headers, **kwargs)

    def get(self, path, **kwargs):
        return self.request("GET", path, **kwargs)

    def post(self, path, **kwargs):
        return self.request("POST", path, **kwargs)

    def put(self, path, **kwargs):
        return self.request("PUT", path, **kwargs)

    def patch(self, path, **kwargs):
        return self.request("PATCH", path, **kwargs)

    def delete(self, path, **kwargs):
        return self.request("DELETE", path, **kwargs)

    def head(self, path, **kwargs):
        return self.request("HEAD", path, **kwargs)

    def options(self, path, **kwargs):
        return self.request("OPTIONS", path, **kwargs)


client = APIClient()
`
