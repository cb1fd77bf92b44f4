// Package server exposes generation over HTTP for UI front ends. The
// surface is deliberately small: one generation endpoint, report
// retrieval, and a health probe, all JSON with permissive CORS.
package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/mark3labs/swagger2pytest/internal/engine"
	"github.com/mark3labs/swagger2pytest/internal/logger"
	"github.com/mark3labs/swagger2pytest/internal/report"
	"github.com/mark3labs/swagger2pytest/internal/spec"
)

// GenerateRequest is the body of POST /generate. Omitted booleans
// default to true; test_dir defaults to "tests".
type GenerateRequest struct {
	SpecContent           string            `json:"spec_content"`
	RepoPath              string            `json:"repo_path"`
	TestDir               string            `json:"test_dir,omitempty"`
	ServerURL             string            `json:"server_url,omitempty"`
	Tokens                map[string]string `json:"tokens,omitempty"`
	GenerateNegativeTests *bool             `json:"generate_negative_tests,omitempty"`
	GenerateSecurityTests *bool             `json:"generate_security_tests,omitempty"`
	DryRun                bool              `json:"dry_run,omitempty"`
}

// TestFileResponse is one entry of the /generate response: the decision
// for a single artifact, with the resulting file content so front ends
// can display it. Deleted and failed artifacts carry no content.
type TestFileResponse struct {
	FileName   string `json:"fileName"`
	EndpointID string `json:"endpointId"`
	Action     string `json:"action"`
	Timestamp  string `json:"timestamp"`
	Code       string `json:"code"`
}

// Server handles the HTTP surface. It is an http.Handler.
type Server struct {
	mux *http.ServeMux
}

func New() *Server {
	s := &Server{mux: http.NewServeMux()}
	s.mux.HandleFunc("/generate", s.handleGenerate)
	s.mux.HandleFunc("/report", s.handleReport)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	return s
}

// ServeHTTP applies the CORS policy, answers preflights, and dispatches.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe runs the server on addr until it fails.
func ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           New(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.SpecContent == "" {
		writeDetail(w, http.StatusBadRequest, "spec_content is required")
		return
	}
	if req.RepoPath == "" {
		writeDetail(w, http.StatusBadRequest, "repo_path is required")
		return
	}

	// A missing repository is created rather than rejected: the UI flow
	// starts from an empty directory choice.
	if err := os.MkdirAll(req.RepoPath, 0o755); err != nil {
		writeDetail(w, http.StatusInternalServerError, "create repository: "+err.Error())
		return
	}

	doc, err := spec.LoadBytes(r.Context(), []byte(req.SpecContent), "request")
	if err != nil {
		writeSpecError(w, err)
		return
	}
	model, err := spec.Resolve(doc)
	if err != nil {
		writeSpecError(w, err)
		return
	}

	opts := engine.Options{
		RepoPath: req.RepoPath,
		TestDir:  req.TestDir,
		BaseURL:  req.ServerURL,
		Token:    firstToken(req.Tokens),
		Negative: boolOr(req.GenerateNegativeTests, true),
		Security: boolOr(req.GenerateSecurityTests, true),
		DryRun:   req.DryRun,
	}
	res, err := engine.Run(r.Context(), model, opts)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	out := make([]TestFileResponse, 0, len(res.Files))
	for _, f := range res.Files {
		entry := TestFileResponse{
			FileName:   path.Base(f.Path),
			EndpointID: f.OperationID,
			Action:     string(f.Action),
			Timestamp:  now,
			Code:       f.Content,
		}
		// Skipped artifacts were not rewritten; show their current state.
		if f.Action == engine.ActionSkipped {
			if data, err := os.ReadFile(filepath.Join(req.RepoPath, filepath.FromSlash(f.Path))); err == nil {
				entry.Code = string(data)
			}
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeDetail(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	root := r.URL.Query().Get("repo")
	if root == "" {
		writeDetail(w, http.StatusBadRequest, "repo query parameter is required")
		return
	}
	testDir := r.URL.Query().Get("test_dir")
	if testDir == "" {
		testDir = "tests"
	}

	data, err := report.Read(root, testDir)
	if errors.Is(err, fs.ErrNotExist) {
		writeDetail(w, http.StatusNotFound, "no report has been generated for this repository")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// firstToken picks the credential the stub client bakes as its default:
// the token of the lexicographically first scheme name.
func firstToken(tokens map[string]string) string {
	if len(tokens) == 0 {
		return ""
	}
	names := make([]string, 0, len(tokens))
	for name := range tokens {
		names = append(names, name)
	}
	sort.Strings(names)
	return tokens[names[0]]
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func writeSpecError(w http.ResponseWriter, err error) {
	var specErr *spec.SpecError
	if errors.As(err, &specErr) {
		writeDetail(w, http.StatusBadRequest, specErr.Error())
		return
	}
	writeDetail(w, http.StatusInternalServerError, err.Error())
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response: %v", err)
	}
}
