// Package report models the per-run summary persisted next to the
// generated tests. The report is derived output: written once per run,
// read back only for display.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// FileName is the report's location inside the test root.
const FileName = "report.json"

//go:embed report.schema.json
var schemaFS embed.FS

const schemaURL = "mem://schemas/report.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		data, err := schemaFS.ReadFile("report.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("read report schema: %w", err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("decode report schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("register report schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Endpoint is the per-operation breakdown entry.
type Endpoint struct {
	ID       string `json:"id"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Security int    `json:"security"`
}

// Report summarizes one generation run. Coverage counts an operation as
// covered when at least one positive test exists for it.
type Report struct {
	RunID              string     `json:"run_id"`
	GeneratedAt        time.Time  `json:"generated_at"`
	TotalEndpoints     int        `json:"total_endpoints"`
	PositiveTestsCount int        `json:"positive_tests_count"`
	NegativeTestsCount int        `json:"negative_tests_count"`
	SecurityTestsCount int        `json:"security_tests_count"`
	CoveredEndpoints   int        `json:"covered_endpoints"`
	CoveragePercentage float64    `json:"coverage_percentage"`
	Endpoints          []Endpoint `json:"endpoints"`
}

// New starts an empty report stamped with a fresh run id.
func New() *Report {
	return &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Endpoints:   []Endpoint{},
	}
}

// Add folds one operation's test counts into the totals.
func (r *Report) Add(id string, positive, negative, security int) {
	r.TotalEndpoints++
	r.PositiveTestsCount += positive
	r.NegativeTestsCount += negative
	r.SecurityTestsCount += security
	if positive > 0 {
		r.CoveredEndpoints++
	}
	r.Endpoints = append(r.Endpoints, Endpoint{ID: id, Positive: positive, Negative: negative, Security: security})
}

// Finalize computes the coverage percentage from the accumulated counts.
func (r *Report) Finalize() {
	if r.TotalEndpoints > 0 {
		r.CoveragePercentage = float64(r.CoveredEndpoints) / float64(r.TotalEndpoints) * 100
	}
}

// Validate checks the report against the embedded JSON Schema.
func (r *Report) Validate() error {
	s, err := schema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("report invalid: %w", err)
	}
	return nil
}

// Write validates the report and persists it under root/testDir.
func (r *Report) Write(root, testDir string) error {
	if err := r.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	dir := filepath.Join(root, testDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	target := filepath.Join(dir, FileName)
	if err := os.WriteFile(target, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}

// Read returns the raw persisted report, or an error when none exists.
func Read(root, testDir string) ([]byte, error) {
	target := filepath.Join(root, testDir, FileName)
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return data, nil
}
