// Package engine orchestrates a generation run: scan the repository,
// diff against the specification, synthesize and materialize artifacts,
// delete orphans, seed bootstrap files, and persist the run report.
//
// Artifacts are processed in specification order with no internal
// concurrency. Per-artifact failures are recorded and never abort the
// batch; only infrastructure failures (bad root, unreadable scan, report
// persistence) end the run early.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mark3labs/swagger2pytest/internal/diff"
	"github.com/mark3labs/swagger2pytest/internal/emitter/pytest"
	"github.com/mark3labs/swagger2pytest/internal/ir"
	"github.com/mark3labs/swagger2pytest/internal/logger"
	"github.com/mark3labs/swagger2pytest/internal/repo"
	"github.com/mark3labs/swagger2pytest/internal/report"
	"github.com/mark3labs/swagger2pytest/internal/testfile"
)

// Action is what happened to one artifact path during a run.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
	ActionDeleted Action = "deleted"
	ActionFailed  Action = "failed"
)

// FileResult records one artifact decision. Content carries the final
// file text (required by dry-run and the HTTP front end); it is empty
// for skips and deletions.
type FileResult struct {
	Path        string // repo-root relative, slash separated
	OperationID string
	Action      Action
	Content     string
	Err         error
}

// Options configure a run.
type Options struct {
	RepoPath string
	TestDir  string // default "tests"
	BaseURL  string
	Token    string
	Negative bool
	Security bool
	DryRun   bool

	// Now overrides the timestamp source. Nil means time.Now.
	Now func() time.Time
}

// Result is the outcome of one run.
type Result struct {
	Files  []FileResult
	Plan   *diff.Plan
	Report *report.Report
}

// Summary tallies a result by action.
type Summary struct {
	Created int
	Updated int
	Skipped int
	Deleted int
	Failed  int
}

func (r *Result) Summary() Summary {
	var s Summary
	for _, f := range r.Files {
		switch f.Action {
		case ActionCreated:
			s.Created++
		case ActionUpdated:
			s.Updated++
		case ActionSkipped:
			s.Skipped++
		case ActionDeleted:
			s.Deleted++
		case ActionFailed:
			s.Failed++
		}
	}
	return s
}

// Run executes one generation pass. On infrastructure failure the partial
// result accumulated so far is returned alongside the error.
func Run(ctx context.Context, model *ir.Specification, opts Options) (*Result, error) {
	if opts.TestDir == "" {
		opts.TestDir = "tests"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	records, err := repo.Scan(opts.RepoPath, opts.TestDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("scanned %d generation records under %s", len(records), opts.TestDir)

	plan := diff.Compute(model, records)
	res := &Result{Plan: plan, Report: report.New()}

	emitOpts := pytest.Options{TestDir: opts.TestDir, Negative: opts.Negative, Security: opts.Security}
	claimed := map[string]string{}

	for _, op := range model.Operations {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		id := op.ID()
		action, ok := plan.Action(id)
		if !ok {
			continue
		}

		arts := pytest.Build(op, model.Schemas, emitOpts)

		counts := map[testfile.Kind]int{}
		for _, art := range arts {
			counts[art.Kind] = len(art.Tests)
		}
		res.Report.Add(id, counts[testfile.Positive], counts[testfile.Negative], counts[testfile.Security])

		header := testfile.NewHeader(op, now().UTC())
		for _, art := range arts {
			if owner, dup := claimed[art.Path]; dup {
				res.Files = append(res.Files, FileResult{
					Path:        art.Path,
					OperationID: id,
					Action:      ActionFailed,
					Err:         fmt.Errorf("engine: path %s already claimed by %s", art.Path, owner),
				})
				continue
			}
			claimed[art.Path] = id

			if action == diff.Skip {
				logger.Debug("skip %s (unchanged)", art.Path)
				res.Files = append(res.Files, FileResult{Path: art.Path, OperationID: id, Action: ActionSkipped})
				continue
			}
			result := materializeArtifact(opts, art, header, action)
			result.OperationID = id
			if result.Err != nil {
				logger.Error("%s: %v", art.Path, result.Err)
			} else {
				logger.Info("%s %s", result.Action, art.Path)
			}
			res.Files = append(res.Files, result)
		}
	}

	for _, rec := range plan.Delete {
		res.Files = append(res.Files, deleteArtifact(opts, rec))
	}

	if !opts.DryRun {
		if err := seedBootstrap(opts); err != nil {
			return res, err
		}
	}

	res.Report.Finalize()
	if !opts.DryRun {
		if err := res.Report.Write(opts.RepoPath, opts.TestDir); err != nil {
			return res, err
		}
	}
	return res, nil
}

func materializeArtifact(opts Options, art pytest.Artifact, header testfile.Header, action diff.Action) FileResult {
	full := filepath.Join(opts.RepoPath, filepath.FromSlash(art.Path))

	existing := ""
	if data, err := os.ReadFile(full); err == nil {
		existing = string(data)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return FileResult{Path: art.Path, Action: ActionFailed, Err: fmt.Errorf("read %s: %w", art.Path, err)}
	}

	content := testfile.Materialize(existing, header, art.Imports, art.Tests)

	act := ActionCreated
	if action == diff.Update {
		act = ActionUpdated
	}
	if opts.DryRun {
		return FileResult{Path: art.Path, Action: act, Content: content}
	}
	if err := writeFileAtomic(full, []byte(content)); err != nil {
		return FileResult{Path: art.Path, Action: ActionFailed, Err: err}
	}
	return FileResult{Path: art.Path, Action: act, Content: content}
}

func deleteArtifact(opts Options, rec ir.GenerationRecord) FileResult {
	result := FileResult{Path: rec.Path, OperationID: rec.OperationID, Action: ActionDeleted}
	if opts.DryRun {
		return result
	}
	full := filepath.Join(opts.RepoPath, filepath.FromSlash(rec.Path))
	err := os.Remove(full)
	switch {
	case err == nil:
		logger.Info("deleted %s", rec.Path)
	case errors.Is(err, fs.ErrNotExist):
		// Already gone; the outcome is what was asked for.
		logger.Debug("delete %s: already absent", rec.Path)
	default:
		result.Action = ActionFailed
		result.Err = fmt.Errorf("delete %s: %w", rec.Path, err)
		logger.Error("%v", result.Err)
	}
	return result
}

// seedBootstrap writes the support files into the test root, each only
// when absent. After the first write they belong to the user.
func seedBootstrap(opts Options) error {
	files := pytest.BootstrapFiles(pytest.BootstrapOptions{BaseURL: opts.BaseURL, Token: opts.Token})
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := filepath.Join(opts.RepoPath, opts.TestDir, name)
		if _, err := os.Stat(target); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("engine: stat %s: %w", target, err)
		}
		if err := writeFileAtomic(target, []byte(files[name])); err != nil {
			return fmt.Errorf("engine: bootstrap %s: %w", name, err)
		}
		logger.Info("seeded %s", name)
	}
	return nil
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it into place.
func writeFileAtomic(fullPath string, content []byte) error {
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".swagger2pytest-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", fullPath, err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if tmp != nil {
			tmp.Close()
		}
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpPath, fullPath, err)
	}
	success = true
	return nil
}
