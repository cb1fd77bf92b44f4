// Package repo recovers generation state from a test repository. The
// generated artifacts are the only persistence: every run rescans them and
// rebuilds the per-operation records from their header lines.
package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mark3labs/swagger2pytest/internal/ir"
	"github.com/mark3labs/swagger2pytest/internal/testfile"
)

// AccessError reports a repository path that cannot be used: missing,
// not a directory, or unreadable.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string { return fmt.Sprintf("repo: %s: %v", e.Path, e.Err) }
func (e *AccessError) Unwrap() error { return e.Err }

var errNotDirectory = errors.New("not a directory")

// CheckRoot verifies the repository root exists and is a directory. Runs
// fail fast on a bad root before anything is scanned or written.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return &AccessError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return &AccessError{Path: root, Err: errNotDirectory}
	}
	return nil
}

// Scan reads every previously generated artifact under root/testDir and
// returns its generation record, sorted by path. A missing test directory
// means no prior generation and yields no records. Files without the
// identity header are not ours and are skipped; an unreadable file aborts
// the scan.
func Scan(root, testDir string) ([]ir.GenerationRecord, error) {
	if err := CheckRoot(root); err != nil {
		return nil, err
	}

	dir := filepath.Join(root, testDir)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &AccessError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &AccessError{Path: dir, Err: errNotDirectory}
	}

	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, "**/*.py")
	if err != nil {
		return nil, &AccessError{Path: dir, Err: err}
	}

	prefix := filepath.ToSlash(testDir)
	records := make([]ir.GenerationRecord, 0, len(matches))
	for _, match := range matches {
		if path.Base(match) == "__init__.py" {
			continue
		}
		data, err := fs.ReadFile(fsys, match)
		if err != nil {
			return nil, &AccessError{Path: filepath.Join(dir, match), Err: err}
		}
		rec, ok := testfile.ParseRecord(string(data), path.Join(prefix, match))
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}
