// Package store persists profiles, run results and text exports as files in a data directory.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/linkedin-optimizer/internal/schemas"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

const (
	// DefaultDir is the data directory used when none is configured
	DefaultDir = "linkedin_data"
	// ProfileFile is the name of the persisted profile record
	ProfileFile = "profile_data.json"

	resultPrefix    = "results_"
	resultSuffix    = ".json"
	fileStampLayout = "20060102_150405"
)

// StoreError reports a failed file operation
type StoreError struct {
	Op    string
	Path  string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// ErrIncompleteResult is returned when asked to persist a result missing a stage output.
var ErrIncompleteResult = errors.New("run result is missing stage outputs")

// Store reads and writes files under a single directory
type Store struct {
	dir string
}

// New returns a Store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir}
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// storedResult is the on-disk shape of a run result.
type storedResult struct {
	ID        string            `json:"id,omitempty"`
	Profile   types.Profile     `json:"profile"`
	Results   map[string]string `json:"results"`
	Model     string            `json:"model,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// UnmarshalJSON also reads records stamped without a zone offset.
func (r *storedResult) UnmarshalJSON(data []byte) error {
	type plain storedResult
	aux := struct {
		*plain
		Timestamp string `json:"timestamp"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := types.ParseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	r.Timestamp = ts
	return nil
}

// SaveProfile writes the whole profile record, replacing any previous one.
func (s *Store) SaveProfile(p *types.Profile) (string, error) {
	if p == nil {
		return "", &StoreError{Op: "save", Path: ProfileFile, Cause: errors.New("profile is nil")}
	}
	return s.writeJSON(ProfileFile, p)
}

// LoadProfile reads the persisted profile. A missing file yields nil, nil.
func (s *Store) LoadProfile() (*types.Profile, error) {
	var p types.Profile
	found, err := s.readJSON(ProfileFile, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// SaveResult writes a completed run result to results_YYYYMMDD_HHMMSS.json.
func (s *Store) SaveResult(r *types.RunResult) (string, error) {
	if !r.Complete() {
		return "", &StoreError{Op: "save", Path: resultPrefix + "*", Cause: ErrIncompleteResult}
	}

	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	name := resultPrefix + ts.Format(fileStampLayout) + resultSuffix
	if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
		name = resultPrefix + ts.Format(fileStampLayout) + "_" + r.ID.String()[:8] + resultSuffix
	}

	record := storedResult{
		Profile:   r.Profile,
		Results:   r.Results,
		Model:     r.Model,
		Timestamp: ts,
	}
	if r.ID != uuid.Nil {
		record.ID = r.ID.String()
	}
	return s.writeJSON(name, record)
}

// ResultFile describes one stored run result
type ResultFile struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// ListResults returns stored result files, newest first.
func (s *Store) ListResults() ([]ResultFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &StoreError{Op: "list", Path: s.dir, Cause: err}
	}

	var files []ResultFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, resultPrefix) || !strings.HasSuffix(name, resultSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, ResultFile{
			Name:    name,
			Path:    filepath.Join(s.dir, name),
			ModTime: info.ModTime(),
		})
	}

	// File names embed the timestamp, so reverse lexical order is newest first.
	sort.Slice(files, func(i, j int) bool { return files[i].Name > files[j].Name })
	return files, nil
}

// LoadResult reads a stored result by file name.
func (s *Store) LoadResult(name string) (*types.RunResult, error) {
	if name != filepath.Base(name) {
		return nil, &StoreError{Op: "load", Path: name, Cause: errors.New("invalid result name")}
	}

	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StoreError{Op: "read", Path: path, Cause: err}
	}
	if err := schemas.Validate(schemas.RunResult, data); err != nil {
		return nil, &StoreError{Op: "validate", Path: path, Cause: err}
	}

	var record storedResult
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &StoreError{Op: "decode", Path: path, Cause: err}
	}
	return record.toRunResult(), nil
}

// LatestResult returns the newest stored result, or nil when there is none.
func (s *Store) LatestResult() (*types.RunResult, error) {
	files, err := s.ListResults()
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return s.LoadResult(files[0].Name)
}

func (r storedResult) toRunResult() *types.RunResult {
	out := &types.RunResult{
		Profile:   r.Profile,
		Results:   r.Results,
		Model:     r.Model,
		Timestamp: r.Timestamp,
	}
	if id, err := uuid.Parse(r.ID); err == nil {
		out.ID = id
	}
	return out
}

func (s *Store) writeJSON(name string, v any) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", &StoreError{Op: "mkdir", Path: s.dir, Cause: err}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", &StoreError{Op: "encode", Path: path, Cause: err}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", &StoreError{Op: "write", Path: path, Cause: err}
	}
	return path, nil
}

func (s *Store) readJSON(name string, v any) (bool, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &StoreError{Op: "read", Path: path, Cause: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &StoreError{Op: "decode", Path: path, Cause: err}
	}
	return true, nil
}
