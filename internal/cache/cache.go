// Package cache persists remote API collections as flat JSON blobs so views
// can render without a network round-trip. Entries have no expiry; they stay
// valid until explicitly cleared by a mutation or a credential change.
package cache

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ufrutov/gitlab-client/internal/model"
)

// Kind partitions the cache into independently keyed collections.
type Kind string

const (
	// KindProjects holds the single project-list blob (no key).
	KindProjects Kind = "projects"
	// KindIssues holds one issue list per project full path.
	KindIssues Kind = "issues"
	// KindTimeEntries holds one entry list per "YYYY-MM" period key.
	KindTimeEntries Kind = "time_entries"
)

// Store is a file-backed cache rooted at a single directory.
// All operations are synchronous and local.
type Store struct {
	root string
}

// New returns a Store rooted at the given directory. The directory is
// created lazily on the first write.
func New(root string) *Store {
	return &Store{root: root}
}

// path maps a kind/key pair to a file. Keys may contain path separators
// (project full paths), so they are escaped to keep "a/b" and "a/c" from
// ever colliding on disk.
func (s *Store) path(kind Kind, key string) string {
	name := "all.json"
	if key != "" {
		name = url.QueryEscape(key) + ".json"
	}
	return filepath.Join(s.root, string(kind), name)
}

// get reads and decodes the stored collection into v. A missing file and a
// malformed payload are both reported as a plain miss, never an error.
func (s *Store) get(kind Kind, key string, v any) bool {
	data, err := os.ReadFile(s.path(kind, key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		// Parse failure is a miss: the next Put overwrites the bad blob.
		return false
	}
	return true
}

// put overwrites the stored collection wholesale. The write is atomic
// (temp file then rename) so a crash never leaves a half-written blob.
func (s *Store) put(kind Kind, key string, v any) error {
	path := s.path(kind, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cache error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cache error marshalling JSON: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("cache error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cache error renaming temp file: %w", err)
	}
	return nil
}

// Clear removes one cached collection. Clearing an absent entry is a no-op.
func (s *Store) Clear(kind Kind, key string) error {
	err := os.Remove(s.path(kind, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache error clearing %s/%s: %w", kind, key, err)
	}
	return nil
}

// ClearKind removes every cached collection of one kind.
func (s *Store) ClearKind(kind Kind) error {
	err := os.RemoveAll(filepath.Join(s.root, string(kind)))
	if err != nil {
		return fmt.Errorf("cache error clearing %s: %w", kind, err)
	}
	return nil
}

// ClearAll wipes the whole cache. Called when credentials change so cached
// data never leaks across accounts.
func (s *Store) ClearAll() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("cache error clearing all: %w", err)
	}
	return nil
}

// GetProjects returns the cached project list, or ok=false on a miss.
func (s *Store) GetProjects() ([]model.Project, bool) {
	var v []model.Project
	ok := s.get(KindProjects, "", &v)
	return v, ok
}

// PutProjects stores the project list wholesale.
func (s *Store) PutProjects(projects []model.Project) error {
	return s.put(KindProjects, "", projects)
}

// GetIssues returns the cached issue list for a project full path.
func (s *Store) GetIssues(projectPath string) ([]model.Issue, bool) {
	var v []model.Issue
	ok := s.get(KindIssues, projectPath, &v)
	return v, ok
}

// PutIssues stores a project's issue list wholesale.
func (s *Store) PutIssues(projectPath string, issues []model.Issue) error {
	return s.put(KindIssues, projectPath, issues)
}

// GetTimeEntries returns the cached entries for a "YYYY-MM" period key.
func (s *Store) GetTimeEntries(periodKey string) ([]model.TimeEntry, bool) {
	var v []model.TimeEntry
	ok := s.get(KindTimeEntries, periodKey, &v)
	return v, ok
}

// PutTimeEntries stores one period's entries wholesale. Every entry's
// SpentAt is expected to fall within the month implied by periodKey.
func (s *Store) PutTimeEntries(periodKey string, entries []model.TimeEntry) error {
	return s.put(KindTimeEntries, periodKey, entries)
}

// Fetch returns the cached collection for kind/key unless force is set or
// the cache misses, in which case fetcher is called and its result written
// back. This is the single fetch-or-cache branch point for all collections.
func Fetch[T any](s *Store, kind Kind, key string, force bool, fetcher func() (T, error)) (T, error) {
	var v T
	if !force && s.get(kind, key, &v) {
		return v, nil
	}
	v, err := fetcher()
	if err != nil {
		var zero T
		return zero, err
	}
	if err := s.put(kind, key, v); err != nil {
		return v, err
	}
	return v, nil
}
