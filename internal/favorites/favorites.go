// Package favorites persists the user's pinned project and issue
// identifiers. Favorites only affect sort order, never filtering.
package favorites

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const favoritesFile = "favorites.json"

// stored is the on-disk layout: two flat identifier lists.
type stored struct {
	Projects []string `json:"projects"`
	Issues   []string `json:"issues"`
}

// Store holds the two favorite sets for one data directory.
type Store struct {
	dir      string
	projects map[string]bool
	issues   map[string]bool
}

// Load reads the favorites file under dir. A missing or malformed file
// yields empty sets; favorites are derived convenience state and losing
// them is harmless.
func Load(dir string) *Store {
	s := &Store{
		dir:      dir,
		projects: map[string]bool{},
		issues:   map[string]bool{},
	}
	data, err := os.ReadFile(s.path())
	if err != nil {
		return s
	}
	var st stored
	if err := json.Unmarshal(data, &st); err != nil {
		return s
	}
	for _, id := range st.Projects {
		s.projects[id] = true
	}
	for _, id := range st.Issues {
		s.issues[id] = true
	}
	return s
}

func (s *Store) path() string {
	return filepath.Join(s.dir, favoritesFile)
}

// save writes both sets atomically.
func (s *Store) save() error {
	st := stored{Projects: keys(s.projects), Issues: keys(s.issues)}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling favorites: %w", err)
	}
	tmpPath := s.path() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing favorites file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving favorites file: %w", err)
	}
	return nil
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ToggleProject flips a project favorite and reports the new state.
func (s *Store) ToggleProject(id string) (bool, error) {
	return s.toggle(s.projects, id)
}

// ToggleIssue flips an issue favorite and reports the new state.
func (s *Store) ToggleIssue(id string) (bool, error) {
	return s.toggle(s.issues, id)
}

func (s *Store) toggle(set map[string]bool, id string) (bool, error) {
	if set[id] {
		delete(set, id)
	} else {
		set[id] = true
	}
	return set[id], s.save()
}

// HasProject reports whether a project is favorited.
func (s *Store) HasProject(id string) bool { return s.projects[id] }

// HasIssue reports whether an issue is favorited.
func (s *Store) HasIssue(id string) bool { return s.issues[id] }

// Projects returns the favorited project identifiers, sorted.
func (s *Store) Projects() []string { return keys(s.projects) }

// Issues returns the favorited issue identifiers, sorted.
func (s *Store) Issues() []string { return keys(s.issues) }

// Clear wipes both sets, on disk and in memory. Called on logout.
func (s *Store) Clear() error {
	s.projects = map[string]bool{}
	s.issues = map[string]bool{}
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing favorites file: %w", err)
	}
	return nil
}
