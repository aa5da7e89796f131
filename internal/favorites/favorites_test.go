package favorites_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ufrutov/gitlab-client/internal/favorites"
)

func TestToggleAndPersist(t *testing.T) {
	dir := t.TempDir()
	s := favorites.Load(dir)

	on, err := s.ToggleProject("p1")
	if err != nil {
		t.Fatalf("ToggleProject: %v", err)
	}
	if !on {
		t.Error("first toggle should favorite")
	}
	if _, err := s.ToggleIssue("i1"); err != nil {
		t.Fatalf("ToggleIssue: %v", err)
	}

	// A fresh load sees the same sets.
	s2 := favorites.Load(dir)
	if !s2.HasProject("p1") {
		t.Error("project favorite not persisted")
	}
	if !s2.HasIssue("i1") {
		t.Error("issue favorite not persisted")
	}

	// Second toggle removes.
	on, err = s2.ToggleProject("p1")
	if err != nil {
		t.Fatalf("ToggleProject: %v", err)
	}
	if on {
		t.Error("second toggle should unfavorite")
	}
	if favorites.Load(dir).HasProject("p1") {
		t.Error("unfavorite not persisted")
	}
}

func TestListingsAreSorted(t *testing.T) {
	s := favorites.Load(t.TempDir())
	for _, id := range []string{"c", "a", "b"} {
		if _, err := s.ToggleProject(id); err != nil {
			t.Fatal(err)
		}
	}
	got := s.Projects()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Projects() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Projects() = %v, want %v", got, want)
		}
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	s := favorites.Load(dir)
	if _, err := s.ToggleProject("p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ToggleIssue("i1"); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.HasProject("p1") || s.HasIssue("i1") {
		t.Error("Clear left in-memory favorites behind")
	}
	s2 := favorites.Load(dir)
	if s2.HasProject("p1") || s2.HasIssue("i1") {
		t.Error("Clear left persisted favorites behind")
	}
}

func TestMalformedFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "favorites.json"), []byte("{bad"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := favorites.Load(dir)
	if len(s.Projects()) != 0 || len(s.Issues()) != 0 {
		t.Error("malformed favorites file should load as empty sets")
	}
}
