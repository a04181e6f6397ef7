package registry

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"syncheal/internal/model"

	"github.com/spf13/afero"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func collect(t *testing.T, r *Registry, source model.ConflictSource) []string {
	t.Helper()
	var rels []string
	for c, err := range r.Conflicts(source) {
		if err != nil {
			t.Fatalf("Conflicts() error: %v", err)
		}
		rels = append(rels, filepath.ToSlash(c.Rel))
	}
	slices.Sort(rels)
	return rels
}

func TestConflicts(t *testing.T) {
	root := t.TempDir()
	trashRoot := filepath.Join(root, ".Trash-1000")

	writeFile(t, filepath.Join(root, "notes.md"), "a")
	writeFile(t, filepath.Join(root, "notes (conflicted copy 2021-01-01).md"), "b")
	writeFile(t, filepath.Join(root, "sub", "deep", "todo (conflicted copy 2021-02-02).txt"), "c")
	writeFile(t, filepath.Join(root, "sub", "report.sync-conflict-20200101-120000-ABC.txt"), "d")
	writeFile(t, filepath.Join(trashRoot, "old (conflicted copy 2020-01-01).md"), "e")
	writeFile(t, filepath.Join(root, ".git", "x (conflicted copy 2020-01-01)"), "f")
	if err := os.MkdirAll(filepath.Join(root, "dir (conflicted copy 2021-01-01)"), 0755); err != nil {
		t.Fatal(err)
	}

	r := New(afero.NewOsFs(), root, trashRoot, []string{".git"})

	t.Run("nextcloud", func(t *testing.T) {
		got := collect(t, r, model.Nextcloud)
		want := []string{
			"notes (conflicted copy 2021-01-01).md",
			"sub/deep/todo (conflicted copy 2021-02-02).txt",
		}
		if !slices.Equal(got, want) {
			t.Errorf("Conflicts() = %v, want %v", got, want)
		}
	})

	t.Run("syncthing", func(t *testing.T) {
		got := collect(t, r, model.Syncthing)
		want := []string{"sub/report.sync-conflict-20200101-120000-ABC.txt"}
		if !slices.Equal(got, want) {
			t.Errorf("Conflicts() = %v, want %v", got, want)
		}
	})
}

func TestConflicts_PopulatesFields(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a (conflicted copy 1).md")
	writeFile(t, path, "x")

	r := New(afero.NewOsFs(), root, filepath.Join(root, ".Trash-1000"), nil)
	for c, err := range r.Conflicts(model.Nextcloud) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Path != path {
			t.Errorf("Path = %q, want %q", c.Path, path)
		}
		if c.Ext != ".md" {
			t.Errorf("Ext = %q, want .md", c.Ext)
		}
		if c.ModTime.IsZero() {
			t.Error("ModTime should be set")
		}
		if c.Source != model.Nextcloud {
			t.Errorf("Source = %v, want Nextcloud", c.Source)
		}
	}
}

func TestConflicts_StopsEarly(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeFile(t, filepath.Join(root, name+" (conflicted copy 1).md"), name)
	}

	r := New(afero.NewOsFs(), root, filepath.Join(root, ".Trash-1000"), nil)
	n := 0
	for range r.Conflicts(model.Nextcloud) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("iterated %d times, want 1", n)
	}
}

func TestConflicts_MemFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/sync/.Trash-1000", 0755); err != nil {
		t.Fatal(err)
	}
	_ = afero.WriteFile(fs, "/sync/a.sync-conflict-1.md", []byte("x"), 0644)
	_ = afero.WriteFile(fs, "/sync/.Trash-1000/b.sync-conflict-1.md", []byte("y"), 0644)

	r := New(fs, "/sync", "/sync/.Trash-1000", nil)
	got := collect(t, r, model.Syncthing)
	if !slices.Equal(got, []string{"a.sync-conflict-1.md"}) {
		t.Errorf("Conflicts() = %v", got)
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		dir, path string
		want      bool
	}{
		{"/r/.Trash", "/r/.Trash", true},
		{"/r/.Trash", "/r/.Trash/a/b.md", true},
		{"/r/.Trash", "/r/.Trash-other/b.md", false},
		{"/r/.Trash", "/r/a.md", false},
		{"/r", "/r/..foo", true},
	}

	for _, tt := range tests {
		if got := Within(tt.dir, tt.path); got != tt.want {
			t.Errorf("Within(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestRel(t *testing.T) {
	if _, err := Rel("/r", "/elsewhere/a.md"); !errors.Is(err, model.ErrOutsideRoot) {
		t.Errorf("Rel() error = %v, want ErrOutsideRoot", err)
	}

	rel, err := Rel("/r", "/r/sub/a.md")
	if err != nil {
		t.Fatalf("Rel() error: %v", err)
	}
	if rel != filepath.Join("sub", "a.md") {
		t.Errorf("Rel() = %q", rel)
	}
}
