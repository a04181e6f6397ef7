package matcher

import (
	"path/filepath"
	"testing"
)

func TestMatch(t *testing.T) {
	dir := filepath.Join("notes", "work")

	tests := []struct {
		name       string
		marker     string
		file       string
		wantOK     bool
		want       string
		degenerate bool
	}{
		{
			name:   "nextcloud",
			marker: " (conflicted copy ",
			file:   "notes (conflicted copy 2021-01-01).md",
			wantOK: true,
			want:   "notes.md",
		},
		{
			name:   "syncthing",
			marker: ".sync-conflict-",
			file:   "report.sync-conflict-20200101-120000-ABCDEF.txt",
			wantOK: true,
			want:   "report.txt",
		},
		{
			name:   "no extension",
			marker: " (conflicted copy ",
			file:   "Makefile (conflicted copy 2021-01-01)",
			wantOK: true,
			want:   "Makefile",
		},
		{
			name:   "multi dot keeps only last extension",
			marker: ".sync-conflict-",
			file:   "archive.tar.sync-conflict-20200101-120000-XYZ.gz",
			wantOK: true,
			want:   "archive.tar.gz",
		},
		{
			name:   "marker twice uses first occurrence",
			marker: " (conflicted copy ",
			file:   "a (conflicted copy 1) (conflicted copy 2).md",
			wantOK: true,
			want:   "a.md",
		},
		{
			name:       "empty prefix",
			marker:     " (conflicted copy ",
			file:       " (conflicted copy 2021-01-01).md",
			wantOK:     true,
			want:       ".md",
			degenerate: true,
		},
		{
			name:   "no prefix and no extension",
			marker: " (conflicted copy ",
			file:   " (conflicted copy 2021-01-01)",
			wantOK: false,
		},
		{
			name:   "marker only in extension",
			marker: ".sync-conflict-",
			file:   "report.sync-conflict-20200101",
			wantOK: false,
		},
		{
			name:   "plain file",
			marker: ".sync-conflict-",
			file:   "report.txt",
			wantOK: false,
		},
		{
			name:   "empty marker",
			marker: "",
			file:   "report.txt",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Match(tt.marker, filepath.Join(dir, tt.file))
			if ok != tt.wantOK {
				t.Fatalf("Match() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}

			if want := filepath.Join(dir, tt.want); m.Original != want {
				t.Errorf("Original = %q, want %q", m.Original, want)
			}
			if m.Degenerate != tt.degenerate {
				t.Errorf("Degenerate = %v, want %v", m.Degenerate, tt.degenerate)
			}
		})
	}
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name     string
		wantStem string
		wantExt  string
	}{
		{"notes.md", "notes", ".md"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{".bashrc", ".bashrc", ""},
		{"trailing.", "trailing.", ""},
		{"README", "README", ""},
		{".hidden.txt", ".hidden", ".txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, ext := SplitExt(tt.name)
			if stem != tt.wantStem || ext != tt.wantExt {
				t.Errorf("SplitExt(%q) = (%q, %q), want (%q, %q)",
					tt.name, stem, ext, tt.wantStem, tt.wantExt)
			}
		})
	}
}
