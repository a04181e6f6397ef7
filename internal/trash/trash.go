// Package trash moves losing files into a trash directory that mirrors the
// sync root, and moves them back on request.
//
// A relocation never overwrites: if the mirrored destination is already taken
// the move fails with model.ErrDestinationExists and nothing is changed. Moves
// are a single rename, so on one volume a file is always in exactly one place.
package trash

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"syncheal/internal/model"
	"syncheal/internal/registry"

	"github.com/spf13/afero"
)

type Relocator struct {
	fs        afero.Fs
	root      string
	trashRoot string
}

type Entry struct {
	Rel     string    `json:"rel"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

func New(fsys afero.Fs, root, trashRoot string) *Relocator {
	return &Relocator{
		fs:        fsys,
		root:      filepath.Clean(root),
		trashRoot: filepath.Clean(trashRoot),
	}
}

func (r *Relocator) Root() string {
	return r.trashRoot
}

// Relocate moves src to TrashRoot/rel and returns the destination.
func (r *Relocator) Relocate(src, rel string) (string, error) {
	dst := filepath.Join(r.trashRoot, rel)
	if !registry.Within(r.trashRoot, dst) || dst == r.trashRoot {
		return "", fmt.Errorf("%w: %s", model.ErrOutsideRoot, rel)
	}

	if err := r.move(src, dst); err != nil {
		return "", err
	}

	return dst, nil
}

// Restore moves TrashRoot/rel back to root/rel.
func (r *Relocator) Restore(rel string) (string, error) {
	src := filepath.Join(r.trashRoot, rel)
	dst := filepath.Join(r.root, rel)
	if !registry.Within(r.trashRoot, src) || src == r.trashRoot || registry.Within(r.trashRoot, dst) {
		return "", fmt.Errorf("%w: %s", model.ErrOutsideRoot, rel)
	}

	if err := r.move(src, dst); err != nil {
		return "", err
	}

	return dst, nil
}

// List returns the trashed files sorted by relative path.
func (r *Relocator) List() ([]Entry, error) {
	var entries []Entry

	err := afero.Walk(r.fs, r.trashRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := registry.Rel(r.trashRoot, path)
		if err != nil {
			return err
		}

		entries = append(entries, Entry{
			Rel:     rel,
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list trash: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Rel < entries[j].Rel
	})

	return entries, nil
}

func (r *Relocator) move(src, dst string) error {
	if _, err := r.fs.Stat(src); err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	if err := r.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent dir of %s: %w", dst, err)
	}

	exists, err := afero.Exists(r.fs, dst)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dst, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", model.ErrDestinationExists, dst)
	}

	if err := r.fs.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}

	return nil
}
