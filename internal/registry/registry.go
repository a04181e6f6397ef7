// Package registry enumerates conflict candidates under a sync root.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"syncheal/internal/matcher"
	"syncheal/internal/model"
	"syncheal/internal/pipeline"

	"github.com/spf13/afero"
)

var errStop = errors.New("stop walking")

type Registry struct {
	fs         afero.Fs
	root       string
	trashRoot  string
	ignoreList []string
}

func New(fsys afero.Fs, root, trashRoot string, ignoreList []string) *Registry {
	return &Registry{
		fs:         fsys,
		root:       filepath.Clean(root),
		trashRoot:  filepath.Clean(trashRoot),
		ignoreList: ignoreList,
	}
}

// Conflicts lazily yields every non-directory entry under the root whose name
// contains the source's marker. The trash subtree and ignored paths are never
// visited. Entries that disappear while walking are skipped.
func (r *Registry) Conflicts(source model.ConflictSource) iter.Seq2[model.ConflictFile, error] {
	return func(yield func(model.ConflictFile, error) bool) {
		err := afero.Walk(r.fs, r.root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				if !yield(model.ConflictFile{Path: path}, fmt.Errorf("failed to walk %s: %w", path, err)) {
					return errStop
				}
				if info != nil && info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if r.InTrash(path) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			rel, err := Rel(r.root, path)
			if err != nil {
				return err
			}

			if rel != "." && pipeline.ShouldIgnore(rel, r.ignoreList) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if info.IsDir() || !strings.Contains(info.Name(), source.Marker) {
				return nil
			}

			_, ext := matcher.SplitExt(info.Name())
			conflict := model.ConflictFile{
				Path:    path,
				Rel:     rel,
				ModTime: info.ModTime(),
				Ext:     ext,
				Source:  source,
			}
			if !yield(conflict, nil) {
				return errStop
			}

			return nil
		})

		if err != nil && !errors.Is(err, errStop) {
			yield(model.ConflictFile{Path: r.root}, err)
		}
	}
}

// InTrash reports whether path is the trash root or lies beneath it.
func (r *Registry) InTrash(path string) bool {
	return Within(r.trashRoot, path)
}

// Within reports whether path equals dir or is nested inside it.
func Within(dir, path string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Rel is filepath.Rel that refuses paths outside of root.
func Rel(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", model.ErrOutsideRoot, path, err)
	}

	if !Within(root, path) {
		return "", fmt.Errorf("%w: %s", model.ErrOutsideRoot, path)
	}

	return rel, nil
}
