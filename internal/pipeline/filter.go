package pipeline

import (
	"path/filepath"
	"strings"

	"syncheal/internal/model"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter drops events whose path, taken relative to root, is ignored.
func Filter(inCh <-chan model.FileEvent, root string, ignoreList []string) <-chan model.FileEvent {
	outCh := make(chan model.FileEvent, cap(inCh))

	go func() {
		defer close(outCh)

		for event := range inCh {
			if IgnoredUnder(root, event.Path, ignoreList) {
				continue
			}
			outCh <- event
		}
	}()

	return outCh
}

// IgnoredUnder applies ShouldIgnore to path relative to root, so the
// directories above root never match. Paths outside root are ignored.
func IgnoredUnder(root, path string, ignoreList []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	if rel == "." {
		return false
	}

	return ShouldIgnore(rel, ignoreList)
}

// ShouldIgnore matches every pattern against each path component, and
// patterns containing a slash against the whole slash-separated path.
func ShouldIgnore(path string, ignoreList []string) bool {
	slashed := filepath.ToSlash(path)
	parts := strings.Split(slashed, "/")

	for _, pattern := range ignoreList {
		if strings.Contains(pattern, "/") {
			if matched, err := doublestar.Match(pattern, strings.TrimPrefix(slashed, "/")); err == nil && matched {
				return true
			}
			continue
		}

		for _, part := range parts {
			if part == "" {
				continue
			}
			matched, err := doublestar.Match(pattern, part)
			if err == nil && matched {
				return true
			}
		}
	}

	return false
}
