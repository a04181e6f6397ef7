// Package matcher recognizes conflict file names and derives the name of the
// file they conflict with.
package matcher

import (
	"path/filepath"
	"strings"
)

// Result describes a conflict name that matched a marker.
type Result struct {
	// Original is the derived original path, in the conflict's directory.
	Original string
	Stem     string
	Ext      string
	// Degenerate is set when nothing precedes the marker, so the original name
	// is only the extension. A conflict with neither prefix nor extension has
	// no usable original name and does not match at all.
	Degenerate bool
}

// Match reports whether marker occurs in the stem of path and derives the
// original path by cutting the stem at the first occurrence of marker.
func Match(marker, path string) (Result, bool) {
	if marker == "" {
		return Result{}, false
	}

	dir, name := filepath.Split(path)
	stem, ext := SplitExt(name)

	idx := strings.Index(stem, marker)
	if idx < 0 {
		return Result{}, false
	}

	prefix := stem[:idx]
	if prefix+ext == "" {
		return Result{}, false
	}

	return Result{
		Original:   filepath.Join(dir, prefix+ext),
		Stem:       stem,
		Ext:        ext,
		Degenerate: prefix == "",
	}, true
}

// SplitExt splits a base name into stem and extension. The extension starts at
// the last dot, unless that dot is the first character or the last one.
func SplitExt(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}

	return name[:i], name[i:]
}
