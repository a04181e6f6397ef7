// Package diff renders line-level unified diffs between a conflict file and
// its original.
package diff

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/afero"
)

const DefaultContext = 3

type Line struct {
	Op   diffmatchpatch.Operation
	Text string
}

type Hunk struct {
	OldStart, OldLines int
	NewStart, NewLines int
	Lines              []Line
}

func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%s +%s @@", span(h.OldStart, h.OldLines), span(h.NewStart, h.NewLines))
}

func span(start, n int) string {
	if n == 1 {
		return fmt.Sprint(start)
	}
	return fmt.Sprintf("%d,%d", start, n)
}

// Unified computes the hunks turning a into b with the given lines of context.
func Unified(a, b string, context int) []Hunk {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var ops []Line
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			ops = append(ops, Line{Op: d.Type, Text: text})
		}
	}

	// oldPos[k] and newPos[k] count the lines of a and b before ops[k].
	oldPos := make([]int, len(ops)+1)
	newPos := make([]int, len(ops)+1)
	for k, op := range ops {
		oldPos[k+1], newPos[k+1] = oldPos[k], newPos[k]
		if op.Op != diffmatchpatch.DiffInsert {
			oldPos[k+1]++
		}
		if op.Op != diffmatchpatch.DiffDelete {
			newPos[k+1]++
		}
	}

	var hunks []Hunk
	for i := 0; i < len(ops); {
		if ops[i].Op == diffmatchpatch.DiffEqual {
			i++
			continue
		}

		start := max(0, i-context)
		end := i + 1
		for j := i; j < len(ops); j++ {
			if ops[j].Op != diffmatchpatch.DiffEqual {
				end = j + 1
				continue
			}
			if j-end >= 2*context {
				break
			}
		}
		stop := min(len(ops), end+context)

		h := Hunk{
			OldStart: oldPos[start] + 1,
			OldLines: oldPos[stop] - oldPos[start],
			NewStart: newPos[start] + 1,
			NewLines: newPos[stop] - newPos[start],
			Lines:    ops[start:stop],
		}
		if h.OldLines == 0 {
			h.OldStart--
		}
		if h.NewLines == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)

		i = stop
	}

	return hunks
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

type Renderer struct {
	fs      afero.Fs
	context int
}

func NewRenderer(fsys afero.Fs) *Renderer {
	return &Renderer{fs: fsys, context: DefaultContext}
}

// Render prints the diff from the conflict file to the original. Lines only in
// the conflict are red, lines only in the original are green.
func (r *Renderer) Render(w io.Writer, conflictPath, conflictLabel, originalPath, originalLabel string) error {
	a, err := afero.ReadFile(r.fs, conflictPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", conflictPath, err)
	}
	b, err := afero.ReadFile(r.fs, originalPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", originalPath, err)
	}

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	_, _ = color.New(color.BgRed, color.FgWhite).Fprintf(w, "--- %s", conflictLabel)
	_, _ = fmt.Fprintln(w)
	_, _ = color.New(color.BgGreen, color.FgWhite).Fprintf(w, "+++ %s", originalLabel)
	_, _ = fmt.Fprintln(w)

	if bytes.IndexByte(a, 0) >= 0 || bytes.IndexByte(b, 0) >= 0 {
		_, err := fmt.Fprintln(w, "binary files differ")
		return err
	}

	hunks := Unified(string(a), string(b), r.context)
	if len(hunks) == 0 {
		_, err := fmt.Fprintln(w, "files are identical")
		return err
	}

	for _, h := range hunks {
		_, _ = fmt.Fprintln(w, h.Header())
		for _, line := range h.Lines {
			switch line.Op {
			case diffmatchpatch.DiffDelete:
				_, _ = removed.Fprintln(w, "-"+line.Text)
			case diffmatchpatch.DiffInsert:
				_, _ = added.Fprintln(w, "+"+line.Text)
			default:
				_, _ = fmt.Fprintln(w, " "+line.Text)
			}
		}
	}

	_, err = fmt.Fprintln(w)
	return err
}
