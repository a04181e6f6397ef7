// Package policy decides how a single conflict is resolved and carries the
// decision out on disk.
package policy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"syncheal/internal/logger"
	"syncheal/internal/model"
	"syncheal/internal/prompt"
	"syncheal/internal/trash"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const timeLayout = "2006-01-02T15:04:05"

type DiffRenderer interface {
	Render(w io.Writer, conflictPath, conflictLabel, originalPath, originalLabel string) error
}

type Merger interface {
	Available() bool
	Tool() string
	Merge(ctx context.Context, original, conflict string) error
}

// KeepBothMemory answers whether the operator already chose to keep both
// files while they had exactly these modification times.
type KeepBothMemory interface {
	KeptBoth(conflictPath string, conflictMod, originalMod time.Time) (bool, error)
}

type Options struct {
	Strategy       model.ConflictStrategy
	TextExtensions []string
	// TrashAsOriginal files a losing conflict under the original's name
	// instead of its own.
	TrashAsOriginal bool
}

type Policy struct {
	fs       afero.Fs
	trash    *trash.Relocator
	prompter prompt.Prompter
	diff     DiffRenderer
	merger   Merger
	memory   KeepBothMemory
	out      io.Writer
	opts     Options
}

type Option func(*Policy)

func WithDiff(r DiffRenderer, out io.Writer) Option {
	return func(p *Policy) {
		p.diff = r
		p.out = out
	}
}

func WithMerger(m Merger) Option {
	return func(p *Policy) { p.merger = m }
}

func WithKeepBothMemory(m KeepBothMemory) Option {
	return func(p *Policy) { p.memory = m }
}

func New(fsys afero.Fs, relocator *trash.Relocator, prompter prompt.Prompter, opts Options, options ...Option) *Policy {
	if opts.Strategy == "" {
		opts.Strategy = model.StrategyAsk
	}
	if prompter == nil {
		prompter = prompt.New(strings.NewReader(""), io.Discard, false)
	}

	p := &Policy{
		fs:       fsys,
		trash:    relocator,
		prompter: prompter,
		out:      io.Discard,
		opts:     opts,
	}
	for _, o := range options {
		o(p)
	}

	return p
}

func (p *Policy) Strategy() model.ConflictStrategy {
	return p.opts.Strategy
}

type Result struct {
	Outcome         model.Outcome
	TrashPath       string
	OriginalModTime *time.Time
}

// Resolve settles one conflict. A missing original is healed by renaming the
// conflict into place; otherwise the strategy (or the operator) picks a choice.
func (p *Policy) Resolve(ctx context.Context, conflict model.ConflictFile, original model.OriginalFile) (Result, error) {
	info, err := lstat(p.fs, original.Path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := p.fs.Rename(conflict.Path, original.Path); err != nil {
			return Result{}, fmt.Errorf("failed to rename %s to %s: %w", conflict.Path, original.Path, err)
		}
		return Result{Outcome: model.OutcomeAutoHealed}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to stat %s: %w", original.Path, err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("original %s is a directory", original.Path)
	}

	originalMod := info.ModTime()
	result := Result{OriginalModTime: &originalMod}

	if p.memory != nil {
		kept, err := p.memory.KeptBoth(conflict.Rel, conflict.ModTime, originalMod)
		if err != nil {
			logger.Log.Warn("failed to look up earlier decision",
				zap.String("path", conflict.Rel),
				zap.Error(err))
		} else if kept {
			logger.Log.Debug("both files kept earlier, not asking again",
				zap.String("path", conflict.Rel))
			result.Outcome = model.OutcomeKeptBoth
			return result, nil
		}
	}

	choice, err := p.decide(conflict, original, originalMod)
	if err != nil {
		return result, err
	}

	logger.Log.Debug("conflict decided",
		zap.String("path", conflict.Rel),
		zap.String("strategy", string(p.opts.Strategy)),
		zap.Stringer("choice", choice))

	return p.apply(ctx, choice, conflict, original, result)
}

func (p *Policy) decide(conflict model.ConflictFile, original model.OriginalFile, originalMod time.Time) (model.Choice, error) {
	switch p.opts.Strategy {
	case model.StrategyAsk:
		return p.ask(conflict, original, originalMod)

	case model.StrategyNewerWins:
		switch {
		case conflict.ModTime.After(originalMod):
			return model.ChoiceKeepLocal, nil
		case originalMod.After(conflict.ModTime):
			return model.ChoiceKeepServer, nil
		default:
			return model.ChoiceKeepBoth, nil
		}

	case model.StrategyLocalWins:
		return model.ChoiceKeepLocal, nil

	case model.StrategyServerWins:
		return model.ChoiceKeepServer, nil

	case model.StrategySkip:
		return model.ChoiceKeepBoth, nil

	default:
		return model.ChoiceKeepBoth, fmt.Errorf("unknown strategy: %s", p.opts.Strategy)
	}
}

func (p *Policy) ask(conflict model.ConflictFile, original model.OriginalFile, originalMod time.Time) (model.Choice, error) {
	options := []prompt.Option{
		{
			Choice: model.ChoiceKeepLocal,
			Label:  fmt.Sprintf("[%s] %s", conflict.ModTime.Format(timeLayout), conflict.Rel),
			Tone:   prompt.ToneLocal,
		},
		{
			Choice: model.ChoiceKeepServer,
			Label:  fmt.Sprintf("[%s] %s", originalMod.Format(timeLayout), original.Rel),
			Tone:   prompt.ToneServer,
		},
	}

	if p.isText(conflict.Ext) {
		if p.diff != nil && p.prompter.Interactive() {
			if err := p.diff.Render(p.out, conflict.Path, conflict.Rel, original.Path, original.Rel); err != nil {
				logger.Log.Warn("failed to render diff",
					zap.String("path", conflict.Rel),
					zap.Error(err))
			}
		}

		if p.merger != nil && p.merger.Available() {
			options = append(options, prompt.Option{
				Choice: model.ChoiceMerge,
				Label:  p.merger.Tool(),
			})
		}
	}

	options = append(options,
		prompt.Option{Choice: model.ChoiceKeepBoth, Label: "both"},
		prompt.Option{Choice: model.ChoiceQuit, Label: "quit"},
	)

	return p.prompter.Choose(prompt.Question{
		Message: "Which file(s) do you want to keep?",
		Options: options,
		Default: model.ChoiceKeepServer,
	})
}

func (p *Policy) apply(ctx context.Context, choice model.Choice, conflict model.ConflictFile, original model.OriginalFile, result Result) (Result, error) {
	switch choice {
	case model.ChoiceKeepLocal:
		dst, err := p.trash.Relocate(original.Path, original.Rel)
		if err != nil {
			return result, err
		}
		result.TrashPath = dst

		if err := p.fs.Rename(conflict.Path, original.Path); err != nil {
			if undoErr := p.fs.Rename(dst, original.Path); undoErr != nil {
				logger.Log.Error("failed to put original back, it stays in the trash",
					zap.String("trash", dst),
					zap.Error(undoErr))
			} else {
				result.TrashPath = ""
			}
			return result, fmt.Errorf("failed to rename %s to %s: %w", conflict.Path, original.Path, err)
		}
		result.Outcome = model.OutcomeKeptLocal

	case model.ChoiceKeepServer:
		rel := conflict.Rel
		if p.opts.TrashAsOriginal {
			rel = original.Rel
		}

		dst, err := p.trash.Relocate(conflict.Path, rel)
		if err != nil {
			return result, err
		}
		result.TrashPath = dst
		result.Outcome = model.OutcomeKeptServer

	case model.ChoiceMerge:
		if p.merger == nil {
			return result, fmt.Errorf("no merge tool configured")
		}
		if err := p.merger.Merge(ctx, original.Path, conflict.Path); err != nil {
			return result, err
		}
		result.Outcome = model.OutcomeMerged

	case model.ChoiceKeepBoth:
		result.Outcome = model.OutcomeKeptBoth

	case model.ChoiceQuit:
		result.Outcome = model.OutcomeAborted

	default:
		return result, fmt.Errorf("unknown choice: %v", choice)
	}

	return result, nil
}

func (p *Policy) isText(ext string) bool {
	return slices.ContainsFunc(p.opts.TextExtensions, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

func lstat(fsys afero.Fs, path string) (os.FileInfo, error) {
	if l, ok := fsys.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}
