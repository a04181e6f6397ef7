// Package resolver runs a resolution pass over a sync root: every configured
// conflict source is enumerated in turn and each conflict is handed to the
// policy until the run completes or the operator quits.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"syncheal/internal/logger"
	"syncheal/internal/matcher"
	"syncheal/internal/model"
	"syncheal/internal/policy"
	"syncheal/internal/registry"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Recorder interface {
	Record(runID, root string, res model.Resolution) error
}

type Resolver struct {
	fs        afero.Fs
	root      string
	trashRoot string
	registry  *registry.Registry
	policy    *policy.Policy
	recorder  Recorder
	out       io.Writer
}

type Option func(*Resolver)

func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) { r.recorder = rec }
}

// WithProgress prints per-source and per-conflict messages for the operator.
func WithProgress(w io.Writer) Option {
	return func(r *Resolver) { r.out = w }
}

func New(fsys afero.Fs, root, trashRoot string, reg *registry.Registry, pol *policy.Policy, options ...Option) *Resolver {
	r := &Resolver{
		fs:        fsys,
		root:      root,
		trashRoot: trashRoot,
		registry:  reg,
		policy:    pol,
		out:       io.Discard,
	}
	for _, o := range options {
		o(r)
	}

	return r
}

// Run resolves every conflict of every source. Failures on a single conflict
// are logged and counted; only quitting (or ctx ending) stops the run early.
func (r *Resolver) Run(ctx context.Context, sources []model.ConflictSource) model.RunResult {
	result := model.RunResult{
		ID:     uuid.NewString(),
		Status: model.RunCompleted,
	}

	logger.Log.Info("resolution run started",
		zap.String("run", result.ID),
		zap.String("root", r.root),
		zap.String("strategy", string(r.policy.Strategy())))

	for _, source := range sources {
		_, _ = fmt.Fprintf(r.out, "[!] Solving %s conflicts in `%s`\n\n", source.Name, r.root)

		for conflict, err := range r.registry.Conflicts(source) {
			if ctx.Err() != nil {
				logger.Log.Info("resolution run cancelled",
					zap.String("run", result.ID))
				result.Status = model.RunAbortedByOperator
				return result
			}

			if err != nil {
				logger.Log.Error("failed to enumerate conflicts",
					zap.String("path", conflict.Path),
					zap.Error(err))
				result.Failed++
				continue
			}

			res, ok := r.resolveOne(ctx, result.ID, conflict)
			if !ok {
				continue
			}

			result.Resolutions = append(result.Resolutions, res)
			if res.Err != nil {
				result.Failed++
				continue
			}

			if res.Outcome == model.OutcomeAborted {
				logger.Log.Info("resolution run aborted by operator",
					zap.String("run", result.ID),
					zap.String("path", res.Conflict))
				result.Status = model.RunAbortedByOperator
				return result
			}
		}
	}

	logger.Log.Info("resolution run finished",
		zap.String("run", result.ID),
		zap.Int("resolved", len(result.Resolutions)-result.Failed),
		zap.Int("failed", result.Failed))

	return result
}

// resolveOne returns false when the candidate turned out not to need work:
// its name does not match the marker pattern or it vanished meanwhile.
func (r *Resolver) resolveOne(ctx context.Context, runID string, conflict model.ConflictFile) (model.Resolution, bool) {
	m, ok := matcher.Match(conflict.Source.Marker, conflict.Path)
	if !ok {
		logger.Log.Debug("marker not in file stem, skipping",
			zap.String("path", conflict.Rel))
		return model.Resolution{}, false
	}

	if _, err := r.fs.Stat(conflict.Path); errors.Is(err, fs.ErrNotExist) {
		logger.Log.Debug("conflict vanished, skipping",
			zap.String("path", conflict.Rel))
		return model.Resolution{}, false
	}

	res := model.Resolution{
		Source:          conflict.Source.Name,
		Conflict:        conflict.Rel,
		ConflictModTime: conflict.ModTime,
	}

	originalRel, err := registry.Rel(r.root, m.Original)
	if err != nil {
		res.Err = err
		r.report(runID, res)
		return res, true
	}
	res.Original = originalRel

	if m.Degenerate {
		logger.Log.Warn("conflict has no name before the marker, original will be a hidden file",
			zap.String("path", conflict.Rel),
			zap.String("original", originalRel))
	}

	original := model.OriginalFile{Path: m.Original, Rel: originalRel}
	out, err := r.policy.Resolve(ctx, conflict, original)
	res.Outcome = out.Outcome
	res.TrashPath = out.TrashPath
	res.OriginalModTime = out.OriginalModTime
	res.Err = err

	r.report(runID, res)
	return res, true
}

func (r *Resolver) report(runID string, res model.Resolution) {
	if res.Err != nil {
		logger.Log.Error("failed to resolve conflict",
			zap.String("path", res.Conflict),
			zap.String("original", res.Original),
			zap.Error(res.Err))
		_, _ = color.New(color.FgRed).Fprintf(r.out, "[x] Could not resolve `%s`: %v\n\n", res.Conflict, res.Err)
	} else {
		logger.Log.Info("conflict resolved",
			zap.String("path", res.Conflict),
			zap.String("outcome", string(res.Outcome)),
			zap.String("trash", res.TrashPath))
		if msg := r.message(res); msg != "" {
			_, _ = color.New(color.FgBlue).Fprintf(r.out, "[!] %s\n\n", msg)
		}
	}

	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(runID, r.root, res); err != nil {
		logger.Log.Warn("failed to save history",
			zap.String("path", res.Conflict),
			zap.Error(err))
	}
}

func (r *Resolver) message(res model.Resolution) string {
	switch res.Outcome {
	case model.OutcomeAutoHealed:
		return fmt.Sprintf("Original was missing, renamed `%s` to `%s`", res.Conflict, res.Original)
	case model.OutcomeKeptLocal:
		return fmt.Sprintf("Kept local file, moved server file to `%s`", r.trashRoot)
	case model.OutcomeKeptServer:
		return fmt.Sprintf("Kept server file, moved local file to `%s`", r.trashRoot)
	case model.OutcomeMerged:
		return fmt.Sprintf("Merged `%s` into `%s`", res.Conflict, res.Original)
	default:
		return ""
	}
}
