package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"syncheal/internal/config"
	"syncheal/internal/logger"
	"syncheal/internal/model"
	"syncheal/internal/pipeline"
	"syncheal/internal/policy"
	"syncheal/internal/registry"
	"syncheal/internal/repository"
	"syncheal/internal/resolver"
	"syncheal/internal/trash"
	"syncheal/internal/watcher"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// RootManager keeps one watch pipeline per sync root. Each pipeline runs an
// initial resolver pass and another one whenever a debounced event may have
// produced or orphaned a conflict file.
type RootManager struct {
	mu       sync.RWMutex
	roots    map[uint]*RootState
	cfg      *config.Config
	fs       afero.Fs
	histRepo *repository.HistoryRepository
	rootRepo *repository.RootRepository
}

func NewRootManager(cfg *config.Config) *RootManager {
	return &RootManager{
		roots:    make(map[uint]*RootState),
		cfg:      cfg,
		fs:       afero.NewOsFs(),
		histRepo: repository.NewHistoryRepository(),
		rootRepo: repository.NewRootRepository(),
	}
}

// StartSaved starts a pipeline for every root stored in the database.
func (m *RootManager) StartSaved() error {
	roots, err := m.rootRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load watch roots: %w", err)
	}

	for _, root := range roots {
		if err := m.StartRoot(root); err != nil {
			logger.Log.Warn("failed to start watch root",
				zap.Uint("id", root.ID),
				zap.String("path", root.Path),
				zap.Error(err))
		}
	}

	return nil
}

func (m *RootManager) StartRoot(root model.WatchRoot) error {
	if root.Strategy == model.StrategyAsk || !root.Strategy.Valid() {
		return fmt.Errorf("strategy %q cannot run unattended", root.Strategy)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.roots[root.ID]; exists {
		return fmt.Errorf("root %d already watched", root.ID)
	}

	trashRoot := filepath.Join(root.Path, m.cfg.TrashDir)
	ignoreList := append(append([]string{}, m.cfg.IgnoreList...), m.cfg.TrashDir)

	w, err := watcher.New(m.cfg.BufferSize, func(path string) bool {
		return registry.Within(trashRoot, path) || pipeline.IgnoredUnder(root.Path, path, m.cfg.IgnoreList)
	})
	if err != nil {
		return err
	}

	if err := w.Watch(root.Path); err != nil {
		w.Stop()
		return fmt.Errorf("failed to watch root: %w", err)
	}

	state := NewRootState(root)
	ctx, cancel := context.WithCancel(context.Background())
	state.cancel = cancel

	res := m.newResolver(root, trashRoot)
	debounced := pipeline.Debounce(pipeline.Filter(w.Events(), root.Path, ignoreList), m.cfg.Debounce)
	events := pipeline.NewChecksumFilter(m.fs).Run(debounced)

	m.roots[root.ID] = state
	go m.runPipeline(ctx, state, w, events, res)

	logger.Log.Info("watch root started",
		zap.Uint("id", root.ID),
		zap.String("path", root.Path),
		zap.String("strategy", string(root.Strategy)))

	return nil
}

func (m *RootManager) newResolver(root model.WatchRoot, trashRoot string) *resolver.Resolver {
	pol := policy.New(m.fs, trash.New(m.fs, root.Path, trashRoot), nil, policy.Options{
		Strategy:        root.Strategy,
		TextExtensions:  m.cfg.TextExtensions,
		TrashAsOriginal: m.cfg.TrashNaming == config.TrashNamingOriginal,
	})
	reg := registry.New(m.fs, root.Path, trashRoot, m.cfg.IgnoreList)

	return resolver.New(m.fs, root.Path, trashRoot, reg, pol,
		resolver.WithRecorder(m.histRepo))
}

func (m *RootManager) runPipeline(ctx context.Context, state *RootState, w *watcher.Watcher, events <-chan model.FileEvent, res *resolver.Resolver) {
	defer func() {
		state.cancel()
		w.Stop()

		m.mu.Lock()
		delete(m.roots, state.RootID)
		m.mu.Unlock()

		logger.Log.Info("watch root stopped",
			zap.Uint("id", state.RootID))
	}()

	pass := func() {
		if !state.Active() {
			return
		}
		state.RecordPass(res.Run(ctx, m.cfg.Sources))
	}

	pass()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}

			if !m.relevant(event) {
				continue
			}
			drain(events)
			pass()

		case <-state.PauseCh:
			state.SetStatus(model.RootStatusStopped)
			_ = m.rootRepo.UpdateStatus(state.RootID, model.RootStatusStopped)
			logger.Log.Info("watch root paused",
				zap.Uint("id", state.RootID))

		case <-state.ResumeCh:
			state.SetStatus(model.RootStatusActive)
			_ = m.rootRepo.UpdateStatus(state.RootID, model.RootStatusActive)
			logger.Log.Info("watch root resumed",
				zap.Uint("id", state.RootID))
			pass()

		case <-state.StopCh:
			return
		}
	}
}

// relevant reports whether an event can change the set of conflicts: a file
// carrying a marker appeared or changed, or something that might be an
// original went away.
func (m *RootManager) relevant(event model.FileEvent) bool {
	if event.Type == model.EventRemove || event.Type == model.EventRename {
		return true
	}

	name := filepath.Base(event.Path)
	for _, source := range m.cfg.Sources {
		if source.Marker != "" && strings.Contains(name, source.Marker) {
			return true
		}
	}

	return false
}

// drain discards events already queued; a single pass covers all of them.
func drain(events <-chan model.FileEvent) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (m *RootManager) StopRoot(id uint) error {
	m.mu.RLock()
	state, exists := m.roots[id]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("root %d not found", id)
	}

	state.cancel()
	signal(state.StopCh)
	return nil
}

func (m *RootManager) StopAll() {
	m.mu.RLock()
	ids := make([]uint, 0, len(m.roots))
	for id := range m.roots {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.StopRoot(id)
	}
}

func (m *RootManager) PauseRoot(id uint) error {
	m.mu.RLock()
	state, exists := m.roots[id]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("root %d not found", id)
	}

	signal(state.PauseCh)
	return nil
}

func (m *RootManager) ResumeRoot(id uint) error {
	m.mu.RLock()
	state, exists := m.roots[id]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("root %d not found", id)
	}

	signal(state.ResumeCh)
	return nil
}

// signal never blocks: a signal already waiting in ch has the same effect.
func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (m *RootManager) Snapshots() []model.RootSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := make([]model.RootSnapshot, 0, len(m.roots))
	for _, state := range m.roots {
		snaps = append(snaps, state.Snapshot())
	}

	return snaps
}
