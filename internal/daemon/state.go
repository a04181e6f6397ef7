package daemon

import (
	"context"
	"sync"
	"time"

	"syncheal/internal/model"
)

type RootState struct {
	mu        sync.RWMutex
	RootID    uint
	Path      string
	Strategy  model.ConflictStrategy
	Status    model.RootStatus
	StartedAt time.Time
	Passes    int
	Resolved  int
	Failed    int
	LastPass  *time.Time
	PauseCh   chan struct{}
	ResumeCh  chan struct{}
	StopCh    chan struct{}
	cancel    context.CancelFunc
}

func NewRootState(root model.WatchRoot) *RootState {
	status := root.Status
	if status == "" {
		status = model.RootStatusActive
	}

	return &RootState{
		RootID:    root.ID,
		Path:      root.Path,
		Strategy:  root.Strategy,
		Status:    status,
		StartedAt: time.Now(),
		PauseCh:   make(chan struct{}, 1),
		ResumeCh:  make(chan struct{}, 1),
		StopCh:    make(chan struct{}, 1),
	}
}

func (s *RootState) RecordPass(result model.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Passes++
	s.LastPass = new(time.Now())
	for _, res := range result.Resolutions {
		if res.Err == nil {
			s.Resolved++
		}
	}
	s.Failed += result.Failed
}

func (s *RootState) SetStatus(status model.RootStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
}

func (s *RootState) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status == model.RootStatusActive
}

func (s *RootState) Snapshot() model.RootSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.RootSnapshot{
		RootID:    s.RootID,
		Path:      s.Path,
		Strategy:  s.Strategy,
		Status:    s.Status,
		StartedAt: s.StartedAt,
		Passes:    s.Passes,
		Resolved:  s.Resolved,
		Failed:    s.Failed,
		LastPass:  s.LastPass,
	}
}
