package model

import (
	"time"

	"gorm.io/gorm"
)

type RootStatus string

const (
	RootStatusActive  RootStatus = "ACTIVE"
	RootStatusStopped RootStatus = "STOPPED"
)

// WatchRoot is a sync root the daemon keeps free of orphaned conflicts.
type WatchRoot struct {
	gorm.Model
	Path     string           `gorm:"uniqueIndex;not null"`
	Strategy ConflictStrategy `gorm:"not null;default:'SKIP'"`
	Status   RootStatus       `gorm:"not null;default:'ACTIVE'"`
}

type RootSnapshot struct {
	RootID    uint             `json:"root_id"`
	Path      string           `json:"path"`
	Strategy  ConflictStrategy `json:"strategy"`
	Status    RootStatus       `json:"status"`
	StartedAt time.Time        `json:"started_at"`
	Passes    int              `json:"passes"`
	Resolved  int              `json:"resolved"`
	Failed    int              `json:"failed"`
	LastPass  *time.Time       `json:"last_pass"`
}
