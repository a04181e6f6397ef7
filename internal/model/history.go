package model

import (
	"time"

	"gorm.io/gorm"
)

type History struct {
	gorm.Model
	RunID           string  `gorm:"index;not null"`
	Root            string  `gorm:"not null"`
	Source          string  `gorm:"not null"`
	ConflictPath    string  `gorm:"index;not null"`
	OriginalPath    string  `gorm:"not null"`
	Outcome         Outcome `gorm:"not null"`
	TrashPath       string
	ConflictModTime time.Time
	OriginalModTime *time.Time
	ErrMsg          string
	ResolvedAt      time.Time `gorm:"not null"`
}
