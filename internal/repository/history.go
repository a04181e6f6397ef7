package repository

import (
	"errors"
	"time"

	"syncheal/internal/db"
	"syncheal/internal/model"

	"gorm.io/gorm"
)

type HistoryRepository struct{}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) Record(runID, root string, res model.Resolution) error {
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}

	history := model.History{
		RunID:           runID,
		Root:            root,
		Source:          res.Source,
		ConflictPath:    res.Conflict,
		OriginalPath:    res.Original,
		Outcome:         res.Outcome,
		TrashPath:       res.TrashPath,
		ConflictModTime: res.ConflictModTime,
		OriginalModTime: res.OriginalModTime,
		ErrMsg:          errMsg,
		ResolvedAt:      time.Now(),
	}

	return db.DB.Create(&history).Error
}

type Stats struct {
	Total  int64                   `json:"total"`
	Failed int64                   `json:"failed"`
	ByKind map[model.Outcome]int64 `json:"by_outcome"`
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	stats := Stats{ByKind: make(map[model.Outcome]int64)}
	if err := db.DB.Model(&model.History{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.History{}).
		Where("err_msg <> ''").
		Count(&stats.Failed).Error; err != nil {
		return stats, err
	}

	var rows []struct {
		Outcome model.Outcome
		N       int64
	}
	if err := db.DB.Model(&model.History{}).
		Select("outcome, count(*) as n").
		Where("err_msg = ''").
		Group("outcome").
		Scan(&rows).Error; err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.ByKind[row.Outcome] = row.N
	}

	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Order("resolved_at desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetFailed() ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Where("err_msg <> ''").
		Order("resolved_at desc").
		Find(&histories)

	return histories, result.Error
}

// Latest returns the newest record for a conflict under root, or nil.
func (r *HistoryRepository) Latest(root, conflictPath string) (*model.History, error) {
	var h model.History
	err := db.DB.
		Where("root = ? AND conflict_path = ?", root, conflictPath).
		Order("resolved_at desc, id desc").
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &h, nil
}

// KeepBothMemory remembers "keep both" decisions for one root.
type KeepBothMemory struct {
	repo *HistoryRepository
	root string
}

func NewKeepBothMemory(repo *HistoryRepository, root string) *KeepBothMemory {
	return &KeepBothMemory{repo: repo, root: root}
}

// KeptBoth is true when the newest decision for the conflict was to keep both
// and neither file has been modified since.
func (m *KeepBothMemory) KeptBoth(conflictPath string, conflictMod, originalMod time.Time) (bool, error) {
	h, err := m.repo.Latest(m.root, conflictPath)
	if err != nil || h == nil {
		return false, err
	}

	if h.Outcome != model.OutcomeKeptBoth || h.ErrMsg != "" || h.OriginalModTime == nil {
		return false, nil
	}

	return h.ConflictModTime.Equal(conflictMod) && h.OriginalModTime.Equal(originalMod), nil
}
