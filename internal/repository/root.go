package repository

import (
	"syncheal/internal/db"
	"syncheal/internal/model"
)

type RootRepository struct{}

func NewRootRepository() *RootRepository {
	return &RootRepository{}
}

func (r *RootRepository) Add(path string, strategy model.ConflictStrategy) (model.WatchRoot, error) {
	root := model.WatchRoot{
		Path:     path,
		Strategy: strategy,
		Status:   model.RootStatusActive,
	}

	return root, db.DB.Create(&root).Error
}

func (r *RootRepository) GetAll() ([]model.WatchRoot, error) {
	var roots []model.WatchRoot
	return roots, db.DB.Find(&roots).Error
}

func (r *RootRepository) GetByID(id uint) (model.WatchRoot, error) {
	var root model.WatchRoot
	return root, db.DB.First(&root, id).Error
}

func (r *RootRepository) UpdateStatus(id uint, status model.RootStatus) error {
	return db.DB.Model(&model.WatchRoot{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *RootRepository) Delete(id uint) error {
	return db.DB.Unscoped().Delete(&model.WatchRoot{}, id).Error
}
