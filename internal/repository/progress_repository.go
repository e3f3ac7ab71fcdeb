package repository

import (
	"context"

	"medtrain_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// Create 同一会话重复作答同一题时返回 gorm.ErrDuplicatedKey
func (r *ProgressRepository) Create(ctx context.Context, p *model.Progress) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *ProgressRepository) ListBySession(ctx context.Context, userID, sessionID uint) ([]model.Progress, error) {
	var items []model.Progress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// AttemptedMcqIDs 会话内已作答（含跳过）的题目
func (r *ProgressRepository) AttemptedMcqIDs(ctx context.Context, userID, sessionID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Progress{}).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("id ASC").
		Pluck("mcq_id", &ids).Error
	return ids, err
}

func (r *ProgressRepository) DeleteBySession(ctx context.Context, sessionID uint) error {
	return r.DB.WithContext(ctx).Unscoped().
		Where("session_id = ?", sessionID).
		Delete(&model.Progress{}).Error
}
