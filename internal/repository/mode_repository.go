package repository

import (
	"context"
	"errors"

	"medtrain_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ModeRepository struct {
	DB *gorm.DB
}

func NewModeRepository(db *gorm.DB) *ModeRepository {
	return &ModeRepository{DB: db}
}

// GetByUser 用户未保存过设置时返回默认模式
func (r *ModeRepository) GetByUser(ctx context.Context, userID uint) (*model.Mode, error) {
	var m model.Mode
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DefaultMode(userID), nil
	}
	if err != nil {
		return nil, err
	}
	m.Normalize()
	return &m, nil
}

func (r *ModeRepository) Upsert(ctx context.Context, m *model.Mode) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"qcm", "qcs", "qroc", "time_limit", "number_of_questions",
			"randomize_questions_order", "randomize_options_order", "difficulty", "updated_at",
		}),
	}).Create(m).Error
}
