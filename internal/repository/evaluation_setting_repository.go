package repository

import (
	"context"
	"errors"

	"medtrain_backend/internal/model"

	"gorm.io/gorm"
)

type EvaluationSettingRepository struct {
	DB *gorm.DB
}

func NewEvaluationSettingRepository(db *gorm.DB) *EvaluationSettingRepository {
	return &EvaluationSettingRepository{DB: db}
}

// Current 最新一行配置，不存在时返回 nil
func (r *EvaluationSettingRepository) Current(ctx context.Context) (*model.EvaluationSetting, error) {
	var s model.EvaluationSetting
	err := r.DB.WithContext(ctx).Order("id DESC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *EvaluationSettingRepository) Save(ctx context.Context, s *model.EvaluationSetting) error {
	return r.DB.WithContext(ctx).Save(s).Error
}
