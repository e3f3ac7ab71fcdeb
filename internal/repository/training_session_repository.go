package repository

import (
	"context"

	"medtrain_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TrainingSessionRepository struct {
	DB *gorm.DB
}

func NewTrainingSessionRepository(db *gorm.DB) *TrainingSessionRepository {
	return &TrainingSessionRepository{DB: db}
}

func (r *TrainingSessionRepository) WithTx(tx *gorm.DB) *TrainingSessionRepository {
	return &TrainingSessionRepository{DB: tx}
}

func (r *TrainingSessionRepository) Create(ctx context.Context, session *model.TrainingSession) error {
	return r.DB.WithContext(ctx).Create(session).Error
}

func (r *TrainingSessionRepository) Update(ctx context.Context, session *model.TrainingSession) error {
	return r.DB.WithContext(ctx).Save(session).Error
}

func (r *TrainingSessionRepository) FindByID(ctx context.Context, id uint) (*model.TrainingSession, error) {
	var s model.TrainingSession
	if err := r.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindForUser 只返回属于该用户的会话
func (r *TrainingSessionRepository) FindForUser(ctx context.Context, id, userID uint) (*model.TrainingSession, error) {
	var s model.TrainingSession
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindForUpdate 在事务内加行锁读取，SQLite 不支持行锁时由其写锁串行化
func (r *TrainingSessionRepository) FindForUpdate(ctx context.Context, id uint) (*model.TrainingSession, error) {
	var s model.TrainingSession
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStatus 仅当当前状态匹配时更新，返回是否发生了迁移
func (r *TrainingSessionRepository) UpdateStatus(ctx context.Context, id uint, from []model.SessionStatus, to model.SessionStatus) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.TrainingSession{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TrainingSessionRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Unscoped().Delete(&model.TrainingSession{}, id).Error
}
