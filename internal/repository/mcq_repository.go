package repository

import (
	"context"
	"errors"

	"medtrain_backend/internal/model"

	"gorm.io/gorm"
)

type McqRepository struct {
	DB *gorm.DB
}

func NewMcqRepository(db *gorm.DB) *McqRepository {
	return &McqRepository{DB: db}
}

// McqQuery 候选题目筛选条件，Types 为空表示不按题型过滤
type McqQuery struct {
	CourseID   uint
	ExcludeIDs []uint
	Types      []model.McqType
	Difficulty *model.Difficulty
	Randomize  bool
	Limit      int
}

func (q McqQuery) scope(db *gorm.DB) *gorm.DB {
	db = db.Where("course_id = ?", q.CourseID)
	if len(q.ExcludeIDs) > 0 {
		db = db.Where("id NOT IN ?", q.ExcludeIDs)
	}
	if len(q.Types) > 0 {
		db = db.Where("type IN ?", q.Types)
	}
	if q.Difficulty != nil {
		db = db.Where("difficulty = ?", *q.Difficulty)
	}
	return db
}

func preloadOptions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func (r *McqRepository) randomOrder() string {
	if r.DB.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}

// Find 返回一页候选题目以及符合条件的总数
func (r *McqRepository) Find(ctx context.Context, q McqQuery) ([]model.Mcq, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&model.Mcq{}).Scopes(q.scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	order := "id ASC"
	if q.Randomize {
		order = r.randomOrder()
	}

	tx := r.DB.WithContext(ctx).Scopes(q.scope).Preload("Options", preloadOptions).Order(order)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var items []model.Mcq
	if err := tx.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindFallback 课程中不在 excludeIDs 内的第一道题，没有时返回 nil
func (r *McqRepository) FindFallback(ctx context.Context, courseID uint, excludeIDs []uint) (*model.Mcq, error) {
	tx := r.DB.WithContext(ctx).
		Preload("Options", preloadOptions).
		Where("course_id = ?", courseID)
	if len(excludeIDs) > 0 {
		tx = tx.Where("id NOT IN ?", excludeIDs)
	}

	var mcq model.Mcq
	err := tx.Order("id ASC").First(&mcq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mcq, nil
}

func (r *McqRepository) FindByID(ctx context.Context, id uint) (*model.Mcq, error) {
	var mcq model.Mcq
	if err := r.DB.WithContext(ctx).Preload("Options", preloadOptions).First(&mcq, id).Error; err != nil {
		return nil, err
	}
	return &mcq, nil
}
