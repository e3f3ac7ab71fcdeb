package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"medtrain_backend/internal/model"
	"medtrain_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var errModelDown = errors.New("learner model down")

type fakeLearner struct {
	mu       sync.Mutex
	snapshot LearnerSnapshot
	err      error
	calls    int
}

func (f *fakeLearner) Snapshot(ctx context.Context, userID, courseID uint) (LearnerSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.snapshot, f.err
}

type fakeModes struct {
	mode *model.Mode
	err  error
}

func (f fakeModes) GetByUser(ctx context.Context, userID uint) (*model.Mode, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.mode == nil {
		return model.DefaultMode(userID), nil
	}
	return f.mode, nil
}

type enqueued struct {
	name    string
	payload any
	delay   time.Duration
}

type fakeScheduler struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (f *fakeScheduler) Enqueue(ctx context.Context, name string, payload any, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, enqueued{name: name, payload: payload, delay: delay})
	return f.err
}

func (f *fakeScheduler) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, j := range f.jobs {
		out = append(out, j.name)
	}
	return out
}

func modeWith(definer model.Definer) *model.Mode {
	return &model.Mode{
		QCM:                     definer,
		QCS:                     definer,
		QROC:                    definer,
		TimeLimit:               definer,
		NumberOfQuestions:       definer,
		RandomizeQuestionsOrder: definer,
		RandomizeOptionsOrder:   definer,
		Difficulty:              definer,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent), TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func seedMcq(t *testing.T, db *gorm.DB, courseID uint, typ model.McqType, difficulty model.Difficulty, options ...model.McqOption) *model.Mcq {
	t.Helper()
	m := &model.Mcq{
		CourseID:      courseID,
		Type:          typ,
		Difficulty:    difficulty,
		EstimatedTime: 90,
		Content:       "Which nerve innervates the diaphragm?",
		Options:       options,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}
