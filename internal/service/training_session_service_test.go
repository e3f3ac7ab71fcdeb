package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"medtrain_backend/internal/config"
	"medtrain_backend/internal/jobs"
	"medtrain_backend/internal/model"
	"medtrain_backend/internal/repository"
	"medtrain_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type lifecycleFixture struct {
	db        *gorm.DB
	svc       *TrainingSessionService
	scheduler *fakeScheduler
	learner   *fakeLearner
	user      *model.User
	course    *model.Course
	now       time.Time
}

func newLifecycleFixture(t *testing.T, mode *model.Mode) *lifecycleFixture {
	t.Helper()
	db := newTestDB(t)

	user := &model.User{Name: "Ada", Email: "ada@example.com", Role: model.Student}
	require.NoError(t, db.Create(user).Error)
	course := &model.Course{Title: "Cardiology"}
	require.NoError(t, db.Create(course).Error)

	if mode != nil {
		mode.UserID = user.ID
		require.NoError(t, repository.NewModeRepository(db).Upsert(context.Background(), mode))
	}

	f := &lifecycleFixture{
		db:        db,
		scheduler: &fakeScheduler{},
		learner:   &fakeLearner{snapshot: LearnerSnapshot{Ability: 0.1, Mastery: 0.6}},
		user:      user,
		course:    course,
		now:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	sessionRepo := repository.NewTrainingSessionRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	mcqRepo := repository.NewMcqRepository(db)
	modeRepo := repository.NewModeRepository(db)

	resolver := NewSessionParameterResolver(modeRepo, NewAdaptiveParameterEngine(f.learner))
	selector := NewQuestionSelector(mcqRepo, f.learner, f.scheduler)
	thresholds := NewSettingsThresholdProvider(repository.NewEvaluationSettingRepository(db), nil, config.EvaluationConfig{CorrectThreshold: 0.5})
	evaluator := NewSessionEvaluator(progressRepo, thresholds)

	f.svc = NewTrainingSessionService(db, sessionRepo, progressRepo,
		repository.NewCourseRepository(db), mcqRepo, repository.NewUserRepository(db),
		modeRepo, resolver, selector, evaluator, f.scheduler,
		map[string]int{"easy": 5, "medium": 10, "hard": 15})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *lifecycleFixture) reload(t *testing.T, id uint) *model.TrainingSession {
	t.Helper()
	var s model.TrainingSession
	require.NoError(t, f.db.First(&s, id).Error)
	return &s
}

func TestCreateRejectsInvalidSchedule(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	past := f.now.Add(-time.Hour)
	future := f.now.Add(time.Hour)

	tests := []struct {
		name string
		req  CreateSessionRequest
	}{
		{"scheduled in the past", CreateSessionRequest{CourseID: f.course.ID, Status: model.SessionScheduled, ScheduledAt: &past}},
		{"scheduled now", CreateSessionRequest{CourseID: f.course.ID, Status: model.SessionScheduled, ScheduledAt: &f.now}},
		{"scheduled without date", CreateSessionRequest{CourseID: f.course.ID, Status: model.SessionScheduled}},
		{"date without scheduled status", CreateSessionRequest{CourseID: f.course.ID, ScheduledAt: &future}},
		{"unknown status", CreateSessionRequest{CourseID: f.course.ID, Status: "PAUSED"}},
		{"unknown difficulty", CreateSessionRequest{CourseID: f.course.ID, SessionConfig: SessionConfig{Difficulty: ptr(model.Difficulty("extreme"))}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.user.ID, tt.req)
			require.ErrorIs(t, err, util.ErrValidation)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&model.TrainingSession{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.scheduler.jobs)
}

func TestCreateUnknownCourse(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	_, err := f.svc.Create(context.Background(), f.user.ID, CreateSessionRequest{CourseID: 999})
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestCreateScheduledEnqueuesReminders(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	at := f.now.Add(2 * time.Hour)

	s, err := f.svc.Create(context.Background(), f.user.ID, CreateSessionRequest{
		Title:       "Evening drill",
		CourseID:    f.course.ID,
		Status:      model.SessionScheduled,
		ScheduledAt: &at,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionScheduled, s.Status)

	assert.Equal(t, []string{jobs.JobSessionReminderEmail, jobs.JobSessionReminderNotification}, f.scheduler.names())
	for _, j := range f.scheduler.jobs {
		assert.Equal(t, 2*time.Hour, j.delay)
		assert.Equal(t, ReminderPayload{UserID: f.user.ID, SessionID: s.ID, ScheduledAt: at}, j.payload)
	}
}

func TestCreateResolvesAndMaterializesConfig(t *testing.T) {
	mode := model.DefaultMode(0)
	mode.Difficulty = model.DefinerAssistant
	mode.NumberOfQuestions = model.DefinerAssistant
	mode.TimeLimit = model.DefinerOriginal
	f := newLifecycleFixture(t, mode)

	s, err := f.svc.Create(context.Background(), f.user.ID, CreateSessionRequest{
		CourseID:      f.course.ID,
		SessionConfig: SessionConfig{QCS: ptr(true), TimeLimit: ptr(20)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.learner.calls)

	stored := f.reload(t, s.ID)
	assert.Equal(t, model.SessionPending, stored.Status)
	assert.True(t, stored.QCS)
	assert.False(t, stored.QCM)
	assert.Nil(t, stored.TimeLimit)
	assert.Equal(t, 17, stored.NumberOfQuestions)
	require.NotNil(t, stored.Difficulty)
	assert.Equal(t, model.DifficultyEasy, *stored.Difficulty)
	assert.Empty(t, f.scheduler.jobs)
}

func TestCreateFailsWhenLearnerModelDown(t *testing.T) {
	mode := model.DefaultMode(0)
	mode.QROC = model.DefinerAssistant
	f := newLifecycleFixture(t, mode)
	f.learner.err = errModelDown

	_, err := f.svc.Create(context.Background(), f.user.ID, CreateSessionRequest{CourseID: f.course.ID})
	require.ErrorIs(t, err, util.ErrUpstreamUnavailable)

	var count int64
	require.NoError(t, f.db.Model(&model.TrainingSession{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCompleteScheduledIsRejected(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	at := f.now.Add(time.Hour)
	s, err := f.svc.Create(context.Background(), f.user.ID, CreateSessionRequest{
		CourseID: f.course.ID, Status: model.SessionScheduled, ScheduledAt: &at,
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), f.user.ID, s.ID)
	require.ErrorIs(t, err, util.ErrInvalidState)
	assert.Equal(t, model.SessionScheduled, f.reload(t, s.ID).Status)
}

func TestGetOpensSession(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	at := f.now.Add(time.Hour)
	s, err := f.svc.Create(context.Background(), f.user.ID, CreateSessionRequest{
		CourseID: f.course.ID, Status: model.SessionScheduled, ScheduledAt: &at,
	})
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), f.user.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionInProgress, got.Status)
	assert.Equal(t, model.SessionInProgress, f.reload(t, s.ID).Status)

	_, err = f.svc.Get(context.Background(), f.user.ID+1, s.ID)
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestSessionFlow(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()

	easy := seedMcq(t, f.db, f.course.ID, model.McqTypeQCS, model.DifficultyEasy,
		model.McqOption{Content: "Phrenic", IsCorrect: true}, model.McqOption{Content: "Vagus"})
	hard := seedMcq(t, f.db, f.course.ID, model.McqTypeQCS, model.DifficultyHard,
		model.McqOption{Content: "C3-C5", IsCorrect: true}, model.McqOption{Content: "T1"})

	s, err := f.svc.Create(ctx, f.user.ID, CreateSessionRequest{
		CourseID:      f.course.ID,
		SessionConfig: SessionConfig{QCS: ptr(true), NumberOfQuestions: ptr(2)},
	})
	require.NoError(t, err)

	// 难度未指定时由学习模型推断：ability=0.1 -> easy
	sel, err := f.svc.NextQuestions(ctx, f.user.ID, s.ID)
	require.NoError(t, err)
	require.Len(t, sel.Questions, 1)
	assert.Equal(t, easy.ID, sel.Questions[0].ID)
	assert.False(t, sel.IsFinal)
	assert.Equal(t, model.SessionInProgress, f.reload(t, s.ID).Status)

	_, err = f.svc.SubmitAttempt(ctx, f.user.ID, s.ID, AttemptInput{
		McqID: easy.ID, SelectedOptionIDs: []uint{easy.Options[0].ID}, TimeSpent: 30,
	})
	require.NoError(t, err)

	_, err = f.svc.SubmitAttempt(ctx, f.user.ID, s.ID, AttemptInput{McqID: easy.ID, Skipped: true})
	require.ErrorIs(t, err, util.ErrValidation)

	sel, err = f.svc.NextQuestions(ctx, f.user.ID, s.ID)
	require.NoError(t, err)
	require.Len(t, sel.Questions, 1)
	assert.Equal(t, hard.ID, sel.Questions[0].ID, "difficulty relaxed once easy questions run out")
	assert.True(t, sel.IsFinal)

	_, err = f.svc.SubmitAttempt(ctx, f.user.ID, s.ID, AttemptInput{McqID: hard.ID, Skipped: true, TimeSpent: 12})
	require.NoError(t, err)

	sel, err = f.svc.NextQuestions(ctx, f.user.ID, s.ID)
	require.NoError(t, err)
	assert.True(t, sel.Starved())

	metrics, err := f.svc.Complete(ctx, f.user.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, Metrics{
		CorrectAnswers:  1,
		SkippedMcqs:     1,
		TimeSpent:       30,
		XPEarned:        5,
		TotalMcqsSolved: 2,
		AvgSuccessRatio: 1,
	}, metrics)

	stored := f.reload(t, s.ID)
	assert.Equal(t, model.SessionCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, 5, stored.XPEarned)
	assert.Equal(t, 1.0, stored.Accuracy)

	var user model.User
	require.NoError(t, f.db.First(&user, f.user.ID).Error)
	assert.Equal(t, 5, user.XP)

	// 再次完成只重新计算，不重复累加经验
	f.now = f.now.Add(time.Hour)
	_, err = f.svc.Complete(ctx, f.user.ID, s.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.First(&user, f.user.ID).Error)
	assert.Equal(t, 5, user.XP)
	assert.True(t, f.reload(t, s.ID).CompletedAt.Equal(*stored.CompletedAt))

	_, err = f.svc.SubmitAttempt(ctx, f.user.ID, s.ID, AttemptInput{McqID: hard.ID})
	require.ErrorIs(t, err, util.ErrInvalidState)
}

func TestCompleteWithoutAttempts(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	s, err := f.svc.Create(context.Background(), f.user.ID, CreateSessionRequest{CourseID: f.course.ID})
	require.NoError(t, err)

	metrics, err := f.svc.Complete(context.Background(), f.user.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, Metrics{}, metrics)
	assert.Equal(t, model.SessionCompleted, f.reload(t, s.ID).Status)
}

func TestSubmitAttemptRejectsForeignQuestion(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	other := &model.Course{Title: "Neurology"}
	require.NoError(t, f.db.Create(other).Error)
	foreign := seedMcq(t, f.db, other.ID, model.McqTypeQCS, model.DifficultyEasy, model.McqOption{IsCorrect: true})

	s, err := f.svc.Create(context.Background(), f.user.ID, CreateSessionRequest{CourseID: f.course.ID})
	require.NoError(t, err)

	_, err = f.svc.SubmitAttempt(context.Background(), f.user.ID, s.ID, AttemptInput{McqID: foreign.ID, Skipped: true})
	require.ErrorIs(t, err, util.ErrValidation)

	_, err = f.svc.SubmitAttempt(context.Background(), f.user.ID, s.ID, AttemptInput{McqID: 999})
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestDeleteCascadesAttempts(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	q := seedMcq(t, f.db, f.course.ID, model.McqTypeQCS, model.DifficultyEasy, model.McqOption{IsCorrect: true})

	s, err := f.svc.Create(ctx, f.user.ID, CreateSessionRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	_, err = f.svc.SubmitAttempt(ctx, f.user.ID, s.ID, AttemptInput{McqID: q.ID, Skipped: true})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.user.ID, s.ID))

	var sessions, attempts int64
	require.NoError(t, f.db.Unscoped().Model(&model.TrainingSession{}).Count(&sessions).Error)
	require.NoError(t, f.db.Unscoped().Model(&model.Progress{}).Count(&attempts).Error)
	assert.Zero(t, sessions)
	assert.Zero(t, attempts)

	require.ErrorIs(t, f.svc.Delete(ctx, f.user.ID, s.ID), util.ErrNotFound)
}

func TestSubmitAttemptConcurrentDuplicates(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	q := seedMcq(t, f.db, f.course.ID, model.McqTypeQCS, model.DifficultyEasy,
		model.McqOption{Content: "Phrenic", IsCorrect: true}, model.McqOption{Content: "Vagus"})

	s, err := f.svc.Create(ctx, f.user.ID, CreateSessionRequest{CourseID: f.course.ID})
	require.NoError(t, err)

	const submitters = 4
	errs := make([]error, submitters)
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.SubmitAttempt(ctx, f.user.ID, s.ID, AttemptInput{
				McqID: q.ID, SelectedOptionIDs: []uint{q.Options[0].ID}, TimeSpent: 20,
			})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, util.ErrValidation)
	}
	assert.Equal(t, 1, accepted)

	metrics, err := f.svc.Complete(ctx, f.user.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.TotalMcqsSolved)
	assert.Equal(t, 1, metrics.CorrectAnswers)
	assert.Equal(t, 5, metrics.XPEarned)
}

func TestProgressUniquePerSessionQuestion(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	repo := repository.NewProgressRepository(f.db)

	require.NoError(t, repo.Create(ctx, &model.Progress{UserID: f.user.ID, SessionID: 1, McqID: 9}))
	err := repo.Create(ctx, &model.Progress{UserID: f.user.ID, SessionID: 1, McqID: 9, IsSkipped: true})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// 其他会话不受影响
	require.NoError(t, repo.Create(ctx, &model.Progress{UserID: f.user.ID, SessionID: 2, McqID: 9}))
}

// rendezvousThresholds 让两个并发的 Complete 都在读取会话之后、写入之前汇合
type rendezvousThresholds struct {
	wg sync.WaitGroup
}

func (r *rendezvousThresholds) Get(ctx context.Context) (ThresholdConfig, error) {
	r.wg.Done()
	r.wg.Wait()
	return ThresholdConfig{CorrectThreshold: 0.5}, nil
}

func TestConcurrentCompleteCreditsXPOnce(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	ctx := context.Background()
	q := seedMcq(t, f.db, f.course.ID, model.McqTypeQCS, model.DifficultyEasy,
		model.McqOption{Content: "Phrenic", IsCorrect: true}, model.McqOption{Content: "Vagus"})

	s, err := f.svc.Create(ctx, f.user.ID, CreateSessionRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	_, err = f.svc.SubmitAttempt(ctx, f.user.ID, s.ID, AttemptInput{
		McqID: q.ID, SelectedOptionIDs: []uint{q.Options[0].ID}, TimeSpent: 20,
	})
	require.NoError(t, err)

	barrier := &rendezvousThresholds{}
	barrier.wg.Add(2)
	f.svc.Evaluator = NewSessionEvaluator(repository.NewProgressRepository(f.db), barrier)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Complete(ctx, f.user.ID, s.ID)
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.Equal(t, 5, f.reload(t, s.ID).XPEarned)
	var user model.User
	require.NoError(t, f.db.First(&user, f.user.ID).Error)
	assert.Equal(t, 5, user.XP)
}
