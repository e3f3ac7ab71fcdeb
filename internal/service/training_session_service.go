package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medtrain_backend/internal/jobs"
	"medtrain_backend/internal/model"
	"medtrain_backend/internal/repository"
	"medtrain_backend/internal/util"
	"medtrain_backend/pkg/logger"
	"medtrain_backend/pkg/monitoring"
	"medtrain_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateSessionRequest struct {
	Title       string              `json:"title"`
	CourseID    uint                `json:"course" binding:"required"`
	Status      model.SessionStatus `json:"status"`
	ScheduledAt *time.Time          `json:"scheduled_at"`
	SessionConfig
}

type ReminderPayload struct {
	UserID      uint      `json:"user_id"`
	SessionID   uint      `json:"session_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type TrainingSessionService struct {
	DB              *gorm.DB
	SessionRepo     *repository.TrainingSessionRepository
	ProgressRepo    *repository.ProgressRepository
	CourseRepo      *repository.CourseRepository
	McqRepo         *repository.McqRepository
	UserRepo        *repository.UserRepository
	Modes           ModeProvider
	Resolver        *SessionParameterResolver
	Selector        *QuestionSelector
	Evaluator       *SessionEvaluator
	Scheduler       jobs.Scheduler
	XPPerDifficulty map[model.Difficulty]int
	now             func() time.Time
}

func NewTrainingSessionService(
	db *gorm.DB,
	sessionRepo *repository.TrainingSessionRepository,
	progressRepo *repository.ProgressRepository,
	courseRepo *repository.CourseRepository,
	mcqRepo *repository.McqRepository,
	userRepo *repository.UserRepository,
	modes ModeProvider,
	resolver *SessionParameterResolver,
	selector *QuestionSelector,
	evaluator *SessionEvaluator,
	scheduler jobs.Scheduler,
	xpPerDifficulty map[string]int,
) *TrainingSessionService {
	xp := make(map[model.Difficulty]int, len(xpPerDifficulty))
	for k, v := range xpPerDifficulty {
		xp[model.Difficulty(k)] = v
	}
	return &TrainingSessionService{
		DB:              db,
		SessionRepo:     sessionRepo,
		ProgressRepo:    progressRepo,
		CourseRepo:      courseRepo,
		McqRepo:         mcqRepo,
		UserRepo:        userRepo,
		Modes:           modes,
		Resolver:        resolver,
		Selector:        selector,
		Evaluator:       evaluator,
		Scheduler:       scheduler,
		XPPerDifficulty: xp,
		now:             time.Now,
	}
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", util.ErrNotFound, what, id)
	}
	return err
}

// validateSchedule 在持久化之前校验排期参数
func (s *TrainingSessionService) validateSchedule(req *CreateSessionRequest) error {
	if req.Status == "" {
		req.Status = model.SessionPending
	}
	if !req.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", util.ErrValidation, req.Status)
	}
	if req.Status == model.SessionScheduled {
		if req.ScheduledAt == nil {
			return fmt.Errorf("%w: scheduled_at is required for a scheduled session", util.ErrValidation)
		}
		if !req.ScheduledAt.After(s.now()) {
			return fmt.Errorf("%w: scheduled_at must be in the future", util.ErrValidation)
		}
		return nil
	}
	if req.ScheduledAt != nil {
		return fmt.Errorf("%w: scheduled_at is only allowed with status SCHEDULED", util.ErrValidation)
	}
	return nil
}

func (s *TrainingSessionService) validateConfig(cfg SessionConfig) error {
	if cfg.Difficulty != nil && !cfg.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", util.ErrValidation, *cfg.Difficulty)
	}
	if cfg.TimeLimit != nil && *cfg.TimeLimit <= 0 {
		return fmt.Errorf("%w: time_limit must be positive", util.ErrValidation)
	}
	if cfg.NumberOfQuestions != nil && *cfg.NumberOfQuestions <= 0 {
		return fmt.Errorf("%w: number_of_questions must be positive", util.ErrValidation)
	}
	return nil
}

func (s *TrainingSessionService) Create(ctx context.Context, userID uint, req CreateSessionRequest) (session *model.TrainingSession, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingSession.Create")
	defer func() { tracing.End(span, err) }()

	if err := s.validateSchedule(&req); err != nil {
		return nil, err
	}
	if err := s.validateConfig(req.SessionConfig); err != nil {
		return nil, err
	}

	if _, err := s.CourseRepo.FindByID(ctx, req.CourseID); err != nil {
		return nil, notFound(err, "course", req.CourseID)
	}

	resolved, err := s.Resolver.Resolve(ctx, userID, req.CourseID, &req.SessionConfig)
	if err != nil {
		return nil, err
	}

	session = &model.TrainingSession{
		Title:       req.Title,
		Status:      req.Status,
		ScheduledAt: req.ScheduledAt,
		UserID:      userID,
		CourseID:    req.CourseID,
	}
	resolved.ApplyTo(session)

	if err := s.SessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	monitoring.SessionsCreated.WithLabelValues(string(session.Status)).Inc()
	span.SetAttributes(attribute.Int64("session.id", int64(session.ID)))

	if session.Status == model.SessionScheduled {
		s.scheduleReminders(ctx, session)
	}
	return session, nil
}

// scheduleReminders 投递提醒邮件和站内通知，失败只记录日志
func (s *TrainingSessionService) scheduleReminders(ctx context.Context, session *model.TrainingSession) {
	if s.Scheduler == nil {
		return
	}
	delay := session.ScheduledAt.Sub(s.now())
	payload := ReminderPayload{
		UserID:      session.UserID,
		SessionID:   session.ID,
		ScheduledAt: *session.ScheduledAt,
	}
	for _, name := range []string{jobs.JobSessionReminderEmail, jobs.JobSessionReminderNotification} {
		if err := s.Scheduler.Enqueue(ctx, name, payload, delay); err != nil {
			logger.Log.Error("Enqueue session reminder failed",
				zap.String("job", name),
				zap.Uint("sessionID", session.ID),
				zap.Error(err),
			)
		}
	}
}

func (s *TrainingSessionService) load(ctx context.Context, userID, sessionID uint) (*model.TrainingSession, error) {
	session, err := s.SessionRepo.FindForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, notFound(err, "training session", sessionID)
	}
	return session, nil
}

// open 待开始或已排期的会话首次访问时进入进行中
func (s *TrainingSessionService) open(ctx context.Context, session *model.TrainingSession) error {
	if !session.Status.Openable() {
		return nil
	}
	moved, err := s.SessionRepo.UpdateStatus(ctx, session.ID,
		[]model.SessionStatus{model.SessionPending, model.SessionScheduled}, model.SessionInProgress)
	if err != nil {
		return err
	}
	if moved {
		logger.Log.Debug("Training session opened", zap.Uint("sessionID", session.ID), zap.String("from", string(session.Status)))
	}
	session.Status = model.SessionInProgress
	return nil
}

func (s *TrainingSessionService) Get(ctx context.Context, userID, sessionID uint) (*model.TrainingSession, error) {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.open(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// NextQuestions 以会话中固化的参数重新解析后选择下一道题
func (s *TrainingSessionService) NextQuestions(ctx context.Context, userID, sessionID uint) (sel *Selection, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingSession.NextQuestions")
	span.SetAttributes(attribute.Int64("session.id", int64(sessionID)))
	defer func() { tracing.End(span, err) }()

	session, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	mode, err := s.Modes.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stored := ConfigFromSession(session)
	cfg, err := s.Resolver.ResolveWithMode(ctx, userID, session.CourseID, mode, &stored)
	if err != nil {
		return nil, err
	}

	attempted, err := s.ProgressRepo.AttemptedMcqIDs(ctx, userID, session.ID)
	if err != nil {
		return nil, err
	}

	return s.Selector.SelectNext(ctx, SelectionInput{
		Session:      session,
		Config:       cfg,
		Mode:         mode,
		AttemptedIDs: attempted,
	})
}

func (s *TrainingSessionService) SubmitAttempt(ctx context.Context, userID, sessionID uint, in AttemptInput) (*model.Progress, error) {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionCompleted {
		return nil, fmt.Errorf("%w: training session %d is already completed", util.ErrInvalidState, sessionID)
	}
	if in.TimeSpent < 0 {
		return nil, fmt.Errorf("%w: time_spent must not be negative", util.ErrValidation)
	}
	if err := s.open(ctx, session); err != nil {
		return nil, err
	}

	mcq, err := s.McqRepo.FindByID(ctx, in.McqID)
	if err != nil {
		return nil, notFound(err, "mcq", in.McqID)
	}
	if mcq.CourseID != session.CourseID {
		return nil, fmt.Errorf("%w: mcq %d does not belong to the session course", util.ErrValidation, mcq.ID)
	}

	ratio, err := ScoreAttempt(mcq, in)
	if err != nil {
		return nil, err
	}

	progress := &model.Progress{
		UserID:       userID,
		SessionID:    session.ID,
		McqID:        mcq.ID,
		SuccessRatio: ratio,
		TimeSpent:    in.TimeSpent,
		GainedXP:     AttemptXP(s.XPPerDifficulty, mcq.Difficulty, ratio, in.Skipped),
		IsSkipped:    in.Skipped,
	}
	if in.Skipped {
		progress.TimeSpent = 0
	}
	// 由 (session_id, mcq_id) 唯一索引保证并发提交时只有一条生效
	if err := s.ProgressRepo.Create(ctx, progress); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: mcq %d already attempted in this session", util.ErrValidation, mcq.ID)
		}
		return nil, err
	}
	return progress, nil
}

// Complete 计算并保存统计结果；重复调用会按当前作答重新计算
func (s *TrainingSessionService) Complete(ctx context.Context, userID, sessionID uint) (metrics Metrics, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "TrainingSession.Complete")
	span.SetAttributes(attribute.Int64("session.id", int64(sessionID)))
	defer func() { tracing.End(span, err) }()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return metrics, err
	}
	if session.Status == model.SessionScheduled {
		return metrics, fmt.Errorf("%w: a scheduled session that was never opened cannot be completed", util.ErrInvalidState)
	}

	metrics, err = s.Evaluator.Evaluate(ctx, userID, session.ID)
	if err != nil {
		return metrics, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 经验增量以锁定后的最新记录为准，并发完成时只记一次
		current, err := s.SessionRepo.WithTx(tx).FindForUpdate(ctx, session.ID)
		if err != nil {
			return notFound(err, "training session", session.ID)
		}
		previousXP := current.XPEarned

		if current.Status != model.SessionCompleted {
			now := s.now()
			current.Status = model.SessionCompleted
			current.CompletedAt = &now
		}
		current.TotalMcqs = metrics.TotalMcqsSolved
		current.CorrectAnswers = metrics.CorrectAnswers
		current.IncorrectAnswers = metrics.IncorrectAnswers
		current.SkippedMcqs = metrics.SkippedMcqs
		current.TimeSpent = metrics.TimeSpent
		current.Accuracy = metrics.AvgSuccessRatio
		current.XPEarned = metrics.XPEarned
		current.PerformanceBand = metrics.PerformanceBand

		if err := s.SessionRepo.WithTx(tx).Update(ctx, current); err != nil {
			return err
		}
		if delta := metrics.XPEarned - previousXP; delta != 0 {
			return s.UserRepo.WithTx(tx).AddXP(ctx, userID, delta)
		}
		return nil
	})
	if err != nil {
		return metrics, err
	}

	monitoring.SessionsCompleted.Inc()
	logger.Log.Info("Training session completed",
		zap.Uint("sessionID", session.ID),
		zap.Uint("userID", userID),
		zap.Int("xp", metrics.XPEarned),
		zap.Float64("avgSuccessRatio", metrics.AvgSuccessRatio),
	)
	return metrics, nil
}

// Delete 删除会话及其作答记录；已投递的提醒任务不会撤销，由任务处理时忽略
func (s *TrainingSessionService) Delete(ctx context.Context, userID, sessionID uint) error {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ProgressRepo.WithTx(tx).DeleteBySession(ctx, session.ID); err != nil {
			return err
		}
		return s.SessionRepo.WithTx(tx).Delete(ctx, session.ID)
	})
}
