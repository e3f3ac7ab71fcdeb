package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"medtrain_backend/internal/jobs"
	"medtrain_backend/internal/model"
	"medtrain_backend/internal/repository"
	"medtrain_backend/internal/util"
	"medtrain_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NotificationPublisher interface {
	Publish(ctx context.Context, n *model.Notification) error
}

// NotificationService 处理提醒与推送任务，并提供通知列表查询
type NotificationService struct {
	NotificationRepo *repository.NotificationRepository
	SessionRepo      *repository.TrainingSessionRepository
	UserRepo         *repository.UserRepository
	Mailer           Mailer
	Publisher        NotificationPublisher
}

func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	sessionRepo *repository.TrainingSessionRepository,
	userRepo *repository.UserRepository,
	mailer Mailer,
	publisher NotificationPublisher,
) *NotificationService {
	return &NotificationService{
		NotificationRepo: notificationRepo,
		SessionRepo:      sessionRepo,
		UserRepo:         userRepo,
		Mailer:           mailer,
		Publisher:        publisher,
	}
}

func (s *NotificationService) Register(registry *jobs.Registry) {
	registry.Register(jobs.JobSessionReminderEmail, s.handleReminderEmail)
	registry.Register(jobs.JobSessionReminderNotification, s.handleReminderNotification)
	registry.Register(jobs.JobAssistantPush, s.handleAssistantPush)
}

// reminderSession 会话已删除时返回 nil，任务直接丢弃
func (s *NotificationService) reminderSession(ctx context.Context, job jobs.Job) (*model.TrainingSession, ReminderPayload, error) {
	var payload ReminderPayload
	if err := job.Decode(&payload); err != nil {
		logger.Log.Error("Drop reminder with malformed payload", zap.String("id", job.ID), zap.Error(err))
		return nil, payload, nil
	}
	session, err := s.SessionRepo.FindByID(ctx, payload.SessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Log.Info("Drop reminder for deleted session",
			zap.String("job", job.Name),
			zap.Uint("sessionID", payload.SessionID),
		)
		return nil, payload, nil
	}
	if err != nil {
		return nil, payload, err
	}
	return session, payload, nil
}

func (s *NotificationService) handleReminderEmail(ctx context.Context, job jobs.Job) error {
	session, payload, err := s.reminderSession(ctx, job)
	if err != nil || session == nil {
		return err
	}
	user, err := s.UserRepo.FindByID(ctx, payload.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Log.Info("Drop reminder email for missing user", zap.Uint("userID", payload.UserID))
		return nil
	}
	if err != nil {
		return err
	}

	return s.Mailer.Send(ctx, EmailMessage{
		To:      user.Email,
		Subject: "Your training session is about to start",
		Body: fmt.Sprintf("Hello %s, your training session %q is scheduled for %s.",
			user.Name, sessionTitle(session), payload.ScheduledAt.Format(util.TimeFormat)),
	})
}

func (s *NotificationService) handleReminderNotification(ctx context.Context, job jobs.Job) error {
	session, payload, err := s.reminderSession(ctx, job)
	if err != nil || session == nil {
		return err
	}
	return s.notify(ctx, &model.Notification{
		UserID: payload.UserID,
		Kind:   model.NotificationSessionReminder,
		Title:  "Training session reminder",
		Body:   fmt.Sprintf("Your training session %q is ready to start.", sessionTitle(session)),
	}, payload)
}

func (s *NotificationService) handleAssistantPush(ctx context.Context, job jobs.Job) error {
	var payload AssistantPushPayload
	if err := job.Decode(&payload); err != nil {
		logger.Log.Error("Drop assistant push with malformed payload", zap.String("id", job.ID), zap.Error(err))
		return nil
	}
	return s.notify(ctx, &model.Notification{
		UserID: payload.UserID,
		Kind:   model.NotificationAssistantPush,
		Title:  "Suggested next question",
		Body:   "Your assistant picked a question for you to try next.",
	}, payload)
}

// notify 先落库再推送；推送失败不影响通知本身
func (s *NotificationService) notify(ctx context.Context, n *model.Notification, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	n.Payload = raw
	if err := s.NotificationRepo.Create(ctx, n); err != nil {
		return err
	}
	if s.Publisher == nil {
		return nil
	}
	if err := s.Publisher.Publish(ctx, n); err != nil {
		logger.Log.Warn("Publish notification failed", zap.Uint("notificationID", n.ID), zap.Error(err))
	}
	return nil
}

func sessionTitle(session *model.TrainingSession) string {
	if session.Title != "" {
		return session.Title
	}
	return fmt.Sprintf("#%d", session.ID)
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.NotificationRepo.ListByUser(ctx, userID, unreadOnly, limit, (page-1)*limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	err := s.NotificationRepo.MarkRead(ctx, userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: notification %d", util.ErrNotFound, id)
	}
	return err
}
