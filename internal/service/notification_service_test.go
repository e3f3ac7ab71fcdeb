package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"medtrain_backend/internal/jobs"
	"medtrain_backend/internal/model"
	"medtrain_backend/internal/repository"
	"medtrain_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []EmailMessage
}

func (m *recordingMailer) Send(ctx context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type recordingPublisher struct {
	published []*model.Notification
}

func (p *recordingPublisher) Publish(ctx context.Context, n *model.Notification) error {
	p.published = append(p.published, n)
	return nil
}

func newNotificationFixture(t *testing.T) (*NotificationService, *jobs.Registry, *recordingMailer, *recordingPublisher, *model.TrainingSession) {
	t.Helper()
	db := newTestDB(t)

	user := &model.User{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, db.Create(user).Error)
	session := &model.TrainingSession{Title: "Morning drill", Status: model.SessionScheduled, UserID: user.ID, CourseID: 1}
	require.NoError(t, db.Create(session).Error)

	mailer := &recordingMailer{}
	publisher := &recordingPublisher{}
	svc := NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewTrainingSessionRepository(db),
		repository.NewUserRepository(db),
		mailer, publisher,
	)
	registry := jobs.NewRegistry()
	svc.Register(registry)
	return svc, registry, mailer, publisher, session
}

func reminderJob(t *testing.T, name string, session *model.TrainingSession) jobs.Job {
	t.Helper()
	job, err := jobs.NewJob(name, ReminderPayload{
		UserID:      session.UserID,
		SessionID:   session.ID,
		ScheduledAt: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
	}, 0, time.Now())
	require.NoError(t, err)
	return job
}

func TestReminderEmail(t *testing.T) {
	_, registry, mailer, _, session := newNotificationFixture(t)

	require.NoError(t, registry.Dispatch(context.Background(), reminderJob(t, jobs.JobSessionReminderEmail, session)))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ada@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Body, "Morning drill")
	assert.Contains(t, mailer.sent[0].Body, "2026-03-01 18:00:00")
}

func TestReminderNotificationPersistsAndPublishes(t *testing.T) {
	svc, registry, _, publisher, session := newNotificationFixture(t)
	ctx := context.Background()

	require.NoError(t, registry.Dispatch(ctx, reminderJob(t, jobs.JobSessionReminderNotification, session)))
	require.Len(t, publisher.published, 1)

	items, total, err := svc.List(ctx, session.UserID, true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.NotificationSessionReminder, items[0].Kind)

	var payload ReminderPayload
	require.NoError(t, json.Unmarshal(items[0].Payload, &payload))
	assert.Equal(t, session.ID, payload.SessionID)

	require.NoError(t, svc.MarkRead(ctx, session.UserID, items[0].ID))
	_, total, err = svc.List(ctx, session.UserID, true, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.ErrorIs(t, svc.MarkRead(ctx, session.UserID+1, items[0].ID), util.ErrNotFound)
}

func TestReminderForDeletedSessionIsDropped(t *testing.T) {
	_, registry, mailer, publisher, session := newNotificationFixture(t)
	ghost := *session
	ghost.ID = session.ID + 100

	require.NoError(t, registry.Dispatch(context.Background(), reminderJob(t, jobs.JobSessionReminderEmail, &ghost)))
	require.NoError(t, registry.Dispatch(context.Background(), reminderJob(t, jobs.JobSessionReminderNotification, &ghost)))
	assert.Empty(t, mailer.sent)
	assert.Empty(t, publisher.published)
}

func TestAssistantPushNotification(t *testing.T) {
	svc, registry, _, publisher, session := newNotificationFixture(t)

	job, err := jobs.NewJob(jobs.JobAssistantPush, AssistantPushPayload{UserID: session.UserID, SessionID: session.ID, McqID: 42}, 0, time.Now())
	require.NoError(t, err)
	require.NoError(t, registry.Dispatch(context.Background(), job))

	require.Len(t, publisher.published, 1)
	assert.Equal(t, model.NotificationAssistantPush, publisher.published[0].Kind)

	items, _, err := svc.List(context.Background(), session.UserID, false, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"user_id":1,"session_id":1,"mcq_id":42}`, string(items[0].Payload))
}
