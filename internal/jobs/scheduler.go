package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobSessionReminderEmail        = "session-reminder-email"
	JobSessionReminderNotification = "session-reminder-notification"
	JobAssistantPush               = "assistant-push"
)

const (
	maxAttempts = 3
	retryDelay  = 30 * time.Second
)

// Scheduler 延迟任务投递，调用方不关心执行结果
type Scheduler interface {
	Enqueue(ctx context.Context, name string, payload any, delay time.Duration) error
}

// Runner 从队列领取到期任务并交给 Registry 执行
type Runner interface {
	Run(ctx context.Context, registry *Registry) error
}

type Job struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	RunAt      time.Time       `json:"run_at"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempts   int             `json:"attempts"`
}

func NewJob(name string, payload any, delay time.Duration, now time.Time) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, err
	}
	if delay < 0 {
		delay = 0
	}
	return Job{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    raw,
		RunAt:      now.Add(delay),
		EnqueuedAt: now,
	}, nil
}

func (j Job) Decode(v any) error {
	return json.Unmarshal(j.Payload, v)
}

// nextAttempt 失败后是否还能重试
func (j Job) nextAttempt(now time.Time) (Job, bool) {
	if j.Attempts+1 >= maxAttempts {
		return j, false
	}
	j.Attempts++
	j.RunAt = now.Add(retryDelay)
	return j, true
}
