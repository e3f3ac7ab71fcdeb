package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medtrain_backend/pkg/logger"
	"medtrain_backend/pkg/monitoring"

	"go.uber.org/zap"
)

type HandlerFunc func(ctx context.Context, job Job) error

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

func (r *Registry) Register(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) Dispatch(ctx context.Context, job Job) error {
	r.mu.RLock()
	h, ok := r.handlers[job.Name]
	r.mu.RUnlock()
	if !ok {
		monitoring.JobsProcessed.WithLabelValues(job.Name, "unknown").Inc()
		return fmt.Errorf("no handler registered for job %q", job.Name)
	}

	start := time.Now()
	err := h(ctx, job)
	result := "ok"
	if err != nil {
		result = "error"
	}
	monitoring.JobsProcessed.WithLabelValues(job.Name, result).Inc()

	logger.Log.Debug("Job processed",
		zap.String("job", job.Name),
		zap.String("id", job.ID),
		zap.Int("attempt", job.Attempts+1),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	return err
}
