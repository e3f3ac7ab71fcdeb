package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"medtrain_backend/internal/config"
	"medtrain_backend/internal/util"
	"medtrain_backend/pkg/logger"
	"medtrain_backend/pkg/monitoring"
	"medtrain_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LearnerModelClient 通过 HTTP 调用自适应学习模型服务
type LearnerModelClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewLearnerModelClient(cfg config.LearnerModelConfig) *LearnerModelClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &LearnerModelClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *LearnerModelClient) Snapshot(ctx context.Context, userID, courseID uint) (snapshot LearnerSnapshot, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "LearnerModel.Snapshot")
	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("course.id", int64(courseID)),
	)
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		monitoring.LearnerModelDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
		tracing.End(span, err)
	}()

	if c.baseURL == "" {
		return snapshot, fmt.Errorf("%w: learner model base url not configured", util.ErrUpstreamUnavailable)
	}

	url := fmt.Sprintf("%s/learners/%d/courses/%d/snapshot", c.baseURL, userID, courseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return snapshot, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return snapshot, fmt.Errorf("%w: learner model request failed: %v", util.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Log.Warn("Learner model returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return snapshot, fmt.Errorf("%w: learner model status %d", util.ErrUpstreamUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return snapshot, fmt.Errorf("%w: decode learner snapshot: %v", util.ErrUpstreamUnavailable, err)
	}
	snapshot.Ability = clamp01(snapshot.Ability)
	snapshot.Mastery = clamp01(snapshot.Mastery)
	return snapshot, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
