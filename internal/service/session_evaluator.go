package service

import (
	"context"

	"medtrain_backend/internal/model"
)

type AttemptLister interface {
	ListBySession(ctx context.Context, userID, sessionID uint) ([]model.Progress, error)
}

// Metrics 会话结束时的统计结果；跳过的题计入总数和经验，不计入正确率和用时
type Metrics struct {
	CorrectAnswers   int     `json:"correct_answers"`
	IncorrectAnswers int     `json:"incorrect_answers"`
	SkippedMcqs      int     `json:"skipped_mcqs"`
	TimeSpent        int     `json:"time_spent"`
	XPEarned         int     `json:"xp_earned"`
	TotalMcqsSolved  int     `json:"total_mcqs_solved"`
	AvgSuccessRatio  float64 `json:"avg_success_ratio"`
	PerformanceBand  string  `json:"performance_band,omitempty"`
}

type SessionEvaluator struct {
	attempts   AttemptLister
	thresholds ThresholdProvider
}

func NewSessionEvaluator(attempts AttemptLister, thresholds ThresholdProvider) *SessionEvaluator {
	return &SessionEvaluator{attempts: attempts, thresholds: thresholds}
}

func (e *SessionEvaluator) Evaluate(ctx context.Context, userID, sessionID uint) (Metrics, error) {
	var m Metrics

	attempts, err := e.attempts.ListBySession(ctx, userID, sessionID)
	if err != nil {
		return m, err
	}

	var answered []model.Progress
	for _, a := range attempts {
		m.TotalMcqsSolved++
		m.XPEarned += a.GainedXP
		if a.IsSkipped {
			m.SkippedMcqs++
			continue
		}
		answered = append(answered, a)
	}
	if len(answered) == 0 {
		return m, nil
	}

	thresholds, err := e.thresholds.Get(ctx)
	if err != nil {
		return m, upstream(err)
	}

	var sum float64
	for _, a := range answered {
		m.TimeSpent += a.TimeSpent
		sum += a.SuccessRatio
		if a.SuccessRatio >= thresholds.CorrectThreshold {
			m.CorrectAnswers++
		} else {
			m.IncorrectAnswers++
		}
	}
	m.AvgSuccessRatio = sum / float64(len(answered))
	m.PerformanceBand = thresholds.BandFor(m.AvgSuccessRatio)
	return m, nil
}
