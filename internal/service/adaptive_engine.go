package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"medtrain_backend/internal/model"
	"medtrain_backend/internal/util"
)

// LearnerSnapshot 外部学习模型给出的能力与掌握度，取值 [0,1]
type LearnerSnapshot struct {
	Ability float64 `json:"ability"`
	Mastery float64 `json:"mastery"`
}

type LearnerModel interface {
	Snapshot(ctx context.Context, userID, courseID uint) (LearnerSnapshot, error)
}

// AdaptiveParameterEngine 根据学员快照计算 ASSISTANT 字段的取值
type AdaptiveParameterEngine struct {
	learner LearnerModel
}

func NewAdaptiveParameterEngine(learner LearnerModel) *AdaptiveParameterEngine {
	return &AdaptiveParameterEngine{learner: learner}
}

// Resolve 无论字段多少只请求一次学习模型
func (e *AdaptiveParameterEngine) Resolve(ctx context.Context, userID, courseID uint, fields []AssistantField) (SessionConfig, error) {
	var out SessionConfig
	if len(fields) == 0 {
		return out, nil
	}

	snapshot, err := e.learner.Snapshot(ctx, userID, courseID)
	if err != nil {
		return out, upstream(err)
	}

	for _, f := range fields {
		row, ok := lookupField(f.Name)
		if !ok {
			return out, fmt.Errorf("unknown session field %q", f.Name)
		}
		row.adapt(&out, snapshot)
	}
	return out, nil
}

func upstream(err error) error {
	if errors.Is(err, util.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", util.ErrUpstreamUnavailable, err)
}

func DifficultyForAbility(ability float64) model.Difficulty {
	switch {
	case ability < 0.3:
		return model.DifficultyEasy
	case ability < 0.7:
		return model.DifficultyMedium
	default:
		return model.DifficultyHard
	}
}

// AdaptiveTimeLimit 能力越低每题时间越多，范围约 [30,60] 秒
func AdaptiveTimeLimit(ability float64) int {
	return int(math.Round(60 * (1 - ability*0.5)))
}

func AdaptiveQuestionCount(mastery float64) int {
	n := int(math.Round(5 + mastery*20))
	if n < 5 {
		return 5
	}
	if n > 25 {
		return 25
	}
	return n
}
