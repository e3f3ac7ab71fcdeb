package service

import (
	"fmt"
	"math"

	"medtrain_backend/internal/model"
	"medtrain_backend/internal/util"
)

type AttemptInput struct {
	McqID             uint     `json:"mcq_id" binding:"required"`
	SelectedOptionIDs []uint   `json:"selected_option_ids"`
	SelfAssessedRatio *float64 `json:"self_assessed_ratio"` // 简答题由学员自评
	TimeSpent         int      `json:"time_spent"`
	Skipped           bool     `json:"skipped"`
}

// ScoreAttempt 计算单次作答的得分比例 [0,1]
func ScoreAttempt(mcq *model.Mcq, in AttemptInput) (float64, error) {
	if in.Skipped {
		return 0, nil
	}

	switch mcq.Type {
	case model.McqTypeQROC:
		if in.SelfAssessedRatio == nil {
			return 0, fmt.Errorf("%w: self_assessed_ratio is required for qroc questions", util.ErrValidation)
		}
		return clamp01(*in.SelfAssessedRatio), nil
	case model.McqTypeQCS, model.McqTypeQCM:
	default:
		return 0, fmt.Errorf("unsupported mcq type %q", mcq.Type)
	}

	correct := make(map[uint]bool, len(mcq.Options))
	totalCorrect := 0
	for _, o := range mcq.Options {
		correct[o.ID] = o.IsCorrect
		if o.IsCorrect {
			totalCorrect++
		}
	}

	selected := make(map[uint]struct{}, len(in.SelectedOptionIDs))
	for _, id := range in.SelectedOptionIDs {
		if _, ok := correct[id]; !ok {
			return 0, fmt.Errorf("%w: option %d does not belong to mcq %d", util.ErrValidation, id, mcq.ID)
		}
		selected[id] = struct{}{}
	}

	if mcq.Type == model.McqTypeQCS {
		if len(selected) != 1 {
			return 0, nil
		}
		for id := range selected {
			if correct[id] {
				return 1, nil
			}
		}
		return 0, nil
	}

	// 多选：选对加分，选错扣分
	if totalCorrect == 0 {
		return 0, nil
	}
	hits, misses := 0, 0
	for id := range selected {
		if correct[id] {
			hits++
		} else {
			misses++
		}
	}
	return clamp01(float64(hits-misses) / float64(totalCorrect)), nil
}

// AttemptXP 经验值按难度基数乘以得分比例
func AttemptXP(xpPerDifficulty map[model.Difficulty]int, difficulty model.Difficulty, ratio float64, skipped bool) int {
	if skipped {
		return 0
	}
	return int(math.Round(float64(xpPerDifficulty[difficulty]) * ratio))
}
