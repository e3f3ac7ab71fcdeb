package model

import "gorm.io/datatypes"

// EvaluationSetting 判定作答正确的阈值与表现分档，单行配置
// swagger:model EvaluationSetting
type EvaluationSetting struct {
	BaseModel
	CorrectThreshold float64        `json:"correct_threshold"`
	PerformanceBands datatypes.JSON `json:"performance_bands"` // []PerformanceBand
}

func (EvaluationSetting) TableName() string {
	return "evaluation_settings"
}

type PerformanceBand struct {
	Name     string  `json:"name"`
	MinRatio float64 `json:"min_ratio"`
}
