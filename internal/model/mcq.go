package model

type McqType string

const (
	McqTypeQCM  McqType = "qcm"  // 多选
	McqTypeQCS  McqType = "qcs"  // 单选
	McqTypeQROC McqType = "qroc" // 简答
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Mcq 题目由内容管理模块维护，训练引擎只读
// swagger:model Mcq
type Mcq struct {
	BaseModel
	CourseID      uint        `gorm:"index;not null" json:"course_id"`
	Type          McqType     `gorm:"size:10;index;not null" json:"type"`
	Difficulty    Difficulty  `gorm:"size:10;index;not null" json:"difficulty"`
	EstimatedTime int         `json:"estimated_time"` // 秒
	Content       string      `gorm:"type:text" json:"content"`
	Explanation   string      `gorm:"type:text" json:"explanation,omitempty"`
	Options       []McqOption `gorm:"foreignKey:McqID" json:"options"`
}

func (Mcq) TableName() string {
	return "mcqs"
}

// swagger:model McqOption
type McqOption struct {
	BaseModel
	McqID     uint   `gorm:"index;not null" json:"mcq_id"`
	Position  int    `gorm:"default:0" json:"position"`
	Content   string `gorm:"type:text" json:"content"`
	IsCorrect bool   `json:"is_correct"`
}

func (McqOption) TableName() string {
	return "mcq_options"
}
