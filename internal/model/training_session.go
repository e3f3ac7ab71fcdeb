package model

import "time"

type SessionStatus string

const (
	SessionPending    SessionStatus = "PENDING"
	SessionScheduled  SessionStatus = "SCHEDULED"
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionScheduled, SessionInProgress, SessionCompleted:
		return true
	}
	return false
}

// Openable 已排期或待开始的会话在首次访问时进入进行中
func (s SessionStatus) Openable() bool {
	return s == SessionPending || s == SessionScheduled
}

// TrainingSession 配置字段在创建时固化为解析结果的快照
// swagger:model TrainingSession
type TrainingSession struct {
	BaseModel
	Title                   string        `gorm:"size:200" json:"title"`
	Status                  SessionStatus `gorm:"size:20;index;not null" json:"status"`
	QCM                     bool          `gorm:"column:qcm" json:"qcm"`
	QCS                     bool          `gorm:"column:qcs" json:"qcs"`
	QROC                    bool          `gorm:"column:qroc" json:"qroc"`
	TimeLimit               *int          `json:"time_limit"` // 每题秒数，nil 表示使用题目自身的预估时间
	NumberOfQuestions       int           `json:"number_of_questions"`
	RandomizeQuestionsOrder bool          `json:"randomize_questions_order"`
	RandomizeOptionsOrder   bool          `json:"randomize_options_order"`
	Difficulty              *Difficulty   `gorm:"size:10" json:"difficulty"`
	ScheduledAt             *time.Time    `json:"scheduled_at"`
	CompletedAt             *time.Time    `json:"completed_at"`

	TotalMcqs        int     `json:"total_mcqs"`
	CorrectAnswers   int     `json:"correct_answers"`
	IncorrectAnswers int     `json:"incorrect_answers"`
	SkippedMcqs      int     `json:"skipped_mcqs"`
	TimeSpent        int     `json:"time_spent"`
	Accuracy         float64 `json:"accuracy"`
	XPEarned         int     `gorm:"column:xp_earned" json:"xp_earned"`
	PerformanceBand  string  `gorm:"size:50" json:"performance_band,omitempty"`

	UserID   uint    `gorm:"index;not null" json:"user_id"`
	CourseID uint    `gorm:"index;not null" json:"course_id"`
	Course   *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (TrainingSession) TableName() string {
	return "training_sessions"
}
