package model

// Progress 学员在某次训练中对一道题的作答记录，创建后不再修改；同一会话每题至多一条
// swagger:model Progress
type Progress struct {
	BaseModel
	UserID       uint    `gorm:"index;not null" json:"user_id"`
	SessionID    uint    `gorm:"index;uniqueIndex:idx_progress_session_mcq;not null" json:"session_id"`
	McqID        uint    `gorm:"index;uniqueIndex:idx_progress_session_mcq;not null" json:"mcq_id"`
	SuccessRatio float64 `json:"success_ratio"`
	TimeSpent    int     `json:"time_spent"`
	GainedXP     int     `gorm:"column:gained_xp" json:"gained_xp"`
	IsSkipped    bool    `json:"is_skipped"`
}

func (Progress) TableName() string {
	return "progresses"
}
