package model

// Definer 决定某个会话配置字段由谁给出
type Definer string

const (
	DefinerUser      Definer = "USER"      // 创建时由学员填写
	DefinerAssistant Definer = "ASSISTANT" // 由自适应算法计算
	DefinerOriginal  Definer = "ORIGINAL"  // 平台默认值
)

func (d Definer) Valid() bool {
	switch d {
	case DefinerUser, DefinerAssistant, DefinerOriginal:
		return true
	}
	return false
}

// Mode 用户设置中每个配置字段的 Definer，由设置模块维护
// swagger:model Mode
type Mode struct {
	BaseModel
	UserID                  uint    `gorm:"uniqueIndex;not null" json:"user_id"`
	QCM                     Definer `gorm:"column:qcm;size:10" json:"qcm"`
	QCS                     Definer `gorm:"column:qcs;size:10" json:"qcs"`
	QROC                    Definer `gorm:"column:qroc;size:10" json:"qroc"`
	TimeLimit               Definer `gorm:"size:10" json:"time_limit"`
	NumberOfQuestions       Definer `gorm:"size:10" json:"number_of_questions"`
	RandomizeQuestionsOrder Definer `gorm:"size:10" json:"randomize_questions_order"`
	RandomizeOptionsOrder   Definer `gorm:"size:10" json:"randomize_options_order"`
	Difficulty              Definer `gorm:"size:10" json:"difficulty"`
}

func (Mode) TableName() string {
	return "modes"
}

// DefaultMode 未配置时所有字段由学员决定
func DefaultMode(userID uint) *Mode {
	return &Mode{
		UserID:                  userID,
		QCM:                     DefinerUser,
		QCS:                     DefinerUser,
		QROC:                    DefinerUser,
		TimeLimit:               DefinerUser,
		NumberOfQuestions:       DefinerUser,
		RandomizeQuestionsOrder: DefinerUser,
		RandomizeOptionsOrder:   DefinerUser,
		Difficulty:              DefinerUser,
	}
}

func (m *Mode) definers() []Definer {
	return []Definer{
		m.QCM, m.QCS, m.QROC, m.TimeLimit, m.NumberOfQuestions,
		m.RandomizeQuestionsOrder, m.RandomizeOptionsOrder, m.Difficulty,
	}
}

// HasAssistant 任一字段由自适应算法决定
func (m *Mode) HasAssistant() bool {
	if m == nil {
		return false
	}
	for _, d := range m.definers() {
		if d == DefinerAssistant {
			return true
		}
	}
	return false
}

// Normalize 空值按 USER 处理，返回首个非法值
func (m *Mode) Normalize() (Definer, bool) {
	fields := []*Definer{
		&m.QCM, &m.QCS, &m.QROC, &m.TimeLimit, &m.NumberOfQuestions,
		&m.RandomizeQuestionsOrder, &m.RandomizeOptionsOrder, &m.Difficulty,
	}
	for _, f := range fields {
		if *f == "" {
			*f = DefinerUser
		}
		if !f.Valid() {
			return *f, false
		}
	}
	return "", true
}
