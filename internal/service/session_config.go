package service

import "medtrain_backend/internal/model"

// 平台默认值（Definer=ORIGINAL 或学员未填写时使用）
const (
	DefaultNumberOfQuestions = 20
	DefaultDifficulty        = model.DifficultyMedium
)

type FieldName string

const (
	FieldQCM                     FieldName = "qcm"
	FieldQCS                     FieldName = "qcs"
	FieldQROC                    FieldName = "qroc"
	FieldTimeLimit               FieldName = "time_limit"
	FieldNumberOfQuestions       FieldName = "number_of_questions"
	FieldRandomizeQuestionsOrder FieldName = "randomize_questions_order"
	FieldRandomizeOptionsOrder   FieldName = "randomize_options_order"
	FieldDifficulty              FieldName = "difficulty"
)

// SessionConfig 会话参数，nil 表示尚未确定
type SessionConfig struct {
	QCM                     *bool             `json:"qcm,omitempty"`
	QCS                     *bool             `json:"qcs,omitempty"`
	QROC                    *bool             `json:"qroc,omitempty"`
	TimeLimit               *int              `json:"time_limit,omitempty"`
	NumberOfQuestions       *int              `json:"number_of_questions,omitempty"`
	RandomizeQuestionsOrder *bool             `json:"randomize_questions_order,omitempty"`
	RandomizeOptionsOrder   *bool             `json:"randomize_options_order,omitempty"`
	Difficulty              *model.Difficulty `json:"difficulty,omitempty"`
}

// AssistantField 待自适应引擎计算的字段
type AssistantField struct {
	Name FieldName
}

func ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (c SessionConfig) Clone() SessionConfig {
	return SessionConfig{
		QCM:                     clonePtr(c.QCM),
		QCS:                     clonePtr(c.QCS),
		QROC:                    clonePtr(c.QROC),
		TimeLimit:               clonePtr(c.TimeLimit),
		NumberOfQuestions:       clonePtr(c.NumberOfQuestions),
		RandomizeQuestionsOrder: clonePtr(c.RandomizeQuestionsOrder),
		RandomizeOptionsOrder:   clonePtr(c.RandomizeOptionsOrder),
		Difficulty:              clonePtr(c.Difficulty),
	}
}

// ConfigFromSession 会话行中已固化的参数，作为题目选择时重新解析的来源
func ConfigFromSession(s *model.TrainingSession) SessionConfig {
	return SessionConfig{
		QCM:                     ptr(s.QCM),
		QCS:                     ptr(s.QCS),
		QROC:                    ptr(s.QROC),
		TimeLimit:               clonePtr(s.TimeLimit),
		NumberOfQuestions:       ptr(s.NumberOfQuestions),
		RandomizeQuestionsOrder: ptr(s.RandomizeQuestionsOrder),
		RandomizeOptionsOrder:   ptr(s.RandomizeOptionsOrder),
		Difficulty:              clonePtr(s.Difficulty),
	}
}

// ApplyTo 将解析结果写入会话行，未确定的字段使用平台默认值；time_limit 为空表示不覆盖题目时间
func (c SessionConfig) ApplyTo(s *model.TrainingSession) {
	s.QCM = deref(c.QCM, false)
	s.QCS = deref(c.QCS, false)
	s.QROC = deref(c.QROC, false)
	s.TimeLimit = clonePtr(c.TimeLimit)
	s.NumberOfQuestions = deref(c.NumberOfQuestions, DefaultNumberOfQuestions)
	s.RandomizeQuestionsOrder = deref(c.RandomizeQuestionsOrder, false)
	s.RandomizeOptionsOrder = deref(c.RandomizeOptionsOrder, false)
	s.Difficulty = clonePtr(c.Difficulty)
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// sessionField 字段表中的一行：谁来决定、平台默认值、自适应规则
type sessionField struct {
	name     FieldName
	definer  func(m *model.Mode) model.Definer
	original func(c *SessionConfig)
	adapt    func(c *SessionConfig, s LearnerSnapshot)
	merge    func(dst, src *SessionConfig)
}

func boolField(name FieldName, definer func(*model.Mode) model.Definer, ref func(*SessionConfig) **bool, rule func(LearnerSnapshot) bool) sessionField {
	return sessionField{
		name:    name,
		definer: definer,
		original: func(c *SessionConfig) {
			if p := ref(c); *p == nil {
				*p = ptr(false)
			}
		},
		adapt: func(c *SessionConfig, s LearnerSnapshot) { *ref(c) = ptr(rule(s)) },
		merge: func(dst, src *SessionConfig) { *ref(dst) = clonePtr(*ref(src)) },
	}
}

// sessionFields 固定顺序；新增可配置字段只需在此追加一行
var sessionFields = []sessionField{
	boolField(FieldQCM,
		func(m *model.Mode) model.Definer { return m.QCM },
		func(c *SessionConfig) **bool { return &c.QCM },
		func(LearnerSnapshot) bool { return true }),
	boolField(FieldQCS,
		func(m *model.Mode) model.Definer { return m.QCS },
		func(c *SessionConfig) **bool { return &c.QCS },
		func(s LearnerSnapshot) bool { return s.Mastery > 0.4 }),
	boolField(FieldQROC,
		func(m *model.Mode) model.Definer { return m.QROC },
		func(c *SessionConfig) **bool { return &c.QROC },
		func(s LearnerSnapshot) bool { return s.Mastery > 0.7 }),
	{
		name:    FieldTimeLimit,
		definer: func(m *model.Mode) model.Definer { return m.TimeLimit },
		// ORIGINAL 表示沿用题目自身的预估时间
		original: func(c *SessionConfig) { c.TimeLimit = nil },
		adapt:    func(c *SessionConfig, s LearnerSnapshot) { c.TimeLimit = ptr(AdaptiveTimeLimit(s.Ability)) },
		merge:    func(dst, src *SessionConfig) { dst.TimeLimit = clonePtr(src.TimeLimit) },
	},
	{
		name:    FieldNumberOfQuestions,
		definer: func(m *model.Mode) model.Definer { return m.NumberOfQuestions },
		original: func(c *SessionConfig) {
			if c.NumberOfQuestions == nil {
				c.NumberOfQuestions = ptr(DefaultNumberOfQuestions)
			}
		},
		adapt: func(c *SessionConfig, s LearnerSnapshot) {
			c.NumberOfQuestions = ptr(AdaptiveQuestionCount(s.Mastery))
		},
		merge: func(dst, src *SessionConfig) { dst.NumberOfQuestions = clonePtr(src.NumberOfQuestions) },
	},
	boolField(FieldRandomizeQuestionsOrder,
		func(m *model.Mode) model.Definer { return m.RandomizeQuestionsOrder },
		func(c *SessionConfig) **bool { return &c.RandomizeQuestionsOrder },
		func(s LearnerSnapshot) bool { return s.Mastery > 0.5 }),
	boolField(FieldRandomizeOptionsOrder,
		func(m *model.Mode) model.Definer { return m.RandomizeOptionsOrder },
		func(c *SessionConfig) **bool { return &c.RandomizeOptionsOrder },
		func(s LearnerSnapshot) bool { return s.Mastery > 0.5 }),
	{
		name:    FieldDifficulty,
		definer: func(m *model.Mode) model.Definer { return m.Difficulty },
		original: func(c *SessionConfig) {
			if c.Difficulty == nil {
				c.Difficulty = ptr(DefaultDifficulty)
			}
		},
		adapt: func(c *SessionConfig, s LearnerSnapshot) {
			c.Difficulty = ptr(DifficultyForAbility(s.Ability))
		},
		merge: func(dst, src *SessionConfig) { dst.Difficulty = clonePtr(src.Difficulty) },
	},
}

func lookupField(name FieldName) (sessionField, bool) {
	for _, f := range sessionFields {
		if f.name == name {
			return f, true
		}
	}
	return sessionField{}, false
}
