package service

import (
	"context"
	"math/rand"

	"medtrain_backend/internal/jobs"
	"medtrain_backend/internal/model"
	"medtrain_backend/internal/repository"
	"medtrain_backend/pkg/logger"
	"medtrain_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// 每次只取下一道题
const selectionPageSize = 1

type QuestionFinder interface {
	Find(ctx context.Context, q repository.McqQuery) ([]model.Mcq, int64, error)
	FindFallback(ctx context.Context, courseID uint, excludeIDs []uint) (*model.Mcq, error)
}

// QuestionView 返回给学员的题目副本，不修改仓储中的对象
type QuestionView struct {
	ID            uint             `json:"id"`
	CourseID      uint             `json:"course_id"`
	Type          model.McqType    `json:"type"`
	Difficulty    model.Difficulty `json:"difficulty"`
	EstimatedTime int              `json:"estimated_time"`
	Content       string           `json:"content"`
	Options       []OptionView     `json:"options"`
}

type OptionView struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	IsCorrect bool   `json:"-"`
}

type SelectionInput struct {
	Session      *model.TrainingSession
	Config       SessionConfig
	Mode         *model.Mode
	AttemptedIDs []uint
}

type Selection struct {
	Questions     []QuestionView `json:"data"`
	IsFinal       bool           `json:"is_final"`
	AssistantNext *uint          `json:"assistant_next,omitempty"`
}

// Starved 没有可返回的题目
func (s *Selection) Starved() bool {
	return len(s.Questions) == 0
}

type AssistantPushPayload struct {
	UserID    uint `json:"user_id"`
	SessionID uint `json:"session_id"`
	McqID     uint `json:"mcq_id"`
}

type QuestionSelector struct {
	finder    QuestionFinder
	learner   LearnerModel
	scheduler jobs.Scheduler
	shuffle   func(n int, swap func(i, j int))
}

func NewQuestionSelector(finder QuestionFinder, learner LearnerModel, scheduler jobs.Scheduler) *QuestionSelector {
	return &QuestionSelector{
		finder:    finder,
		learner:   learner,
		scheduler: scheduler,
		shuffle:   rand.Shuffle,
	}
}

func selectedTypes(cfg SessionConfig) []model.McqType {
	var types []model.McqType
	if deref(cfg.QCM, false) {
		types = append(types, model.McqTypeQCM)
	}
	if deref(cfg.QCS, false) {
		types = append(types, model.McqTypeQCS)
	}
	if deref(cfg.QROC, false) {
		types = append(types, model.McqTypeQROC)
	}
	if len(types) == 0 {
		return []model.McqType{model.McqTypeQCM}
	}
	return types
}

func (s *QuestionSelector) difficulty(ctx context.Context, in SelectionInput) (model.Difficulty, error) {
	if in.Config.Difficulty != nil {
		return *in.Config.Difficulty, nil
	}
	snapshot, err := s.learner.Snapshot(ctx, in.Session.UserID, in.Session.CourseID)
	if err != nil {
		return "", upstream(err)
	}
	return DifficultyForAbility(snapshot.Ability), nil
}

// SelectNext 按题型与难度取下一道题，没有结果时先放宽难度
func (s *QuestionSelector) SelectNext(ctx context.Context, in SelectionInput) (*Selection, error) {
	difficulty, err := s.difficulty(ctx, in)
	if err != nil {
		return nil, err
	}

	query := repository.McqQuery{
		CourseID:   in.Session.CourseID,
		ExcludeIDs: in.AttemptedIDs,
		Types:      selectedTypes(in.Config),
		Difficulty: &difficulty,
		Randomize:  deref(in.Config.RandomizeQuestionsOrder, false),
		Limit:      selectionPageSize,
	}

	items, _, err := s.finder.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	stage := "strict"
	if len(items) == 0 {
		query.Difficulty = nil
		items, _, err = s.finder.Find(ctx, query)
		if err != nil {
			return nil, err
		}
		stage = "relaxed_difficulty"
	}
	if len(items) == 0 {
		monitoring.SelectionOutcomes.WithLabelValues("starved").Inc()
		return &Selection{Questions: []QuestionView{}}, nil
	}
	monitoring.SelectionOutcomes.WithLabelValues(stage).Inc()

	views := make([]QuestionView, 0, len(items))
	for i := range items {
		views = append(views, s.view(&items[i], in.Config))
	}

	sel := &Selection{
		Questions: views,
		IsFinal:   len(in.AttemptedIDs)+len(views) >= in.Session.NumberOfQuestions,
	}

	if in.Mode.HasAssistant() {
		next, err := s.assistantNext(ctx, in, views)
		if err != nil {
			return nil, err
		}
		if next != nil {
			sel.AssistantNext = next
			s.pushAssistant(ctx, in.Session, *next)
		}
	}
	return sel, nil
}

// view 生成题目副本并应用时间与选项顺序覆盖
func (s *QuestionSelector) view(m *model.Mcq, cfg SessionConfig) QuestionView {
	v := QuestionView{
		ID:            m.ID,
		CourseID:      m.CourseID,
		Type:          m.Type,
		Difficulty:    m.Difficulty,
		EstimatedTime: m.EstimatedTime,
		Content:       m.Content,
		Options:       make([]OptionView, len(m.Options)),
	}
	for i, o := range m.Options {
		v.Options[i] = OptionView{ID: o.ID, Content: o.Content, IsCorrect: o.IsCorrect}
	}

	if cfg.TimeLimit != nil {
		v.EstimatedTime = *cfg.TimeLimit
	}
	if deref(cfg.RandomizeOptionsOrder, false) && len(v.Options) > 1 {
		s.shuffle(len(v.Options), func(i, j int) {
			v.Options[i], v.Options[j] = v.Options[j], v.Options[i]
		})
	}
	return v
}

// assistantNext 不按题型和难度过滤、且不同于本次返回题目的候选；
// 未作答的题目用完时退回到已作答的题目（复习），始终不指向本次返回的题目
func (s *QuestionSelector) assistantNext(ctx context.Context, in SelectionInput, returned []QuestionView) (*uint, error) {
	returnedIDs := make([]uint, 0, len(returned))
	for _, v := range returned {
		returnedIDs = append(returnedIDs, v.ID)
	}
	exclude := make([]uint, 0, len(in.AttemptedIDs)+len(returned))
	exclude = append(exclude, in.AttemptedIDs...)
	exclude = append(exclude, returnedIDs...)

	items, _, err := s.finder.Find(ctx, repository.McqQuery{
		CourseID:   in.Session.CourseID,
		ExcludeIDs: exclude,
		Randomize:  deref(in.Config.RandomizeQuestionsOrder, false),
		Limit:      selectionPageSize,
	})
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return ptr(items[0].ID), nil
	}

	monitoring.SelectionOutcomes.WithLabelValues("assistant_fallback").Inc()
	fallback, err := s.finder.FindFallback(ctx, in.Session.CourseID, returnedIDs)
	if err != nil {
		return nil, err
	}
	if fallback == nil {
		return nil, nil
	}
	return ptr(fallback.ID), nil
}

func (s *QuestionSelector) pushAssistant(ctx context.Context, session *model.TrainingSession, mcqID uint) {
	if s.scheduler == nil {
		return
	}
	payload := AssistantPushPayload{UserID: session.UserID, SessionID: session.ID, McqID: mcqID}
	if err := s.scheduler.Enqueue(ctx, jobs.JobAssistantPush, payload, 0); err != nil {
		logger.Log.Warn("Enqueue assistant push failed",
			zap.Uint("sessionID", session.ID),
			zap.Uint("mcqID", mcqID),
			zap.Error(err),
		)
	}
}
