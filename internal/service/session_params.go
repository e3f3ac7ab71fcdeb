package service

import (
	"context"

	"medtrain_backend/internal/model"
)

type ModeProvider interface {
	GetByUser(ctx context.Context, userID uint) (*model.Mode, error)
}

// SessionParameterResolver 按用户 Mode 逐字段决定会话参数的来源
type SessionParameterResolver struct {
	modes  ModeProvider
	engine *AdaptiveParameterEngine
}

func NewSessionParameterResolver(modes ModeProvider, engine *AdaptiveParameterEngine) *SessionParameterResolver {
	return &SessionParameterResolver{modes: modes, engine: engine}
}

// Resolve source 为创建请求或已有会话的参数；为 nil 时从空配置开始
func (r *SessionParameterResolver) Resolve(ctx context.Context, userID, courseID uint, source *SessionConfig) (SessionConfig, error) {
	mode, err := r.modes.GetByUser(ctx, userID)
	if err != nil {
		return SessionConfig{}, err
	}
	return r.ResolveWithMode(ctx, userID, courseID, mode, source)
}

func (r *SessionParameterResolver) ResolveWithMode(ctx context.Context, userID, courseID uint, mode *model.Mode, source *SessionConfig) (SessionConfig, error) {
	var working SessionConfig
	if source != nil {
		working = source.Clone()
	}
	if mode == nil {
		mode = model.DefaultMode(userID)
	}

	var pending []AssistantField
	for _, f := range sessionFields {
		switch f.definer(mode) {
		case model.DefinerOriginal:
			f.original(&working)
		case model.DefinerAssistant:
			pending = append(pending, AssistantField{Name: f.name})
		default:
			// USER：保留已有值
		}
	}

	if len(pending) == 0 {
		return working, nil
	}

	adapted, err := r.engine.Resolve(ctx, userID, courseID, pending)
	if err != nil {
		return SessionConfig{}, err
	}
	for _, p := range pending {
		f, _ := lookupField(p.Name)
		f.merge(&working, &adapted)
	}
	return working, nil
}
