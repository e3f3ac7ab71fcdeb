package service

import (
	"context"
	"fmt"

	"medtrain_backend/internal/model"
	"medtrain_backend/internal/repository"
	"medtrain_backend/internal/util"
)

type ModeService struct {
	ModeRepo *repository.ModeRepository
}

func NewModeService(modeRepo *repository.ModeRepository) *ModeService {
	return &ModeService{ModeRepo: modeRepo}
}

func (s *ModeService) Get(ctx context.Context, userID uint) (*model.Mode, error) {
	return s.ModeRepo.GetByUser(ctx, userID)
}

// Update 覆盖用户的全部 Definer 设置，未填写的字段视为 USER
func (s *ModeService) Update(ctx context.Context, userID uint, mode *model.Mode) (*model.Mode, error) {
	mode.ID = 0
	mode.UserID = userID
	if invalid, ok := mode.Normalize(); !ok {
		return nil, fmt.Errorf("%w: unknown definer %q", util.ErrValidation, invalid)
	}
	if err := s.ModeRepo.Upsert(ctx, mode); err != nil {
		return nil, err
	}
	return s.ModeRepo.GetByUser(ctx, userID)
}
