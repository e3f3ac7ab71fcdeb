package service

import (
	"context"
	"testing"

	"medtrain_backend/internal/config"
	"medtrain_backend/internal/model"
	"medtrain_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestThresholdProviderFallsBackToConfig(t *testing.T) {
	db := newTestDB(t)
	cfg := config.EvaluationConfig{
		CorrectThreshold: 0.6,
		PerformanceBands: []config.PerformanceBandSpec{{Name: "pass", MinRatio: 0.6}},
	}
	p := NewSettingsThresholdProvider(repository.NewEvaluationSettingRepository(db), nil, cfg)

	got, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.6, got.CorrectThreshold)
	assert.Equal(t, []model.PerformanceBand{{Name: "pass", MinRatio: 0.6}}, got.PerformanceBands)

	p.SetDefaults(context.Background(), config.EvaluationConfig{CorrectThreshold: 0.4})
	got, err = p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.4, got.CorrectThreshold)
	assert.Empty(t, got.PerformanceBands)
}

func TestThresholdProviderReadsSetting(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewEvaluationSettingRepository(db)
	require.NoError(t, repo.Save(context.Background(), &model.EvaluationSetting{
		CorrectThreshold: 0.7,
		PerformanceBands: datatypes.JSON(`[{"name":"expert","min_ratio":0.9}]`),
	}))

	p := NewSettingsThresholdProvider(repo, nil, config.EvaluationConfig{CorrectThreshold: 0.5})
	got, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.7, got.CorrectThreshold)
	assert.Equal(t, "expert", got.BandFor(0.95))
	assert.Equal(t, "", got.BandFor(0.5))
}

func TestThresholdProviderToleratesMalformedBands(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewEvaluationSettingRepository(db)
	require.NoError(t, repo.Save(context.Background(), &model.EvaluationSetting{
		CorrectThreshold: 0.8,
		PerformanceBands: datatypes.JSON(`{"name":"not-a-list"}`),
	}))

	p := NewSettingsThresholdProvider(repo, nil, config.EvaluationConfig{CorrectThreshold: 0.5})
	got, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.8, got.CorrectThreshold)
	assert.Empty(t, got.PerformanceBands)
}
