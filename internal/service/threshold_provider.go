package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"medtrain_backend/internal/config"
	"medtrain_backend/internal/model"
	"medtrain_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const thresholdCacheKey = "training:evaluation:thresholds"

type ThresholdConfig struct {
	CorrectThreshold float64                 `json:"correct_threshold"`
	PerformanceBands []model.PerformanceBand `json:"performance_bands"`
}

// BandFor 取 min_ratio 不超过 ratio 的最高分档
func (t ThresholdConfig) BandFor(ratio float64) string {
	name := ""
	best := -1.0
	for _, b := range t.PerformanceBands {
		if b.MinRatio <= ratio && b.MinRatio > best {
			name, best = b.Name, b.MinRatio
		}
	}
	return name
}

type ThresholdProvider interface {
	Get(ctx context.Context) (ThresholdConfig, error)
}

type settingStore interface {
	Current(ctx context.Context) (*model.EvaluationSetting, error)
}

// SettingsThresholdProvider 读取评估配置行，没有时使用配置文件中的默认值；结果缓存在 Redis
type SettingsThresholdProvider struct {
	store settingStore
	rdb   *redis.Client
	ttl   time.Duration

	mu       sync.RWMutex
	defaults ThresholdConfig
}

func NewSettingsThresholdProvider(store settingStore, rdb *redis.Client, cfg config.EvaluationConfig) *SettingsThresholdProvider {
	p := &SettingsThresholdProvider{store: store, rdb: rdb, ttl: cfg.CacheTTL}
	p.defaults = thresholdsFromConfig(cfg)
	return p
}

func thresholdsFromConfig(cfg config.EvaluationConfig) ThresholdConfig {
	bands := make([]model.PerformanceBand, 0, len(cfg.PerformanceBands))
	for _, b := range cfg.PerformanceBands {
		bands = append(bands, model.PerformanceBand{Name: b.Name, MinRatio: b.MinRatio})
	}
	return ThresholdConfig{CorrectThreshold: cfg.CorrectThreshold, PerformanceBands: bands}
}

// SetDefaults 配置热加载时更新默认值并清除缓存
func (p *SettingsThresholdProvider) SetDefaults(ctx context.Context, cfg config.EvaluationConfig) {
	p.mu.Lock()
	p.defaults = thresholdsFromConfig(cfg)
	p.ttl = cfg.CacheTTL
	p.mu.Unlock()
	p.Invalidate(ctx)
}

func (p *SettingsThresholdProvider) Invalidate(ctx context.Context) {
	if p.rdb == nil {
		return
	}
	if err := p.rdb.Del(ctx, thresholdCacheKey).Err(); err != nil {
		logger.Log.Warn("Invalidate threshold cache failed", zap.Error(err))
	}
}

func (p *SettingsThresholdProvider) Get(ctx context.Context) (ThresholdConfig, error) {
	if cached, ok := p.fromCache(ctx); ok {
		return cached, nil
	}

	setting, err := p.store.Current(ctx)
	if err != nil {
		return ThresholdConfig{}, upstream(err)
	}

	p.mu.RLock()
	result := p.defaults
	ttl := p.ttl
	p.mu.RUnlock()

	if setting != nil {
		result = ThresholdConfig{CorrectThreshold: setting.CorrectThreshold}
		if len(setting.PerformanceBands) > 0 {
			if err := json.Unmarshal(setting.PerformanceBands, &result.PerformanceBands); err != nil {
				logger.Log.Warn("Malformed performance bands in evaluation setting", zap.Error(err))
			}
		}
	}

	p.toCache(ctx, result, ttl)
	return result, nil
}

func (p *SettingsThresholdProvider) fromCache(ctx context.Context) (ThresholdConfig, bool) {
	var cfg ThresholdConfig
	if p.rdb == nil {
		return cfg, false
	}
	raw, err := p.rdb.Get(ctx, thresholdCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Read threshold cache failed", zap.Error(err))
		}
		return cfg, false
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, false
	}
	return cfg, true
}

func (p *SettingsThresholdProvider) toCache(ctx context.Context, cfg ThresholdConfig, ttl time.Duration) {
	if p.rdb == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := p.rdb.Set(ctx, thresholdCacheKey, raw, ttl).Err(); err != nil {
		logger.Log.Warn("Write threshold cache failed", zap.Error(err))
	}
}
