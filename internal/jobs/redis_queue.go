package jobs

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"medtrain_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisQueue 以有序集合保存延迟任务，score 为到期时间（毫秒）
type RedisQueue struct {
	rdb          *redis.Client
	key          string
	pollInterval time.Duration
	batchSize    int64
	now          func() time.Time
}

func NewRedisQueue(rdb *redis.Client, key string, pollInterval time.Duration, batchSize int64) *RedisQueue {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &RedisQueue{
		rdb:          rdb,
		key:          key,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		now:          time.Now,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, name string, payload any, delay time.Duration) error {
	job, err := NewJob(name, payload, delay, q.now())
	if err != nil {
		return err
	}
	return q.push(ctx, job)
}

func (q *RedisQueue) push(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.ZAdd(ctx, q.key, &redis.Z{
		Score:  float64(job.RunAt.UnixMilli()),
		Member: raw,
	}).Err()
}

func (q *RedisQueue) Run(ctx context.Context, registry *Registry) error {
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	logger.Log.Info("Redis job worker started", zap.String("key", q.key))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := q.drain(ctx, registry); err != nil && ctx.Err() == nil {
				logger.Log.Error("Drain delayed jobs failed", zap.Error(err))
			}
		}
	}
}

// drain 领取全部到期任务；ZREM 成功的 worker 才执行，避免多实例重复处理
func (q *RedisQueue) drain(ctx context.Context, registry *Registry) error {
	for {
		members, err := q.rdb.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
			Count: q.batchSize,
		}).Result()
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}

		for _, member := range members {
			removed, err := q.rdb.ZRem(ctx, q.key, member).Result()
			if err != nil {
				return err
			}
			if removed == 0 {
				continue
			}

			var job Job
			if err := json.Unmarshal([]byte(member), &job); err != nil {
				logger.Log.Error("Drop malformed job", zap.Error(err))
				continue
			}
			q.execute(ctx, registry, job)
		}

		if int64(len(members)) < q.batchSize {
			return nil
		}
	}
}

func (q *RedisQueue) execute(ctx context.Context, registry *Registry, job Job) {
	err := registry.Dispatch(ctx, job)
	if err == nil {
		return
	}

	retry, ok := job.nextAttempt(q.now())
	if !ok {
		logger.Log.Error("Job failed permanently", zap.String("job", job.Name), zap.String("id", job.ID), zap.Error(err))
		return
	}
	if pushErr := q.push(ctx, retry); pushErr != nil {
		logger.Log.Error("Requeue job failed", zap.String("job", job.Name), zap.Error(pushErr))
	}
}
