package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gamut-telemetry/internal/constant"
	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

// RedisQueueRepository keeps the offline queue in a Redis list. Used when
// several agent instances on a device share one durable store.
type RedisQueueRepository struct {
	client     *redis.Client
	key        string
	maxEntries int
}

func NewRedisQueueRepository(redisURL string, maxEntries int) (contract.IQueueRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueueRepository{
		client:     client,
		key:        constant.OfflineQueueKey,
		maxEntries: maxEntries,
	}, nil
}

func (r *RedisQueueRepository) Append(payload dto.TrackPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal queued payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.key, data)
	if r.maxEntries > 0 {
		// Keep only the newest entries.
		pipe.LTrim(ctx, r.key, int64(-r.maxEntries), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push payload to redis queue: %w", err)
	}
	return nil
}

func (r *RedisQueueRepository) DrainAll() ([]dto.TrackPayload, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pipe := r.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, r.key, 0, -1)
	pipe.Del(ctx, r.key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to drain redis queue: %w", err)
	}

	var items []dto.TrackPayload
	for _, raw := range rangeCmd.Val() {
		var p dto.TrackPayload
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			items = append(items, p)
		}
	}
	return items, nil
}

func (r *RedisQueueRepository) Len() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read redis queue length: %w", err)
	}
	return int(n), nil
}
