package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	errx "github.com/dealerflow/salesagent/internal/core/error"
	"github.com/dealerflow/salesagent/internal/agent/model"
	logx "github.com/dealerflow/salesagent/pkg/logger"
)

// RedisMemoryRepository persists long-lived client memory as a JSON
// document. Memory never expires; it survives session resets.
type RedisMemoryRepository struct {
	rdb redis.Cmdable
}

func NewRedisMemoryRepository(rdb redis.Cmdable) *RedisMemoryRepository {
	return &RedisMemoryRepository{rdb: rdb}
}

func (r *RedisMemoryRepository) memoryKey(clientID string) string {
	return fmt.Sprintf("client:%s:memory", clientID)
}

func (r *RedisMemoryRepository) Get(ctx context.Context, clientID string) (*model.ClientMemory, error) {
	key := r.memoryKey(clientID)
	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load client memory from redis")
		return nil, errx.WrapRedis(err)
	}

	var mem model.ClientMemory
	if err := json.Unmarshal([]byte(raw), &mem); err != nil {
		logx.Error().Err(err).Str("clientID", clientID).Msg("failed to unmarshal client memory")
		return nil, fmt.Errorf("unmarshal client memory: %w", err)
	}
	return &mem, nil
}

func (r *RedisMemoryRepository) Save(ctx context.Context, mem *model.ClientMemory) error {
	b, err := json.Marshal(mem)
	if err != nil {
		logx.Error().Err(err).Str("clientID", mem.ClientID).Msg("failed to marshal client memory")
		return fmt.Errorf("marshal client memory: %w", err)
	}
	key := r.memoryKey(mem.ClientID)
	if err := r.rdb.Set(ctx, key, b, 0).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save client memory to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.MemoryRepository = (*RedisMemoryRepository)(nil)
