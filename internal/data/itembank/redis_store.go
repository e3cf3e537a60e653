package itembank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
)

const redisKeyPrefix = "psychometrics:item:"

// RedisStore caches item parameters as JSON strings with a TTL.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *goredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func redisKey(itemID string) string { return redisKeyPrefix + itemID }

func (s *RedisStore) Get(ctx context.Context, itemID string) (*psy.ItemParameters, bool, error) {
	raw, err := s.rdb.Get(ctx, redisKey(itemID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("itembank: redis get %s: %w", itemID, err)
	}
	var p psy.ItemParameters
	if err := json.Unmarshal(raw, &p); err != nil {
		// A corrupt entry is a miss; the backing store is authoritative.
		_ = s.rdb.Del(ctx, redisKey(itemID)).Err()
		return nil, false, nil
	}
	return &p, true, nil
}

func (s *RedisStore) Set(ctx context.Context, params *psy.ItemParameters) error {
	if params == nil || params.ItemID == "" {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKey(params.ItemID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("itembank: redis set %s: %w", params.ItemID, err)
	}
	return nil
}

func (s *RedisStore) Evict(ctx context.Context, itemID string) error {
	if err := s.rdb.Del(ctx, redisKey(itemID)).Err(); err != nil {
		return fmt.Errorf("itembank: redis del %s: %w", itemID, err)
	}
	return nil
}
