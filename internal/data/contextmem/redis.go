package contextmem

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/attention"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

const redisKeyPrefix = "psychometrics:context:"

// RedisMemory stores each learner's context as a capped Redis list so the
// window survives restarts and is shared between replicas.
type RedisMemory struct {
	rdb      *goredis.Client
	capacity int
	ttl      time.Duration
	log      *logger.Logger
}

func NewRedisMemory(rdb *goredis.Client, capacity int, ttl time.Duration, baseLog *logger.Logger) *RedisMemory {
	if capacity < 1 {
		capacity = attention.DefaultCapacity
	}
	return &RedisMemory{rdb: rdb, capacity: capacity, ttl: ttl, log: baseLog.With("store", "RedisContextMemory")}
}

func (m *RedisMemory) key(learnerID string) string { return redisKeyPrefix + learnerID }

// Append pushes and trims in one MULTI/EXEC so concurrent writers cannot
// leave the list above capacity.
func (m *RedisMemory) Append(ctx context.Context, learnerID string, rec attention.InteractionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := m.key(learnerID)
	_, err = m.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.RPush(ctx, key, raw)
		p.LTrim(ctx, key, int64(-m.capacity), -1)
		if m.ttl > 0 {
			p.Expire(ctx, key, m.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("contextmem: append: %w", err)
	}
	return nil
}

func (m *RedisMemory) Recent(ctx context.Context, learnerID string) ([]attention.InteractionRecord, error) {
	vals, err := m.rdb.LRange(ctx, m.key(learnerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("contextmem: recent: %w", err)
	}
	out := make([]attention.InteractionRecord, 0, len(vals))
	for _, v := range vals {
		var rec attention.InteractionRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			m.log.Warn("skipping undecodable context entry", "learner_id", learnerID, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
