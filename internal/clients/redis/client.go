package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/envutil"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

// NewClient connects to REDIS_ADDR and verifies the connection with a ping.
func NewClient(log *logger.Logger) (*goredis.Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(envutil.String("REDIS_ADDR", ""))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.With("client", "Redis").Info("Connected to Redis", "addr", addr)
	return rdb, nil
}
