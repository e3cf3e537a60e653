package app

import (
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/neurobridge-psychometrics/internal/clients/redis"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
	"github.com/yungbote/neurobridge-psychometrics/internal/temporalx"
)

type Clients struct {
	Redis    *goredis.Client
	Temporal temporalsdkclient.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var rdb *goredis.Client
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		c, err := redis.NewClient(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis client: %w", err)
		}
		rdb = c
	} else if cfg.ContextStore == ContextStoreRedis {
		return Clients{}, fmt.Errorf("CONTEXT_STORE=redis requires REDIS_ADDR")
	}

	// Temporal
	tc, err := temporalx.NewClient(log, cfg.Temporal)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}

	return Clients{Redis: rdb, Temporal: tc}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
