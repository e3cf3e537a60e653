package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-psychometrics/internal/data/db"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/envutil"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
	"github.com/yungbote/neurobridge-psychometrics/internal/temporalx"
)

const (
	ContextStoreMemory = "memory"
	ContextStoreRedis  = "redis"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string

	HTTPAddr    string
	MetricsAddr string

	// Item parameter cache lifetime in Redis.
	ItemCacheTTL time.Duration

	// In-process item cache, used only when Redis is not configured.
	ItemMemoryTTL      time.Duration
	ItemMemoryCapacity int

	ContextStore string
	ContextTTL   time.Duration

	SchedulerInterval time.Duration

	Engine   config.Config
	DB       db.Config
	Temporal temporalx.Config
}

func LoadConfig(log *logger.Logger) (Config, error) {
	engine, err := config.Load()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		ServiceName: envutil.String("SERVICE_NAME", "psychometrics"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		HTTPAddr:    envutil.String("HTTP_ADDR", ":8080"),
		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),

		ItemCacheTTL:       envutil.Seconds("REDIS_ITEM_BANK_TTL_SECONDS", 3600),
		ItemMemoryTTL:      envutil.Seconds("ITEM_BANK_MEMORY_TTL_SECONDS", 30),
		ItemMemoryCapacity: envutil.Int("ITEM_BANK_MEMORY_CAPACITY", 10000),
		ContextStore:       strings.ToLower(envutil.String("CONTEXT_STORE", ContextStoreMemory)),
		ContextTTL:         envutil.Seconds("CONTEXT_TTL_SECONDS", 7*24*3600),

		SchedulerInterval: envutil.Seconds("RECALIBRATION_TICK_SECONDS", 60),

		Engine:   engine,
		DB:       db.LoadConfig(),
		Temporal: temporalx.LoadConfig(),
	}
	switch cfg.ContextStore {
	case ContextStoreMemory, ContextStoreRedis:
	default:
		return Config{}, fmt.Errorf("unsupported CONTEXT_STORE %q", cfg.ContextStore)
	}
	log.Info("Config loaded",
		"environment", cfg.Environment,
		"db_driver", cfg.DB.Driver,
		"context_store", cfg.ContextStore,
		"calibrator", cfg.Engine.Calibration.Mode,
		"temporal", cfg.Temporal.Enabled(),
	)
	return cfg, nil
}
