package temporalx

import (
	"time"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	// Cron specs for the recalibration schedules; empty disables a schedule.
	DailyCron  string
	WeeklyCron string

	AutoRegisterNamespace  bool
	NamespaceRetentionDays int

	// Dial and worker start share one retry policy.
	DialTimeout time.Duration
	Retry       RetryPolicy

	WorkerConcurrency int
}

// RetryPolicy is exponential backoff bounded by a total wait. MaxWait <= 0
// means a single attempt.
type RetryPolicy struct {
	MaxWait    time.Duration
	Backoff    time.Duration
	BackoffMax time.Duration
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "psychometrics"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "psychometrics"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		DailyCron:  envutil.String("RECALIBRATION_DAILY_CRON", "0 2 * * *"),
		WeeklyCron: envutil.String("RECALIBRATION_WEEKLY_CRON", "0 3 * * 0"),

		AutoRegisterNamespace:  envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		NamespaceRetentionDays: envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7),

		DialTimeout: envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5),
		Retry: RetryPolicy{
			MaxWait:    envutil.Seconds("TEMPORAL_RETRY_MAX_WAIT_SECONDS", 60),
			Backoff:    envutil.Millis("TEMPORAL_RETRY_BACKOFF_MS", 250),
			BackoffMax: envutil.Millis("TEMPORAL_RETRY_BACKOFF_MAX_MS", 5000),
		},

		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 2),
	}
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

// retentionDays clamps the namespace retention to Temporal's accepted range.
func (c Config) retentionDays() int {
	switch d := c.NamespaceRetentionDays; {
	case d < 1:
		return 7
	case d > 365:
		return 365
	default:
		return d
	}
}
