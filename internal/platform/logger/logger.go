package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/envutil"
)

// Logger is a thin key/value wrapper over zap's SugaredLogger. Its method set
// also satisfies Temporal's log.Logger interface.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger for mode (production, test or development). LOG_LEVEL
// overrides the mode's default level.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		cfg.DisableStacktrace = true
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if raw := envutil.String("LOG_LEVEL", ""); raw != "" {
		lvl, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, scrub(keysAndValues)...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, scrub(keysAndValues)...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, scrub(keysAndValues)...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, scrub(keysAndValues)...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, scrub(keysAndValues)...)
}

func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(scrub(keysAndValues)...)}
}

// redactor masks secrets and pseudonymizes learner identifiers. Hashing
// keeps log lines for one learner correlatable without exposing the id.
type redactor struct {
	enabled bool
	salt    string
}

var (
	redactorOnce sync.Once
	activeRedact redactor
)

var (
	secretMarkers  = []string{"token", "authorization", "password", "secret", "api_key", "apikey", "email"}
	learnerMarkers = []string{"learner_id", "student_id", "user_id"}
)

func currentRedactor() redactor {
	redactorOnce.Do(func() {
		activeRedact = redactor{
			enabled: envutil.Bool("LOG_REDACTION_ENABLED", true),
			salt:    envutil.String("LOG_HASH_SALT", ""),
		}
	})
	return activeRedact
}

func scrub(kv []interface{}) []interface{} {
	r := currentRedactor()
	if len(kv) == 0 || !r.enabled {
		return kv
	}
	return r.apply(kv)
}

func (r redactor) apply(kv []interface{}) []interface{} {
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key := strings.ToLower(strings.TrimSpace(toString(out[i])))
		switch {
		case key == "":
		case containsAny(key, secretMarkers):
			out[i+1] = "[REDACTED]"
		case containsAny(key, learnerMarkers):
			out[i+1] = r.hash(out[i+1])
		}
	}
	return out
}

func (r redactor) hash(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func containsAny(key string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
