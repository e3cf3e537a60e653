package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/envutil"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string

	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	SQLitePath string

	MaxOpenConns int
	MaxIdleConns int
}

func LoadConfig() Config {
	return Config{
		Driver:       strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres)),
		Host:         envutil.String("POSTGRES_HOST", "localhost"),
		Port:         envutil.String("POSTGRES_PORT", "5432"),
		User:         envutil.String("POSTGRES_USER", "postgres"),
		Password:     envutil.String("POSTGRES_PASSWORD", ""),
		Name:         envutil.String("POSTGRES_NAME", "psychometrics"),
		SSLMode:      envutil.String("POSTGRES_SSLMODE", "disable"),
		SQLitePath:   envutil.String("SQLITE_PATH", "psychometrics.db"),
		MaxOpenConns: envutil.Int("DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns: envutil.Int("DB_MAX_IDLE_CONNS", 5),
	}
}

func (c Config) dsn() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

type Service struct {
	db     *gorm.DB
	log    *logger.Logger
	driver string
}

// Open connects to postgres, or to a sqlite file for local single-node runs.
func Open(baseLog *logger.Logger, cfg Config) (*Service, error) {
	serviceLog := baseLog.With("service", "DatabaseService", "driver", cfg.Driver)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.Driver {
	case DriverPostgres, "":
		gdb, err = gorm.Open(postgres.Open(cfg.dsn()), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
	case DriverSQLite:
		gdb, err = gorm.Open(sqlite.Open(cfg.SQLitePath+"?_busy_timeout=5000&_journal_mode=WAL"), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite %s: %w", cfg.SQLitePath, err)
		}
		// sqlite has a single writer.
		cfg.MaxOpenConns = 1
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	serviceLog.Info("database connected")
	return &Service{db: gdb, log: serviceLog, driver: cfg.Driver}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
