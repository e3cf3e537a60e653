package testutil

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	dbmigrate "github.com/yungbote/neurobridge-psychometrics/internal/data/db"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens the shared test database: postgres when TEST_POSTGRES_DSN is set,
// otherwise a private in-memory sqlite database.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		cfg := &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		}
		if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
			db, dbErr = gorm.Open(postgres.Open(dsn), cfg)
		} else {
			name := fmt.Sprintf("file:psychometrics_%s?mode=memory&cache=shared", uuid.NewString())
			db, dbErr = gorm.Open(sqlite.Open(name), cfg)
			if dbErr == nil {
				sqlDB, err := db.DB()
				if err != nil {
					dbErr = err
					return
				}
				// One connection keeps the in-memory database alive and
				// serializes writers.
				sqlDB.SetMaxOpenConns(1)
			}
		}
		if dbErr != nil {
			return
		}
		dbErr = AutoMigrateAll(db)
	})

	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

// IsolatedDB returns a database no other test can see. Against postgres it is
// a rolled-back transaction; otherwise a fresh in-memory sqlite database.
func IsolatedDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	if os.Getenv("TEST_POSTGRES_DSN") != "" {
		return Tx(tb, DB(tb))
	}
	name := fmt.Sprintf("file:psychometrics_%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	if err := AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return gdb
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func AutoMigrateAll(gdb *gorm.DB) error {
	return dbmigrate.AutoMigrateAll(gdb)
}
