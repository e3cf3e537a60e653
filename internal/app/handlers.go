package app

import (
	"context"

	"gorm.io/gorm"

	httpH "github.com/yungbote/neurobridge-psychometrics/internal/http/handlers"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Learner *httpH.LearnerHandler
	Item    *httpH.ItemHandler
}

func healthChecks(db *gorm.DB, clients Clients) []httpH.HealthCheck {
	checks := []httpH.HealthCheck{{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if clients.Redis != nil {
		rdb := clients.Redis
		checks = append(checks, httpH.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}

func wireHandlers(log *logger.Logger, db *gorm.DB, clients Clients, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(healthChecks(db, clients)...),
		Learner: httpH.NewLearnerHandler(serviceset.Ability, serviceset.Challenge, serviceset.Competency),
		Item:    httpH.NewItemHandler(serviceset.Calibration, serviceset.Recalibrator),
	}
}
