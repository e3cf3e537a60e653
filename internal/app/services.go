package app

import (
	"fmt"

	"github.com/yungbote/neurobridge-psychometrics/internal/data/contextmem"
	"github.com/yungbote/neurobridge-psychometrics/internal/data/itembank"
	"github.com/yungbote/neurobridge-psychometrics/internal/jobs/recalibrate"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/attention"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/irt"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
	"github.com/yungbote/neurobridge-psychometrics/internal/services"
	"github.com/yungbote/neurobridge-psychometrics/internal/temporalx/recalibration"
	"github.com/yungbote/neurobridge-psychometrics/internal/temporalx/temporalworker"
)

type Services struct {
	// Engine
	Ability     services.AbilityService
	Calibration services.CalibrationService
	Challenge   services.ChallengeService
	Competency  services.CompetencyService

	// Recalibration passes run on Temporal when it is configured, otherwise
	// on the in-process scheduler.
	Recalibrator   recalibrate.PassRunner
	Scheduler      *recalibrate.Scheduler
	TemporalWorker *temporalworker.Runner
}

func wireItemBank(log *logger.Logger, cfg Config, clients Clients, reposet Repos) itembank.Store {
	repo := itembank.NewRepoStore(reposet.ItemParameters)
	if clients.Redis != nil {
		// Replicas share the redis copy, so a recalibration anywhere is seen
		// everywhere on the next read.
		return itembank.NewTieredStore(itembank.NewRedisStore(clients.Redis, cfg.ItemCacheTTL), repo, log)
	}
	local := itembank.NewBoundedMemoryStore(cfg.ItemMemoryCapacity, cfg.ItemMemoryTTL)
	return itembank.NewTieredStore(local, repo, log)
}

func wireContextMemory(log *logger.Logger, cfg Config, clients Clients) contextmem.Memory {
	capacity := cfg.Engine.Attention.Capacity
	if cfg.ContextStore == ContextStoreRedis && clients.Redis != nil {
		return contextmem.NewRedisMemory(clients.Redis, capacity, cfg.ContextTTL, log)
	}
	return contextmem.NewInMemory(capacity)
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	items := wireItemBank(log, cfg, clients, reposet)
	memory := wireContextMemory(log, cfg, clients)

	model := irt.Model{Discrimination: cfg.Engine.Model.Discrimination, Guessing: cfg.Engine.Model.Guessing}
	calibrator, err := irt.NewCalibrator(cfg.Engine.Calibration, model)
	if err != nil {
		return Services{}, fmt.Errorf("init calibrator: %w", err)
	}

	ability := services.NewAbilityService(log, cfg.Engine, reposet.AbilityProfile, reposet.Response, items)
	calibration := services.NewCalibrationService(log, cfg.Engine, reposet.Response, reposet.ItemParameters, items, calibrator)
	challenge := services.NewChallengeService(log, ability, attention.NewSelector(cfg.Engine.Attention), memory)
	competency := services.NewCompetencyService(log, cfg.Engine, reposet.LedgerEvent)

	out := Services{
		Ability:     ability,
		Calibration: calibration,
		Challenge:   challenge,
		Competency:  competency,
	}

	if clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, cfg.Temporal, clients.Temporal, calibration)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.TemporalWorker = runner
		out.Recalibrator = &recalibration.Dispatcher{Client: clients.Temporal, TaskQueue: cfg.Temporal.TaskQueue}
		return out, nil
	}

	out.Scheduler = recalibrate.NewScheduler(log, calibration).Default()
	out.Recalibrator = out.Scheduler
	return out, nil
}
