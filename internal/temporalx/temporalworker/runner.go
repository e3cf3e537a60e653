package temporalworker

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
	"github.com/yungbote/neurobridge-psychometrics/internal/services"
	"github.com/yungbote/neurobridge-psychometrics/internal/temporalx"
	"github.com/yungbote/neurobridge-psychometrics/internal/temporalx/recalibration"
)

type Runner struct {
	log *logger.Logger
	cfg temporalx.Config

	tc          temporalsdkclient.Client
	calibration services.CalibrationService
}

func NewRunner(
	log *logger.Logger,
	cfg temporalx.Config,
	tc temporalsdkclient.Client,
	calibration services.CalibrationService,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if calibration == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:         log.With("component", "TemporalWorker"),
		cfg:         cfg,
		tc:          tc,
		calibration: calibration,
	}, nil
}

// Start polls the task queue until ctx is cancelled and makes sure the
// recalibration schedules exist.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	var w worker.Worker
	attempts, err := temporalx.Retry(ctx, cfg.Retry, nil,
		func(attempt int, err error) {
			r.log.Warn("Temporal worker failed to start; retrying", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", err)
			var nfe *serviceerror.NamespaceNotFound
			if errors.As(err, &nfe) && cfg.AutoRegisterNamespace {
				_ = temporalx.EnsureNamespace(ctx, cfg, r.log)
			}
		},
		func(context.Context) error {
			w = r.newWorker()
			if err := w.Start(); err != nil {
				w.Stop()
				return err
			}
			return nil
		},
	)
	if err != nil {
		var nfe *serviceerror.NamespaceNotFound
		if errors.As(err, &nfe) {
			return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, err)
		}
		return err
	}

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	r.log.Info("Temporal worker started", "task_queue", cfg.TaskQueue, "attempts", attempts)

	if err := recalibration.EnsureSchedules(ctx, r.tc, cfg.TaskQueue, cfg.DailyCron, cfg.WeeklyCron); err != nil {
		r.log.Warn("Recalibration schedules not created", "error", err)
	}
	return nil
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := r.cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	recalibration.Register(w, &recalibration.Activities{
		Log:         r.log,
		Calibration: r.calibration,
	})
	return w
}
