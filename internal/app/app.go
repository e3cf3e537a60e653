package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-psychometrics/internal/data/db"
	apphttp "github.com/yungbote/neurobridge-psychometrics/internal/http"
	"github.com/yungbote/neurobridge-psychometrics/internal/observability"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apphttp.Server
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.LoadOtelConfig(cfg.ServiceName, cfg.Environment, cfg.Version))
	metrics := observability.Init(log)

	dbs, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbs.AutoMigrateAll(); err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbs.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(log, cfg, clients, reposet)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, clients, serviceset)
	server := apphttp.NewServer(apphttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		LearnerHandler: handlerset.Learner,
		ItemHandler:    handlerset.Item,
		HealthHandler:  handlerset.Health,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		dbService:    dbs,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background pieces: the metrics listener and whichever
// recalibration runner was wired.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	}
	if a.Services.TemporalWorker != nil {
		if err := a.Services.TemporalWorker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
	}
	if a.Services.Scheduler != nil {
		a.Services.Scheduler.Start(ctx, a.Cfg.SchedulerInterval)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Scheduler != nil {
		a.Services.Scheduler.Wait()
	}
	a.Clients.Close()
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
