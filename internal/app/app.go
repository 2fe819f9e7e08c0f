package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"RegulatoryScanner/internal/api"
	"RegulatoryScanner/internal/classify"
	"RegulatoryScanner/internal/config"
	"RegulatoryScanner/internal/fallback"
	"RegulatoryScanner/internal/infrastructure/httpfetch"
	"RegulatoryScanner/internal/infrastructure/parser"
	"RegulatoryScanner/internal/infrastructure/publish"
	"RegulatoryScanner/internal/infrastructure/scheduler"
	"RegulatoryScanner/internal/infrastructure/storage"
	"RegulatoryScanner/internal/logging"
	"RegulatoryScanner/internal/normalize"
	"RegulatoryScanner/internal/ports"
	"RegulatoryScanner/internal/ratelimit"
	"RegulatoryScanner/internal/scanner"
	"RegulatoryScanner/internal/schema"
	"RegulatoryScanner/internal/sources"
	"RegulatoryScanner/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	server    *api.Server
	closers   []func() error
}

// New builds the application. External connections (database, NATS) are
// opened here; Close releases them.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger.With("component", "app")}

	registry, err := sources.New(cfg.Descriptors()...)
	if err != nil {
		return nil, fmt.Errorf("source registry: %w", err)
	}

	orchestrator, err := newOrchestrator(cfg, baseLogger)
	if err != nil {
		return nil, err
	}

	var repository ports.RecordRepository
	if cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		repo, err := storage.NewSQLRepository(db, cfg.Database.Driver)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
		repository = repo
	}

	var publisher ports.Publisher
	if cfg.Publish.NATSURL != "" {
		nc, err := publish.Connect(cfg.Publish.NATSURL)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, nc.Drain)
		publisher = publish.NewNATSPublisher(nc, publish.Config{
			Subject:   cfg.Publish.Subject,
			BatchSize: cfg.Publish.BatchSize,
		}, baseLogger)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Runner:     orchestrator,
		Sources:    registry.All(),
		Repository: repository,
		Publisher:  publisher,
		Logger:     baseLogger,
	})
	a.scheduler = usecase.NewScheduler(scheduler.NewIntervalScheduler(cfg.Scheduler.Interval), a.pipeline, baseLogger)

	if cfg.API.Addr != "" {
		a.server = api.NewServer(cfg.API.Addr, api.NewHandler(a.pipeline.Snapshot(), baseLogger))
	}

	a.logger.Info("application configured",
		"sources", registry.Len(),
		"persistence", repository != nil,
		"publishing", publisher != nil,
		"api", cfg.API.Addr)
	return a, nil
}

func newOrchestrator(cfg config.Config, logger *slog.Logger) (*usecase.Orchestrator, error) {
	fetcher := httpfetch.New(httpfetch.Config{
		Timeout:   cfg.Fetcher.Timeout,
		MaxBytes:  cfg.Fetcher.MaxBytes,
		UserAgent: cfg.Fetcher.UserAgent,
	}, ratelimit.NewKeyed(nil), nil, logger.With("component", "fetcher"))

	extractors := scanner.NewRegistry(parser.NewHTMLTable(), parser.NewJSONRecords(), parser.NewXMLRecords())
	classifier := classify.NewDefault()

	var validator ports.RecordValidator
	if !cfg.Orchestrator.SkipSchemaValidation {
		v, err := schema.New()
		if err != nil {
			return nil, fmt.Errorf("record schema: %w", err)
		}
		validator = v
	}

	return usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Fetcher:    fetcher,
		Extractor:  extractors,
		Classifier: classifier,
		Normalizer: normalize.New(),
		Fallback:   fallback.New(classifier),
		Validator:  validator,
		Logger:     logger,
	}, usecase.OrchestratorConfig{
		Workers:       cfg.Orchestrator.Workers,
		Retries:       cfg.Orchestrator.Retries,
		RetryInitial:  cfg.Orchestrator.RetryInitial,
		FallbackCount: cfg.Orchestrator.FallbackCount,
		RunTimeout:    cfg.Orchestrator.RunTimeout,
	})
}

// RunOnce performs a single aggregation run.
func (a *Application) RunOnce(ctx context.Context) (usecase.RunResult, error) {
	return a.pipeline.ProcessRun(ctx)
}

// Serve restores the last stored run, starts the API and the scheduler, and
// blocks until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.pipeline.Restore(ctx); err != nil {
		a.logger.Warn("restore failed, serving empty snapshot until the first run", "error", err)
	}

	if a.server != nil {
		a.server.Start()
	}
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api shutdown: %w", err))
		}
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
	}
	return errors.Join(errs...)
}

// Close releases external connections in reverse order of opening.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
