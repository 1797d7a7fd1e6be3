// Package bootstrap assembles the application graph shared by the api and
// worker binaries: database, schema, catalog seed, queue, geometry client
// and the use cases on top of them.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fabworks/partquote/internal/config"
	"github.com/fabworks/partquote/internal/core/ports"
	"github.com/fabworks/partquote/internal/core/pricing"
	"github.com/fabworks/partquote/internal/core/usecase"
	"github.com/fabworks/partquote/internal/infrastructure/catalog"
	"github.com/fabworks/partquote/internal/infrastructure/geomservice"
	"github.com/fabworks/partquote/internal/infrastructure/queue/nats"
	"github.com/fabworks/partquote/internal/infrastructure/repository/postgres"
	"github.com/fabworks/partquote/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Parts    ports.PartRepository
	Geometry ports.GeometryService

	IngestUC  ports.PartIngestor
	AnalyzeUC ports.PartProcessor
	QuoteUC   ports.QuoteService

	closeFn func()
}

// Options carries the per-binary dependencies bootstrap cannot decide
// itself. Observer is the analysis observer the worker passes in; nil is
// fine for the api binary.
type Options struct {
	Logger   *slog.Logger
	Observer ports.AnalysisObserver
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	parts := postgres.NewPartRepository(db)
	if err := parts.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure parts schema: %w", err)
	}
	meshCache := postgres.NewMeshCache(db)
	if err := meshCache.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure mesh cache schema: %w", err)
	}
	catalogRepo := postgres.NewCatalogRepository(db)
	if err := catalogRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure catalog schema: %w", err)
	}
	quotes := postgres.NewQuoteRepository(db)
	if err := quotes.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure quotes schema: %w", err)
	}

	rateCard, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if err := rateCard.Apply(ctx, catalogRepo); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var geometry ports.GeometryService
	if cfg.GeometryServiceEnabled && cfg.GeometryServiceURL != "" {
		geometry = geomservice.New(
			cfg.GeometryServiceURL,
			geomservice.WithAttemptTimeout(time.Duration(cfg.GeometryAttemptTimeoutSeconds)*time.Second),
		)
	}

	ingestUC := usecase.NewIngestPartUseCase(parts, storage, queue)
	analyzeUC := usecase.NewAnalyzePartUseCase(parts, storage, meshCache, geometry, opts.Observer)
	quoteUC := usecase.NewQuoteUseCase(
		catalogRepo,
		quotes,
		pricing.NewEngine(pricing.DefaultConfig()),
		usecase.QuoteDefaults{Process: cfg.DefaultProcess, Material: cfg.DefaultMaterial},
		opts.Logger,
	)

	return &App{
		Config:   cfg,
		Queue:    queue,
		Parts:    parts,
		Geometry: geometry,

		IngestUC:  ingestUC,
		AnalyzeUC: analyzeUC,
		QuoteUC:   quoteUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
