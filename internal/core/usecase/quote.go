package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fabworks/partquote/internal/core/domain"
	"github.com/fabworks/partquote/internal/core/ports"
	"github.com/fabworks/partquote/internal/core/pricing"
)

// QuoteDefaults fill commercial options the request leaves blank.
type QuoteDefaults struct {
	Process  string
	Material string
}

// QuoteUseCase prices a part synchronously: resolve catalog entries, run the
// pricing engine, persist the quote. Catalog misses are fatal to the quote;
// pricing never invents a rate.
type QuoteUseCase struct {
	catalog  ports.CatalogStore
	quotes   ports.QuoteRepository
	engine   *pricing.Engine
	defaults QuoteDefaults
	logger   *slog.Logger
}

func NewQuoteUseCase(
	catalog ports.CatalogStore,
	quotes ports.QuoteRepository,
	engine *pricing.Engine,
	defaults QuoteDefaults,
	logger *slog.Logger,
) *QuoteUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteUseCase{
		catalog:  catalog,
		quotes:   quotes,
		engine:   engine,
		defaults: defaults,
		logger:   logger,
	}
}

func (uc *QuoteUseCase) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResult, error) {
	if req.Process == "" {
		req.Process = uc.defaults.Process
	}
	if req.Material == "" {
		req.Material = uc.defaults.Material
	}
	if err := pricing.ValidateRequest(req); err != nil {
		return nil, err
	}

	process, err := uc.catalog.GetProcess(ctx, req.Process)
	if err != nil {
		return nil, fmt.Errorf("resolve process %q: %w", req.Process, err)
	}
	material, err := uc.catalog.GetMaterial(ctx, req.Material)
	if err != nil {
		return nil, fmt.Errorf("resolve material %q: %w", req.Material, err)
	}
	treatments, err := uc.resolveTreatments(ctx, req.SurfaceTreatments)
	if err != nil {
		return nil, err
	}

	result := uc.engine.Quote(req, *process, *material, treatments)
	result.ID = uuid.NewString()
	result.CreatedAt = time.Now().UTC()

	for _, warning := range result.Warnings {
		uc.logger.Warn("quote flagged for review",
			"quote_id", result.ID,
			"kind", warning.Kind,
			"detail", warning.Message,
		)
	}

	if err := uc.quotes.Create(ctx, req, result); err != nil {
		return nil, fmt.Errorf("persist quote: %w", err)
	}
	return result, nil
}

func (uc *QuoteUseCase) GetByID(ctx context.Context, id string) (domain.QuoteRequest, *domain.QuoteResult, error) {
	req, result, err := uc.quotes.GetByID(ctx, id)
	if err != nil {
		return domain.QuoteRequest{}, nil, fmt.Errorf("fetch quote by id: %w", err)
	}
	return req, result, nil
}

func (uc *QuoteUseCase) resolveTreatments(ctx context.Context, names []string) ([]domain.SurfaceTreatment, error) {
	if len(names) == 0 {
		return nil, nil
	}
	treatments := make([]domain.SurfaceTreatment, 0, len(names))
	for _, name := range names {
		treatment, err := uc.catalog.GetSurfaceTreatment(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve surface treatment %q: %w", name, err)
		}
		treatments = append(treatments, *treatment)
	}
	return treatments, nil
}
