package ports

import (
	"context"
	"io"

	"github.com/fabworks/partquote/internal/core/domain"
)

// PartRepository persists and reads part lifecycle state.
type PartRepository interface {
	Create(ctx context.Context, part *domain.Part) error
	GetByID(ctx context.Context, id string) (*domain.Part, error)
	// FindAnalyzedByHash returns the most recent analyzed part with the
	// given content hash, or ErrPartNotFound.
	FindAnalyzedByHash(ctx context.Context, contentHash string) (*domain.Part, error)
	UpdateStatus(ctx context.Context, id string, status domain.PartStatus, errMessage string) error
	SaveAnalysis(ctx context.Context, id string, result domain.AnalysisResult) error
}

// ObjectStorage stores uploaded part files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes part-uploaded events.
type MessageQueue interface {
	PublishPartUploaded(ctx context.Context, partID string) error
	SubscribePartUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// MeshCache is the content-hash addressed store of derived mesh data.
// Writes are all-or-nothing keyed upserts, idempotent on identical hash.
type MeshCache interface {
	// Get returns the cached mesh for a content hash, or (nil, nil) on a
	// cache miss.
	Get(ctx context.Context, contentHash string) (*domain.MeshData, error)
	Put(ctx context.Context, mesh *domain.MeshData) error
}

// CatalogStore reads pricing configuration. Lookups of absent or inactive
// entries return ErrCatalogNotFound; pricing cannot proceed without a rate.
type CatalogStore interface {
	GetProcess(ctx context.Context, name string) (*domain.Process, error)
	GetMaterial(ctx context.Context, name string) (*domain.Material, error)
	GetSurfaceTreatment(ctx context.Context, name string) (*domain.SurfaceTreatment, error)
}

// QuoteRepository persists computed quotes.
type QuoteRepository interface {
	Create(ctx context.Context, req domain.QuoteRequest, result *domain.QuoteResult) error
	GetByID(ctx context.Context, id string) (domain.QuoteRequest, *domain.QuoteResult, error)
}

// GeometryRequest is the payload submitted to the external geometry
// service.
type GeometryRequest struct {
	Filename    string
	ContentHash string
	Data        []byte
	Material    string
	Tolerance   string
}

// GeometryService is the external precise-geometry microservice. Analyze
// returns the mapped analysis plus tessellated mesh data when the service
// includes it. Implementations bound retries internally; exhaustion
// surfaces as an error the caller degrades from, never a panic.
type GeometryService interface {
	CheckHealth(ctx context.Context) error
	Analyze(ctx context.Context, req GeometryRequest) (*domain.AnalysisResult, *domain.MeshData, error)
}

// AnalysisObserver records analysis outcomes for monitoring. Implementations
// must be safe for concurrent use.
type AnalysisObserver interface {
	ObserveAnalysis(method domain.AnalysisMethod, cacheHit bool)
	ObserveFallback(reason string)
}
