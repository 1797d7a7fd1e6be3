package ports

import (
	"context"
	"io"

	"github.com/fabworks/partquote/internal/core/domain"
)

// UploadOptions carries the caller-supplied metadata of a part upload.
type UploadOptions struct {
	Quantity       int
	Material       string
	Tolerance      string
	ForceReanalyze bool
}

// PartIngestor is the inbound contract for part upload orchestration.
type PartIngestor interface {
	Upload(ctx context.Context, filename string, size int64, body io.Reader, opts UploadOptions) (*domain.Part, error)
}

// PartProcessor is the inbound contract for asynchronous part analysis.
type PartProcessor interface {
	AnalyzeByID(ctx context.Context, partID string) error
}

// PartReader is the inbound read model for part state and analysis results.
type PartReader interface {
	GetByID(ctx context.Context, id string) (*domain.Part, error)
}

// QuoteService is the inbound contract for pricing.
type QuoteService interface {
	Quote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResult, error)
	GetByID(ctx context.Context, id string) (domain.QuoteRequest, *domain.QuoteResult, error)
}
