package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fabworks/partquote/internal/core/domain"
	"github.com/fabworks/partquote/internal/core/ports"
)

// IngestPartUseCase accepts CAD file uploads: the file goes to object
// storage, the lifecycle record to the repository, and an event to the queue
// for the analysis workers. It also serves part reads.
type IngestPartUseCase struct {
	repo    ports.PartRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestPartUseCase(
	repo ports.PartRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestPartUseCase {
	return &IngestPartUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the file and registers the part. The content hash is
// computed in the same streaming pass that writes to storage, so the body is
// read exactly once.
func (uc *IngestPartUseCase) Upload(
	ctx context.Context,
	filename string,
	size int64,
	body io.Reader,
	opts ports.UploadOptions,
) (*domain.Part, error) {
	if filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload part", errors.New("filename is required"))
	}
	if size <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload part", errors.New("file is empty"))
	}
	quantity := opts.Quantity
	if quantity < 1 {
		quantity = 1
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	hasher := sha256.New()
	if err := uc.storage.Save(ctx, storageKey, io.TeeReader(body, hasher)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}
	contentHash := hex.EncodeToString(hasher.Sum(nil))

	part := &domain.Part{
		ID:             id,
		Filename:       filename,
		FileSize:       size,
		ContentHash:    contentHash,
		StoragePath:    storageKey,
		Quantity:       quantity,
		Material:       opts.Material,
		Tolerance:      opts.Tolerance,
		ForceReanalyze: opts.ForceReanalyze,
		Status:         domain.PartUploaded,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.repo.Create(ctx, part); err != nil {
		// The file has no record pointing at it; remove the orphan.
		_ = uc.storage.Delete(ctx, storageKey)
		return nil, fmt.Errorf("create part record: %w", err)
	}

	if err := uc.queue.PublishPartUploaded(ctx, part.ID); err != nil {
		return nil, fmt.Errorf("publish part-uploaded event: %w", err)
	}

	return part, nil
}

func (uc *IngestPartUseCase) GetByID(ctx context.Context, id string) (*domain.Part, error) {
	part, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch part by id: %w", err)
	}
	return part, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "part.bin"
	}
	return base
}
