// Package postgres persists parts, quotes, the mesh cache and the pricing
// catalog through database/sql over the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fabworks/partquote/internal/core/domain"
)

type PartRepository struct {
	db *sql.DB
}

func NewPartRepository(db *sql.DB) *PartRepository {
	return &PartRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *PartRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS parts (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	content_hash TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 1,
	material TEXT,
	tolerance TEXT,
	force_reanalyze BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL,
	error_message TEXT,
	analysis JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_parts_status ON parts(status);
CREATE INDEX IF NOT EXISTS idx_parts_content_hash ON parts(content_hash);
CREATE INDEX IF NOT EXISTS idx_parts_created_at ON parts(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *PartRepository) Create(ctx context.Context, part *domain.Part) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO parts (
	id, filename, file_size, content_hash, storage_path, quantity, material, tolerance, force_reanalyze, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		part.ID, part.Filename, part.FileSize, part.ContentHash, part.StoragePath, part.Quantity,
		part.Material, part.Tolerance, part.ForceReanalyze, string(part.Status), part.Error,
		part.CreatedAt, part.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert part: %w", err)
	}
	return nil
}

const partColumns = `id, filename, file_size, content_hash, storage_path, quantity, material, tolerance, force_reanalyze, status, error_message, analysis, created_at, updated_at`

func (r *PartRepository) GetByID(ctx context.Context, id string) (*domain.Part, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+partColumns+`
FROM parts
WHERE id = $1
`, id)
	part, err := scanPart(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPartNotFound, "get part", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return part, nil
}

// FindAnalyzedByHash returns the most recently analyzed part carrying the
// same file content, for analysis reuse across re-uploads.
func (r *PartRepository) FindAnalyzedByHash(ctx context.Context, contentHash string) (*domain.Part, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+partColumns+`
FROM parts
WHERE content_hash = $1 AND status = $2 AND analysis IS NOT NULL
ORDER BY updated_at DESC
LIMIT 1
`, contentHash, string(domain.PartAnalyzed))
	part, err := scanPart(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPartNotFound, "find part by hash", fmt.Errorf("hash %s", contentHash))
		}
		return nil, err
	}
	return part, nil
}

func (r *PartRepository) UpdateStatus(ctx context.Context, id string, status domain.PartStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE parts
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update part status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update part status rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrPartNotFound, "update part status", fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *PartRepository) SaveAnalysis(ctx context.Context, id string, result domain.AnalysisResult) error {
	analysisJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE parts
SET analysis = $2, updated_at = $3
WHERE id = $1
`, id, analysisJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save analysis rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrPartNotFound, "save analysis", fmt.Errorf("id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPart(row rowScanner) (*domain.Part, error) {
	var part domain.Part
	var status string
	var material, tolerance, errMessage sql.NullString
	var analysisRaw []byte

	err := row.Scan(
		&part.ID, &part.Filename, &part.FileSize, &part.ContentHash, &part.StoragePath,
		&part.Quantity, &material, &tolerance, &part.ForceReanalyze, &status, &errMessage,
		&analysisRaw, &part.CreatedAt, &part.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan part: %w", err)
	}

	part.Material = material.String
	part.Tolerance = tolerance.String
	part.Error = errMessage.String
	part.Status = domain.PartStatus(status)
	if len(analysisRaw) > 0 {
		var analysis domain.AnalysisResult
		if err := json.Unmarshal(analysisRaw, &analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
		part.Analysis = &analysis
	}
	return &part, nil
}
