package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fabworks/partquote/internal/core/domain"
)

// QuoteRepository persists computed quotes for later retrieval and export.
// Request and result are stored as JSONB documents: quotes are immutable
// records, never queried field-by-field.
type QuoteRepository struct {
	db *sql.DB
}

func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082304)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS quotes (
	id TEXT PRIMARY KEY,
	request JSONB NOT NULL,
	result JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quotes_created_at ON quotes(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *QuoteRepository) Create(ctx context.Context, req domain.QuoteRequest, result *domain.QuoteResult) error {
	requestJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal quote request: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal quote result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO quotes (id, request, result, created_at)
VALUES ($1,$2,$3,$4)
`, result.ID, requestJSON, resultJSON, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (r *QuoteRepository) GetByID(ctx context.Context, id string) (domain.QuoteRequest, *domain.QuoteResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT request, result
FROM quotes
WHERE id = $1
`, id)

	var requestJSON, resultJSON []byte
	if err := row.Scan(&requestJSON, &resultJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.QuoteRequest{}, nil, domain.WrapError(domain.ErrQuoteNotFound, "get quote", fmt.Errorf("id %s", id))
		}
		return domain.QuoteRequest{}, nil, fmt.Errorf("scan quote: %w", err)
	}

	var req domain.QuoteRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return domain.QuoteRequest{}, nil, fmt.Errorf("unmarshal quote request: %w", err)
	}
	var result domain.QuoteResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return domain.QuoteRequest{}, nil, fmt.Errorf("unmarshal quote result: %w", err)
	}
	return req, &result, nil
}
