package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fabworks/partquote/internal/core/domain"
)

// MeshCache stores derived render meshes keyed by the SHA-256 of the file
// that produced them. Identical bytes yield identical meshes, so writes are
// idempotent upserts and a hit is always safe to serve.
type MeshCache struct {
	db *sql.DB
}

func NewMeshCache(db *sql.DB) *MeshCache {
	return &MeshCache{db: db}
}

func (c *MeshCache) EnsureSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082302)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS mesh_cache (
	content_hash TEXT PRIMARY KEY,
	vertices JSONB NOT NULL,
	indices JSONB NOT NULL,
	normals JSONB NOT NULL,
	color_labels JSONB,
	feature_edges JSONB,
	triangle_count INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Get returns the cached mesh, or (nil, nil) on a miss so callers can treat
// absence as a plain rebuild signal rather than an error.
func (c *MeshCache) Get(ctx context.Context, contentHash string) (*domain.MeshData, error) {
	row := c.db.QueryRowContext(ctx, `
SELECT content_hash, vertices, indices, normals, color_labels, feature_edges, triangle_count
FROM mesh_cache
WHERE content_hash = $1
`, contentHash)

	var mesh domain.MeshData
	var vertices, indices, normals, colorLabels, featureEdges []byte
	err := row.Scan(&mesh.ContentHash, &vertices, &indices, &normals, &colorLabels, &featureEdges, &mesh.TriangleCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan cached mesh: %w", err)
	}

	fields := []struct {
		raw  []byte
		dest any
	}{
		{vertices, &mesh.Vertices},
		{indices, &mesh.Indices},
		{normals, &mesh.Normals},
		{colorLabels, &mesh.ColorLabels},
		{featureEdges, &mesh.FeatureEdges},
	}
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dest); err != nil {
			return nil, fmt.Errorf("unmarshal cached mesh: %w", err)
		}
	}
	return &mesh, nil
}

// Put upserts the mesh under its content hash. Two workers racing on the
// same upload write identical rows; last writer wins and nothing is lost.
func (c *MeshCache) Put(ctx context.Context, mesh *domain.MeshData) error {
	if mesh == nil || mesh.ContentHash == "" {
		return domain.WrapError(domain.ErrInvalidInput, "cache mesh", errors.New("mesh has no content hash"))
	}

	vertices, err := json.Marshal(mesh.Vertices)
	if err != nil {
		return fmt.Errorf("marshal vertices: %w", err)
	}
	indices, err := json.Marshal(mesh.Indices)
	if err != nil {
		return fmt.Errorf("marshal indices: %w", err)
	}
	normals, err := json.Marshal(mesh.Normals)
	if err != nil {
		return fmt.Errorf("marshal normals: %w", err)
	}
	colorLabels, err := json.Marshal(mesh.ColorLabels)
	if err != nil {
		return fmt.Errorf("marshal color labels: %w", err)
	}
	featureEdges, err := json.Marshal(mesh.FeatureEdges)
	if err != nil {
		return fmt.Errorf("marshal feature edges: %w", err)
	}

	now := time.Now().UTC()
	_, err = c.db.ExecContext(ctx, `
INSERT INTO mesh_cache (content_hash, vertices, indices, normals, color_labels, feature_edges, triangle_count, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
ON CONFLICT (content_hash) DO UPDATE
SET vertices = EXCLUDED.vertices,
    indices = EXCLUDED.indices,
    normals = EXCLUDED.normals,
    color_labels = EXCLUDED.color_labels,
    feature_edges = EXCLUDED.feature_edges,
    triangle_count = EXCLUDED.triangle_count,
    updated_at = EXCLUDED.updated_at
`, mesh.ContentHash, vertices, indices, normals, colorLabels, featureEdges, mesh.TriangleCount, now)
	if err != nil {
		return fmt.Errorf("upsert cached mesh: %w", err)
	}
	return nil
}
