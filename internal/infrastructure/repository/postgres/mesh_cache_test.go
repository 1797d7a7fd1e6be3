package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fabworks/partquote/internal/core/domain"
)

func newMeshCacheWithMock(t *testing.T) (*MeshCache, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &MeshCache{db: db}, mock, func() { _ = db.Close() }
}

func TestMeshCacheGetMissReturnsNilNil(t *testing.T) {
	cache, mock, done := newMeshCacheWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT content_hash, vertices").
		WithArgs("absent").
		WillReturnRows(sqlmock.NewRows([]string{
			"content_hash", "vertices", "indices", "normals", "color_labels", "feature_edges", "triangle_count",
		}))

	mesh, err := cache.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("a miss is not an error, got %v", err)
	}
	if mesh != nil {
		t.Fatalf("expected nil mesh on miss, got %+v", mesh)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMeshCacheGetDecodesArrays(t *testing.T) {
	cache, mock, done := newMeshCacheWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT content_hash, vertices").
		WithArgs("hash-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"content_hash", "vertices", "indices", "normals", "color_labels", "feature_edges", "triangle_count",
		}).AddRow(
			"hash-1",
			[]byte(`[0,0,0,10,0,0,0,10,0]`),
			[]byte(`[0,1,2]`),
			[]byte(`[0,0,1,0,0,1,0,0,1]`),
			[]byte(`[1,1,1]`),
			nil,
			1,
		))

	mesh, err := cache.Get(context.Background(), "hash-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if mesh.VertexCount() != 3 {
		t.Fatalf("expected 3 vertices, got %d", mesh.VertexCount())
	}
	if len(mesh.Indices) != 3 || mesh.TriangleCount != 1 {
		t.Fatalf("indices not decoded: %+v", mesh)
	}
	if len(mesh.ColorLabels) != 3 {
		t.Fatalf("color labels not decoded: %+v", mesh.ColorLabels)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMeshCachePutUpserts(t *testing.T) {
	cache, mock, done := newMeshCacheWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO mesh_cache").
		WithArgs("hash-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := cache.Put(context.Background(), &domain.MeshData{
		ContentHash:   "hash-1",
		Vertices:      []float32{0, 0, 0, 10, 0, 0, 0, 10, 0},
		Indices:       []uint32{0, 1, 2},
		Normals:       []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		TriangleCount: 1,
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMeshCachePutRejectsMissingHash(t *testing.T) {
	cache, _, done := newMeshCacheWithMock(t)
	defer done()

	err := cache.Put(context.Background(), &domain.MeshData{TriangleCount: 1})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
