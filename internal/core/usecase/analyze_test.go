package usecase

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fabworks/partquote/internal/core/domain"
)

// tetraSTL encodes a four-facet tetrahedron as a binary STL byte stream.
func tetraSTL() []byte {
	o := domain.Vector3{}
	a := domain.Vector3{X: 10}
	b := domain.Vector3{Y: 10}
	c := domain.Vector3{Z: 10}
	facets := [][3]domain.Vector3{
		{o, b, a},
		{o, a, c},
		{o, c, b},
		{a, b, c},
	}

	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	binary.Write(&buf, binary.LittleEndian, uint32(len(facets)))
	for _, f := range facets {
		for _, v := range append([]domain.Vector3{{}}, f[0], f[1], f[2]) {
			binary.Write(&buf, binary.LittleEndian, float32(v.X))
			binary.Write(&buf, binary.LittleEndian, float32(v.Y))
			binary.Write(&buf, binary.LittleEndian, float32(v.Z))
		}
		buf.Write([]byte{0, 0})
	}
	return buf.Bytes()
}

func seedPart(repo *partRepoFake, storage *storageFake, filename string, data []byte) *domain.Part {
	part := &domain.Part{
		ID:          "part-1",
		Filename:    filename,
		FileSize:    int64(len(data)),
		ContentHash: "hash-1",
		StoragePath: "part-1_" + filename,
		Quantity:    1,
		Status:      domain.PartUploaded,
		CreatedAt:   time.Now().UTC(),
	}
	repo.parts[part.ID] = part
	storage.files[part.StoragePath] = data
	return part
}

func TestAnalyzeByIDMeshPath(t *testing.T) {
	repo := newPartRepoFake()
	storage := newStorageFake()
	cache := newCacheFake()
	observer := &observerFake{}
	seedPart(repo, storage, "shaft.stl", tetraSTL())

	uc := NewAnalyzePartUseCase(repo, storage, cache, nil, observer)
	if err := uc.AnalyzeByID(context.Background(), "part-1"); err != nil {
		t.Fatalf("AnalyzeByID() error = %v", err)
	}

	if repo.saved == nil {
		t.Fatalf("analysis not saved")
	}
	if repo.saved.Method != domain.MethodMeshAnalysis {
		t.Fatalf("expected mesh analysis method, got %s", repo.saved.Method)
	}
	if repo.saved.Confidence != domain.ConfidenceMesh {
		t.Fatalf("expected mesh confidence tier, got %f", repo.saved.Confidence)
	}
	// 10 mm tetrahedron: 1000/6 mm3 = 1/6 cm3.
	if math.Abs(repo.saved.VolumeCm3-1.0/6.0) > 1e-6 {
		t.Fatalf("expected tetrahedron volume 1/6 cm3, got %f", repo.saved.VolumeCm3)
	}
	if repo.saved.MeshRef != "hash-1" {
		t.Fatalf("expected mesh cached under the content hash, got %q", repo.saved.MeshRef)
	}
	if cache.puts != 1 {
		t.Fatalf("expected one cache write, got %d", cache.puts)
	}

	wantStatuses := []domain.PartStatus{domain.PartAnalyzing, domain.PartAnalyzed}
	if len(repo.statuses) != 2 || repo.statuses[0] != wantStatuses[0] || repo.statuses[1] != wantStatuses[1] {
		t.Fatalf("expected status sequence %v, got %v", wantStatuses, repo.statuses)
	}
}

func TestAnalyzeByIDMalformedMeshDegradesToHeuristic(t *testing.T) {
	repo := newPartRepoFake()
	storage := newStorageFake()
	observer := &observerFake{}
	seedPart(repo, storage, "broken.stl", []byte("solid nonsense\nendsolid"))

	uc := NewAnalyzePartUseCase(repo, storage, newCacheFake(), nil, observer)
	if err := uc.AnalyzeByID(context.Background(), "part-1"); err != nil {
		t.Fatalf("a malformed mesh must still be analyzed, got error %v", err)
	}

	if repo.saved.Method != domain.MethodHeuristicFallback {
		t.Fatalf("expected heuristic fallback, got %s", repo.saved.Method)
	}
	if repo.saved.Confidence != domain.ConfidenceMalformedMesh {
		t.Fatalf("expected malformed-mesh confidence tier, got %f", repo.saved.Confidence)
	}
	if len(observer.fallbacks) != 1 || observer.fallbacks[0] != fallbackMalformedMesh {
		t.Fatalf("expected malformed_mesh fallback observation, got %v", observer.fallbacks)
	}
	if repo.statuses[len(repo.statuses)-1] != domain.PartAnalyzed {
		t.Fatalf("degraded analysis must still finish analyzed, got %v", repo.statuses)
	}
}

func TestAnalyzeByIDReusesPriorAnalysisByHash(t *testing.T) {
	repo := newPartRepoFake()
	storage := newStorageFake()
	observer := &observerFake{}
	seedPart(repo, storage, "shaft.stl", tetraSTL())
	repo.byHash = &domain.Part{
		ID:          "part-0",
		ContentHash: "hash-1",
		Analysis: &domain.AnalysisResult{
			VolumeCm3:       42,
			SurfaceAreaCm2:  99,
			ComplexityScore: 4,
			Confidence:      domain.ConfidenceMesh,
			Method:          domain.MethodMeshAnalysis,
		},
	}

	uc := NewAnalyzePartUseCase(repo, storage, newCacheFake(), nil, observer)
	if err := uc.AnalyzeByID(context.Background(), "part-1"); err != nil {
		t.Fatalf("AnalyzeByID() error = %v", err)
	}

	if storage.opens != 0 {
		t.Fatalf("hash reuse must not re-read the file, got %d opens", storage.opens)
	}
	if repo.saved.VolumeCm3 != 42 {
		t.Fatalf("expected prior analysis reused, got %+v", repo.saved)
	}
	if observer.cacheHits != 1 {
		t.Fatalf("expected a cache-hit observation, got %d", observer.cacheHits)
	}
}

func TestAnalyzeByIDForceReanalyzeBypassesReuse(t *testing.T) {
	repo := newPartRepoFake()
	storage := newStorageFake()
	part := seedPart(repo, storage, "shaft.stl", tetraSTL())
	part.ForceReanalyze = true
	repo.byHash = &domain.Part{
		ID:       "part-0",
		Analysis: &domain.AnalysisResult{VolumeCm3: 42},
	}

	uc := NewAnalyzePartUseCase(repo, storage, newCacheFake(), nil, nil)
	if err := uc.AnalyzeByID(context.Background(), "part-1"); err != nil {
		t.Fatalf("AnalyzeByID() error = %v", err)
	}

	if repo.hashRequests != 0 {
		t.Fatalf("force reanalyze must skip the hash lookup")
	}
	if repo.saved.VolumeCm3 == 42 {
		t.Fatalf("expected a fresh analysis, got the prior one")
	}
}

func TestAnalyzeByIDBRepGoesToGeometryService(t *testing.T) {
	repo := newPartRepoFake()
	storage := newStorageFake()
	cache := newCacheFake()
	observer := &observerFake{}
	seedPart(repo, storage, "housing.step", []byte("ISO-10303-21;"))

	service := &geometryServiceFake{
		result: &domain.AnalysisResult{
			VolumeCm3:       120,
			SurfaceAreaCm2:  400,
			ComplexityScore: 6,
		},
		mesh: &domain.MeshData{
			Vertices:      []float32{0, 0, 0},
			Indices:       []uint32{0},
			TriangleCount: 1,
		},
	}

	uc := NewAnalyzePartUseCase(repo, storage, cache, service, observer)
	if err := uc.AnalyzeByID(context.Background(), "part-1"); err != nil {
		t.Fatalf("AnalyzeByID() error = %v", err)
	}

	if service.lastReq.ContentHash != "hash-1" || service.lastReq.Filename != "housing.step" {
		t.Fatalf("service request not populated: %+v", service.lastReq)
	}
	if repo.saved.Method != domain.MethodGeometryService {
		t.Fatalf("expected geometry service method, got %s", repo.saved.Method)
	}
	if repo.saved.Confidence != domain.ConfidenceExact {
		t.Fatalf("expected exact confidence tier, got %f", repo.saved.Confidence)
	}
	if cache.puts != 1 || cache.entries["hash-1"] == nil {
		t.Fatalf("expected service mesh cached under the content hash")
	}
}

func TestAnalyzeByIDServiceExhaustionDegradesToHeuristic(t *testing.T) {
	repo := newPartRepoFake()
	storage := newStorageFake()
	observer := &observerFake{}
	seedPart(repo, storage, "housing.step", []byte("ISO-10303-21;"))

	service := &geometryServiceFake{err: errors.New("retries exhausted")}
	uc := NewAnalyzePartUseCase(repo, storage, newCacheFake(), service, observer)
	if err := uc.AnalyzeByID(context.Background(), "part-1"); err != nil {
		t.Fatalf("service exhaustion must not fail the part, got %v", err)
	}

	if repo.saved.Method != domain.MethodHeuristicFallback {
		t.Fatalf("expected heuristic fallback, got %s", repo.saved.Method)
	}
	if repo.saved.Confidence != domain.ConfidenceHeuristic {
		t.Fatalf("expected lowest confidence tier, got %f", repo.saved.Confidence)
	}
	if len(observer.fallbacks) != 1 || observer.fallbacks[0] != fallbackServiceUnavailable {
		t.Fatalf("expected service_unavailable fallback observation, got %v", observer.fallbacks)
	}
}

func TestAnalyzeByIDCacheHitSkipsRebuild(t *testing.T) {
	repo := newPartRepoFake()
	storage := newStorageFake()
	cache := newCacheFake()
	seedPart(repo, storage, "shaft.stl", tetraSTL())
	cache.entries["hash-1"] = &domain.MeshData{ContentHash: "hash-1", TriangleCount: 4}

	uc := NewAnalyzePartUseCase(repo, storage, cache, nil, nil)
	if err := uc.AnalyzeByID(context.Background(), "part-1"); err != nil {
		t.Fatalf("AnalyzeByID() error = %v", err)
	}

	if cache.puts != 0 {
		t.Fatalf("existing cache entry must not be rewritten, got %d puts", cache.puts)
	}
	if repo.saved.MeshRef != "hash-1" {
		t.Fatalf("expected mesh reference from cache, got %q", repo.saved.MeshRef)
	}
}

func TestAnalyzeByIDCacheFailureDoesNotFailAnalysis(t *testing.T) {
	repo := newPartRepoFake()
	storage := newStorageFake()
	cache := newCacheFake()
	cache.putErr = errors.New("db down")
	seedPart(repo, storage, "shaft.stl", tetraSTL())

	uc := NewAnalyzePartUseCase(repo, storage, cache, nil, nil)
	if err := uc.AnalyzeByID(context.Background(), "part-1"); err != nil {
		t.Fatalf("cache failure must not fail the analysis, got %v", err)
	}
	if repo.saved == nil || repo.saved.MeshRef != "" {
		t.Fatalf("expected analysis saved without a mesh reference, got %+v", repo.saved)
	}
}

func TestAnalyzeByIDMissingPartMarksFailed(t *testing.T) {
	repo := newPartRepoFake()
	uc := NewAnalyzePartUseCase(repo, newStorageFake(), newCacheFake(), nil, nil)

	err := uc.AnalyzeByID(context.Background(), "nope")
	if err == nil {
		t.Fatalf("expected error for missing part")
	}
	if len(repo.statuses) != 2 || repo.statuses[1] != domain.PartFailed {
		t.Fatalf("expected failed status recorded, got %v", repo.statuses)
	}
	if repo.lastError == "" {
		t.Fatalf("expected failure reason persisted")
	}
}
