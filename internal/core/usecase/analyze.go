package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fabworks/partquote/internal/core/domain"
	"github.com/fabworks/partquote/internal/core/geometry"
	"github.com/fabworks/partquote/internal/core/heuristic"
	"github.com/fabworks/partquote/internal/core/ports"
)

// Fallback reasons reported to the analysis observer.
const (
	fallbackMalformedMesh      = "malformed_mesh"
	fallbackServiceUnavailable = "service_unavailable"
	fallbackUnsupportedFormat  = "unsupported_format"
)

// AnalyzePartUseCase runs the geometric analysis pipeline for one uploaded
// part. STL files are measured locally; B-rep formats go to the external
// geometry service; every failure short of storage loss degrades to the
// heuristic estimator rather than failing the part.
type AnalyzePartUseCase struct {
	repo     ports.PartRepository
	storage  ports.ObjectStorage
	cache    ports.MeshCache
	geometry ports.GeometryService
	observer ports.AnalysisObserver
}

func NewAnalyzePartUseCase(
	repo ports.PartRepository,
	storage ports.ObjectStorage,
	cache ports.MeshCache,
	geomService ports.GeometryService,
	observer ports.AnalysisObserver,
) *AnalyzePartUseCase {
	return &AnalyzePartUseCase{
		repo:     repo,
		storage:  storage,
		cache:    cache,
		geometry: geomService,
		observer: observer,
	}
}

func (uc *AnalyzePartUseCase) AnalyzeByID(ctx context.Context, partID string) error {
	if err := uc.markStatus(ctx, partID, domain.PartAnalyzing, ""); err != nil {
		return fmt.Errorf("set status=analyzing: %w", err)
	}

	result, err := uc.analyzePipeline(ctx, partID)
	if err != nil {
		if failErr := uc.markFailed(ctx, partID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveAnalysis(ctx, partID, *result); err != nil {
		if failErr := uc.markFailed(ctx, partID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save analysis: %w", err)
	}

	if err := uc.markStatus(ctx, partID, domain.PartAnalyzed, ""); err != nil {
		return fmt.Errorf("set status=analyzed: %w", err)
	}
	return nil
}

func (uc *AnalyzePartUseCase) analyzePipeline(ctx context.Context, partID string) (*domain.AnalysisResult, error) {
	part, err := uc.loadPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	// An identical file analyzed before yields identical geometry; reuse it
	// unless the uploader explicitly asked for reanalysis.
	if !part.ForceReanalyze {
		if cached := uc.reuseByHash(ctx, part); cached != nil {
			return cached, nil
		}
	}

	data, err := uc.readFile(ctx, part)
	if err != nil {
		return nil, err
	}

	if isSTL(part.Filename) {
		return uc.analyzeMesh(ctx, part, data), nil
	}
	return uc.analyzeBRep(ctx, part, data), nil
}

func (uc *AnalyzePartUseCase) loadPart(ctx context.Context, partID string) (*domain.Part, error) {
	part, err := uc.repo.GetByID(ctx, partID)
	if err != nil {
		return nil, fmt.Errorf("fetch part by id: %w", err)
	}
	return part, nil
}

func (uc *AnalyzePartUseCase) reuseByHash(ctx context.Context, part *domain.Part) *domain.AnalysisResult {
	prior, err := uc.repo.FindAnalyzedByHash(ctx, part.ContentHash)
	if err != nil || prior.Analysis == nil || prior.ID == part.ID {
		return nil
	}
	result := *prior.Analysis
	uc.observe(result.Method, true)
	return &result
}

func (uc *AnalyzePartUseCase) readFile(ctx context.Context, part *domain.Part) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, part.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}
	return data, nil
}

// analyzeMesh measures a binary STL locally. A file that does not parse is
// still quoted: the heuristic estimate is used at the malformed-mesh
// confidence tier, above blind heuristics because the format itself was
// confirmed.
func (uc *AnalyzePartUseCase) analyzeMesh(ctx context.Context, part *domain.Part, data []byte) *domain.AnalysisResult {
	triangles, err := geometry.ParseBinarySTL(data)
	if err != nil {
		result := heuristic.Estimate(part.Filename, part.FileSize)
		result.Confidence = domain.ConfidenceMalformedMesh
		uc.observe(result.Method, false)
		uc.observeFallback(fallbackMalformedMesh)
		return &result
	}

	analysis, err := geometry.Analyze(triangles)
	if err != nil {
		result := heuristic.Estimate(part.Filename, part.FileSize)
		result.Confidence = domain.ConfidenceMalformedMesh
		uc.observe(result.Method, false)
		uc.observeFallback(fallbackMalformedMesh)
		return &result
	}

	features := geometry.DetectFeatures(triangles, analysis.Bounds)
	size := analysis.Bounds.Size()

	result := &domain.AnalysisResult{
		VolumeCm3:            analysis.VolumeCm3,
		SurfaceAreaCm2:       analysis.SurfaceAreaCm2,
		ComplexityScore:      analysis.Complexity,
		Confidence:           domain.ConfidenceMesh,
		Method:               domain.MethodMeshAnalysis,
		WidthCm:              size.X / 10.0,
		HeightCm:             size.Y / 10.0,
		DepthCm:              size.Z / 10.0,
		TriangleCount:        analysis.TriangleCount,
		Features:             &features,
		RecommendedProcesses: geometry.RecommendProcesses(features, analysis.Complexity),
	}
	result.MeshRef = uc.cacheMesh(ctx, part, func() *domain.MeshData {
		return geometry.BuildMeshData(part.ContentHash, triangles)
	})
	uc.observe(result.Method, false)
	return result
}

// analyzeBRep submits a non-mesh CAD file to the external geometry service.
// Service exhaustion degrades to the heuristic tier; a quote is always
// produced.
func (uc *AnalyzePartUseCase) analyzeBRep(ctx context.Context, part *domain.Part, data []byte) *domain.AnalysisResult {
	if uc.geometry == nil {
		result := heuristic.Estimate(part.Filename, part.FileSize)
		uc.observe(result.Method, false)
		uc.observeFallback(fallbackUnsupportedFormat)
		return &result
	}

	analysis, mesh, err := uc.geometry.Analyze(ctx, ports.GeometryRequest{
		Filename:    part.Filename,
		ContentHash: part.ContentHash,
		Data:        data,
		Material:    part.Material,
		Tolerance:   part.Tolerance,
	})
	if err != nil {
		result := heuristic.Estimate(part.Filename, part.FileSize)
		uc.observe(result.Method, false)
		uc.observeFallback(fallbackServiceUnavailable)
		return &result
	}

	result := *analysis
	result.Confidence = domain.ConfidenceExact
	result.Method = domain.MethodGeometryService
	if mesh != nil {
		mesh.ContentHash = part.ContentHash
		result.MeshRef = uc.cacheMesh(ctx, part, func() *domain.MeshData { return mesh })
	}
	uc.observe(result.Method, false)
	return &result
}

// cacheMesh stores derived mesh data under the part's content hash. An
// existing entry is kept as-is unless reanalysis was forced; the write is an
// idempotent upsert either way. Cache failures never fail the analysis.
func (uc *AnalyzePartUseCase) cacheMesh(ctx context.Context, part *domain.Part, build func() *domain.MeshData) string {
	if uc.cache == nil {
		return ""
	}
	if !part.ForceReanalyze {
		cached, err := uc.cache.Get(ctx, part.ContentHash)
		if err == nil && cached != nil {
			return cached.ContentHash
		}
	}
	mesh := build()
	if mesh == nil || mesh.IsEmpty() {
		return ""
	}
	if err := uc.cache.Put(ctx, mesh); err != nil {
		return ""
	}
	return mesh.ContentHash
}

func (uc *AnalyzePartUseCase) markStatus(ctx context.Context, partID string, status domain.PartStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, partID, status, errMessage)
}

func (uc *AnalyzePartUseCase) markFailed(ctx context.Context, partID string, analyzeErr error) error {
	if analyzeErr == nil {
		return nil
	}
	return uc.markStatus(ctx, partID, domain.PartFailed, analyzeErr.Error())
}

func (uc *AnalyzePartUseCase) observe(method domain.AnalysisMethod, cacheHit bool) {
	if uc.observer != nil {
		uc.observer.ObserveAnalysis(method, cacheHit)
	}
}

func (uc *AnalyzePartUseCase) observeFallback(reason string) {
	if uc.observer != nil {
		uc.observer.ObserveFallback(reason)
	}
}

func isSTL(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".stl")
}
