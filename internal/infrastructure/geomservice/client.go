// Package geomservice is the HTTP client for the external precise-geometry
// microservice. Calls run under a retry/breaker executor; exhaustion is
// surfaced to the caller, which degrades to heuristic estimation.
package geomservice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fabworks/partquote/internal/core/domain"
	"github.com/fabworks/partquote/internal/core/ports"
	"github.com/fabworks/partquote/internal/infrastructure/resilience"
)

const defaultAttemptTimeout = 120 * time.Second

type Client struct {
	baseURL        string
	httpClient     *http.Client
	executor       *resilience.Executor
	attemptTimeout time.Duration
}

type Option func(*Client)

// WithAttemptTimeout bounds a single analyze attempt. Retries run under
// fresh deadlines, so a slow service gets the full window each time.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) { c.executor = executor }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		executor:       resilience.NewExecutor(resilience.GeometryServiceConfig()),
		attemptTimeout: defaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckHealth probes the service's health endpoint once, without retries:
// health checks are themselves the signal the retry policy keys on.
func (c *Client) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTemporaryIfNeeded("geometry health", fmt.Errorf("geometry health request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return wrapTemporaryIfNeeded("geometry health", newHTTPStatusError("health", resp))
	}
	return nil
}

// Analyze submits the CAD file for precise measurement. The executor retries
// transient failures with exponential backoff and trips its breaker on a
// persistent outage.
func (c *Client) Analyze(ctx context.Context, req ports.GeometryRequest) (*domain.AnalysisResult, *domain.MeshData, error) {
	if len(req.Data) == 0 {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "geometry analyze",
			fmt.Errorf("empty file payload"))
	}

	var payload analyzeResponse
	call := func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
		return c.postAnalyze(attemptCtx, req, &payload)
	}

	err := c.executor.Execute(ctx, "geometry.analyze", call, classifyGeometryError)
	if err != nil {
		return nil, nil, wrapTemporaryIfNeeded("geometry analyze", err)
	}

	result, mesh := payload.toDomain(req.ContentHash)
	return result, mesh, nil
}

// analyzeResponse is the service's wire schema.
type analyzeResponse struct {
	VolumeCm3            float64  `json:"volume_cm3"`
	SurfaceAreaCm2       float64  `json:"surface_area_cm2"`
	ComplexityScore      int      `json:"complexity_score"`
	WidthCm              float64  `json:"part_width_cm"`
	HeightCm             float64  `json:"part_height_cm"`
	DepthCm              float64  `json:"part_depth_cm"`
	RecommendedProcesses []string `json:"recommended_processes"`
	Features             *struct {
		IsCylindrical           bool    `json:"is_cylindrical"`
		HasKeyway               bool    `json:"has_keyway"`
		HasFlatSurfaces         bool    `json:"has_flat_surfaces"`
		HasInternalHoles        bool    `json:"has_internal_holes"`
		RequiresPrecisionBoring bool    `json:"requires_precision_boring"`
		CylindricityScore       float64 `json:"cylindricity_score"`
		FlatSurfacePercentage   float64 `json:"flat_surface_percentage"`
		InternalSurfacePct      float64 `json:"internal_surface_percentage"`
	} `json:"detected_features"`
	Mesh *struct {
		Vertices      []float32   `json:"vertices"`
		Indices       []uint32    `json:"indices"`
		Normals       []float32   `json:"normals"`
		ColorLabels   []uint8     `json:"color_labels"`
		FeatureEdges  [][]float32 `json:"feature_edges"`
		TriangleCount int         `json:"triangle_count"`
	} `json:"mesh"`
}

func (r analyzeResponse) toDomain(contentHash string) (*domain.AnalysisResult, *domain.MeshData) {
	result := &domain.AnalysisResult{
		VolumeCm3:            r.VolumeCm3,
		SurfaceAreaCm2:       r.SurfaceAreaCm2,
		ComplexityScore:      clampComplexity(r.ComplexityScore),
		WidthCm:              r.WidthCm,
		HeightCm:             r.HeightCm,
		DepthCm:              r.DepthCm,
		RecommendedProcesses: r.RecommendedProcesses,
	}
	if r.Features != nil {
		result.Features = &domain.DetectedFeatures{
			IsCylindrical:           r.Features.IsCylindrical,
			HasKeyway:               r.Features.HasKeyway,
			HasFlatSurfaces:         r.Features.HasFlatSurfaces,
			HasInternalHoles:        r.Features.HasInternalHoles,
			RequiresPrecisionBoring: r.Features.RequiresPrecisionBoring,
			CylindricityScore:       r.Features.CylindricityScore,
			FlatSurfacePercentage:   r.Features.FlatSurfacePercentage,
			InternalSurfacePct:      r.Features.InternalSurfacePct,
		}
	}

	var mesh *domain.MeshData
	if r.Mesh != nil && len(r.Mesh.Vertices) > 0 {
		mesh = &domain.MeshData{
			ContentHash:   contentHash,
			Vertices:      r.Mesh.Vertices,
			Indices:       r.Mesh.Indices,
			Normals:       r.Mesh.Normals,
			ColorLabels:   r.Mesh.ColorLabels,
			FeatureEdges:  r.Mesh.FeatureEdges,
			TriangleCount: r.Mesh.TriangleCount,
		}
		if mesh.TriangleCount == 0 {
			mesh.TriangleCount = len(r.Mesh.Indices) / 3
		}
		result.TriangleCount = mesh.TriangleCount
	}
	return result, mesh
}

func clampComplexity(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
