package domain

// AnalysisMethod tags which path produced an AnalysisResult.
type AnalysisMethod string

const (
	// MethodMeshAnalysis means the binary mesh was parsed and measured
	// locally.
	MethodMeshAnalysis AnalysisMethod = "mesh_analysis"
	// MethodGeometryService means the external precise-geometry service
	// produced the numbers.
	MethodGeometryService AnalysisMethod = "geometry_service"
	// MethodHeuristicFallback means only file name and size were available.
	MethodHeuristicFallback AnalysisMethod = "heuristic_fallback"
)

// Confidence tiers are ordinal quality markers, not calibrated
// probabilities. Geometry-derived results always rank above heuristics so
// downstream pricing can be audited.
const (
	ConfidenceExact         = 0.98
	ConfidenceMesh          = 0.90
	ConfidenceMalformedMesh = 0.50
	ConfidenceHeuristic     = 0.30
)

// DetectedFeatures holds the heuristic shape classification of a mesh.
// Recomputed on every analysis, never cached independently of MeshData.
type DetectedFeatures struct {
	IsCylindrical           bool    `json:"is_cylindrical"`
	HasKeyway               bool    `json:"has_keyway"`
	HasFlatSurfaces         bool    `json:"has_flat_surfaces"`
	HasInternalHoles        bool    `json:"has_internal_holes"`
	RequiresPrecisionBoring bool    `json:"requires_precision_boring"`
	CylindricityScore       float64 `json:"cylindricity_score"`
	FlatSurfacePercentage   float64 `json:"flat_surface_percentage"`
	InternalSurfacePct      float64 `json:"internal_surface_percentage"`
}

// AnalysisResult is the unified output of every analysis path.
type AnalysisResult struct {
	VolumeCm3            float64           `json:"volume_cm3"`
	SurfaceAreaCm2       float64           `json:"surface_area_cm2"`
	ComplexityScore      int               `json:"complexity_score"`
	Confidence           float64           `json:"confidence"`
	Method               AnalysisMethod    `json:"method"`
	WidthCm              float64           `json:"part_width_cm,omitempty"`
	HeightCm             float64           `json:"part_height_cm,omitempty"`
	DepthCm              float64           `json:"part_depth_cm,omitempty"`
	TriangleCount        int               `json:"triangle_count,omitempty"`
	Features             *DetectedFeatures `json:"detected_features,omitempty"`
	RecommendedProcesses []string          `json:"recommended_processes,omitempty"`
	MeshRef              string            `json:"mesh_reference,omitempty"`
}
