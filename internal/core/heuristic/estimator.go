// Package heuristic produces low-confidence analysis estimates from file
// name and size alone, for when no precise geometry is obtainable. The
// estimator is a deterministic pure function: identical inputs always yield
// identical estimates.
package heuristic

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/fabworks/partquote/internal/core/domain"
	"github.com/fabworks/partquote/internal/core/geometry"
)

// minVolumeCm3 floors degenerate estimates so downstream cost-per-volume
// math never divides by zero.
const minVolumeCm3 = 10.0

// Kilobytes-to-cm3 multipliers by file extension. Tessellated formats carry
// more bytes per unit of geometry than B-rep formats.
var volumePerKB = map[string]float64{
	".stl":    0.10,
	".step":   0.30,
	".stp":    0.30,
	".iges":   0.25,
	".igs":    0.25,
	".sldprt": 0.15,
}

const defaultVolumePerKB = 0.20

var (
	simpleKeywords      = []string{"simple", "bracket", "plate", "washer", "spacer"}
	complexKeywords     = []string{"complex", "assembly", "housing", "manifold", "impeller"}
	cylindricalKeywords = []string{"shaft", "cylinder", "rod", "pin", "axle", "bushing", "spindle"}
	keywayKeywords      = []string{"keyway", "keyed", "splined"}
	flatKeywords        = []string{"plate", "bracket", "flat", "panel", "sheet"}
)

// Estimate builds an AnalysisResult from (file name, file size) only.
// Confidence is the lowest tier; callers that at least confirmed the format
// (e.g. a malformed but recognizable mesh) may raise it to
// domain.ConfidenceMalformedMesh, never above.
func Estimate(filename string, fileSize int64) domain.AnalysisResult {
	name := strings.ToLower(filename)
	ext := filepath.Ext(name)

	multiplier, ok := volumePerKB[ext]
	if !ok {
		multiplier = defaultVolumePerKB
	}
	sizeKB := float64(fileSize) / 1024.0
	volume := math.Max(sizeKB*multiplier, minVolumeCm3)

	// Cube-surface heuristic: no shape information, so assume the worst
	// reasonable area-to-volume ratio of a blocky part.
	surface := 6.0 * volume

	features := inferFeatures(name)
	complexity := inferComplexity(name, fileSize)

	// Deterministic cube-root dimension estimate.
	side := math.Cbrt(volume)

	return domain.AnalysisResult{
		VolumeCm3:            volume,
		SurfaceAreaCm2:       surface,
		ComplexityScore:      complexity,
		Confidence:           domain.ConfidenceHeuristic,
		Method:               domain.MethodHeuristicFallback,
		WidthCm:              side,
		HeightCm:             side,
		DepthCm:              side,
		Features:             &features,
		RecommendedProcesses: geometry.RecommendProcesses(features, complexity),
	}
}

func inferComplexity(name string, fileSize int64) int {
	complexity := 5
	if containsAny(name, simpleKeywords) {
		complexity -= 2
	}
	if containsAny(name, complexKeywords) {
		complexity += 2
	}
	switch {
	case fileSize > 2<<20:
		complexity++
	case fileSize < 100<<10:
		complexity--
	}
	if complexity < 1 {
		return 1
	}
	if complexity > 10 {
		return 10
	}
	return complexity
}

func inferFeatures(name string) domain.DetectedFeatures {
	var f domain.DetectedFeatures
	if containsAny(name, cylindricalKeywords) {
		f.IsCylindrical = true
		f.CylindricityScore = 0.7
	}
	if containsAny(name, keywayKeywords) {
		f.HasKeyway = true
	}
	if containsAny(name, flatKeywords) {
		f.HasFlatSurfaces = true
		f.FlatSurfacePercentage = 0.5
	}
	return f
}

func containsAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
