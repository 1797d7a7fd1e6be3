package geometry

import (
	"math"
	"testing"

	"github.com/fabworks/partquote/internal/core/domain"
)

func TestAnalyzeClosedCube(t *testing.T) {
	// 10 mm cube: 1000 mm3 = 1 cm3, 600 mm2 = 6 cm2.
	result, err := Analyze(cubeTriangles(10))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if math.Abs(result.VolumeCm3-1.0) > 1e-9 {
		t.Fatalf("expected volume 1 cm3, got %f", result.VolumeCm3)
	}
	if math.Abs(result.SurfaceAreaCm2-6.0) > 1e-9 {
		t.Fatalf("expected surface area 6 cm2, got %f", result.SurfaceAreaCm2)
	}
	size := result.Bounds.Size()
	if size.X != 10 || size.Y != 10 || size.Z != 10 {
		t.Fatalf("expected 10x10x10 bounds, got %+v", size)
	}
	if result.TriangleCount != 12 {
		t.Fatalf("expected 12 triangles, got %d", result.TriangleCount)
	}
	if result.Complexity < 1 || result.Complexity > 3 {
		t.Fatalf("expected low complexity for a cube, got %d", result.Complexity)
	}
}

func TestAnalyzeScalingInvariance(t *testing.T) {
	small, err := Analyze(cubeTriangles(10))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	large, err := Analyze(cubeTriangles(20))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if math.Abs(large.VolumeCm3-8*small.VolumeCm3) > 1e-9 {
		t.Fatalf("doubling coordinates should scale volume 8x: %f vs %f", large.VolumeCm3, small.VolumeCm3)
	}
	if math.Abs(large.SurfaceAreaCm2-4*small.SurfaceAreaCm2) > 1e-9 {
		t.Fatalf("doubling coordinates should scale area 4x: %f vs %f", large.SurfaceAreaCm2, small.SurfaceAreaCm2)
	}
}

func TestAnalyzeNonNegativeForInvertedOrientation(t *testing.T) {
	// Swapping two vertices per triangle flips the signed volume; the
	// absolute value keeps the report non-negative.
	inverted := cubeTriangles(10)
	for i := range inverted {
		inverted[i].V2, inverted[i].V3 = inverted[i].V3, inverted[i].V2
	}

	result, err := Analyze(inverted)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.VolumeCm3 < 0 || result.SurfaceAreaCm2 < 0 {
		t.Fatalf("expected non-negative measures, got volume=%f area=%f", result.VolumeCm3, result.SurfaceAreaCm2)
	}
	if math.Abs(result.VolumeCm3-1.0) > 1e-9 {
		t.Fatalf("expected volume 1 cm3 regardless of orientation, got %f", result.VolumeCm3)
	}
}

func TestAnalyzeEmptyMesh(t *testing.T) {
	_, err := Analyze(nil)
	if !domain.IsKind(err, domain.ErrMalformedMesh) {
		t.Fatalf("expected ErrMalformedMesh for empty mesh, got %v", err)
	}
}

func TestComplexityScoreIncreasesWithElongation(t *testing.T) {
	cube, err := Analyze(cubeTriangles(10))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// Stretch the cube 10x along Z to raise the aspect-ratio term.
	stretched := cubeTriangles(10)
	for i := range stretched {
		stretched[i].V1.Z *= 10
		stretched[i].V2.Z *= 10
		stretched[i].V3.Z *= 10
	}
	bar, err := Analyze(stretched)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if bar.Complexity <= cube.Complexity {
		t.Fatalf("expected elongated part to score higher: cube=%d bar=%d", cube.Complexity, bar.Complexity)
	}
}
