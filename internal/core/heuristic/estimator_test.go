package heuristic

import (
	"testing"

	"github.com/fabworks/partquote/internal/core/domain"
	"github.com/fabworks/partquote/internal/core/geometry"
)

func TestEstimateFloorsTinyFiles(t *testing.T) {
	result := Estimate("widget.stl", 128)

	if result.VolumeCm3 != 10 {
		t.Fatalf("expected 10 cm3 volume floor, got %f", result.VolumeCm3)
	}
	if result.SurfaceAreaCm2 != 60 {
		t.Fatalf("expected cube-surface heuristic 6x volume, got %f", result.SurfaceAreaCm2)
	}
	if result.Method != domain.MethodHeuristicFallback {
		t.Fatalf("expected heuristic method tag, got %q", result.Method)
	}
}

func TestEstimateConfidenceStaysBelowGeometryTiers(t *testing.T) {
	result := Estimate("part.step", 4<<20)

	if result.Confidence > 0.75 {
		t.Fatalf("heuristic confidence must stay below geometry tiers, got %f", result.Confidence)
	}
	if result.Confidence >= domain.ConfidenceMesh {
		t.Fatalf("heuristic confidence %f must rank below mesh analysis %f",
			result.Confidence, domain.ConfidenceMesh)
	}
}

func TestEstimateVolumeScalesWithFileSize(t *testing.T) {
	small := Estimate("part.stl", 1<<20)
	large := Estimate("part.stl", 4<<20)

	if large.VolumeCm3 <= small.VolumeCm3 {
		t.Fatalf("expected larger file to estimate more volume: %f vs %f",
			small.VolumeCm3, large.VolumeCm3)
	}
}

func TestEstimateComplexityKeywords(t *testing.T) {
	simple := Estimate("simple_bracket.stl", 1<<20)
	complexPart := Estimate("turbine_assembly.stl", 1<<20)

	if simple.ComplexityScore != 3 {
		t.Fatalf("expected simple keywords to lower complexity to 3, got %d", simple.ComplexityScore)
	}
	if complexPart.ComplexityScore != 7 {
		t.Fatalf("expected complex keywords to raise complexity to 7, got %d", complexPart.ComplexityScore)
	}
}

func TestEstimateFeatureKeywords(t *testing.T) {
	result := Estimate("drive_shaft_keyway.stl", 1<<20)

	if result.Features == nil {
		t.Fatalf("expected detected features")
	}
	if !result.Features.IsCylindrical {
		t.Fatalf("expected shaft keyword to infer a cylindrical part")
	}
	if !result.Features.HasKeyway {
		t.Fatalf("expected keyway keyword to infer a keyway")
	}
	if len(result.RecommendedProcesses) == 0 {
		t.Fatalf("recommended processes must never be empty")
	}
	if result.RecommendedProcesses[0] != geometry.ProcessTurning {
		t.Fatalf("expected turning first for a cylindrical part, got %v", result.RecommendedProcesses)
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	a := Estimate("housing.step", 3<<20)
	b := Estimate("housing.step", 3<<20)

	if a.VolumeCm3 != b.VolumeCm3 || a.WidthCm != b.WidthCm || a.ComplexityScore != b.ComplexityScore {
		t.Fatalf("estimator must be deterministic: %+v vs %+v", a, b)
	}
}
