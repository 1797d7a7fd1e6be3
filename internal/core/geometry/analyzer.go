package geometry

import (
	"fmt"
	"math"

	"github.com/fabworks/partquote/internal/core/domain"
)

// Source meshes are in millimetres; results are reported in centimetre
// units.
const (
	mm3PerCm3 = 1000.0
	mm2PerCm2 = 100.0
)

// Analysis is the raw measurement of a triangle list.
type Analysis struct {
	VolumeCm3      float64
	SurfaceAreaCm2 float64
	Bounds         domain.BoundingBox
	Complexity     int
	TriangleCount  int
}

// Analyze measures volume, surface area, bounding box and the complexity
// score of a mesh. The volume is only correct for closed, consistently
// outward-oriented manifolds; open or inverted meshes under- or over-report
// and that approximation is accepted, communicated through the confidence
// tier rather than repaired.
func Analyze(triangles []domain.Triangle) (Analysis, error) {
	if len(triangles) == 0 {
		return Analysis{}, domain.WrapError(domain.ErrMalformedMesh, "analyze mesh",
			fmt.Errorf("no triangles"))
	}

	bounds := domain.NewBoundingBox()
	var signedVolume, area float64
	for _, t := range triangles {
		signedVolume += t.V1.Dot(t.V2.Cross(t.V3)) / 6.0
		area += t.Area()
		bounds.Extend(t.V1)
		bounds.Extend(t.V2)
		bounds.Extend(t.V3)
	}

	return Analysis{
		VolumeCm3:      math.Abs(signedVolume) / mm3PerCm3,
		SurfaceAreaCm2: area / mm2PerCm2,
		Bounds:         bounds,
		Complexity:     complexityScore(triangles, bounds),
		TriangleCount:  len(triangles),
	}, nil
}

// complexityScore is a coarse 1-10 proxy for machining difficulty:
// triangle count, normal direction variety, and bounding-box elongation.
func complexityScore(triangles []domain.Triangle, bounds domain.BoundingBox) int {
	base := 2.0 * math.Log10(float64(len(triangles)))

	buckets := make(map[[3]float64]struct{}, 64)
	for _, t := range triangles {
		n := t.Normal.Normalize()
		key := [3]float64{roundTenth(n.X), roundTenth(n.Y), roundTenth(n.Z)}
		buckets[key] = struct{}{}
	}
	normalTerm := math.Min(3.0, math.Log10(float64(len(buckets))+1))

	size := bounds.Size()
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	minDim := math.Min(size.X, math.Min(size.Y, size.Z))
	aspectTerm := 0.0
	if minDim > 0 {
		aspectTerm = math.Min(2.0, (maxDim/minDim-1.0)*0.5)
	}

	score := int(math.Round(base + normalTerm + aspectTerm))
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
