package geometry

import (
	"math"

	"github.com/fabworks/partquote/internal/core/domain"
)

// Detection thresholds tuned against typical machined-part tessellations.
const (
	radialNormalThreshold   = 0.7
	cylindricalMaxRatio     = 1.3
	cylindricalMinRadial    = 0.4
	axisAlignedThreshold    = 0.9
	keywayWallFraction      = 0.15
	keywayFloorFraction     = 0.05
	flatNormalThreshold     = 0.95
	flatAreaFraction        = 0.20
	internalAreaFraction    = 0.25
	precisionBoringFraction = 0.35
)

// Process names the recommendation rule emits. These are catalog keys, so
// the seeded pricing catalog must carry entries under the same names.
const (
	ProcessTurning = "cnc-turning"
	ProcessMilling = "cnc-milling"
	ProcessKeyway  = "keyway-broaching"
)

// DetectFeatures classifies a mesh from normal-vector statistics. All four
// detectors share the same triangle list and area helper; none of them
// mutate it.
func DetectFeatures(triangles []domain.Triangle, bounds domain.BoundingBox) domain.DetectedFeatures {
	var f domain.DetectedFeatures
	if len(triangles) == 0 {
		return f
	}

	f.IsCylindrical, f.CylindricityScore = detectCylindrical(triangles, bounds)
	f.HasKeyway = detectKeyway(triangles)
	f.HasFlatSurfaces, f.FlatSurfacePercentage = detectFlatSurfaces(triangles)
	f.HasInternalHoles, f.RequiresPrecisionBoring, f.InternalSurfacePct = detectInternalHoles(triangles, bounds)
	return f
}

// detectCylindrical combines bounding-box squareness with the fraction of
// normals pointing radially (dominant X/Y component). A turned part has two
// near-equal cross dimensions and a wall of radial normals.
func detectCylindrical(triangles []domain.Triangle, bounds domain.BoundingBox) (bool, float64) {
	size := bounds.Size()
	dims := []float64{size.X, size.Y, size.Z}

	cylindricalScore := math.MaxFloat64
	pairs := [3][2]int{{0, 1}, {0, 2}, {1, 2}}
	for _, p := range pairs {
		a, b := dims[p[0]], dims[p[1]]
		if a <= 0 || b <= 0 {
			continue
		}
		ratio := math.Max(a, b) / math.Min(a, b)
		cylindricalScore = math.Min(cylindricalScore, ratio)
	}
	if cylindricalScore == math.MaxFloat64 {
		return false, 0
	}

	radial := 0
	for _, t := range triangles {
		n := t.Normal.Normalize()
		if math.Sqrt(n.X*n.X+n.Y*n.Y) > radialNormalThreshold {
			radial++
		}
	}
	radialFraction := float64(radial) / float64(len(triangles))

	if cylindricalScore < cylindricalMaxRatio && radialFraction > cylindricalMinRadial {
		return true, clamp01(1.0 - (cylindricalScore - 1.0))
	}
	return false, 0
}

// detectKeyway looks for the signature of a broached slot: a meaningful
// share of wall area (X/Y aligned normals) together with floor area
// (Z aligned normals).
func detectKeyway(triangles []domain.Triangle) bool {
	var total, floors, walls float64
	for _, t := range triangles {
		area := t.Area()
		total += area
		n := t.Normal.Normalize()
		switch {
		case math.Abs(n.Z) > axisAlignedThreshold:
			floors += area
		case math.Abs(n.X) > axisAlignedThreshold || math.Abs(n.Y) > axisAlignedThreshold:
			walls += area
		}
	}
	if total == 0 {
		return false
	}
	return walls/total > keywayWallFraction && floors/total > keywayFloorFraction
}

func detectFlatSurfaces(triangles []domain.Triangle) (bool, float64) {
	var total, flat float64
	for _, t := range triangles {
		area := t.Area()
		total += area
		n := t.Normal.Normalize()
		axisMax := math.Max(math.Abs(n.X), math.Max(math.Abs(n.Y), math.Abs(n.Z)))
		if axisMax > flatNormalThreshold {
			flat += area
		}
	}
	if total == 0 {
		return false, 0
	}
	fraction := flat / total
	return fraction > flatAreaFraction, fraction
}

// detectInternalHoles sums the area whose outward normal points back toward
// the part centroid. Bores and pockets present inward-facing walls.
func detectInternalHoles(triangles []domain.Triangle, bounds domain.BoundingBox) (holes, boring bool, fraction float64) {
	center := bounds.Center()
	var total, inward float64
	for _, t := range triangles {
		area := t.Area()
		total += area
		toCenter := center.Sub(t.Centroid())
		if t.Normal.Dot(toCenter) > 0 {
			inward += area
		}
	}
	if total == 0 {
		return false, false, 0
	}
	fraction = inward / total
	return fraction > internalAreaFraction, fraction > precisionBoringFraction, fraction
}

// RecommendProcesses maps detected features to manufacturing process names.
// The list is never empty: milling is the default when no rule fires.
func RecommendProcesses(f domain.DetectedFeatures, complexity int) []string {
	var processes []string
	if f.IsCylindrical {
		processes = append(processes, ProcessTurning)
		simple := complexity <= 3 && !f.HasKeyway && !f.HasInternalHoles && !f.HasFlatSurfaces
		if !simple {
			processes = append(processes, ProcessMilling)
		}
	} else {
		processes = append(processes, ProcessMilling)
	}
	if f.HasKeyway {
		processes = append(processes, ProcessKeyway)
	}
	if len(processes) == 0 {
		processes = append(processes, ProcessMilling)
	}
	return processes
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
