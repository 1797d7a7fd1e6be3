package domain

import "math"

// Vector3 is a point or direction in 3D space.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (a Vector3) Add(b Vector3) Vector3 {
	return Vector3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

func (a Vector3) Sub(b Vector3) Vector3 {
	return Vector3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

func (a Vector3) Scale(s float64) Vector3 {
	return Vector3{X: s * a.X, Y: s * a.Y, Z: s * a.Z}
}

func (a Vector3) Dot(b Vector3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a Vector3) Cross(b Vector3) Vector3 {
	return Vector3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func (a Vector3) Length() float64 {
	return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
}

// Normalize returns the unit-length form of a, or a zero vector when the
// input has no magnitude.
func (a Vector3) Normalize() Vector3 {
	mag := a.Length()
	if mag == 0 {
		return Vector3{}
	}
	return Vector3{X: a.X / mag, Y: a.Y / mag, Z: a.Z / mag}
}

func (a Vector3) Min(b Vector3) Vector3 {
	return Vector3{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func (a Vector3) Max(b Vector3) Vector3 {
	return Vector3{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// Triangle is one mesh facet: a face normal and three ordered vertices.
// Triangles are immutable once parsed and never persisted directly; only
// the derived MeshData is.
type Triangle struct {
	Normal Vector3
	V1     Vector3
	V2     Vector3
	V3     Vector3
}

// Area returns the facet area as half the magnitude of the edge cross
// product.
func (t Triangle) Area() float64 {
	edge1 := t.V2.Sub(t.V1)
	edge2 := t.V3.Sub(t.V1)
	return edge1.Cross(edge2).Length() / 2.0
}

// Centroid returns the average of the three vertices.
func (t Triangle) Centroid() Vector3 {
	return Vector3{
		X: (t.V1.X + t.V2.X + t.V3.X) / 3.0,
		Y: (t.V1.Y + t.V2.Y + t.V3.Y) / 3.0,
		Z: (t.V1.Z + t.V2.Z + t.V3.Z) / 3.0,
	}
}

// BoundingBox is the axis-aligned extent of a triangle set. It is derived
// per analysis and never mutated after that pass.
type BoundingBox struct {
	Min Vector3 `json:"min"`
	Max Vector3 `json:"max"`
}

// NewBoundingBox returns an empty box that any Extend call will collapse
// onto the first point.
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: Vector3{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64},
		Max: Vector3{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64},
	}
}

func (b *BoundingBox) Extend(p Vector3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

func (b BoundingBox) Size() Vector3 {
	return b.Max.Sub(b.Min)
}

func (b BoundingBox) Center() Vector3 {
	return Vector3{
		X: (b.Min.X + b.Max.X) / 2.0,
		Y: (b.Min.Y + b.Max.Y) / 2.0,
		Z: (b.Min.Z + b.Max.Z) / 2.0,
	}
}
