package geometry

import "github.com/fabworks/partquote/internal/core/domain"

// BuildMeshData flattens a triangle list into the indexed array form the
// mesh cache stores. Exactly coincident vertices are merged; per-vertex
// normals are the normalized sum of the adjacent face normals.
func BuildMeshData(contentHash string, triangles []domain.Triangle) *domain.MeshData {
	type key [3]float32

	indexOf := make(map[key]uint32, len(triangles)*2)
	var vertices []float32
	var normals []domain.Vector3
	indices := make([]uint32, 0, len(triangles)*3)

	intern := func(v domain.Vector3, faceNormal domain.Vector3) uint32 {
		k := key{float32(v.X), float32(v.Y), float32(v.Z)}
		if idx, ok := indexOf[k]; ok {
			normals[idx] = normals[idx].Add(faceNormal)
			return idx
		}
		idx := uint32(len(vertices) / 3)
		indexOf[k] = idx
		vertices = append(vertices, k[0], k[1], k[2])
		normals = append(normals, faceNormal)
		return idx
	}

	for _, t := range triangles {
		n := t.Normal.Normalize()
		indices = append(indices, intern(t.V1, n), intern(t.V2, n), intern(t.V3, n))
	}

	flatNormals := make([]float32, 0, len(normals)*3)
	for _, n := range normals {
		unit := n.Normalize()
		flatNormals = append(flatNormals, float32(unit.X), float32(unit.Y), float32(unit.Z))
	}

	return &domain.MeshData{
		ContentHash:   contentHash,
		Vertices:      vertices,
		Indices:       indices,
		Normals:       flatNormals,
		TriangleCount: len(triangles),
	}
}
