package domain

// MeshData is the persistable form of an analyzed triangle mesh.
// All arrays are flat: Vertices and Normals carry 3 floats per vertex,
// Indices carries 3 entries per triangle. Identity is the content hash of
// the source file bytes, not of the mesh itself, so byte-different files
// that tessellate identically are cached separately.
type MeshData struct {
	ContentHash   string      `json:"content_hash"`
	Vertices      []float32   `json:"vertices"`
	Indices       []uint32    `json:"indices"`
	Normals       []float32   `json:"normals"`
	ColorLabels   []uint8     `json:"color_labels,omitempty"`
	FeatureEdges  [][]float32 `json:"feature_edges,omitempty"`
	TriangleCount int         `json:"triangle_count"`
}

func (m *MeshData) VertexCount() int {
	return len(m.Vertices) / 3
}

func (m *MeshData) IsEmpty() bool {
	return len(m.Vertices) == 0
}
