// Package geometry implements the mesh analysis core: binary STL decoding,
// volume/area/bounding measurements, the complexity score and heuristic
// feature detection. Everything here is a pure transform over triangle
// lists; nothing touches the network or storage.
package geometry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/fabworks/partquote/internal/core/domain"
)

const (
	stlHeaderSize   = 80
	stlCountSize    = 4
	stlTriangleSize = 50 // 12 float32 values + 2 padding bytes
)

// ParseBinarySTL decodes a binary STL file into a triangle list. The layout
// is an 80-byte header, a little-endian uint32 triangle count, then one
// 50-byte record per triangle: normal, three vertices, two attribute bytes.
// A byte length inconsistent with the declared count returns
// domain.ErrMalformedMesh so callers can fall back to heuristic estimation.
func ParseBinarySTL(data []byte) ([]domain.Triangle, error) {
	if len(data) < stlHeaderSize+stlCountSize {
		return nil, domain.WrapError(domain.ErrMalformedMesh, "parse stl",
			fmt.Errorf("file too short: %d bytes", len(data)))
	}

	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	expected := stlHeaderSize + stlCountSize + int(count)*stlTriangleSize
	if len(data) < expected {
		if looksLikeASCIISTL(data) {
			return nil, domain.WrapError(domain.ErrMalformedMesh, "parse stl",
				fmt.Errorf("ascii stl is not supported"))
		}
		return nil, domain.WrapError(domain.ErrMalformedMesh, "parse stl",
			fmt.Errorf("truncated file: %d bytes, %d triangles declared", len(data), count))
	}

	triangles := make([]domain.Triangle, 0, count)
	offset := stlHeaderSize + stlCountSize
	for i := uint32(0); i < count; i++ {
		record := data[offset : offset+stlTriangleSize]
		triangles = append(triangles, domain.Triangle{
			Normal: readVector(record, 0),
			V1:     readVector(record, 12),
			V2:     readVector(record, 24),
			V3:     readVector(record, 36),
		})
		offset += stlTriangleSize
	}
	return triangles, nil
}

func readVector(record []byte, at int) domain.Vector3 {
	return domain.Vector3{
		X: float64(math.Float32frombits(binary.LittleEndian.Uint32(record[at:]))),
		Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(record[at+4:]))),
		Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(record[at+8:]))),
	}
}

// ASCII STL files start with "solid" and decode to absurd binary triangle
// counts, so a shortfall plus this prefix means the wrong flavor was sent.
func looksLikeASCIISTL(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid"))
}
