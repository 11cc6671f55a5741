package kernel

import "fmt"

// Mesh is a struct-of-arrays triangle mesh. All arrays are flat:
// Vertices and Normals have 3 floats per vertex, Tangents 4 (xyz plus a
// handedness sign), UVs 2, Indices 3 per triangle and MaterialIDs one per
// triangle. Optional channels are either empty or fully populated.
type Mesh struct {
	Vertices    []float32 `json:"vertices"`              // [x0,y0,z0, x1,y1,z1, ...]
	Normals     []float32 `json:"normals"`               // [nx0,ny0,nz0, ...]
	Tangents    []float32 `json:"tangents,omitempty"`    // [tx0,ty0,tz0,w0, ...]
	UVs         []float32 `json:"uvs,omitempty"`         // [u0,v0, ...]
	Indices     []uint32  `json:"indices"`               // [i0,i1,i2, ...] triangles
	MaterialIDs []int32   `json:"materialIds,omitempty"` // one per triangle
	PartName    string    `json:"partName"`              // which assembly part this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// HasUVs reports whether the UV channel is populated.
func (m *Mesh) HasUVs() bool { return len(m.UVs) > 0 }

// HasTangents reports whether the tangent channel is populated.
func (m *Mesh) HasTangents() bool { return len(m.Tangents) > 0 }

// Position returns vertex i's position.
func (m *Mesh) Position(i uint32) [3]float64 {
	return [3]float64{float64(m.Vertices[i*3]), float64(m.Vertices[i*3+1]), float64(m.Vertices[i*3+2])}
}

// Normal returns vertex i's normal.
func (m *Mesh) Normal(i uint32) [3]float64 {
	return [3]float64{float64(m.Normals[i*3]), float64(m.Normals[i*3+1]), float64(m.Normals[i*3+2])}
}

// UV returns vertex i's texture coordinate.
func (m *Mesh) UV(i uint32) [2]float64 {
	return [2]float64{float64(m.UVs[i*2]), float64(m.UVs[i*2+1])}
}

// Tangent returns vertex i's tangent and handedness sign.
func (m *Mesh) Tangent(i uint32) ([3]float64, float64) {
	t := m.Tangents[i*4 : i*4+4]
	return [3]float64{float64(t[0]), float64(t[1]), float64(t[2])}, float64(t[3])
}

// Triangle returns the vertex indices of triangle t.
func (m *Mesh) Triangle(t int) [3]uint32 {
	return [3]uint32{m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]}
}

// MaterialID returns the material of triangle t, or 0 when the mesh carries
// no per-triangle materials.
func (m *Mesh) MaterialID(t int) int32 {
	if len(m.MaterialIDs) == 0 {
		return 0
	}
	return m.MaterialIDs[t]
}

// Validate checks the array length invariants and index bounds.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("kernel: vertex array length %d is not a multiple of 3", len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("kernel: index array length %d is not a multiple of 3", len(m.Indices))
	}
	nv := m.VertexCount()
	if len(m.Normals) != 0 && len(m.Normals) != nv*3 {
		return fmt.Errorf("kernel: %d normals for %d vertices", len(m.Normals)/3, nv)
	}
	if len(m.UVs) != 0 && len(m.UVs) != nv*2 {
		return fmt.Errorf("kernel: %d uvs for %d vertices", len(m.UVs)/2, nv)
	}
	if len(m.Tangents) != 0 && len(m.Tangents) != nv*4 {
		return fmt.Errorf("kernel: %d tangents for %d vertices", len(m.Tangents)/4, nv)
	}
	if len(m.MaterialIDs) != 0 && len(m.MaterialIDs) != m.TriangleCount() {
		return fmt.Errorf("kernel: %d material ids for %d triangles", len(m.MaterialIDs), m.TriangleCount())
	}
	for i, idx := range m.Indices {
		if int(idx) >= nv {
			return fmt.Errorf("kernel: index %d at position %d out of range (%d vertices)", idx, i, nv)
		}
	}
	return nil
}
