package mesh

import (
	"fmt"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/kernel"
)

// Layout selects how attributes are laid out when converting to kernel.Mesh.
type Layout int

const (
	PerVertex Layout = iota // one kernel vertex per mesh vertex
	PerWedge                // one kernel vertex per triangle corner
)

// FromKernel converts a struct-of-arrays mesh into an array-of-structs mesh,
// one vertex per kernel vertex. UVs, when present, land in Attr[0:2].
func FromKernel(km *kernel.Mesh) (*Mesh, error) {
	if err := km.Validate(); err != nil {
		return nil, fmt.Errorf("mesh: from kernel: %w", err)
	}
	nv := km.VertexCount()
	m := &Mesh{
		Vertices: make([]Vertex, nv),
		Indices:  append([]uint32(nil), km.Indices...),
	}
	m.Kind.Normal = len(km.Normals) > 0
	if km.HasUVs() {
		m.Kind.Attributes = 2
	}
	for i := 0; i < nv; i++ {
		v := &m.Vertices[i]
		v.Pos = geom.Vec3(km.Position(uint32(i)))
		if m.Kind.Normal {
			v.Normal = geom.Vec3(km.Normal(uint32(i)))
		}
		if km.HasUVs() {
			uv := km.UV(uint32(i))
			v.Attr[0], v.Attr[1] = uv[0], uv[1]
		}
	}
	return m, nil
}

// ToKernel converts the mesh to struct-of-arrays form. Normals are written
// when the kind carries them; Attr[0:2] become UVs when the kind carries at
// least two attributes.
func (m *Mesh) ToKernel(layout Layout) *kernel.Mesh {
	km := &kernel.Mesh{}
	hasUV := m.Kind.Attributes >= 2
	emit := func(v *Vertex) {
		km.Vertices = append(km.Vertices, float32(v.Pos[0]), float32(v.Pos[1]), float32(v.Pos[2]))
		if m.Kind.Normal {
			km.Normals = append(km.Normals, float32(v.Normal[0]), float32(v.Normal[1]), float32(v.Normal[2]))
		}
		if hasUV {
			km.UVs = append(km.UVs, float32(v.Attr[0]), float32(v.Attr[1]))
		}
	}

	switch layout {
	case PerWedge:
		km.Vertices = make([]float32, 0, len(m.Indices)*3)
		for i, idx := range m.Indices {
			emit(&m.Vertices[idx])
			km.Indices = append(km.Indices, uint32(i))
		}
	default:
		km.Vertices = make([]float32, 0, len(m.Vertices)*3)
		for i := range m.Vertices {
			emit(&m.Vertices[i])
		}
		km.Indices = append([]uint32(nil), m.Indices...)
	}
	return km
}

// FromTriangles builds a position-only mesh from a triangle soup, welding
// corners with bit-identical positions.
func FromTriangles(tris [][3]geom.Vec3) *Mesh {
	m := &Mesh{
		Vertices: make([]Vertex, 0, len(tris)),
		Indices:  make([]uint32, 0, len(tris)*3),
	}
	index := make(map[PositionKey]uint32, len(tris))
	for _, tri := range tris {
		for _, p := range tri {
			k := KeyOf(p)
			idx, ok := index[k]
			if !ok {
				idx = uint32(len(m.Vertices))
				index[k] = idx
				m.Vertices = append(m.Vertices, Vertex{Pos: p})
			}
			m.Indices = append(m.Indices, idx)
		}
	}
	m.RemoveDegenerate()
	m.Compact()
	return m
}
