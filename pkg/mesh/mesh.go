// Package mesh holds the array-of-structs triangle mesh the simplifier and
// UV stages operate on, plus conversions to and from the struct-of-arrays
// kernel.Mesh used at pipeline boundaries.
package mesh

import (
	"fmt"
	"math"

	"github.com/chazu/lodproxy/pkg/geom"
)

// MaxAttributes is the number of float attribute slots carried per vertex.
const MaxAttributes = 4

// VertexKind describes which vertex channels are meaningful. Position is
// always present.
type VertexKind struct {
	Normal     bool // Vertex.Normal is populated
	Attributes int  // leading Vertex.Attr slots in use, <= MaxAttributes
}

// Common vertex kinds.
var (
	PositionOnly   = VertexKind{}
	PositionNormal = VertexKind{Normal: true}
)

// HasNormal reports whether normals are carried.
func (k VertexKind) HasNormal() bool { return k.Normal }

// AttributeCount returns the number of attribute slots in use.
func (k VertexKind) AttributeCount() int { return k.Attributes }

func (k VertexKind) String() string {
	s := "position"
	if k.Normal {
		s += "+normal"
	}
	if k.Attributes > 0 {
		s += fmt.Sprintf("+attr%d", k.Attributes)
	}
	return s
}

// Vertex is one mesh vertex.
type Vertex struct {
	Pos    geom.Vec3
	Normal geom.Vec3
	Attr   [MaxAttributes]float64
}

// Mesh is an indexed triangle mesh: three indices per triangle into Vertices.
type Mesh struct {
	Kind     VertexKind
	Vertices []Vertex
	Indices  []uint32
}

// New returns an empty mesh of the given kind.
func New(kind VertexKind) *Mesh {
	return &Mesh{Kind: kind}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Vertices) }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// IsEmpty reports whether the mesh has no triangles.
func (m *Mesh) IsEmpty() bool { return len(m.Indices) == 0 }

// Triangle returns the vertex indices of triangle t.
func (m *Mesh) Triangle(t int) [3]uint32 {
	return [3]uint32{m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]}
}

// Corners returns the positions of triangle t.
func (m *Mesh) Corners(t int) (a, b, c geom.Vec3) {
	i := m.Indices[t*3 : t*3+3]
	return m.Vertices[i[0]].Pos, m.Vertices[i[1]].Pos, m.Vertices[i[2]].Pos
}

// Validate checks the index invariants.
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh: index count %d is not a multiple of 3", len(m.Indices))
	}
	if m.Kind.Attributes < 0 || m.Kind.Attributes > MaxAttributes {
		return fmt.Errorf("mesh: %d attributes exceeds limit %d", m.Kind.Attributes, MaxAttributes)
	}
	n := uint32(len(m.Vertices))
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("mesh: index %d at position %d out of range (%d vertices)", idx, i, n)
		}
	}
	return nil
}

// BoundingBox returns the box around all referenced and unreferenced vertices.
func (m *Mesh) BoundingBox() geom.AABB {
	b := geom.EmptyAABB()
	for i := range m.Vertices {
		b = b.Extend(m.Vertices[i].Pos)
	}
	return b
}

// Swap exchanges the buffers of m and o without copying.
func (m *Mesh) Swap(o *Mesh) {
	*m, *o = *o, *m
}

// Reset releases the buffers.
func (m *Mesh) Reset() {
	m.Vertices = nil
	m.Indices = nil
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{Kind: m.Kind}
	c.Vertices = append([]Vertex(nil), m.Vertices...)
	c.Indices = append([]uint32(nil), m.Indices...)
	return c
}

// Append copies o's triangles into m, offsetting its indices. It returns the
// index of o's first vertex inside m.
func (m *Mesh) Append(o *Mesh) uint32 {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, o.Vertices...)
	for _, idx := range o.Indices {
		m.Indices = append(m.Indices, idx+base)
	}
	return base
}

// FaceNormal returns the unit normal of triangle t.
func (m *Mesh) FaceNormal(t int) geom.Vec3 {
	a, b, c := m.Corners(t)
	return geom.FaceNormal(a, b, c)
}

// ComputeNormals sets area-weighted vertex normals and marks the kind as
// carrying normals.
func (m *Mesh) ComputeNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = geom.Vec3{}
	}
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Corners(t)
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range m.Triangle(t) {
			m.Vertices[idx].Normal = m.Vertices[idx].Normal.Add(n)
		}
	}
	for i := range m.Vertices {
		n := m.Vertices[i].Normal
		if l := n.Len(); l > 1e-30 {
			m.Vertices[i].Normal = n.Mul(1 / l)
		} else {
			m.Vertices[i].Normal = geom.Vec3{0, 0, 1}
		}
	}
	m.Kind.Normal = true
}

// RemoveDegenerate drops triangles with repeated indices or near-zero area and
// returns how many were removed.
func (m *Mesh) RemoveDegenerate() int {
	out := m.Indices[:0]
	removed := 0
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			removed++
			continue
		}
		a, b, c := m.Corners(t)
		if b.Sub(a).Cross(c.Sub(a)).LenSqr() < 1e-24 {
			removed++
			continue
		}
		out = append(out, tri[0], tri[1], tri[2])
	}
	m.Indices = out
	return removed
}

// Compact drops vertices no triangle references, preserving the relative
// order of the survivors. It returns the old-to-new remap (-1 for dropped).
func (m *Mesh) Compact() []int32 {
	remap := make([]int32, len(m.Vertices))
	for i := range remap {
		remap[i] = -1
	}
	for _, idx := range m.Indices {
		remap[idx] = 0
	}
	next := int32(0)
	for i := range m.Vertices {
		if remap[i] < 0 {
			continue
		}
		remap[i] = next
		m.Vertices[next] = m.Vertices[i]
		next++
	}
	m.Vertices = m.Vertices[:next]
	for i, idx := range m.Indices {
		m.Indices[i] = uint32(remap[idx])
	}
	return remap
}

// PositionKey is the bit pattern of a position, used for exact welding.
type PositionKey [3]uint64

// KeyOf returns the exact bit-pattern key of p. Negative zero is folded into
// positive zero so that -0 and +0 weld.
func KeyOf(p geom.Vec3) PositionKey {
	var k PositionKey
	for i := 0; i < 3; i++ {
		v := p[i]
		if v == 0 {
			v = 0
		}
		k[i] = math.Float64bits(v)
	}
	return k
}

// Weld merges vertices with bit-identical positions into the lowest-indexed
// one, then compacts. It returns the number of vertices removed.
func (m *Mesh) Weld() int {
	before := len(m.Vertices)
	first := make(map[PositionKey]uint32, len(m.Vertices))
	remap := make([]uint32, len(m.Vertices))
	for i := range m.Vertices {
		k := KeyOf(m.Vertices[i].Pos)
		if j, ok := first[k]; ok {
			remap[i] = j
			continue
		}
		first[k] = uint32(i)
		remap[i] = uint32(i)
	}
	for i, idx := range m.Indices {
		m.Indices[i] = remap[idx]
	}
	m.Compact()
	return before - len(m.Vertices)
}
