// Package uvatlas charts a mesh and packs the charts into a texture atlas.
package uvatlas

import (
	"errors"
	"math"
	"sort"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/mesh"
)

var (
	// ErrEmptyMesh is returned for a mesh without triangles.
	ErrEmptyMesh = errors.New("uvatlas: mesh has no triangles")
	// ErrAtlasOverflow is returned when the charts cannot be packed.
	ErrAtlasOverflow = errors.New("uvatlas: charts do not fit the atlas")
)

// Atlas describes the target texture.
type Atlas struct {
	Width, Height int
	GutterTexels  int
}

// Charts is the result of an unwrap. Vertices are split along chart borders:
// VertexRemap maps each output vertex to its source vertex.
type Charts struct {
	UVs         []geom.Vec2
	VertexRemap []uint32
	Indices     []uint32
	ChartIDs    []int32 // per triangle
	Count       int
}

// Unwrapper produces charts for a mesh.
type Unwrapper interface {
	Unwrap(m *mesh.Mesh, a Atlas) (*Charts, error)
}

// Apply builds the split mesh: source vertex data is copied per output
// vertex and the UVs are stored in the first two attribute slots.
func (c *Charts) Apply(m *mesh.Mesh) *mesh.Mesh {
	kind := m.Kind
	if kind.Attributes < 2 {
		kind.Attributes = 2
	}
	out := &mesh.Mesh{
		Kind:     kind,
		Vertices: make([]mesh.Vertex, len(c.VertexRemap)),
		Indices:  append([]uint32(nil), c.Indices...),
	}
	for i, src := range c.VertexRemap {
		v := m.Vertices[src]
		v.Attr[0], v.Attr[1] = c.UVs[i][0], c.UVs[i][1]
		out.Vertices[i] = v
	}
	return out
}

// PlanarUnwrapper groups edge-connected triangles that share a dominant
// normal axis into charts and projects each chart onto its axis plane.
type PlanarUnwrapper struct{}

var _ Unwrapper = PlanarUnwrapper{}

// axisClass returns 0..5 for +x, -x, +y, -y, +z, -z.
func axisClass(n geom.Vec3) int {
	axis := 0
	for i := 1; i < 3; i++ {
		if math.Abs(n[i]) > math.Abs(n[axis]) {
			axis = i
		}
	}
	if n[axis] < 0 {
		return axis*2 + 1
	}
	return axis * 2
}

// project maps p onto the plane of class, keeping counter-clockwise winding
// for faces facing along the class direction.
func project(p geom.Vec3, class int) geom.Vec2 {
	var uv geom.Vec2
	switch class / 2 {
	case 0:
		uv = geom.Vec2{p[1], p[2]}
	case 1:
		uv = geom.Vec2{p[2], p[0]}
	default:
		uv = geom.Vec2{p[0], p[1]}
	}
	if class%2 == 1 {
		uv[0] = -uv[0]
	}
	return uv
}

func edgeOf(a, b uint32) [2]uint32 {
	if a > b {
		a, b = b, a
	}
	return [2]uint32{a, b}
}

type chart struct {
	class   int
	tris    []int
	min     geom.Vec2
	size    geom.Vec2
	originX int
	originY int
}

// Unwrap implements Unwrapper.
func (PlanarUnwrapper) Unwrap(m *mesh.Mesh, a Atlas) (*Charts, error) {
	nt := m.TriangleCount()
	if nt == 0 {
		return nil, ErrEmptyMesh
	}
	if a.Width <= 0 || a.Height <= 0 {
		return nil, ErrAtlasOverflow
	}

	class := make([]int, nt)
	for t := range class {
		class[t] = axisClass(m.FaceNormal(t))
	}

	// Triangles sharing an edge and a class belong to one chart.
	edgeTris := make(map[[2]uint32][]int)
	for t := 0; t < nt; t++ {
		tri := m.Triangle(t)
		for i := 0; i < 3; i++ {
			e := edgeOf(tri[i], tri[(i+1)%3])
			edgeTris[e] = append(edgeTris[e], t)
		}
	}
	chartOf := make([]int32, nt)
	for i := range chartOf {
		chartOf[i] = -1
	}
	var charts []*chart
	for seed := 0; seed < nt; seed++ {
		if chartOf[seed] >= 0 {
			continue
		}
		id := int32(len(charts))
		c := &chart{class: class[seed]}
		stack := []int{seed}
		chartOf[seed] = id
		for len(stack) > 0 {
			t := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			c.tris = append(c.tris, t)
			tri := m.Triangle(t)
			for i := 0; i < 3; i++ {
				for _, o := range edgeTris[edgeOf(tri[i], tri[(i+1)%3])] {
					if chartOf[o] < 0 && class[o] == c.class {
						chartOf[o] = id
						stack = append(stack, o)
					}
				}
			}
		}
		sort.Ints(c.tris)
		charts = append(charts, c)
	}

	for _, c := range charts {
		lo := geom.Vec2{math.Inf(1), math.Inf(1)}
		hi := geom.Vec2{math.Inf(-1), math.Inf(-1)}
		for _, t := range c.tris {
			for _, v := range m.Triangle(t) {
				p := project(m.Vertices[v].Pos, c.class)
				lo = geom.Vec2{math.Min(lo[0], p[0]), math.Min(lo[1], p[1])}
				hi = geom.Vec2{math.Max(hi[0], p[0]), math.Max(hi[1], p[1])}
			}
		}
		c.min, c.size = lo, hi.Sub(lo)
	}

	scale, ok := fit(charts, a)
	if !ok {
		return nil, ErrAtlasOverflow
	}

	out := &Charts{ChartIDs: chartOf, Count: len(charts), Indices: make([]uint32, len(m.Indices))}
	g := float64(a.GutterTexels)
	for _, c := range charts {
		local := make(map[uint32]uint32)
		for _, t := range c.tris {
			for k, v := range m.Triangle(t) {
				nv, seen := local[v]
				if !seen {
					nv = uint32(len(out.VertexRemap))
					local[v] = nv
					p := project(m.Vertices[v].Pos, c.class).Sub(c.min).Mul(scale)
					out.UVs = append(out.UVs, geom.Vec2{
						(float64(c.originX) + g + p[0]) / float64(a.Width),
						(float64(c.originY) + g + p[1]) / float64(a.Height),
					})
					out.VertexRemap = append(out.VertexRemap, v)
				}
				out.Indices[t*3+k] = nv
			}
		}
	}
	return out, nil
}

// rect returns the texel footprint of c at scale, gutter included.
func rect(c *chart, scale float64, gutter int) (w, h int) {
	w = int(math.Ceil(c.size[0]*scale)) + 2*gutter
	h = int(math.Ceil(c.size[1]*scale)) + 2*gutter
	return max(w, 1+2*gutter), max(h, 1+2*gutter)
}

// fit finds a uniform texels-per-unit scale at which every chart packs,
// shrinking from an area-based estimate.
func fit(charts []*chart, a Atlas) (float64, bool) {
	area := 0.0
	for _, c := range charts {
		area += c.size[0] * c.size[1]
	}
	scale := 1.0
	if area > 0 {
		scale = math.Sqrt(0.8 * float64(a.Width*a.Height) / area)
	}
	for i := 0; i < 64; i++ {
		if pack(charts, scale, a) {
			return scale, true
		}
		scale *= 0.9
	}
	return 0, false
}

// pack shelf-packs the charts, tallest first, recording their origins.
func pack(charts []*chart, scale float64, a Atlas) bool {
	order := make([]int, len(charts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		_, hi := rect(charts[order[i]], scale, a.GutterTexels)
		_, hj := rect(charts[order[j]], scale, a.GutterTexels)
		return hi > hj
	})
	x, y, shelf := 0, 0, 0
	for _, ci := range order {
		w, h := rect(charts[ci], scale, a.GutterTexels)
		if w > a.Width {
			return false
		}
		if x+w > a.Width {
			y += shelf
			x, shelf = 0, 0
		}
		if y+h > a.Height {
			return false
		}
		charts[ci].originX, charts[ci].originY = x, y
		x += w
		shelf = max(shelf, h)
	}
	return true
}

// ChartColor returns a distinct display color for chart id.
func ChartColor(id int) [3]float32 {
	h := math.Mod(float64(id)*0.618033988749895, 1)
	return hsv(h, 0.65, 0.95)
}

func hsv(h, s, v float64) [3]float32 {
	i := int(h * 6)
	f := h*6 - float64(i)
	p, q, t := v*(1-s), v*(1-f*s), v*(1-(1-f)*s)
	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return [3]float32{float32(r), float32(g), float32(b)}
}
