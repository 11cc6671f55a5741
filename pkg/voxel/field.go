package voxel

import (
	"math"
	"sync"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/mesh"
	"github.com/chazu/lodproxy/pkg/spatial"
)

// regionEps is the barycentric weight below which a closest point is
// treated as lying on an edge or at a vertex.
const regionEps = 1e-9

type edgeKey [2]mesh.PositionKey

func makeEdgeKey(a, b mesh.PositionKey) edgeKey {
	if lessKey(b, a) {
		a, b = b, a
	}
	return edgeKey{a, b}
}

func lessKey(a, b mesh.PositionKey) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// distanceField is a signed distance function over the source triangles of
// a spatial index. The sign comes from angle-weighted pseudonormals so that
// points closest to an edge or a vertex are classified correctly even when
// the source is an unwelded triangle soup.
type distanceField struct {
	idx     *spatial.Index
	box     geom.AABB
	vertexN map[mesh.PositionKey]geom.Vec3
	edgeN   map[edgeKey]geom.Vec3
	queries sync.Pool
}

var _ sdf.SDF3 = (*distanceField)(nil)

func newDistanceField(idx *spatial.Index, box geom.AABB) *distanceField {
	f := &distanceField{
		idx:     idx,
		box:     box,
		vertexN: make(map[mesh.PositionKey]geom.Vec3),
		edgeN:   make(map[edgeKey]geom.Vec3),
	}
	f.queries.New = func() any { return idx.NewQuery() }

	for id := 0; id < idx.TriangleCount(); id++ {
		c := idx.Triangle(id)
		n := idx.FaceNormal(id)
		var keys [3]mesh.PositionKey
		for i := range c {
			keys[i] = mesh.KeyOf(c[i])
		}
		for i := 0; i < 3; i++ {
			a := c[(i+1)%3].Sub(c[i])
			b := c[(i+2)%3].Sub(c[i])
			angle := math.Acos(math.Max(-1, math.Min(1, a.Normalize().Dot(b.Normalize()))))
			if math.IsNaN(angle) {
				continue
			}
			f.vertexN[keys[i]] = f.vertexN[keys[i]].Add(n.Mul(angle))

			e := makeEdgeKey(keys[i], keys[(i+1)%3])
			f.edgeN[e] = f.edgeN[e].Add(n)
		}
	}
	return f
}

// pseudoNormal picks the face, edge or vertex normal for a closest point
// with barycentric weights w on triangle id.
func (f *distanceField) pseudoNormal(id int, w geom.Vec3) geom.Vec3 {
	var zero [3]bool
	nz := 0
	for i := 0; i < 3; i++ {
		if w[i] < regionEps {
			zero[i] = true
			nz++
		}
	}
	c := f.idx.Triangle(id)
	switch nz {
	case 1:
		// On the edge opposite the zero-weight corner.
		for i := 0; i < 3; i++ {
			if zero[i] {
				e := makeEdgeKey(mesh.KeyOf(c[(i+1)%3]), mesh.KeyOf(c[(i+2)%3]))
				if n, ok := f.edgeN[e]; ok {
					return n
				}
			}
		}
	case 2:
		for i := 0; i < 3; i++ {
			if !zero[i] {
				if n, ok := f.vertexN[mesh.KeyOf(c[i])]; ok {
					return n
				}
			}
		}
	}
	return f.idx.FaceNormal(id)
}

// Distance returns the signed distance from p to the source surface,
// negative inside.
func (f *distanceField) Distance(p geom.Vec3) (float64, int) {
	q := f.queries.Get().(*spatial.Query)
	defer f.queries.Put(q)
	id, cp, w, d2, ok := q.ClosestPointBary(p, math.Inf(1))
	if !ok {
		return math.Inf(1), -1
	}
	d := math.Sqrt(d2)
	if p.Sub(cp).Dot(f.pseudoNormal(id, w)) < 0 {
		d = -d
	}
	return d, id
}

// Evaluate implements sdf.SDF3.
func (f *distanceField) Evaluate(p v3.Vec) float64 {
	d, _ := f.Distance(geom.Vec3{p.X, p.Y, p.Z})
	return d
}

// BoundingBox implements sdf.SDF3.
func (f *distanceField) BoundingBox() sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: f.box.Min[0], Y: f.box.Min[1], Z: f.box.Min[2]},
		Max: v3.Vec{X: f.box.Max[0], Y: f.box.Max[1], Z: f.box.Max[2]},
	}
}
