package spatial

import (
	"math"

	"github.com/chazu/lodproxy/pkg/geom"
)

// Query is a per-goroutine accessor over a shared Index. It owns the
// traversal stack so concurrent queries never share mutable state.
type Query struct {
	idx   *Index
	stack []int32
}

// NewQuery returns an accessor for one goroutine.
func (idx *Index) NewQuery() *Query {
	return &Query{idx: idx, stack: make([]int32, 0, 64)}
}

// IntersectSegment returns the first triangle hit along the segment from
// start to end and the hit's parametric time in [0, 1].
func (q *Query) IntersectSegment(start, end geom.Vec3) (hit bool, triangleID int, t float64) {
	hit, triangleID, t, _ = q.intersect(start, end)
	return hit, triangleID, t
}

// IntersectSegmentBary is IntersectSegment that also returns the barycentric
// weights of the hit point.
func (q *Query) IntersectSegmentBary(start, end geom.Vec3) (hit bool, triangleID int, t float64, bary geom.Vec3) {
	return q.intersect(start, end)
}

func (q *Query) intersect(start, end geom.Vec3) (bool, int, float64, geom.Vec3) {
	idx := q.idx
	if len(idx.nodes) == 0 {
		return false, -1, 0, geom.Vec3{}
	}
	dir := end.Sub(start)
	inv := geom.SafeInverse(dir)
	best := math.Inf(1)
	bestID := -1
	var bestBary geom.Vec3

	q.stack = append(q.stack[:0], 0)
	for len(q.stack) > 0 {
		ni := q.stack[len(q.stack)-1]
		q.stack = q.stack[:len(q.stack)-1]
		n := &idx.nodes[ni]
		tmax := math.Min(best, 1)
		if _, ok := n.box.IntersectRay(start, inv, tmax); !ok {
			continue
		}
		if n.count > 0 {
			for _, id := range idx.tris[n.first : n.first+n.count] {
				c := idx.corners[id]
				th, w, ok := geom.RayTriangle(start, dir, c[0], c[1], c[2])
				if !ok || th < 0 || th > 1 {
					continue
				}
				if th < best || (th == best && int(id) < bestID) {
					best, bestID, bestBary = th, int(id), w
				}
			}
			continue
		}
		q.stack = append(q.stack, n.right, ni+1)
	}
	if bestID < 0 {
		return false, -1, 0, geom.Vec3{}
	}
	return true, bestID, best, bestBary
}

// ClosestPoint returns the triangle nearest to p within maxDist (use +Inf
// for unbounded), the closest point on it and the squared distance.
func (q *Query) ClosestPoint(p geom.Vec3, maxDist float64) (triangleID int, point geom.Vec3, distSq float64, ok bool) {
	triangleID, point, _, distSq, ok = q.ClosestPointBary(p, maxDist)
	return triangleID, point, distSq, ok
}

// ClosestPointBary is ClosestPoint that also returns the barycentric weights
// of the closest point.
func (q *Query) ClosestPointBary(p geom.Vec3, maxDist float64) (triangleID int, point, bary geom.Vec3, distSq float64, ok bool) {
	idx := q.idx
	if len(idx.nodes) == 0 {
		return -1, geom.Vec3{}, geom.Vec3{}, 0, false
	}
	best := maxDist * maxDist
	bestID := -1
	var bestPt, bestBary geom.Vec3

	q.stack = append(q.stack[:0], 0)
	for len(q.stack) > 0 {
		ni := q.stack[len(q.stack)-1]
		q.stack = q.stack[:len(q.stack)-1]
		n := &idx.nodes[ni]
		if n.box.DistanceSq(p) > best {
			continue
		}
		if n.count > 0 {
			for _, id := range idx.tris[n.first : n.first+n.count] {
				c := idx.corners[id]
				cp, w := geom.ClosestPointOnTriangle(p, c[0], c[1], c[2])
				d := cp.Sub(p).LenSqr()
				if d < best || (d == best && int(id) < bestID) {
					best, bestID, bestPt, bestBary = d, int(id), cp, w
				}
			}
			continue
		}
		// Visit the nearer child first.
		l, r := ni+1, n.right
		if idx.nodes[l].box.DistanceSq(p) < idx.nodes[r].box.DistanceSq(p) {
			l, r = r, l
		}
		q.stack = append(q.stack, l, r)
	}
	if bestID < 0 {
		return -1, geom.Vec3{}, geom.Vec3{}, 0, false
	}
	return bestID, bestPt, bestBary, best, true
}
