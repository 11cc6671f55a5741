// Package raster maps texels of a UV atlas to the triangles that cover them.
package raster

import (
	"math"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/grid"
	"github.com/chazu/lodproxy/pkg/mesh"
	"github.com/chazu/lodproxy/pkg/parallel"
)

// InsideSentinel is the SignedDistance stored for texels inside a triangle.
const InsideSentinel = -1

// minArea2 is the doubled texel-space area below which a triangle is skipped.
const minArea2 = 1e-12

// Entry is one texel of a raster grid. Inside texels carry barycentric
// weights of the texel center; outside texels carry the weights of the
// closest boundary point and its squared texel-space distance.
type Entry struct {
	TriangleID     int32 // -1 when no triangle claimed the texel
	SignedDistance float32
	Bary           [3]float32
}

// Inside reports whether the texel center lies in its triangle.
func (e Entry) Inside() bool { return e.TriangleID >= 0 && e.SignedDistance < 0 }

// Grid is a texel grid of entries.
type Grid = grid.Grid[Entry]

// Options configures rasterization.
type Options struct {
	Padding int // texels added around each triangle's bounds
	Mode    parallel.ExecutionMode
}

// DefaultOptions returns a two texel padding in parallel mode.
func DefaultOptions() Options {
	return Options{Padding: 2, Mode: parallel.Parallel}
}

// Rasterize assigns every texel of a w x h grid to the triangle containing
// its center, or to the closest triangle whose padded bounding box covers
// it. Overlapping
// insides and exact distance ties go to the lower triangle id.
func Rasterize(uvs []geom.Vec2, indices []uint32, w, h int, opts Options) *Grid {
	g := grid.NewFilled(w, h, Entry{TriangleID: -1, SignedDistance: float32(math.Inf(1))})
	locks := make([]spinLock, g.Len())
	scale := geom.Vec2{float64(w), float64(h)}

	parallel.For(opts.Mode, len(indices)/3, func(t int) {
		var c [3]geom.Vec2
		for k := 0; k < 3; k++ {
			uv := uvs[indices[t*3+k]]
			c[k] = geom.Vec2{uv[0] * scale[0], uv[1] * scale[1]}
		}
		if math.Abs(geom.SignedArea2(c[0], c[1], c[2])) < minArea2 {
			return
		}
		pad := float64(opts.Padding)
		x0 := clampInt(int(math.Floor(min(c[0][0], c[1][0], c[2][0])-pad)), 0, w-1)
		x1 := clampInt(int(math.Ceil(max(c[0][0], c[1][0], c[2][0])+pad)), 0, w-1)
		y0 := clampInt(int(math.Floor(min(c[0][1], c[1][1], c[2][1])-pad)), 0, h-1)
		y1 := clampInt(int(math.Ceil(max(c[0][1], c[1][1], c[2][1])+pad)), 0, h-1)

		id := int32(t)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				p := geom.Vec2{float64(x) + 0.5, float64(y) + 0.5}
				d := geom.EdgeDistances(p, c[0], c[1], c[2])
				var e Entry
				if d[0] >= 0 && d[1] >= 0 && d[2] >= 0 {
					e = Entry{TriangleID: id, SignedDistance: InsideSentinel, Bary: toBary(geom.EdgeDistancesToBarycentric(d))}
				} else {
					distSq, bw := geom.ClosestBoundaryPoint2D(p, c[0], c[1], c[2])
					e = Entry{TriangleID: id, SignedDistance: float32(distSq), Bary: toBary(bw)}
				}
				i := g.Index(x, y)
				locks[i].Lock()
				if claims(g.Data()[i], e) {
					g.Data()[i] = e
				}
				locks[i].Unlock()
			}
		}
	})
	return g
}

// claims reports whether candidate replaces the current texel entry.
func claims(cur, cand Entry) bool {
	if cur.TriangleID < 0 {
		return true
	}
	switch {
	case cur.Inside() && cand.Inside():
		return cand.TriangleID < cur.TriangleID
	case cur.Inside():
		return false
	case cand.Inside():
		return true
	}
	if cand.SignedDistance != cur.SignedDistance {
		return cand.SignedDistance < cur.SignedDistance
	}
	return cand.TriangleID < cur.TriangleID
}

// SuperSample rasterizes at factor times the resolution on each axis.
func SuperSample(uvs []geom.Vec2, indices []uint32, w, h, factor int, opts Options) *Grid {
	if factor < 1 {
		factor = 1
	}
	opts.Padding *= factor
	return Rasterize(uvs, indices, w*factor, h*factor, opts)
}

// MeshUVs returns the UVs a mesh carries in its first two attribute slots.
func MeshUVs(m *mesh.Mesh) []geom.Vec2 {
	uvs := make([]geom.Vec2, len(m.Vertices))
	for i, v := range m.Vertices {
		uvs[i] = geom.Vec2{v.Attr[0], v.Attr[1]}
	}
	return uvs
}

func toBary(w geom.Vec3) [3]float32 {
	return [3]float32{float32(w[0]), float32(w[1]), float32(w[2])}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
