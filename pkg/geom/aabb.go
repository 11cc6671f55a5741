// Package geom holds the small closed-form geometry kernels shared by the
// simplifier, rasterizer and correspondence builder: bounding boxes,
// barycentric weights, edge distances and ray/triangle intersection.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 and Vec3 are the vector types used throughout the pipeline.
type (
	Vec2 = mgl64.Vec2
	Vec3 = mgl64.Vec3
)

// AABB is an axis-aligned bounding box. The zero value is not empty; use
// EmptyAABB to start an accumulation.
type AABB struct {
	Min, Max Vec3
}

// EmptyAABB returns a box that contains nothing and grows with Extend.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box contains no point.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Extend grows the box to contain p.
func (b AABB) Extend(p Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box containing b and o.
func (b AABB) Union(o AABB) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], o.Min[i])
		b.Max[i] = math.Max(b.Max[i], o.Max[i])
	}
	return b
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

// Size returns the box extent along each axis.
func (b AABB) Size() Vec3 { return b.Max.Sub(b.Min) }

// MajorAxis returns the index of the longest axis (0=x, 1=y, 2=z).
// Ties resolve to the lowest axis index.
func (b AABB) MajorAxis() int {
	s := b.Size()
	axis := 0
	if s[1] > s[axis] {
		axis = 1
	}
	if s[2] > s[axis] {
		axis = 2
	}
	return axis
}

// Expand returns the box grown by d on every side.
func (b AABB) Expand(d float64) AABB {
	e := Vec3{d, d, d}
	return AABB{Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

// DistanceSq returns the squared distance from p to the box (0 inside).
func (b AABB) DistanceSq(p Vec3) float64 {
	var d float64
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			v := b.Min[i] - p[i]
			d += v * v
		} else if p[i] > b.Max[i] {
			v := p[i] - b.Max[i]
			d += v * v
		}
	}
	return d
}

// IntersectRay clips the ray origin + t*dir, t in [0, tmax], against the box
// using the slab method. invDir holds 1/dir per component.
func (b AABB) IntersectRay(origin, invDir Vec3, tmax float64) (tnear float64, ok bool) {
	t0, t1 := 0.0, tmax
	for i := 0; i < 3; i++ {
		ta := (b.Min[i] - origin[i]) * invDir[i]
		tb := (b.Max[i] - origin[i]) * invDir[i]
		if ta > tb {
			ta, tb = tb, ta
		}
		// NaN from 0*Inf means the ray lies in the slab plane; keep the interval.
		if !math.IsNaN(ta) && ta > t0 {
			t0 = ta
		}
		if !math.IsNaN(tb) && tb < t1 {
			t1 = tb
		}
		if t0 > t1 {
			return 0, false
		}
	}
	return t0, true
}
