package simplify

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/lodproxy/pkg/geom"
)

// Quadric is the symmetric 4x4 fundamental error matrix of Garland and
// Heckbert, stored as its upper triangle:
//
//	[0 1 2 3]
//	[  4 5 6]
//	[    7 8]
//	[      9]
type Quadric [10]float64

// PlaneQuadric returns w * p p^T for the plane through point with unit
// normal n.
func PlaneQuadric(n, point geom.Vec3, w float64) Quadric {
	a, b, c := n[0], n[1], n[2]
	d := -n.Dot(point)
	return Quadric{
		w * a * a, w * a * b, w * a * c, w * a * d,
		w * b * b, w * b * c, w * b * d,
		w * c * c, w * c * d,
		w * d * d,
	}
}

// Add accumulates o into q.
func (q *Quadric) Add(o Quadric) {
	for i := range q {
		q[i] += o[i]
	}
}

// Error returns v^T Q v for the homogeneous point (v, 1), clamped at zero.
func (q *Quadric) Error(v geom.Vec3) float64 {
	x, y, z := v[0], v[1], v[2]
	e := q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
	return math.Max(e, 0)
}

// Optimal returns the point minimizing the error, or false when the upper
// 3x3 block is too close to singular.
func (q *Quadric) Optimal() (geom.Vec3, bool) {
	a := mgl64.Mat3{
		q[0], q[1], q[2],
		q[1], q[4], q[5],
		q[2], q[5], q[7],
	}
	det := a.Det()
	scale := q[0] + q[4] + q[7]
	if scale == 0 || math.Abs(det) < 1e-9*scale*scale*scale {
		return geom.Vec3{}, false
	}
	v := a.Inv().Mul3x1(mgl64.Vec3{-q[3], -q[6], -q[8]})
	return v, true
}
