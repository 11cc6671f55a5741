package geom

import "math"

// degenerateArea is the squared-area threshold below which a triangle is
// treated as having no interior.
const degenerateArea = 1e-20

// Barycentric returns the barycentric weights of p projected onto the plane of
// triangle abc. ok is false for degenerate triangles.
func Barycentric(p, a, b, c Vec3) (w Vec3, ok bool) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if math.Abs(denom) < degenerateArea {
		return Vec3{}, false
	}
	v := (d11*d20 - d01*d21) / denom
	u := (d00*d21 - d01*d20) / denom
	return Vec3{1 - v - u, v, u}, true
}

// Cross2 is the z component of the 3D cross product of a and b.
func Cross2(a, b Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// SignedArea2 returns twice the signed area of triangle abc (positive when
// counter-clockwise).
func SignedArea2(a, b, c Vec2) float64 {
	return Cross2(b.Sub(a), c.Sub(a))
}

// Barycentric2D returns the barycentric weights of p in the 2D triangle abc.
func Barycentric2D(p, a, b, c Vec2) (w Vec3, ok bool) {
	area := SignedArea2(a, b, c)
	if math.Abs(area) < degenerateArea {
		return Vec3{}, false
	}
	w0 := SignedArea2(p, b, c) / area
	w1 := SignedArea2(a, p, c) / area
	return Vec3{w0, w1, 1 - w0 - w1}, true
}

// LineDistanceScaled returns the signed distance of p from the line through a
// and b, scaled by |b-a|. Positive on the left of a->b.
func LineDistanceScaled(p, a, b Vec2) float64 {
	return Cross2(b.Sub(a), p.Sub(a))
}

// EdgeDistances returns the scaled signed distances of p to the three edges of
// triangle abc, ordered by the vertex each edge is opposite to. The sign is
// normalized by the triangle winding so that all three are non-negative
// exactly when p is inside or on the triangle.
func EdgeDistances(p, a, b, c Vec2) Vec3 {
	d := Vec3{
		LineDistanceScaled(p, b, c),
		LineDistanceScaled(p, c, a),
		LineDistanceScaled(p, a, b),
	}
	if SignedArea2(a, b, c) < 0 {
		d = d.Mul(-1)
	}
	return d
}

// EdgeDistancesToBarycentric converts the output of EdgeDistances into
// barycentric weights. The scaled distances are proportional to the weights.
func EdgeDistancesToBarycentric(d Vec3) Vec3 {
	sum := d[0] + d[1] + d[2]
	if sum == 0 {
		return Vec3{1.0 / 3, 1.0 / 3, 1.0 / 3}
	}
	return d.Mul(1 / sum)
}

// SegmentDistanceSq2D returns the squared distance from p to segment ab and
// the parameter t in [0,1] of the closest point a + t*(b-a).
func SegmentDistanceSq2D(p, a, b Vec2) (distSq, t float64) {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 > 0 {
		t = clamp01(p.Sub(a).Dot(ab) / l2)
	}
	q := a.Add(ab.Mul(t))
	d := p.Sub(q)
	return d.Dot(d), t
}

// ClosestBoundaryPoint2D returns the squared distance from p to the boundary
// of triangle abc and the barycentric weights of the closest boundary point.
func ClosestBoundaryPoint2D(p, a, b, c Vec2) (distSq float64, w Vec3) {
	dAB, tAB := SegmentDistanceSq2D(p, a, b)
	dBC, tBC := SegmentDistanceSq2D(p, b, c)
	dCA, tCA := SegmentDistanceSq2D(p, c, a)

	distSq, w = dAB, Vec3{1 - tAB, tAB, 0}
	if dBC < distSq {
		distSq, w = dBC, Vec3{0, 1 - tBC, tBC}
	}
	if dCA < distSq {
		distSq, w = dCA, Vec3{tCA, 0, 1 - tCA}
	}
	return distSq, w
}

// ClosestPointOnTriangle returns the point of triangle abc closest to p and
// its barycentric weights (Ericson, Real-Time Collision Detection 5.1.5).
func ClosestPointOnTriangle(p, a, b, c Vec3) (Vec3, Vec3) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a, Vec3{1, 0, 0}
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b, Vec3{0, 1, 0}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v)), Vec3{1 - v, v, 0}
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c, Vec3{0, 0, 1}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w)), Vec3{1 - w, 0, w}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w)), Vec3{0, 1 - w, w}
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w)), Vec3{1 - v - w, v, w}
}

// Interpolate3 blends three vectors with barycentric weights.
func Interpolate3(w Vec3, a, b, c Vec3) Vec3 {
	return a.Mul(w[0]).Add(b.Mul(w[1])).Add(c.Mul(w[2]))
}

// Interpolate2 blends three 2D vectors with barycentric weights.
func Interpolate2(w Vec3, a, b, c Vec2) Vec2 {
	return a.Mul(w[0]).Add(b.Mul(w[1])).Add(c.Mul(w[2]))
}

// FaceNormal returns the unit normal of triangle abc, or the zero vector for
// a degenerate triangle.
func FaceNormal(a, b, c Vec3) Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l < 1e-30 {
		return Vec3{}
	}
	return n.Mul(1 / l)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
