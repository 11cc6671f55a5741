package geom

import "math"

// RayTriangle intersects the ray origin + t*dir with triangle abc
// (Möller–Trumbore, double sided). It returns the ray parameter and the
// barycentric weights of the hit.
func RayTriangle(origin, dir, a, b, c Vec3) (t float64, w Vec3, ok bool) {
	const eps = 1e-12
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < eps {
		return 0, Vec3{}, false
	}
	inv := 1 / det
	s := origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, Vec3{}, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, Vec3{}, false
	}
	t = e2.Dot(q) * inv
	return t, Vec3{1 - u - v, u, v}, true
}

// SafeInverse returns 1/v per component, mapping zero components to +Inf with
// the sign of the zero.
func SafeInverse(v Vec3) Vec3 {
	var r Vec3
	for i := 0; i < 3; i++ {
		r[i] = 1 / v[i]
	}
	return r
}
