package mesh

import (
	"math"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/kernel"
)

// ComputeTangents fills km.Tangents from its positions, normals and UVs.
// Each tangent is orthogonalized against the vertex normal; the fourth
// component is +1 or -1 and encodes whether the UV chart is mirrored. Meshes
// without UVs get an arbitrary frame perpendicular to the normal.
func ComputeTangents(km *kernel.Mesh) {
	nv := km.VertexCount()
	if len(km.Normals) != nv*3 {
		recomputeKernelNormals(km)
	}
	tan := make([]geom.Vec3, nv)
	bit := make([]geom.Vec3, nv)

	if km.HasUVs() {
		for t := 0; t < km.TriangleCount(); t++ {
			tri := km.Triangle(t)
			p0, p1, p2 := geom.Vec3(km.Position(tri[0])), geom.Vec3(km.Position(tri[1])), geom.Vec3(km.Position(tri[2]))
			w0, w1, w2 := geom.Vec2(km.UV(tri[0])), geom.Vec2(km.UV(tri[1])), geom.Vec2(km.UV(tri[2]))
			e1, e2 := p1.Sub(p0), p2.Sub(p0)
			d1, d2 := w1.Sub(w0), w2.Sub(w0)
			r := d1[0]*d2[1] - d2[0]*d1[1]
			if math.Abs(r) < 1e-20 {
				continue
			}
			r = 1 / r
			sdir := e1.Mul(d2[1]).Sub(e2.Mul(d1[1])).Mul(r)
			tdir := e2.Mul(d1[0]).Sub(e1.Mul(d2[0])).Mul(r)
			for _, idx := range tri {
				tan[idx] = tan[idx].Add(sdir)
				bit[idx] = bit[idx].Add(tdir)
			}
		}
	}

	km.Tangents = make([]float32, nv*4)
	for i := 0; i < nv; i++ {
		n := geom.Vec3(km.Normal(uint32(i)))
		t := tan[i].Sub(n.Mul(n.Dot(tan[i])))
		if t.Len() < 1e-12 {
			t = AnyPerpendicular(n)
		} else {
			t = t.Normalize()
		}
		w := 1.0
		if n.Cross(t).Dot(bit[i]) < 0 {
			w = -1
		}
		km.Tangents[i*4+0] = float32(t[0])
		km.Tangents[i*4+1] = float32(t[1])
		km.Tangents[i*4+2] = float32(t[2])
		km.Tangents[i*4+3] = float32(w)
	}
}

// AnyPerpendicular returns a unit vector perpendicular to n.
func AnyPerpendicular(n geom.Vec3) geom.Vec3 {
	ref := geom.Vec3{1, 0, 0}
	if math.Abs(n[0]) > 0.9 {
		ref = geom.Vec3{0, 1, 0}
	}
	p := ref.Sub(n.Mul(n.Dot(ref)))
	if p.Len() < 1e-12 {
		return geom.Vec3{0, 0, 1}
	}
	return p.Normalize()
}

// recomputeKernelNormals writes area-weighted normals into km.
func recomputeKernelNormals(km *kernel.Mesh) {
	nv := km.VertexCount()
	acc := make([]geom.Vec3, nv)
	for t := 0; t < km.TriangleCount(); t++ {
		tri := km.Triangle(t)
		a, b, c := geom.Vec3(km.Position(tri[0])), geom.Vec3(km.Position(tri[1])), geom.Vec3(km.Position(tri[2]))
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range tri {
			acc[idx] = acc[idx].Add(n)
		}
	}
	km.Normals = make([]float32, nv*3)
	for i, n := range acc {
		if l := n.Len(); l > 1e-30 {
			n = n.Mul(1 / l)
		} else {
			n = geom.Vec3{0, 0, 1}
		}
		km.Normals[i*3+0] = float32(n[0])
		km.Normals[i*3+1] = float32(n[1])
		km.Normals[i*3+2] = float32(n[2])
	}
}
