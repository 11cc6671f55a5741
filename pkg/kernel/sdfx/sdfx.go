// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. Solids are tessellated with
// uniform marching cubes, which yields the dense, unwelded triangle soup the
// proxy pipeline expects as high-poly source geometry.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/lodproxy/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along the
// longest axis of a solid's bounding box.
const DefaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. A solid whose
// construction failed carries the error instead; every operation that
// touches it propagates the error and ToMesh finally reports it.
type sdfxSolid struct {
	s   sdf.SDF3
	err error
}

// BoundingBox returns the axis-aligned bounding box. A failed solid has
// zero bounds.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	if s.err != nil {
		return min, max
	}
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel tessellating at DefaultMeshCells.
func New() *SdfxKernel {
	return &SdfxKernel{cells: DefaultMeshCells}
}

// NewWithCells returns a kernel tessellating with the given number of
// marching cubes cells along the longest axis.
func NewWithCells(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// Cells returns the marching cubes resolution.
func (k *SdfxKernel) Cells() int { return k.cells }

func solidOf(s kernel.Solid) *sdfxSolid {
	return s.(*sdfxSolid)
}

func build(op string, s sdf.SDF3, err error) kernel.Solid {
	if err != nil {
		return &sdfxSolid{err: fmt.Errorf("sdfx: %s: %w", op, err)}
	}
	return &sdfxSolid{s: s}
}

// combine applies a boolean to two solids, keeping the first failure.
func combine(a, b kernel.Solid, fn func(a, b sdf.SDF3) sdf.SDF3) kernel.Solid {
	sa, sb := solidOf(a), solidOf(b)
	if sa.err != nil {
		return sa
	}
	if sb.err != nil {
		return sb
	}
	return &sdfxSolid{s: fn(sa.s, sb.s)}
}

func transform(s kernel.Solid, m sdf.M44) kernel.Solid {
	ss := solidOf(s)
	if ss.err != nil {
		return ss
	}
	return &sdfxSolid{s: sdf.Transform3D(ss.s, m)}
}

// Box creates a box with the given dimensions centered at the origin.
// Assemblies place parts by their centers.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	return build("box", s, err)
}

// Cylinder creates a Z-aligned cylinder centered at the origin. The
// segments parameter is ignored since the SDF surface is smooth.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	return build("cylinder", s, err)
}

// Sphere creates a sphere of the given radius centered at the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	return build("sphere", s, err)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return combine(a, b, func(a, b sdf.SDF3) sdf.SDF3 { return sdf.Union3D(a, b) })
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return combine(a, b, sdf.Difference3D)
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return combine(a, b, sdf.Intersect3D)
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return transform(s, sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}))
}

// Rotate rotates a solid by Euler angles in degrees, X first, then Y, then Z.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.RotateZ(mgl64.DegToRad(z)).
		Mul(sdf.RotateY(mgl64.DegToRad(y))).
		Mul(sdf.RotateX(mgl64.DegToRad(x)))
	return transform(s, m)
}

// minTriangleArea2 is the doubled area below which marching cubes slivers
// are dropped.
const minTriangleArea2 = 1e-12

// ToMesh converts a solid to a triangle soup using marching cubes. Every
// triangle gets its own three vertices carrying the face normal.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ss := solidOf(s)
	if ss.err != nil {
		return nil, ss.err
	}

	triangles := render.ToTriangles(ss.s, render.NewMarchingCubesUniform(k.cells))

	m := &kernel.Mesh{
		Vertices: make([]float32, 0, len(triangles)*9),
		Normals:  make([]float32, 0, len(triangles)*9),
		Indices:  make([]uint32, 0, len(triangles)*3),
	}
	for _, tri := range triangles {
		e1 := tri[1].Sub(tri[0])
		e2 := tri[2].Sub(tri[0])
		c := e1.Cross(e2)
		area2 := c.Length()
		if area2 < minTriangleArea2 || math.IsNaN(area2) {
			continue
		}
		n := c.DivScalar(area2)
		base := uint32(len(m.Indices))
		for j, v := range tri {
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			m.Indices = append(m.Indices, base+uint32(j))
		}
	}
	if m.TriangleCount() == 0 {
		return nil, fmt.Errorf("sdfx: solid produced no triangles at %d cells", k.cells)
	}
	return m, nil
}
