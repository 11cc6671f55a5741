// Package voxel rebuilds source geometry as a closed iso-surface. A signed
// distance field over the source triangles is sampled on a uniform grid and
// polygonized with marching cubes. Narrow-band samples also record their
// closest source triangle for later correspondence lookups.
package voxel

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/mesh"
	"github.com/chazu/lodproxy/pkg/parallel"
	"github.com/chazu/lodproxy/pkg/spatial"
)

// ErrVoxelBudget is returned when the grid would exceed Params.MaxVoxels.
var ErrVoxelBudget = errors.New("voxel: voxel budget exceeded")

// ErrEmptySource is returned when the index holds no triangles.
var ErrEmptySource = errors.New("voxel: no source triangles")

// Params configures voxelization.
type Params struct {
	VoxelSize float64 // world units per voxel edge
	// HalfBandWidth is the narrow band half width in voxels.
	HalfBandWidth float64
	MaxVoxels     int
	Mode          parallel.ExecutionMode
}

// DefaultParams returns settings for sources about a unit in size.
func DefaultParams() Params {
	return Params{
		VoxelSize:     0.02,
		HalfBandWidth: 3,
		MaxVoxels:     64 << 20,
		Mode:          parallel.Parallel,
	}
}

// Volume is a voxelized source. A volume that failed its budget is empty and
// reports !OK.
type Volume struct {
	field   *distanceField
	dims    [3]int
	voxel   float64
	closest *spatial.ClosestPolyIndex
	ok      bool
}

// Voxelize samples the signed distance to the triangles in idx.
func Voxelize(idx *spatial.Index, p Params) (*Volume, error) {
	if p.VoxelSize <= 0 {
		return &Volume{}, fmt.Errorf("voxel: voxel size must be positive, got %g", p.VoxelSize)
	}
	if idx.TriangleCount() == 0 {
		return &Volume{}, ErrEmptySource
	}
	box := idx.Bounds().Expand(math.Max(p.HalfBandWidth, 1) * p.VoxelSize)
	size := box.Size()
	var dims [3]int
	total := 1.0
	for i := 0; i < 3; i++ {
		dims[i] = int(math.Ceil(size[i] / p.VoxelSize))
		if dims[i] < 1 {
			dims[i] = 1
		}
		total *= float64(dims[i])
	}
	if p.MaxVoxels > 0 && total > float64(p.MaxVoxels) {
		return &Volume{}, fmt.Errorf("%w: %.0f voxels, limit %d", ErrVoxelBudget, total, p.MaxVoxels)
	}
	// Snap the box to whole voxels.
	box.Max = box.Min.Add(geom.Vec3{float64(dims[0]), float64(dims[1]), float64(dims[2])}.Mul(p.VoxelSize))

	v := &Volume{
		field: newDistanceField(idx, box),
		dims:  dims,
		voxel: p.VoxelSize,
		ok:    true,
	}
	v.closest = v.sampleBand(p)
	return v, nil
}

// sampleBand records the closest source triangle for every voxel center
// within the narrow band.
func (v *Volume) sampleBand(p Params) *spatial.ClosestPolyIndex {
	band := p.HalfBandWidth * p.VoxelSize
	slices := make([][]spatial.PolySample, v.dims[2])
	parallel.For(p.Mode, v.dims[2], func(z int) {
		var out []spatial.PolySample
		for y := 0; y < v.dims[1]; y++ {
			for x := 0; x < v.dims[0]; x++ {
				c := v.Center(x, y, z)
				d, id := v.field.Distance(c)
				if id >= 0 && math.Abs(d) <= band {
					out = append(out, spatial.PolySample{Pos: c, TriangleID: int32(id)})
				}
			}
		}
		slices[z] = out
	})
	var all []spatial.PolySample
	for _, s := range slices {
		all = append(all, s...)
	}
	return spatial.NewClosestPolyIndex(all)
}

// OK reports whether the volume holds data.
func (v *Volume) OK() bool { return v.ok }

// Dims returns the grid size in voxels.
func (v *Volume) Dims() [3]int { return v.dims }

// VoxelCount returns the number of voxels in the grid.
func (v *Volume) VoxelCount() int { return v.dims[0] * v.dims[1] * v.dims[2] }

// Bounds returns the sampled region.
func (v *Volume) Bounds() geom.AABB {
	if v.field == nil {
		return geom.EmptyAABB()
	}
	return v.field.box
}

// Center returns the center of voxel (x, y, z).
func (v *Volume) Center(x, y, z int) geom.Vec3 {
	return v.field.box.Min.Add(geom.Vec3{float64(x) + 0.5, float64(y) + 0.5, float64(z) + 0.5}.Mul(v.voxel))
}

// SignedDistance evaluates the field at p.
func (v *Volume) SignedDistance(p geom.Vec3) float64 {
	d, _ := v.field.Distance(p)
	return d
}

// ClosestPoly returns the narrow-band closest triangle index.
func (v *Volume) ClosestPoly() *spatial.ClosestPolyIndex { return v.closest }

// Extract polygonizes the zero iso-surface into a welded mesh with normals.
func (v *Volume) Extract() (*mesh.Mesh, error) {
	if !v.ok {
		return nil, errors.New("voxel: extract from an empty volume")
	}
	cells := max(v.dims[0], v.dims[1], v.dims[2])
	tris := render.ToTriangles(v.field, render.NewMarchingCubesUniform(cells))
	soup := make([][3]geom.Vec3, 0, len(tris))
	for _, t := range tris {
		soup = append(soup, [3]geom.Vec3{
			{t[0].X, t[0].Y, t[0].Z},
			{t[1].X, t[1].Y, t[1].Z},
			{t[2].X, t[2].Y, t[2].Z},
		})
	}
	m := mesh.FromTriangles(soup)
	if m.IsEmpty() {
		return nil, fmt.Errorf("voxel: iso-surface is empty at %d cells", cells)
	}
	m.ComputeNormals()
	return m, nil
}
