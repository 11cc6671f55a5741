package proxy

import (
	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/kernel"
	"github.com/chazu/lodproxy/pkg/mesh"
	"github.com/chazu/lodproxy/pkg/spatial"
	"github.com/chazu/lodproxy/pkg/texture"
)

// FailureColor is the diffuse color of the placeholder proxy.
var FailureColor = texture.LinearColor{1, 0, 0, 1}

// placeholder returns a unit cube at the source center with a solid red
// material. It stands in whenever no proxy surface could be produced.
func (p *pipeline) placeholder(idx *spatial.Index, reason string) *Result {
	p.log.Printf("proxy: failed: %s", reason)
	center := geom.Vec3{}
	if b := idx.Bounds(); !b.IsEmpty() {
		center = b.Center()
	}
	res := &Result{Mesh: UnitCube(center), Failed: true, Reason: reason}
	res.Materials = map[texture.Property]*texture.Image{}
	if p.cfg.RemeshOnly {
		return res
	}
	for _, prop := range p.cfg.Properties {
		c := prop.DefaultValue()
		if prop == texture.Diffuse {
			c = FailureColor
		}
		res.Materials[prop] = texture.NewImage(p.cfg.TextureSize, p.cfg.TextureSize, c)
	}
	return res
}

// flatProxy keeps the simplified mesh when unwrapping fails. UVs and
// tangents are zeroed and every property is the average of the source
// materials.
func (p *pipeline) flatProxy(res *Result, m *mesh.Mesh, sources []*kernel.Mesh, cause error) *Result {
	res.Failed = true
	res.Reason = "uv unwrap failed: " + cause.Error()
	res.warn(p.log, "%s", res.Reason)

	km := m.ToKernel(mesh.PerVertex)
	km.PartName = "proxy"
	km.UVs = make([]float32, km.VertexCount()*2)
	km.Tangents = make([]float32, km.VertexCount()*4)
	res.Mesh = km

	ids := materialIDs(sources)
	res.Materials = make(map[texture.Property]*texture.Image, len(p.cfg.Properties))
	for _, prop := range p.cfg.Properties {
		var sum texture.LinearColor
		n := 0
		for _, id := range ids {
			if c, ok := texture.Average(p.materials.Channel(id, prop)); ok {
				sum = sum.Add(c)
				n++
			}
		}
		c := prop.DefaultValue()
		if n > 0 {
			c = sum.Scale(1 / float32(n))
		}
		res.Materials[prop] = texture.NewImage(p.cfg.TextureSize, p.cfg.TextureSize, c)
	}
	return res
}

// materialIDs lists the distinct materials referenced by sources in first
// use order.
func materialIDs(sources []*kernel.Mesh) []int32 {
	seen := map[int32]bool{}
	var ids []int32
	for _, s := range sources {
		for t := 0; t < s.TriangleCount(); t++ {
			id := s.MaterialID(t)
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

var cubeFaces = [6]struct {
	n    geom.Vec3
	u, v geom.Vec3
}{
	{geom.Vec3{1, 0, 0}, geom.Vec3{0, 1, 0}, geom.Vec3{0, 0, 1}},
	{geom.Vec3{-1, 0, 0}, geom.Vec3{0, 0, 1}, geom.Vec3{0, 1, 0}},
	{geom.Vec3{0, 1, 0}, geom.Vec3{0, 0, 1}, geom.Vec3{1, 0, 0}},
	{geom.Vec3{0, -1, 0}, geom.Vec3{1, 0, 0}, geom.Vec3{0, 0, 1}},
	{geom.Vec3{0, 0, 1}, geom.Vec3{1, 0, 0}, geom.Vec3{0, 1, 0}},
	{geom.Vec3{0, 0, -1}, geom.Vec3{0, 1, 0}, geom.Vec3{1, 0, 0}},
}

// UnitCube returns an axis-aligned cube of edge 1 centered at c with flat
// face normals, zero UVs and one material.
func UnitCube(c geom.Vec3) *kernel.Mesh {
	km := &kernel.Mesh{PartName: "placeholder"}
	for _, f := range cubeFaces {
		base := uint32(km.VertexCount())
		for _, q := range [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := c.Add(f.n.Mul(0.5)).Add(f.u.Mul(q[0] * 0.5)).Add(f.v.Mul(q[1] * 0.5))
			km.Vertices = append(km.Vertices, float32(p[0]), float32(p[1]), float32(p[2]))
			km.Normals = append(km.Normals, float32(f.n[0]), float32(f.n[1]), float32(f.n[2]))
			km.UVs = append(km.UVs, 0, 0)
		}
		km.Indices = append(km.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return km
}
