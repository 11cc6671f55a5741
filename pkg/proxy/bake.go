package proxy

import (
	"github.com/chazu/lodproxy/pkg/correspond"
	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/grid"
	"github.com/chazu/lodproxy/pkg/kernel"
	"github.com/chazu/lodproxy/pkg/mesh"
	"github.com/chazu/lodproxy/pkg/parallel"
	"github.com/chazu/lodproxy/pkg/raster"
	"github.com/chazu/lodproxy/pkg/spatial"
	"github.com/chazu/lodproxy/pkg/texture"
	"github.com/chazu/lodproxy/pkg/uvatlas"
	"github.com/chazu/lodproxy/pkg/voxel"
)

// baker resolves proxy texels to source material samples once and bakes
// every requested property from that mapping.
type baker struct {
	cfg       Config
	materials texture.MaterialSource
	idx       *spatial.Index
	split     *mesh.Mesh
	final     *raster.Grid
	corr      *correspond.Grid
	frames    *grid.Grid[texture.Frame]
	coverage  correspond.Stats
}

func newBaker(p *pipeline, idx *spatial.Index, vol *voxel.Volume, split *mesh.Mesh, km *kernel.Mesh) *baker {
	cfg := p.cfg
	size := cfg.TextureSize
	uvs := raster.MeshUVs(split)
	ropts := raster.DefaultOptions()
	ropts.Padding = max(cfg.GutterTexels, 1)

	b := &baker{
		cfg:       cfg,
		materials: p.materials,
		idx:       idx,
		split:     split,
		final:     raster.Rasterize(uvs, split.Indices, size, size, ropts),
	}
	b.frames = proxyFrames(km, b.final)
	if cfg.ChartColorDebug {
		return b
	}

	super := raster.SuperSample(uvs, split.Indices, size, size, cfg.SuperSample, ropts)
	copts := correspond.DefaultOptions()
	copts.Policy = cfg.RayPolicy
	copts.MaxDistance = cfg.MaxRayDistance
	src := &correspond.Source{Index: idx, UVBounds: p.opts.uvBounds}
	if cfg.UseClosestPoly && vol.ClosestPoly().Len() > 0 {
		b.corr = correspond.BuildClosestPoly(km, super, src, vol.ClosestPoly(), copts)
	} else {
		b.corr = correspond.Build(km, super, src, copts)
	}
	b.coverage = correspond.Summarize(b.corr)
	return b
}

func (b *baker) bakeAll() map[texture.Property]*texture.Image {
	props := b.cfg.Properties
	images := make([]*texture.Image, len(props))
	mode := parallel.Sequential
	if b.cfg.ParallelMaterialBake {
		mode = parallel.Parallel
	}
	g := parallel.NewGroup(mode)
	for i := range props {
		g.Go(func() { images[i] = b.bake(props[i]) })
	}
	g.Wait()

	out := make(map[texture.Property]*texture.Image, len(props))
	for i, p := range props {
		out[p] = images[i]
	}
	return out
}

func (b *baker) bake(prop texture.Property) *texture.Image {
	if b.cfg.ChartColorDebug {
		return b.chartColors(prop)
	}
	ss := b.cfg.SuperSample
	super := texture.NewImage(b.corr.Width(), b.corr.Height(), texture.Unmapped)
	parallel.ForRange(parallel.Parallel, b.corr.Height(), 1, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			for x := 0; x < b.corr.Width(); x++ {
				if e := b.corr.At(x, y); e.Mapped() {
					super.Set(x, y, b.sample(prop, e))
				}
			}
		}
	})

	var img *texture.Image
	var topo *texture.Topology
	switch {
	case prop == texture.Normal:
		img, topo = texture.DownsampleNormals(super, ss, b.frames, b.cfg.TangentSpaceNormals)
	case b.cfg.DownsampleMode == DownsampleArea:
		img, topo = dilateThenArea(super, b.final.Width(), b.final.Height())
	default:
		img, topo = texture.DownsampleSparse(super, ss, prop.IsColor())
	}
	return finish(img, topo, prop)
}

// dilateThenArea fills the gutters of a super-sampled bake before the
// area-weighted reduction so that every footprint averages valid texels only.
func dilateThenArea(super *texture.Image, w, h int) (*texture.Image, *texture.Topology) {
	topo := texture.TopologyOf(super)
	texture.DilateUntilDone(super, topo, parallel.Parallel)
	return texture.DownsampleArea(super, topo, w, h)
}

// sample reads property prop of the source material at a correspondence
// entry. Normals are returned world-space encoded.
func (b *baker) sample(prop texture.Property, e correspond.Entry) texture.LinearColor {
	c := texture.Sample(b.materials.Channel(e.MaterialID, prop), e.UV)
	if prop != texture.Normal {
		return c
	}
	f := sourceFrame(b.idx, e)
	t := texture.DecodeNormal(c)
	world := f.T.Mul(t[0]).Add(f.B.Mul(t[1])).Add(f.N.Mul(t[2]))
	if world.Len() < 1e-12 {
		world = f.N
	}
	return texture.EncodeNormal(world.Normalize())
}

func (b *baker) chartColors(prop texture.Property) *texture.Image {
	w, h := b.final.Width(), b.final.Height()
	if prop != texture.Diffuse {
		return texture.NewImage(w, h, prop.DefaultValue())
	}
	img := texture.NewImage(w, h, texture.Unmapped)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			re := b.final.At(x, y)
			if re.TriangleID < 0 {
				continue
			}
			c := uvatlas.ChartColor(chartOf(b.split, int(re.TriangleID)))
			img.Set(x, y, texture.LinearColor{c[0], c[1], c[2], 1})
		}
	}
	return finish(img, texture.TopologyOf(img), prop)
}

// finish dilates img over its gutters and fills whatever stays invalid with
// the property default so every texel holds a value.
func finish(img *texture.Image, topo *texture.Topology, prop texture.Property) *texture.Image {
	texture.DilateUntilDone(img, topo, parallel.Parallel)
	def := prop.DefaultValue()
	for i, ok := range topo.Data() {
		if !ok {
			img.Data()[i] = def
		}
	}
	return img
}

// proxyFrames interpolates the proxy tangent frame at every rasterized
// texel. Texels outside all triangles keep a zero frame.
func proxyFrames(km *kernel.Mesh, rg *raster.Grid) *grid.Grid[texture.Frame] {
	frames := grid.New[texture.Frame](rg.Width(), rg.Height())
	if !km.HasTangents() || len(km.Normals) == 0 {
		return frames
	}
	for i, re := range rg.Data() {
		if re.TriangleID < 0 {
			continue
		}
		tri := km.Triangle(int(re.TriangleID))
		w := geom.Vec3{float64(re.Bary[0]), float64(re.Bary[1]), float64(re.Bary[2])}
		var t, n geom.Vec3
		sign := 0.0
		for k, v := range tri {
			tv, s := km.Tangent(v)
			t = t.Add(geom.Vec3(tv).Mul(w[k]))
			n = n.Add(geom.Vec3(km.Normal(v)).Mul(w[k]))
			sign += s * w[k]
		}
		frames.Data()[i] = orthonormalFrame(t, n, sign)
	}
	return frames
}

// sourceFrame interpolates the tangent frame of the source triangle an
// entry landed on.
func sourceFrame(idx *spatial.Index, e correspond.Entry) texture.Frame {
	mi, face := idx.Locate(int(e.TriangleID))
	m := idx.Mesh(mi)
	tri := m.Triangle(face)
	var t, n geom.Vec3
	for k, v := range tri {
		if len(m.Normals) > 0 {
			n = n.Add(geom.Vec3(m.Normal(v)).Mul(e.Bary[k]))
		}
		if m.HasTangents() {
			tv, _ := m.Tangent(v)
			t = t.Add(geom.Vec3(tv).Mul(e.Bary[k]))
		}
	}
	if n.Len() < 1e-12 {
		n = idx.FaceNormal(int(e.TriangleID))
	}
	return orthonormalFrame(t, n, float64(e.Chirality))
}

func orthonormalFrame(t, n geom.Vec3, sign float64) texture.Frame {
	if n.Len() < 1e-12 {
		return texture.IdentityFrame
	}
	n = n.Normalize()
	t = t.Sub(n.Mul(n.Dot(t)))
	if t.Len() < 1e-12 {
		t = mesh.AnyPerpendicular(n)
	} else {
		t = t.Normalize()
	}
	b := n.Cross(t)
	if sign < 0 {
		b = b.Mul(-1)
	}
	return texture.Frame{T: t, B: b, N: n}
}
