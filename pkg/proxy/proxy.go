// Package proxy turns one or many source meshes into a simplified proxy mesh
// with a baked texture atlas.
package proxy

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chazu/lodproxy/pkg/correspond"
	"github.com/chazu/lodproxy/pkg/kernel"
	"github.com/chazu/lodproxy/pkg/mesh"
	"github.com/chazu/lodproxy/pkg/parallel"
	"github.com/chazu/lodproxy/pkg/simplify"
	"github.com/chazu/lodproxy/pkg/spatial"
	"github.com/chazu/lodproxy/pkg/texture"
	"github.com/chazu/lodproxy/pkg/uvatlas"
	"github.com/chazu/lodproxy/pkg/voxel"
)

// ErrNoSources is returned when Generate is called without source meshes.
var ErrNoSources = errors.New("proxy: no source meshes")

// Result is the output of Generate. Mesh is always set. When Failed is set,
// the mesh and materials are a degraded stand-in and Reason says why.
type Result struct {
	Mesh          *kernel.Mesh
	Materials     map[texture.Property]*texture.Image
	Failed        bool
	Reason        string
	Warnings      []string
	SimplifyError float64
	Charts        int
	Coverage      correspond.Stats
}

func (r *Result) warn(logger *log.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	logger.Printf("proxy: warning: %s", msg)
}

// Option customizes a Generate call.
type Option func(*options)

type options struct {
	logger    *log.Logger
	unwrapper uvatlas.Unwrapper
	uvBounds  map[int32]correspond.UVBounds
}

// WithLogger sends stage timings and warnings to l.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithUnwrapper replaces the planar UV unwrapper.
func WithUnwrapper(u uvatlas.Unwrapper) Option {
	return func(o *options) { o.unwrapper = u }
}

// WithUVBounds sets the UV rectangle each source material's texture
// occupies. Source UVs are rescaled into it before sampling.
func WithUVBounds(b map[int32]correspond.UVBounds) Option {
	return func(o *options) { o.uvBounds = b }
}

// Generate builds a proxy for sources. materials may be nil, in which case
// every material uses property defaults. Go errors are returned only for
// invalid input; pipeline failures produce a Result with Failed set.
func Generate(sources []*kernel.Mesh, materials texture.MaterialSource, cfg Config, opts ...Option) (*Result, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	for i, s := range sources {
		if s == nil {
			return nil, fmt.Errorf("proxy: source %d is nil", i)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("proxy: source %d: %w", i, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: log.Default(), unwrapper: uvatlas.PlanarUnwrapper{}}
	for _, opt := range opts {
		opt(&o)
	}
	if materials == nil {
		materials = texture.NewStaticMaterials()
	}
	p := &pipeline{cfg: cfg, opts: o, materials: materials, log: o.logger}
	return p.run(sources), nil
}

type pipeline struct {
	cfg       Config
	opts      options
	materials texture.MaterialSource
	log       *log.Logger
}

func (p *pipeline) stage(name string, start time.Time) {
	p.log.Printf("proxy: %s in %v", name, time.Since(start).Round(time.Microsecond))
}

func (p *pipeline) run(sources []*kernel.Mesh) *Result {
	start := time.Now()
	idx := spatial.Build(sources...)
	p.stage(fmt.Sprintf("indexed %d triangles", idx.TriangleCount()), start)

	start = time.Now()
	vol, err := voxel.Voxelize(idx, p.voxelParams(idx))
	if err != nil {
		return p.placeholder(idx, fmt.Sprintf("voxelization failed: %v", err))
	}
	m, err := vol.Extract()
	if err != nil {
		return p.placeholder(idx, fmt.Sprintf("iso-surface extraction failed: %v", err))
	}
	p.stage(fmt.Sprintf("voxelized %v into %d triangles", vol.Dims(), m.TriangleCount()), start)

	res := &Result{}
	start = time.Now()
	sopts := simplify.DefaultOptions()
	sopts.RetainFraction = p.cfg.RetainFraction
	sopts.ErrorBudget = p.cfg.ErrorBudget
	if p.cfg.SingleThreadSimplify {
		sopts.Mode = parallel.Sequential
	}
	res.SimplifyError, err = simplify.ParallelSimplify(m, idx, sopts)
	if err != nil {
		return p.placeholder(idx, fmt.Sprintf("simplification failed: %v", err))
	}
	if m.IsEmpty() {
		return p.placeholder(idx, "simplification removed every triangle")
	}
	m.ComputeNormals()
	p.stage(fmt.Sprintf("simplified to %d triangles (error %.3g)", m.TriangleCount(), res.SimplifyError), start)

	if p.cfg.RemeshOnly {
		res.Mesh = m.ToKernel(mesh.PerVertex)
		res.Mesh.PartName = "proxy"
		res.Materials = map[texture.Property]*texture.Image{}
		return res
	}

	start = time.Now()
	size := p.cfg.TextureSize
	charts, err := p.opts.unwrapper.Unwrap(m, uvatlas.Atlas{Width: size, Height: size, GutterTexels: p.cfg.GutterTexels})
	if err != nil {
		return p.flatProxy(res, m, sources, err)
	}
	res.Charts = charts.Count
	split := tagCharts(charts.Apply(m), charts.ChartIDs)
	if _, err := mesh.Clean(split, p.cfg.CleanIterations); err != nil {
		res.warn(p.log, "%v", err)
	}
	km := split.ToKernel(mesh.PerVertex)
	km.PartName = "proxy"
	mesh.ComputeTangents(km)
	res.Mesh = km
	p.stage(fmt.Sprintf("unwrapped %d charts", charts.Count), start)

	start = time.Now()
	b := newBaker(p, idx, vol, split, km)
	res.Materials = b.bakeAll()
	res.Coverage = b.coverage
	if res.Coverage.Mapped == 0 {
		res.warn(p.log, "no texel found source geometry within %g", p.cfg.MaxRayDistance)
	}
	p.stage(fmt.Sprintf("baked %d properties (%d texels mapped)", len(res.Materials), res.Coverage.Mapped), start)
	return res
}

func (p *pipeline) voxelParams(idx *spatial.Index) voxel.Params {
	vp := voxel.DefaultParams()
	vp.HalfBandWidth = p.cfg.HalfBandWidth
	vp.MaxVoxels = p.cfg.MaxVoxels
	vp.VoxelSize = p.cfg.VoxelSize
	if vp.VoxelSize == 0 {
		size := idx.Bounds().Size()
		extent := max(size[0], size[1], size[2])
		if extent <= 0 || idx.TriangleCount() == 0 {
			extent = 1
		}
		vp.VoxelSize = extent / float64(p.cfg.VoxelResolution)
	}
	return vp
}

// tagCharts stores each vertex's chart id in the third attribute slot.
// Unwrapped vertices never straddle charts, so the id survives cleaning.
func tagCharts(m *mesh.Mesh, chartIDs []int32) *mesh.Mesh {
	if m.Kind.Attributes < 3 {
		m.Kind.Attributes = 3
	}
	for t, id := range chartIDs {
		for _, v := range m.Triangle(t) {
			m.Vertices[v].Attr[2] = float64(id)
		}
	}
	return m
}

// chartOf returns the chart of triangle t of a tagged mesh.
func chartOf(m *mesh.Mesh, t int) int {
	return int(m.Vertices[m.Indices[t*3]].Attr[2])
}
