// Package correspond maps every inside texel of a proxy raster to a point on
// the source geometry by casting rays along the proxy normal.
package correspond

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/grid"
	"github.com/chazu/lodproxy/pkg/kernel"
	"github.com/chazu/lodproxy/pkg/parallel"
	"github.com/chazu/lodproxy/pkg/raster"
	"github.com/chazu/lodproxy/pkg/spatial"
)

// RayPolicy selects between forward and reverse hits when both land.
type RayPolicy int

const (
	// RayPolicyClosest prefers co-aligned hits, then the nearer one.
	RayPolicyClosest RayPolicy = iota
	// RayPolicyForward prefers the forward hit when both are co-aligned.
	RayPolicyForward
)

func (p RayPolicy) String() string {
	if p == RayPolicyForward {
		return "forward"
	}
	return "closest"
}

// ParseRayPolicy accepts "closest" or "forward".
func ParseRayPolicy(s string) (RayPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "closest":
		return RayPolicyClosest, nil
	case "forward":
		return RayPolicyForward, nil
	}
	return 0, fmt.Errorf("correspond: unknown ray policy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p RayPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *RayPolicy) UnmarshalText(b []byte) error {
	v, err := ParseRayPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Direction tags which ray produced an entry.
type Direction int8

const (
	DirNone Direction = iota
	DirForward
	DirReverse
)

func (d Direction) String() string {
	switch d {
	case DirForward:
		return "forward"
	case DirReverse:
		return "reverse"
	}
	return "none"
}

// Entry is one texel of a correspondence grid.
type Entry struct {
	MaterialID int32 // -1 when unmapped
	TriangleID int32 // global source triangle id
	UV         geom.Vec2
	Bary       geom.Vec3
	Direction  Direction
	CoAligned  bool
	Chirality  int8
}

// Mapped reports whether the texel found source data.
func (e Entry) Mapped() bool { return e.MaterialID >= 0 }

// Unmapped is the entry for texels without source data.
var Unmapped = Entry{MaterialID: -1, TriangleID: -1, Chirality: 1}

// Grid is a texel grid of correspondence entries.
type Grid = grid.Grid[Entry]

// UVBounds is the UV rectangle a material's texture occupies.
type UVBounds struct {
	Min, Max geom.Vec2
}

// Source bundles the indexed source meshes with per-material UV bounds.
type Source struct {
	Index    *spatial.Index
	UVBounds map[int32]UVBounds
}

// Options configures correspondence.
type Options struct {
	Policy      RayPolicy
	MaxDistance float64
	Epsilon     float64
	Mode        parallel.ExecutionMode
}

// DefaultOptions returns closest-valid policy settings.
func DefaultOptions() Options {
	return Options{
		Policy:      RayPolicyClosest,
		MaxDistance: 0.1,
		Epsilon:     1e-4,
		Mode:        parallel.Parallel,
	}
}

// Build computes the correspondence for every texel of rg. proxy must carry
// the positions the raster was built from and, ideally, normals.
func Build(proxy *kernel.Mesh, rg *raster.Grid, src *Source, opts Options) *Grid {
	return build(proxy, rg, src, nil, opts)
}

// BuildClosestPoly is Build that first looks up the closest source triangle
// recorded during voxelization and only casts rays when none is in range.
func BuildClosestPoly(proxy *kernel.Mesh, rg *raster.Grid, src *Source, cp *spatial.ClosestPolyIndex, opts Options) *Grid {
	return build(proxy, rg, src, cp, opts)
}

func build(proxy *kernel.Mesh, rg *raster.Grid, src *Source, cp *spatial.ClosestPolyIndex, opts Options) *Grid {
	out := grid.NewFilled(rg.Width(), rg.Height(), Unmapped)
	parallel.ForRange(opts.Mode, rg.Height(), 1, func(lo, hi int) {
		q := src.Index.NewQuery()
		for y := lo; y < hi; y++ {
			row := out.Row(y)
			for x := range row {
				re := rg.At(x, y)
				if !re.Inside() {
					continue
				}
				p, n, ok := sample(proxy, re)
				if !ok {
					continue
				}
				if cp != nil {
					if e, ok := closestPoly(src, cp, p, n, opts); ok {
						row[x] = e
						continue
					}
				}
				if e, ok := castRays(q, src, p, n, opts); ok {
					row[x] = e
				}
			}
		}
	})
	return out
}

// sample interpolates the proxy position and unit normal at a raster entry.
func sample(proxy *kernel.Mesh, re raster.Entry) (p, n geom.Vec3, ok bool) {
	tri := proxy.Triangle(int(re.TriangleID))
	w := geom.Vec3{float64(re.Bary[0]), float64(re.Bary[1]), float64(re.Bary[2])}
	a, b, c := geom.Vec3(proxy.Position(tri[0])), geom.Vec3(proxy.Position(tri[1])), geom.Vec3(proxy.Position(tri[2]))
	p = geom.Interpolate3(w, a, b, c)
	if len(proxy.Normals) > 0 {
		n = geom.Interpolate3(w, geom.Vec3(proxy.Normal(tri[0])), geom.Vec3(proxy.Normal(tri[1])), geom.Vec3(proxy.Normal(tri[2])))
	} else {
		n = geom.FaceNormal(a, b, c)
	}
	l := n.Len()
	if l < 1e-12 {
		return p, n, false
	}
	return p, n.Mul(1 / l), true
}

type hit struct {
	ok        bool
	id        int
	t         float64
	bary      geom.Vec3
	coAligned bool
}

func castRays(q *spatial.Query, src *Source, p, n geom.Vec3, opts Options) (Entry, bool) {
	length := opts.MaxDistance + opts.Epsilon
	fs := p.Sub(n.Mul(opts.Epsilon))
	rs := p.Add(n.Mul(opts.Epsilon))

	var fwd, rev hit
	fwd.ok, fwd.id, fwd.t, fwd.bary = q.IntersectSegmentBary(fs, fs.Add(n.Mul(length)))
	rev.ok, rev.id, rev.t, rev.bary = q.IntersectSegmentBary(rs, rs.Sub(n.Mul(length)))
	// A hit is co-aligned when its face normal points along its own ray.
	if fwd.ok {
		fwd.coAligned = src.Index.FaceNormal(fwd.id).Dot(n) > 0
	}
	if rev.ok {
		rev.coAligned = src.Index.FaceNormal(rev.id).Dot(n.Mul(-1)) > 0
	}

	h, dir := selectHit(fwd, rev, opts.Policy)
	if dir == DirNone {
		return Unmapped, false
	}
	return record(src, h.id, h.bary, dir, h.coAligned), true
}

// selectHit applies the ray policy to the forward and reverse hits.
func selectHit(fwd, rev hit, policy RayPolicy) (hit, Direction) {
	switch {
	case !fwd.ok && !rev.ok:
		return hit{}, DirNone
	case !rev.ok:
		return fwd, DirForward
	case !fwd.ok:
		return rev, DirReverse
	}
	switch {
	case fwd.coAligned && rev.coAligned:
		if policy == RayPolicyForward || fwd.t <= rev.t {
			return fwd, DirForward
		}
		return rev, DirReverse
	case fwd.coAligned:
		return fwd, DirForward
	default:
		// Covers a co-aligned reverse hit and the neither-aligned fallback.
		return rev, DirReverse
	}
}

func closestPoly(src *Source, cp *spatial.ClosestPolyIndex, p, n geom.Vec3, opts Options) (Entry, bool) {
	id, ok := cp.Nearest(p, opts.MaxDistance)
	if !ok {
		return Unmapped, false
	}
	c := src.Index.Triangle(id)
	q, w := geom.ClosestPointOnTriangle(p, c[0], c[1], c[2])
	d := q.Sub(p)
	if d.Len() > opts.MaxDistance {
		return Unmapped, false
	}
	dir := DirForward
	if d.Dot(n) < 0 {
		dir = DirReverse
	}
	// Judge alignment along the direction towards the closest point. A
	// sample lying on the surface falls back to the ray of its direction tag.
	ray := d
	if ray.Len() < 1e-12 {
		ray = n
		if dir == DirReverse {
			ray = n.Mul(-1)
		}
	}
	co := src.Index.FaceNormal(id).Dot(ray) > 0
	return record(src, id, w, dir, co), true
}

// record fills an entry for a hit on global source triangle id.
func record(src *Source, id int, w geom.Vec3, dir Direction, coAligned bool) Entry {
	mi, face := src.Index.Locate(id)
	m := src.Index.Mesh(mi)
	e := Entry{
		MaterialID: m.MaterialID(face),
		TriangleID: int32(id),
		Bary:       w,
		Direction:  dir,
		CoAligned:  coAligned,
		Chirality:  1,
	}
	tri := m.Triangle(face)
	if m.HasUVs() {
		uv := geom.Interpolate2(w, geom.Vec2(m.UV(tri[0])), geom.Vec2(m.UV(tri[1])), geom.Vec2(m.UV(tri[2])))
		if b, ok := src.UVBounds[e.MaterialID]; ok {
			ext := b.Max.Sub(b.Min)
			if ext[0] > 0 && ext[1] > 0 {
				uv = geom.Vec2{(uv[0] - b.Min[0]) / ext[0], (uv[1] - b.Min[1]) / ext[1]}
			}
		}
		if uv[0] < 0 || uv[0] > 1 || uv[1] < 0 || uv[1] > 1 {
			uv = geom.Vec2{}
		}
		e.UV = uv
	}
	if m.HasTangents() && len(m.Normals) > 0 {
		e.Chirality = chirality(m, tri, w)
	}
	return e
}

// chirality is the sign of the determinant of the interpolated tangent
// frame.
func chirality(m *kernel.Mesh, tri [3]uint32, w geom.Vec3) int8 {
	var t, b, n geom.Vec3
	for k, v := range tri {
		tv, sign := m.Tangent(v)
		nv := geom.Vec3(m.Normal(v))
		tk := geom.Vec3(tv)
		t = t.Add(tk.Mul(w[k]))
		n = n.Add(nv.Mul(w[k]))
		b = b.Add(nv.Cross(tk).Mul(sign * w[k]))
	}
	if mgl64.Mat3FromCols(t, b, n).Det() < 0 {
		return -1
	}
	return 1
}

// Stats counts how the texels of a grid were resolved.
type Stats struct {
	Mapped, Forward, Reverse, Misaligned int
}

// Summarize tallies a correspondence grid.
func Summarize(g *Grid) Stats {
	var s Stats
	for _, e := range g.Data() {
		if !e.Mapped() {
			continue
		}
		s.Mapped++
		switch e.Direction {
		case DirForward:
			s.Forward++
		case DirReverse:
			s.Reverse++
		}
		if !e.CoAligned {
			s.Misaligned++
		}
	}
	return s
}
