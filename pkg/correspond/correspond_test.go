package correspond

import (
	"math"
	"testing"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/kernel"
	"github.com/chazu/lodproxy/pkg/parallel"
	"github.com/chazu/lodproxy/pkg/raster"
	"github.com/chazu/lodproxy/pkg/spatial"
)

// proxyQuad is the unit square at z=0 facing +z with UVs equal to xy.
func proxyQuad() *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		UVs:      []float32{0, 0, 1, 0, 1, 1, 0, 1},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
	}
}

// sourcePlane spans [-1, 2] in x and y at height z. UVs map the span onto
// [0, 1]. flipped reverses the winding so the face normal points down.
func sourcePlane(z float32, material int32, flipped bool) *kernel.Mesh {
	m := &kernel.Mesh{
		Vertices: []float32{-1, -1, z, 2, -1, z, 2, 2, z, -1, 2, z},
		UVs:      []float32{0, 0, 1, 0, 1, 1, 0, 1},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
	}
	if flipped {
		m.Indices = []uint32{0, 2, 1, 0, 3, 2}
	}
	m.MaterialIDs = []int32{material, material}
	return m
}

func rasterOf(proxy *kernel.Mesh, size int) *raster.Grid {
	uvs := make([]geom.Vec2, proxy.VertexCount())
	for i := range uvs {
		uvs[i] = geom.Vec2(proxy.UV(uint32(i)))
	}
	return raster.Rasterize(uvs, proxy.Indices, size, size, raster.Options{Padding: 1, Mode: parallel.Sequential})
}

func testOptions(policy RayPolicy) Options {
	return Options{Policy: policy, MaxDistance: 1, Epsilon: 1e-4, Mode: parallel.Parallel}
}

func TestUnmappedSentinel(t *testing.T) {
	proxy := proxyQuad()
	rg := rasterOf(proxy, 4)
	rg.Fill(raster.Entry{TriangleID: -1, SignedDistance: float32(math.Inf(1))})
	src := &Source{Index: spatial.Build(sourcePlane(0.5, 3, false))}
	g := Build(proxy, rg, src, testOptions(RayPolicyClosest))
	for i, e := range g.Data() {
		if e.MaterialID != -1 {
			t.Fatalf("texel %d: expected material -1, got %d", i, e.MaterialID)
		}
	}
}

func TestSingleHits(t *testing.T) {
	tests := []struct {
		name    string
		z       float32
		flipped bool
		dir     Direction
		aligned bool
	}{
		{"above facing up", 0.5, false, DirForward, true},
		{"below facing down", -0.5, true, DirReverse, true},
		{"below facing up", -0.5, false, DirReverse, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxy := proxyQuad()
			src := &Source{Index: spatial.Build(sourcePlane(tt.z, 3, tt.flipped))}
			g := Build(proxy, rasterOf(proxy, 4), src, testOptions(RayPolicyClosest))
			for i, e := range g.Data() {
				if e.MaterialID != 3 {
					t.Fatalf("texel %d: expected material 3, got %d", i, e.MaterialID)
				}
				if e.Direction != tt.dir {
					t.Errorf("texel %d: expected %s, got %s", i, tt.dir, e.Direction)
				}
				if e.CoAligned != tt.aligned {
					t.Errorf("texel %d: co-aligned = %v, want %v", i, e.CoAligned, tt.aligned)
				}
			}
			e := g.At(0, 0)
			want := 1.125 / 3
			if math.Abs(e.UV[0]-want) > 1e-5 || math.Abs(e.UV[1]-want) > 1e-5 {
				t.Errorf("expected uv (%g, %g), got %v", want, want, e.UV)
			}
		})
	}
}

func TestPolicies(t *testing.T) {
	tests := []struct {
		name         string
		policy       RayPolicy
		upFlip       bool
		downFlip     bool
		wantMaterial int32
		wantDir      Direction
		wantAligned  bool
	}{
		// The reverse ray travels along -N, so a surface below the proxy is
		// co-aligned only when it faces down.
		{"closest picks nearer reverse", RayPolicyClosest, false, true, 2, DirReverse, true},
		{"forward policy picks forward", RayPolicyForward, false, true, 1, DirForward, true},
		{"upward surface below is misaligned", RayPolicyClosest, false, false, 1, DirForward, true},
		{"only reverse aligned", RayPolicyForward, true, true, 2, DirReverse, true},
		{"neither aligned falls back to reverse", RayPolicyForward, true, false, 2, DirReverse, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxy := proxyQuad()
			src := &Source{Index: spatial.Build(sourcePlane(0.3, 1, tt.upFlip), sourcePlane(-0.2, 2, tt.downFlip))}
			g := Build(proxy, rasterOf(proxy, 4), src, testOptions(tt.policy))
			e := g.At(1, 2)
			if e.MaterialID != tt.wantMaterial || e.Direction != tt.wantDir || e.CoAligned != tt.wantAligned {
				t.Errorf("got material %d %s aligned=%v, want material %d %s aligned=%v",
					e.MaterialID, e.Direction, e.CoAligned, tt.wantMaterial, tt.wantDir, tt.wantAligned)
			}
		})
	}
}

func TestMaxDistance(t *testing.T) {
	proxy := proxyQuad()
	src := &Source{Index: spatial.Build(sourcePlane(5, 3, false))}
	g := Build(proxy, rasterOf(proxy, 4), src, testOptions(RayPolicyClosest))
	if s := Summarize(g); s.Mapped != 0 {
		t.Errorf("expected no mapped texels beyond the max distance, got %d", s.Mapped)
	}
}

func TestUVRescaleAndClamp(t *testing.T) {
	proxy := proxyQuad()
	m := sourcePlane(0.5, 4, false)
	src := &Source{
		Index:    spatial.Build(m),
		UVBounds: map[int32]UVBounds{4: {Min: geom.Vec2{0, 0}, Max: geom.Vec2{0.5, 0.5}}},
	}
	g := Build(proxy, rasterOf(proxy, 4), src, testOptions(RayPolicyClosest))

	// Source uv 0.375 rescales to 0.75.
	e := g.At(0, 0)
	if math.Abs(e.UV[0]-0.75) > 1e-5 || math.Abs(e.UV[1]-0.75) > 1e-5 {
		t.Errorf("expected rescaled uv (0.75, 0.75), got %v", e.UV)
	}
	// Source uv 0.625 rescales past 1 and is clamped to the origin.
	e = g.At(3, 3)
	if e.UV != (geom.Vec2{}) {
		t.Errorf("expected clamped uv (0, 0), got %v", e.UV)
	}
}

func TestChirality(t *testing.T) {
	proxy := proxyQuad()
	m := sourcePlane(0.5, 0, false)
	m.Normals = []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1}
	m.Tangents = []float32{1, 0, 0, -1, 1, 0, 0, -1, 1, 0, 0, -1, 1, 0, 0, -1}
	g := Build(proxy, rasterOf(proxy, 4), &Source{Index: spatial.Build(m)}, testOptions(RayPolicyClosest))
	for i, e := range g.Data() {
		if e.Chirality != -1 {
			t.Fatalf("texel %d: expected mirrored chirality, got %d", i, e.Chirality)
		}
	}

	plain := Build(proxy, rasterOf(proxy, 4), &Source{Index: spatial.Build(sourcePlane(0.5, 0, false))}, testOptions(RayPolicyClosest))
	if c := plain.At(2, 2).Chirality; c != 1 {
		t.Errorf("expected default chirality 1, got %d", c)
	}
}

func TestBuildClosestPoly(t *testing.T) {
	proxy := proxyQuad()
	src := &Source{Index: spatial.Build(sourcePlane(0.05, 1, false), sourcePlane(-0.08, 2, false))}
	var samples []spatial.PolySample
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			px, py := (float64(x)+0.5)/4, (float64(y)+0.5)/4
			id := int32(2)
			if py > px {
				id = 3
			}
			samples = append(samples, spatial.PolySample{Pos: geom.Vec3{px, py, 0}, TriangleID: id})
		}
	}
	cp := spatial.NewClosestPolyIndex(samples)
	opts := testOptions(RayPolicyClosest)
	opts.MaxDistance = 0.1

	rays := Build(proxy, rasterOf(proxy, 4), src, opts)
	if e := rays.At(1, 1); e.MaterialID != 1 {
		t.Fatalf("ray casting should pick the nearer plane, got material %d", e.MaterialID)
	}

	g := BuildClosestPoly(proxy, rasterOf(proxy, 4), src, cp, opts)
	for i, e := range g.Data() {
		if e.MaterialID != 2 || e.Direction != DirReverse {
			t.Fatalf("texel %d: expected closest-poly material 2 reverse, got %d %s", i, e.MaterialID, e.Direction)
		}
		// The plane below faces up, away from the downward search direction.
		if e.CoAligned {
			t.Fatalf("texel %d: expected a misaligned closest-poly hit", i)
		}
	}
}

func TestSelectHitNoHits(t *testing.T) {
	if _, dir := selectHit(hit{}, hit{}, RayPolicyClosest); dir != DirNone {
		t.Errorf("expected no direction, got %s", dir)
	}
}
