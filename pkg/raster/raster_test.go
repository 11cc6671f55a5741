package raster

import (
	"math"
	"testing"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/parallel"
)

func TestRasterizeUnitTriangle(t *testing.T) {
	uvs := []geom.Vec2{{0, 0}, {1, 0}, {0, 1}}
	g := Rasterize(uvs, []uint32{0, 1, 2}, 4, 4, Options{Padding: 2, Mode: parallel.Sequential})

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			e := g.At(x, y)
			switch {
			case x+y < 3:
				if !e.Inside() || e.TriangleID != 0 {
					t.Errorf("texel (%d,%d): expected inside triangle 0, got %+v", x, y, e)
				}
				for _, b := range e.Bary {
					if b < 0 || b > 1 {
						t.Errorf("texel (%d,%d): barycentric %v out of range", x, y, e.Bary)
					}
				}
			case x+y > 3:
				if e.SignedDistance < 0 {
					t.Errorf("texel (%d,%d): outside texel has negative distance %g", x, y, e.SignedDistance)
				}
			}
		}
	}
}

func TestRasterizeFullSquare(t *testing.T) {
	uvs := []geom.Vec2{{0, 0}, {2, 0}, {0, 2}}
	g := Rasterize(uvs, []uint32{0, 1, 2}, 8, 8, DefaultOptions())
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			e := g.At(x, y)
			if e.TriangleID != 0 || !e.Inside() {
				t.Fatalf("texel (%d,%d): expected triangle 0 inside, got %+v", x, y, e)
			}
			sum := e.Bary[0] + e.Bary[1] + e.Bary[2]
			if math.Abs(float64(sum)-1) > 1e-5 {
				t.Errorf("texel (%d,%d): weights sum to %g", x, y, sum)
			}
		}
	}
}

func TestRasterizeBaryInterpolatesCenter(t *testing.T) {
	uvs := []geom.Vec2{{0, 0}, {1, 0}, {0, 1}}
	g := Rasterize(uvs, []uint32{0, 1, 2}, 4, 4, DefaultOptions())
	e := g.At(0, 0)
	u := float64(e.Bary[1])
	v := float64(e.Bary[2])
	if math.Abs(u-0.125) > 1e-6 || math.Abs(v-0.125) > 1e-6 {
		t.Errorf("expected uv (0.125, 0.125) at texel (0,0), got (%g, %g)", u, v)
	}
}

func TestRasterizeOverlapLowerIDWins(t *testing.T) {
	uvs := []geom.Vec2{{0, 0}, {2, 0}, {0, 2}}
	indices := []uint32{0, 1, 2, 0, 1, 2, 0, 1, 2}
	for i := 0; i < 5; i++ {
		g := Rasterize(uvs, indices, 8, 8, DefaultOptions())
		for _, e := range g.Data() {
			if e.TriangleID != 0 {
				t.Fatalf("expected triangle 0 to win every texel, got %d", e.TriangleID)
			}
		}
	}
}

func TestRasterizeOutsideClosest(t *testing.T) {
	// Two triangles in opposite corners; the middle column is outside both.
	uvs := []geom.Vec2{
		{0, 0}, {0.25, 0}, {0, 1},
		{1, 0}, {1, 1}, {0.75, 1},
	}
	g := Rasterize(uvs, []uint32{0, 1, 2, 3, 4, 5}, 8, 8, Options{Padding: 8, Mode: parallel.Parallel})
	left := g.At(2, 7)
	if left.TriangleID != 0 || left.Inside() {
		t.Errorf("texel (2,7): expected outside triangle 0, got %+v", left)
	}
	right := g.At(5, 0)
	if right.TriangleID != 1 || right.Inside() {
		t.Errorf("texel (5,0): expected outside triangle 1, got %+v", right)
	}
	if left.SignedDistance <= 0 {
		t.Errorf("outside texel should carry a positive squared distance, got %g", left.SignedDistance)
	}
}

func TestRasterizePaddedBoxCorners(t *testing.T) {
	// Texel-space corners (4,4) (6,4) (4,6); padding 1 spans columns and rows 3..7.
	uvs := []geom.Vec2{{0.5, 0.5}, {0.75, 0.5}, {0.5, 0.75}}
	g := Rasterize(uvs, []uint32{0, 1, 2}, 8, 8, Options{Padding: 1, Mode: parallel.Sequential})

	corner := g.At(7, 7)
	if corner.TriangleID != 0 || corner.Inside() {
		t.Fatalf("texel (7,7): expected outside triangle 0, got %+v", corner)
	}
	if math.Abs(float64(corner.SignedDistance)-12.5) > 1e-4 {
		t.Errorf("texel (7,7): squared distance = %g, want 12.5", corner.SignedDistance)
	}
	if e := g.At(2, 2); e.TriangleID != -1 {
		t.Errorf("texel (2,2) lies outside the padded box, got %+v", e)
	}
}

func TestRasterizeSkipsDegenerate(t *testing.T) {
	uvs := []geom.Vec2{{0, 0}, {1, 1}, {0.5, 0.5}}
	g := Rasterize(uvs, []uint32{0, 1, 2}, 4, 4, DefaultOptions())
	for _, e := range g.Data() {
		if e.TriangleID != -1 {
			t.Fatalf("degenerate triangle claimed a texel: %+v", e)
		}
	}
}

func TestSuperSample(t *testing.T) {
	uvs := []geom.Vec2{{0, 0}, {2, 0}, {0, 2}}
	g := SuperSample(uvs, []uint32{0, 1, 2}, 4, 4, 2, DefaultOptions())
	if g.Width() != 8 || g.Height() != 8 {
		t.Fatalf("expected 8x8, got %dx%d", g.Width(), g.Height())
	}
}
