package texture

import (
	"bytes"
	"math"
	"testing"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/grid"
	"github.com/chazu/lodproxy/pkg/parallel"
)

func near(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func nearColor(t *testing.T, got, want LinearColor, eps float32) {
	t.Helper()
	for i := range got {
		if !near(got[i], want[i], eps) {
			t.Fatalf("color %v, want %v", got, want)
		}
	}
}

func TestLuma(t *testing.T) {
	if l := Gray(1).Luma(); !near(l, 1, 1e-6) {
		t.Errorf("white luma %g", l)
	}
	if l := (LinearColor{0, 1, 0, 1}).Luma(); !near(l, 0.7152, 1e-6) {
		t.Errorf("green luma %g", l)
	}
}

func seeded(w, h, x, y int, c LinearColor) (*Image, *Topology) {
	img := NewImage(w, h, Unmapped)
	img.Set(x, y, c)
	return img, TopologyOf(img)
}

func TestDilateSinglePass(t *testing.T) {
	img, topo := seeded(3, 3, 1, 1, Gray(0.25))
	if !Dilate(img, topo, parallel.Sequential) {
		t.Fatal("first pass reported no change")
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			cross := x == 1 || y == 1
			if topo.At(x, y) != cross {
				t.Errorf("texel (%d,%d): valid=%v after one pass", x, y, topo.At(x, y))
			}
		}
	}
	nearColor(t, img.At(0, 1), Gray(0.25), 1e-6)
}

func TestDilateUntilDone(t *testing.T) {
	for _, mode := range []parallel.ExecutionMode{parallel.Sequential, parallel.Parallel} {
		t.Run(mode.String(), func(t *testing.T) {
			img, topo := seeded(5, 5, 2, 2, LinearColor{0.1, 0.2, 0.3, 1})
			passes := DilateUntilDone(img, topo, mode)
			if passes != 4 {
				t.Errorf("passes = %d, want 4", passes)
			}
			for i, ok := range topo.Data() {
				if !ok {
					t.Fatalf("texel %d still invalid", i)
				}
				nearColor(t, img.Data()[i], LinearColor{0.1, 0.2, 0.3, 1}, 1e-6)
			}
			if Dilate(img, topo, mode) {
				t.Error("dilating a complete image changed it")
			}
		})
	}
}

func TestDilateNothingValid(t *testing.T) {
	img := NewImage(4, 4, Unmapped)
	topo := TopologyOf(img)
	if n := DilateUntilDone(img, topo, parallel.Parallel); n != 0 {
		t.Errorf("passes = %d on an empty image", n)
	}
}

func TestDownsampleArea(t *testing.T) {
	t.Run("uniform", func(t *testing.T) {
		img := NewImage(4, 4, Gray(1))
		dst, topo := DownsampleArea(img, TopologyOf(img), 2, 2)
		for i, c := range dst.Data() {
			if !topo.Data()[i] {
				t.Fatalf("texel %d invalid", i)
			}
			nearColor(t, c, Gray(1), 1e-6)
		}
	})
	t.Run("partial coverage kept", func(t *testing.T) {
		img, topo := seeded(4, 4, 0, 0, Gray(0.5))
		dst, dtopo := DownsampleArea(img, topo, 2, 2)
		if !dtopo.At(0, 0) {
			t.Fatal("25% covered texel dropped")
		}
		nearColor(t, dst.At(0, 0), Gray(0.5), 1e-6)
		if dtopo.At(1, 1) {
			t.Error("uncovered texel marked valid")
		}
	})
	t.Run("below coverage zeroed", func(t *testing.T) {
		img, topo := seeded(8, 8, 3, 3, Gray(1))
		dst, dtopo := DownsampleArea(img, topo, 1, 1)
		if dtopo.At(0, 0) {
			t.Error("texel with 1/64 coverage kept")
		}
		if dst.At(0, 0) != (LinearColor{}) {
			t.Errorf("texel not zeroed: %v", dst.At(0, 0))
		}
	})
	t.Run("non integer ratio", func(t *testing.T) {
		img := NewImage(3, 3, Gray(0.75))
		dst, topo := DownsampleArea(img, TopologyOf(img), 2, 2)
		for i, c := range dst.Data() {
			if !topo.Data()[i] {
				t.Fatalf("texel %d invalid", i)
			}
			nearColor(t, c, Gray(0.75), 1e-5)
		}
	})
}

func TestDownsampleSparse(t *testing.T) {
	img := NewImage(4, 2, Unmapped)
	img.Set(0, 0, Gray(0.2))
	img.Set(1, 1, Gray(0.6))

	dst, topo := DownsampleSparse(img, 2, false)
	if dst.Width() != 2 || dst.Height() != 1 {
		t.Fatalf("size %dx%d", dst.Width(), dst.Height())
	}
	nearColor(t, dst.At(0, 0), Gray(0.4), 1e-6)
	if topo.At(1, 0) || !dst.At(1, 0).IsUnmapped() {
		t.Error("empty block should stay unmapped")
	}

	colors := NewImage(2, 1, Unmapped)
	colors.Set(0, 0, LinearColor{1, 0, 0, 1})
	colors.Set(1, 0, LinearColor{0, 0, 1, 1})
	lum, _ := DownsampleSparse(colors, 2, true)
	want := (LinearColor{1, 0, 0, 1}.Luma() + LinearColor{0, 0, 1, 1}.Luma()) / 2
	if got := lum.At(0, 0).Luma(); !near(got, want, 1e-5) {
		t.Errorf("luma %g, want %g", got, want)
	}
	if a := lum.At(0, 0)[3]; !near(a, 1, 1e-6) {
		t.Errorf("alpha %g", a)
	}
}

func TestDownsampleNormals(t *testing.T) {
	up := EncodeNormal(geom.Vec3{0, 0, 1})
	down := EncodeNormal(geom.Vec3{0, -1, 0})

	tests := []struct {
		name    string
		sample  LinearColor
		frame   *Frame
		tangent bool
		want    geom.Vec3
	}{
		{"world", up, nil, false, geom.Vec3{0, 0, 1}},
		{"identity tangent", up, nil, true, geom.Vec3{0, 0, 1}},
		{
			"rotated frame", down,
			&Frame{T: geom.Vec3{1, 0, 0}, B: geom.Vec3{0, 0, 1}, N: geom.Vec3{0, -1, 0}},
			true, geom.Vec3{0, 0, 1},
		},
		{
			"singular frame uses transpose", up,
			&Frame{T: geom.Vec3{0, 0, 1}, B: geom.Vec3{0, 0, 1}, N: geom.Vec3{0, 0, 1}},
			true, geom.Vec3{1, 1, 1}.Normalize(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewImage(2, 2, tt.sample)
			var frames *grid.Grid[Frame]
			if tt.frame != nil {
				frames = grid.NewFilled(1, 1, *tt.frame)
			}
			dst, topo := DownsampleNormals(src, 2, frames, tt.tangent)
			if !topo.At(0, 0) {
				t.Fatal("texel invalid")
			}
			got := DecodeNormal(dst.At(0, 0))
			if got.Sub(tt.want).Len() > 1e-2 {
				t.Errorf("normal %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDownsampleNormalsUnmapped(t *testing.T) {
	src := NewImage(4, 4, Unmapped)
	src.Set(3, 3, EncodeNormal(geom.Vec3{1, 0, 0}))
	dst, topo := DownsampleNormals(src, 2, nil, false)
	if topo.At(0, 0) || !dst.At(0, 0).IsUnmapped() {
		t.Error("empty block mapped")
	}
	if got := DecodeNormal(dst.At(1, 1)); got.Sub(geom.Vec3{1, 0, 0}).Len() > 1e-2 {
		t.Errorf("normal %v", got)
	}
}

func TestSample(t *testing.T) {
	img := NewImage(2, 1, Gray(0))
	img.Set(1, 0, Gray(1))
	tests := []struct {
		uv   geom.Vec2
		want float32
	}{
		{geom.Vec2{0.5, 0.5}, 0.5},
		{geom.Vec2{0, 0.5}, 0},
		{geom.Vec2{1, 0.5}, 1},
		{geom.Vec2{0.375, 0.9}, 0.25},
	}
	for _, tt := range tests {
		if got := Sample(img, tt.uv)[0]; !near(got, tt.want, 1e-6) {
			t.Errorf("Sample(%v) = %g, want %g", tt.uv, got, tt.want)
		}
	}
	if got := Sample(Constant(Gray(0.3)), geom.Vec2{7, -2}); got != Gray(0.3) {
		t.Errorf("constant sample %v", got)
	}
}

func TestAverage(t *testing.T) {
	img := NewImage(2, 2, Unmapped)
	if _, ok := Average(img); ok {
		t.Error("average of unmapped image reported ok")
	}
	img.Set(0, 0, Gray(0.2))
	img.Set(1, 1, Gray(0.4))
	c, ok := Average(img)
	if !ok {
		t.Fatal("no average")
	}
	nearColor(t, c, Gray(0.3), 1e-6)
}

func TestProperty(t *testing.T) {
	for _, p := range AllProperties {
		got, err := ParseProperty(p.String())
		if err != nil || got != p {
			t.Errorf("ParseProperty(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParseProperty("albedo"); err == nil {
		t.Error("expected error for unknown property")
	}
	if p, err := ParseProperty(" Roughness "); err != nil || p != Roughness {
		t.Errorf("case-insensitive parse: %v, %v", p, err)
	}
}

func TestStaticMaterials(t *testing.T) {
	m := NewStaticMaterials()
	brick := m.Add("brick")
	m.SetConstant(brick, Diffuse, LinearColor{0.6, 0.2, 0.1, 1})

	if id, ok := m.Lookup("brick"); !ok || id != brick {
		t.Errorf("Lookup = %d, %v", id, ok)
	}
	if _, ok := m.Lookup("glass"); ok {
		t.Error("found unregistered material")
	}
	if got := m.Channel(brick, Diffuse).At(0, 0); got != (LinearColor{0.6, 0.2, 0.1, 1}) {
		t.Errorf("diffuse %v", got)
	}
	if got := m.Channel(brick, Metallic).At(0, 0); got != Metallic.DefaultValue() {
		t.Errorf("missing property %v", got)
	}
	if got := m.Channel(42, Normal).At(0, 0); got != Normal.DefaultValue() {
		t.Errorf("missing material %v", got)
	}
	if a, b := m.Channel(42, Roughness), m.Channel(brick, Roughness); a != b {
		t.Error("default channels should be shared, not allocated per lookup")
	}
}

func TestBMPRoundTrip(t *testing.T) {
	img := NewImage(3, 2, Gray(0))
	img.Set(0, 0, LinearColor{1, 0, 0, 1})
	img.Set(2, 1, LinearColor{0.5, 0.25, 1, 1})
	for i, c := range img.Data() {
		c[3] = 1
		img.Data()[i] = c
	}

	var buf bytes.Buffer
	if err := EncodeBMP(&buf, img, false); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(&buf, false)
	if err != nil {
		t.Fatal(err)
	}
	if !grid.SameSize(got, img) {
		t.Fatalf("size %dx%d", got.Width(), got.Height())
	}
	for i := range img.Data() {
		nearColor(t, got.Data()[i], img.Data()[i], 1.0/255)
	}
}

func TestSRGB(t *testing.T) {
	for _, v := range []float32{0, 0.001, 0.2, 0.5, 1} {
		if got := SRGBToLinear(LinearToSRGB(v)); !near(got, v, 1e-5) {
			t.Errorf("srgb round trip %g -> %g", v, got)
		}
	}
}
