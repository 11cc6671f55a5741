// Package texture holds linear color images, their validity masks and the
// dilation and downsampling passes that turn super-sampled bakes into final
// material maps.
package texture

import (
	"math"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/grid"
)

// LinearColor is an RGBA color in linear space.
type LinearColor [4]float32

// Unmapped marks texels without data. Only its negative alpha is significant.
var Unmapped = LinearColor{0, 0, 0, -1}

// IsUnmapped reports whether c is the unmapped sentinel.
func (c LinearColor) IsUnmapped() bool { return c[3] < 0 }

// Add returns c + o.
func (c LinearColor) Add(o LinearColor) LinearColor {
	return LinearColor{c[0] + o[0], c[1] + o[1], c[2] + o[2], c[3] + o[3]}
}

// Scale returns c * s.
func (c LinearColor) Scale(s float32) LinearColor {
	return LinearColor{c[0] * s, c[1] * s, c[2] * s, c[3] * s}
}

// Luma returns the Rec. 709 luminance.
func (c LinearColor) Luma() float32 {
	return 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
}

// Gray returns an opaque gray.
func Gray(v float32) LinearColor { return LinearColor{v, v, v, 1} }

// Image is a grid of linear colors.
type Image = grid.Grid[LinearColor]

// Topology marks which texels of an image hold valid data.
type Topology = grid.Grid[bool]

// NewImage returns a w x h image filled with c.
func NewImage(w, h int, c LinearColor) *Image {
	return grid.NewFilled(w, h, c)
}

// Constant returns a 1x1 image, which materials treat as a constant value.
func Constant(c LinearColor) *Image {
	return grid.NewFilled(1, 1, c)
}

// EncodeNormal packs a unit vector into [0, 1] color channels.
func EncodeNormal(n geom.Vec3) LinearColor {
	return LinearColor{
		float32(n[0]*0.5 + 0.5),
		float32(n[1]*0.5 + 0.5),
		float32(n[2]*0.5 + 0.5),
		1,
	}
}

// DecodeNormal unpacks an encoded normal and renormalizes it.
func DecodeNormal(c LinearColor) geom.Vec3 {
	n := geom.Vec3{float64(c[0])*2 - 1, float64(c[1])*2 - 1, float64(c[2])*2 - 1}
	if l := n.Len(); l > 1e-12 {
		return n.Mul(1 / l)
	}
	return geom.Vec3{0, 0, 1}
}

// Average returns the mean of the mapped texels, or ok=false when none are.
func Average(img *Image) (LinearColor, bool) {
	var sum LinearColor
	n := 0
	for _, c := range img.Data() {
		if c.IsUnmapped() {
			continue
		}
		sum = sum.Add(c)
		n++
	}
	if n == 0 {
		return LinearColor{}, false
	}
	return sum.Scale(1 / float32(n)), true
}

// Sample bilinearly filters img at uv with clamped addressing. Texel centers
// sit at ((x+0.5)/w, (y+0.5)/h).
func Sample(img *Image, uv geom.Vec2) LinearColor {
	w, h := img.Width(), img.Height()
	if w == 1 && h == 1 {
		return img.At(0, 0)
	}
	fx := uv[0]*float64(w) - 0.5
	fy := uv[1]*float64(h) - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := float32(fx - float64(x0))
	ty := float32(fy - float64(y0))
	at := func(x, y int) LinearColor {
		return img.At(clamp(x, 0, w-1), clamp(y, 0, h-1))
	}
	top := at(x0, y0).Scale(1 - tx).Add(at(x0+1, y0).Scale(tx))
	bottom := at(x0, y0+1).Scale(1 - tx).Add(at(x0+1, y0+1).Scale(tx))
	return top.Scale(1 - ty).Add(bottom.Scale(ty))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
