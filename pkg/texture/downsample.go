package texture

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/grid"
)

const (
	// minCoverage is the fraction of a destination texel that must be
	// covered by valid source texels for the texel to be kept.
	minCoverage = 0.1
	// normalWeightEps bounds the weight of a sample against the frame
	// normal.
	normalWeightEps = 1e-2
	// singularFrameDet is the determinant below which a tangent frame is
	// projected with its transpose instead of its inverse.
	singularFrameDet = 1e-6
)

// DownsampleArea resamples src to w x h, weighting each source texel by the
// area it overlaps the destination texel. Invalid source texels contribute
// nothing. A destination texel with less than 10% valid coverage is zeroed
// and marked invalid.
func DownsampleArea(src *Image, srcTopo *Topology, w, h int) (*Image, *Topology) {
	if !grid.SameSize(src, srcTopo) {
		panic("texture: downsample on mismatched topology")
	}
	dst := grid.New[LinearColor](w, h)
	topo := grid.New[bool](w, h)
	sx := float64(src.Width()) / float64(w)
	sy := float64(src.Height()) / float64(h)
	for y := 0; y < h; y++ {
		y0, y1 := float64(y)*sy, float64(y+1)*sy
		for x := 0; x < w; x++ {
			x0, x1 := float64(x)*sx, float64(x+1)*sx
			var sum LinearColor
			covered := 0.0
			for j := int(y0); j < int(math.Ceil(y1)) && j < src.Height(); j++ {
				oy := overlap(y0, y1, float64(j))
				for i := int(x0); i < int(math.Ceil(x1)) && i < src.Width(); i++ {
					if !srcTopo.At(i, j) {
						continue
					}
					a := oy * overlap(x0, x1, float64(i))
					if a <= 0 {
						continue
					}
					sum = sum.Add(src.At(i, j).Scale(float32(a)))
					covered += a
				}
			}
			if covered < minCoverage*sx*sy {
				continue
			}
			dst.Set(x, y, sum.Scale(float32(1/covered)))
			topo.Set(x, y, true)
		}
	}
	return dst, topo
}

// overlap returns the length of [lo, hi) covered by the unit cell at c.
func overlap(lo, hi, c float64) float64 {
	return math.Max(0, math.Min(hi, c+1)-math.Max(lo, c))
}

// block visits the mapped texels of the factor x factor block at (x, y).
func block(src *Image, factor, x, y int, fn func(c LinearColor)) {
	for j := y * factor; j < (y+1)*factor && j < src.Height(); j++ {
		for i := x * factor; i < (x+1)*factor && i < src.Width(); i++ {
			if c := src.At(i, j); !c.IsUnmapped() {
				fn(c)
			}
		}
	}
}

func reducedSize(src *Image, factor int) (int, int) {
	return (src.Width() + factor - 1) / factor, (src.Height() + factor - 1) / factor
}

// DownsampleSparse averages factor x factor blocks of src, skipping Unmapped
// texels. Blocks with no mapped texel stay Unmapped and invalid. With luma
// set, chroma is averaged separately and rescaled to the block's mean
// luminance so dark and bright samples do not wash each other out.
func DownsampleSparse(src *Image, factor int, luma bool) (*Image, *Topology) {
	if factor < 1 {
		factor = 1
	}
	w, h := reducedSize(src, factor)
	dst := grid.NewFilled(w, h, Unmapped)
	topo := grid.New[bool](w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, chroma LinearColor
			var lumaSum float32
			n, lit := 0, 0
			block(src, factor, x, y, func(c LinearColor) {
				sum = sum.Add(c)
				n++
				if l := c.Luma(); l > 1e-6 {
					chroma = chroma.Add(c.Scale(1 / l))
					lumaSum += l
					lit++
				}
			})
			if n == 0 {
				continue
			}
			mean := sum.Scale(1 / float32(n))
			if luma && lit > 0 {
				target := lumaSum / float32(n)
				c := chroma.Scale(1 / float32(lit))
				if l := c.Luma(); l > 1e-6 {
					c = c.Scale(target / l)
				}
				mean = LinearColor{c[0], c[1], c[2], mean[3]}
			}
			dst.Set(x, y, mean)
			topo.Set(x, y, true)
		}
	}
	return dst, topo
}

// Frame is the tangent basis of a destination texel.
type Frame struct {
	T, B, N geom.Vec3
}

// IdentityFrame maps tangent space onto world axes.
var IdentityFrame = Frame{T: geom.Vec3{1, 0, 0}, B: geom.Vec3{0, 1, 0}, N: geom.Vec3{0, 0, 1}}

// DownsampleNormals averages encoded normals over factor x factor blocks.
// Each sample s is weighted by 1/(dot(s,N)^2+eps) against the frame normal of
// its destination texel. With tangentSpace set the average is expressed in
// the texel frame, using the transpose when the frame is near singular. A nil
// frames grid uses IdentityFrame everywhere.
func DownsampleNormals(src *Image, factor int, frames *grid.Grid[Frame], tangentSpace bool) (*Image, *Topology) {
	if factor < 1 {
		factor = 1
	}
	w, h := reducedSize(src, factor)
	if frames != nil && (frames.Width() != w || frames.Height() != h) {
		panic("texture: normal frames do not match output size")
	}
	dst := grid.NewFilled(w, h, Unmapped)
	topo := grid.New[bool](w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f := IdentityFrame
			if frames != nil {
				if ff := frames.At(x, y); ff.N.Len() > 0 {
					f = ff
				}
			}
			var sum geom.Vec3
			total := 0.0
			block(src, factor, x, y, func(c LinearColor) {
				s := DecodeNormal(c)
				d := s.Dot(f.N)
				w := 1 / (d*d + normalWeightEps)
				sum = sum.Add(s.Mul(w))
				total += w
			})
			if total == 0 {
				continue
			}
			v := sum.Mul(1 / total)
			if tangentSpace {
				v = toFrame(f, v)
			}
			for i := range v {
				v[i] = mgl64.Clamp(v[i], -1, 1)
			}
			if v.Len() < 1e-12 {
				v = geom.Vec3{0, 0, 1}
			}
			dst.Set(x, y, EncodeNormal(v.Normalize()))
			topo.Set(x, y, true)
		}
	}
	return dst, topo
}

// toFrame expresses world vector v in the basis of f.
func toFrame(f Frame, v geom.Vec3) geom.Vec3 {
	m := mgl64.Mat3FromCols(f.T, f.B, f.N)
	if math.Abs(m.Det()) < singularFrameDet {
		return m.Transpose().Mul3x1(v)
	}
	return m.Inv().Mul3x1(v)
}
