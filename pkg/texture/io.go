package texture

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// SRGBToLinear converts one sRGB-encoded channel in [0, 1] to linear.
func SRGBToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow(float64((v+0.055)/1.055), 2.4))
}

// LinearToSRGB converts one linear channel in [0, 1] to sRGB.
func LinearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return float32(1.055*math.Pow(float64(v), 1/2.4) - 0.055)
}

// FromImage converts a decoded image. srgb selects whether the color
// channels are sRGB-encoded; alpha is always linear.
func FromImage(src image.Image, srgb bool) *Image {
	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy(), LinearColor{})
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			lc := LinearColor{
				float32(c.R) / 255,
				float32(c.G) / 255,
				float32(c.B) / 255,
				float32(c.A) / 255,
			}
			if srgb {
				for i := 0; i < 3; i++ {
					lc[i] = SRGBToLinear(lc[i])
				}
			}
			img.Set(x, y, lc)
		}
	}
	return img
}

// Decode reads a PNG, BMP or WebP image.
func Decode(r io.Reader, srgb bool) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("texture: decode: %w", err)
	}
	return FromImage(src, srgb), nil
}

// LoadImage reads an image file.
func LoadImage(path string, srgb bool) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texture: open %s: %w", path, err)
	}
	defer f.Close()
	img, err := Decode(f, srgb)
	if err != nil {
		return nil, fmt.Errorf("texture: %s: %w", path, err)
	}
	return img, nil
}

// ToNRGBA quantizes img to 8 bits per channel. Unmapped texels become
// transparent black.
func ToNRGBA(img *Image, srgb bool) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width(), img.Height()))
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			c := img.At(x, y)
			if c.IsUnmapped() {
				continue
			}
			if srgb {
				for i := 0; i < 3; i++ {
					c[i] = LinearToSRGB(clampUnit(c[i]))
				}
			}
			out.SetNRGBA(x, y, color.NRGBA{
				R: quantize(c[0]),
				G: quantize(c[1]),
				B: quantize(c[2]),
				A: quantize(c[3]),
			})
		}
	}
	return out
}

// EncodeBMP writes img as a BMP.
func EncodeBMP(w io.Writer, img *Image, srgb bool) error {
	if err := bmp.Encode(w, ToNRGBA(img, srgb)); err != nil {
		return fmt.Errorf("texture: encode bmp: %w", err)
	}
	return nil
}

// WriteBMP writes img to path as a BMP.
func WriteBMP(path string, img *Image, srgb bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("texture: create %s: %w", path, err)
	}
	if err := EncodeBMP(f, img, srgb); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func clampUnit(v float32) float32 {
	return float32(math.Max(0, math.Min(1, float64(v))))
}

func quantize(v float32) uint8 {
	return uint8(math.Round(float64(clampUnit(v)) * 255))
}
