package texture

import (
	"github.com/chazu/lodproxy/pkg/grid"
	"github.com/chazu/lodproxy/pkg/parallel"
)

// Dilate fills every invalid texel that has at least one valid 4-connected
// neighbour with the average of those neighbours, and marks it valid. Only
// texels valid before the pass contribute, so each call grows the valid
// region by one ring. It reports whether any texel changed.
func Dilate(values *Image, topo *Topology, mode parallel.ExecutionMode) bool {
	if !grid.SameSize(values, topo) {
		panic("texture: dilate on mismatched topology")
	}
	before := topo.Clone()
	w, h := values.Width(), values.Height()
	return parallel.Reduce(mode, h, 0, false, func(lo, hi int) bool {
		changed := false
		for y := lo; y < hi; y++ {
			for x := 0; x < w; x++ {
				if before.At(x, y) {
					continue
				}
				var sum LinearColor
				n := 0
				for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx, ny := x+d[0], y+d[1]
					if !before.InBounds(nx, ny) || !before.At(nx, ny) {
						continue
					}
					sum = sum.Add(values.At(nx, ny))
					n++
				}
				if n == 0 {
					continue
				}
				values.Set(x, y, sum.Scale(1/float32(n)))
				topo.Set(x, y, true)
				changed = true
			}
		}
		return changed
	}, func(a, b bool) bool { return a || b })
}

// DilateUntilDone repeats Dilate until nothing changes and returns the
// number of passes that changed the image.
func DilateUntilDone(values *Image, topo *Topology, mode parallel.ExecutionMode) int {
	passes := 0
	for Dilate(values, topo, mode) {
		passes++
	}
	return passes
}

// TopologyOf marks every texel of img that is not Unmapped.
func TopologyOf(img *Image) *Topology {
	topo := grid.New[bool](img.Width(), img.Height())
	for i, c := range img.Data() {
		topo.Data()[i] = !c.IsUnmapped()
	}
	return topo
}
