package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/chazu/lodproxy/pkg/geom"
)

// PolySample records the closest source triangle for one voxel center.
type PolySample struct {
	Pos        geom.Vec3
	TriangleID int32
}

// Compare implements kdtree.Comparable.
func (s *PolySample) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	o := c.(*PolySample)
	return s.Pos[d] - o.Pos[d]
}

// Dims implements kdtree.Comparable.
func (s *PolySample) Dims() int { return 3 }

// Distance implements kdtree.Comparable and returns the squared distance.
func (s *PolySample) Distance(c kdtree.Comparable) float64 {
	o := c.(*PolySample)
	return s.Pos.Sub(o.Pos).LenSqr()
}

type polySamples []PolySample

func (p polySamples) Index(i int) kdtree.Comparable { return &p[i] }
func (p polySamples) Len() int                      { return len(p) }
func (p polySamples) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

func (p polySamples) Pivot(d kdtree.Dim) int {
	pl := samplePlane{dim: d, samples: p}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

type samplePlane struct {
	dim     kdtree.Dim
	samples polySamples
}

func (p samplePlane) Less(i, j int) bool {
	return p.samples[i].Pos[p.dim] < p.samples[j].Pos[p.dim]
}
func (p samplePlane) Swap(i, j int) { p.samples[i], p.samples[j] = p.samples[j], p.samples[i] }
func (p samplePlane) Len() int      { return len(p.samples) }
func (p samplePlane) Slice(start, end int) kdtree.SortSlicer {
	p.samples = p.samples[start:end]
	return p
}

// ClosestPolyIndex is a sparse map from narrow-band voxel centers to the
// closest source triangle, stored in a kd-tree.
type ClosestPolyIndex struct {
	tree *kdtree.Tree
	n    int
}

// NewClosestPolyIndex builds the tree. The samples slice is reordered.
func NewClosestPolyIndex(samples []PolySample) *ClosestPolyIndex {
	if len(samples) == 0 {
		return &ClosestPolyIndex{}
	}
	return &ClosestPolyIndex{tree: kdtree.New(polySamples(samples), false), n: len(samples)}
}

// Len returns the number of stored samples.
func (c *ClosestPolyIndex) Len() int {
	if c == nil {
		return 0
	}
	return c.n
}

// Nearest returns the triangle recorded at the sample nearest to p, provided
// that sample lies within maxDist.
func (c *ClosestPolyIndex) Nearest(p geom.Vec3, maxDist float64) (triangleID int, ok bool) {
	if c.Len() == 0 {
		return -1, false
	}
	got, distSq := c.tree.Nearest(&PolySample{Pos: p})
	if got == nil || math.Sqrt(distSq) > maxDist {
		return -1, false
	}
	return int(got.(*PolySample).TriangleID), true
}
