package simplify

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/mesh"
	"github.com/chazu/lodproxy/pkg/parallel"
)

// DefaultStages is the partition cascade.
var DefaultStages = []int{6, 4, 2, 1}

// minPartitionTarget is the smallest per-partition triangle target.
const minPartitionTarget = 4

// RegionCounter reports how many source triangles fall in each of n buckets
// along box's major axis. spatial.Index implements it.
type RegionCounter interface {
	CountByRegion(box geom.AABB, n int) []int
}

// Options configures ParallelSimplify.
type Options struct {
	RetainFraction  float64
	ErrorBudget     float64
	Stages          []int
	Mode            parallel.ExecutionMode
	AttributeWeight float64
}

// DefaultOptions returns the standard cascade settings.
func DefaultOptions() Options {
	return Options{
		RetainFraction: 0.1,
		ErrorBudget:    1e-3,
		Stages:         DefaultStages,
		Mode:           parallel.Parallel,
	}
}

// ErrBadRetainFraction is returned for a retain fraction outside (0, 1].
var ErrBadRetainFraction = errors.New("simplify: retain fraction must be in (0, 1]")

// ParallelSimplify runs the partition cascade over m in place. Each stage
// partitions the previous stage's output, decimates every partition as its
// own task with seams pinned, and merges. The final single-partition stage
// has nothing pinned. It returns the largest collapse error applied.
func ParallelSimplify(m *mesh.Mesh, counter RegionCounter, opts Options) (float64, error) {
	if opts.RetainFraction <= 0 || opts.RetainFraction > 1 {
		return 0, ErrBadRetainFraction
	}
	if m.IsEmpty() {
		return 0, nil
	}
	stages := opts.Stages
	if len(stages) == 0 {
		stages = DefaultStages
	}

	var maxError float64
	for _, n := range stages {
		if n < 1 {
			return maxError, fmt.Errorf("simplify: invalid stage partition count %d", n)
		}
		box := m.BoundingBox()
		counts := counter.CountByRegion(box, n)
		if len(counts) != n {
			return maxError, fmt.Errorf("simplify: region counter returned %d buckets, want %d", len(counts), n)
		}
		parts := PartitionByMajorAxis(m, box, n)
		results := make([]Result, n)
		lock := n > 1

		g := parallel.NewGroup(opts.Mode)
		for i := range parts {
			g.Go(func() {
				p := parts[i]
				if p.Mesh.IsEmpty() {
					results[i] = Result{Mesh: p.Mesh}
					return
				}
				target := partitionTarget(counts[p.Bucket], opts.RetainFraction, p.Mesh.TriangleCount())
				results[i] = SimplifyPartition(p.Mesh, TargetRange{Min: target, Max: math.MaxInt},
					opts.ErrorBudget, lock, p.Seams, opts.AttributeWeight)
			})
		}
		g.Wait()

		for _, r := range results {
			maxError = math.Max(maxError, r.MaxError)
		}
		merged := Merge(results)
		m.Swap(merged)
	}
	return maxError, nil
}

func partitionTarget(sourceTris int, retain float64, current int) int {
	target := int(math.Round(float64(sourceTris) * retain))
	if target < minPartitionTarget {
		target = minPartitionTarget
	}
	if target > current {
		target = current
	}
	return target
}
