package simplify

import (
	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/mesh"
	"github.com/chazu/lodproxy/pkg/spatial"
)

// Partition is one spatial bucket of a mesh.
type Partition struct {
	Bucket int
	Mesh   *mesh.Mesh
	// Seams are local ids of vertices also referenced by triangles in
	// another bucket.
	Seams []uint32
}

// Result is a simplified partition ready for merging.
type Result struct {
	Mesh     *mesh.Mesh
	Seams    []uint32
	MaxError float64
}

// PartitionByMajorAxis splits m into n buckets along box's longest axis.
// Each triangle goes to the bucket of its smallest vertex coordinate on that
// axis. Local vertex ids follow ascending original ids.
func PartitionByMajorAxis(m *mesh.Mesh, box geom.AABB, n int) []Partition {
	if n < 1 {
		n = 1
	}
	axis := box.MajorAxis()
	nt := m.TriangleCount()
	triBucket := make([]int, nt)
	vertBucket := make([]int, len(m.Vertices))
	for i := range vertBucket {
		vertBucket[i] = -1
	}
	seam := make([]bool, len(m.Vertices))
	for t := 0; t < nt; t++ {
		a, b, c := m.Corners(t)
		lo := min(a[axis], b[axis], c[axis])
		bk := spatial.Bucket(lo, box.Min[axis], box.Max[axis], n)
		triBucket[t] = bk
		for _, v := range m.Triangle(t) {
			switch vertBucket[v] {
			case -1:
				vertBucket[v] = bk
			case bk:
			default:
				seam[v] = true
			}
		}
	}

	parts := make([]Partition, n)
	local := make([]int32, len(m.Vertices))
	for bk := range parts {
		sub := mesh.New(m.Kind)
		for i := range local {
			local[i] = -1
		}
		for t := 0; t < nt; t++ {
			if triBucket[t] != bk {
				continue
			}
			for _, v := range m.Triangle(t) {
				local[v] = 0
			}
		}
		p := Partition{Bucket: bk, Mesh: sub}
		for v := range local {
			if local[v] < 0 {
				continue
			}
			local[v] = int32(len(sub.Vertices))
			if seam[v] {
				p.Seams = append(p.Seams, uint32(local[v]))
			}
			sub.Vertices = append(sub.Vertices, m.Vertices[v])
		}
		for t := 0; t < nt; t++ {
			if triBucket[t] != bk {
				continue
			}
			for _, v := range m.Triangle(t) {
				sub.Indices = append(sub.Indices, uint32(local[v]))
			}
		}
		parts[bk] = p
	}
	return parts
}

// SimplifyPartition decimates sub in place. With lockBoundary set, the seam
// vertices are pinned and their post-compaction ids are returned.
func SimplifyPartition(sub *mesh.Mesh, target TargetRange, maxEdgeError float64, lockBoundary bool, seams []uint32, attributeWeight float64) Result {
	p := Params{Target: target, MaxError: maxEdgeError, AttributeWeight: attributeWeight}
	if lockBoundary && len(seams) > 0 {
		p.Locked = make([]bool, len(sub.Vertices))
		for _, s := range seams {
			p.Locked[s] = true
		}
	}
	remap, maxErr := Decimate(sub, p)
	res := Result{Mesh: sub, MaxError: maxErr}
	for _, s := range seams {
		if r := remap[s]; r >= 0 {
			res.Seams = append(res.Seams, uint32(r))
		}
	}
	return res
}
