// Package spatial answers segment and closest-point queries against one or
// many source meshes addressed as a single surface. All triangles are
// flattened into one global id space and indexed by a bounding volume
// hierarchy that is read-only once built.
package spatial

import (
	"sort"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/kernel"
)

// leafSize is the maximum number of triangles stored in a BVH leaf.
const leafSize = 4

// node is a BVH node. Leaves have count > 0 and address tris[first:first+count];
// interior nodes have their left child at index+1 and the right child at right.
type node struct {
	box   geom.AABB
	right int32
	first int32
	count int32
}

// Index is a BVH over the triangles of one or more meshes.
type Index struct {
	meshes  []*kernel.Mesh
	offsets []int // offsets[i] is the global id of mesh i's first triangle

	corners [][3]geom.Vec3
	normals []geom.Vec3
	nodes   []node
	tris    []int32 // leaf-ordered global triangle ids
}

// Build flattens the triangles of all meshes into one global id space and
// constructs the hierarchy.
func Build(meshes ...*kernel.Mesh) *Index {
	idx := &Index{meshes: meshes, offsets: make([]int, len(meshes)+1)}
	total := 0
	for i, m := range meshes {
		idx.offsets[i] = total
		total += m.TriangleCount()
	}
	idx.offsets[len(meshes)] = total

	idx.corners = make([][3]geom.Vec3, 0, total)
	idx.normals = make([]geom.Vec3, 0, total)
	for _, m := range meshes {
		for t := 0; t < m.TriangleCount(); t++ {
			tri := m.Triangle(t)
			c := [3]geom.Vec3{
				geom.Vec3(m.Position(tri[0])),
				geom.Vec3(m.Position(tri[1])),
				geom.Vec3(m.Position(tri[2])),
			}
			idx.corners = append(idx.corners, c)
			idx.normals = append(idx.normals, geom.FaceNormal(c[0], c[1], c[2]))
		}
	}

	idx.tris = make([]int32, total)
	for i := range idx.tris {
		idx.tris[i] = int32(i)
	}
	if total > 0 {
		centroids := make([]geom.Vec3, total)
		for i, c := range idx.corners {
			centroids[i] = c[0].Add(c[1]).Add(c[2]).Mul(1.0 / 3)
		}
		idx.nodes = make([]node, 0, 2*total/leafSize+1)
		idx.build(centroids, 0, total)
	}
	return idx
}

// build appends the subtree over tris[lo:hi] and returns its node index.
func (idx *Index) build(centroids []geom.Vec3, lo, hi int) int32 {
	box := geom.EmptyAABB()
	cbox := geom.EmptyAABB()
	for _, t := range idx.tris[lo:hi] {
		c := idx.corners[t]
		box = box.Extend(c[0]).Extend(c[1]).Extend(c[2])
		cbox = cbox.Extend(centroids[t])
	}
	self := int32(len(idx.nodes))
	idx.nodes = append(idx.nodes, node{box: box})
	if hi-lo <= leafSize {
		idx.nodes[self].first = int32(lo)
		idx.nodes[self].count = int32(hi - lo)
		return self
	}

	axis := cbox.MajorAxis()
	sub := idx.tris[lo:hi]
	sort.Slice(sub, func(i, j int) bool {
		ci, cj := centroids[sub[i]][axis], centroids[sub[j]][axis]
		if ci != cj {
			return ci < cj
		}
		return sub[i] < sub[j]
	})
	mid := lo + (hi-lo)/2
	idx.build(centroids, lo, mid)
	right := idx.build(centroids, mid, hi)
	idx.nodes[self].right = right
	return self
}

// TriangleCount returns the number of triangles over all meshes.
func (idx *Index) TriangleCount() int { return len(idx.corners) }

// MeshCount returns the number of source meshes.
func (idx *Index) MeshCount() int { return len(idx.meshes) }

// Mesh returns source mesh i.
func (idx *Index) Mesh(i int) *kernel.Mesh { return idx.meshes[i] }

// Locate maps a global triangle id to its source mesh and local face index.
func (idx *Index) Locate(id int) (meshIndex, face int) {
	// First offset strictly greater than id, minus one.
	meshIndex = sort.Search(len(idx.meshes), func(i int) bool { return idx.offsets[i+1] > id })
	return meshIndex, id - idx.offsets[meshIndex]
}

// Triangle returns the corners of global triangle id.
func (idx *Index) Triangle(id int) [3]geom.Vec3 { return idx.corners[id] }

// FaceNormal returns the unit normal of global triangle id.
func (idx *Index) FaceNormal(id int) geom.Vec3 { return idx.normals[id] }

// MaterialID returns the material of global triangle id.
func (idx *Index) MaterialID(id int) int32 {
	mi, face := idx.Locate(id)
	return idx.meshes[mi].MaterialID(face)
}

// Bounds returns the box around every triangle.
func (idx *Index) Bounds() geom.AABB {
	if len(idx.nodes) == 0 {
		return geom.EmptyAABB()
	}
	return idx.nodes[0].box
}

// CountByRegion buckets the source triangles along box's major axis with the
// same functor the simplifier partitions by: a triangle belongs to the bucket
// of its minimum vertex coordinate on that axis.
func (idx *Index) CountByRegion(box geom.AABB, n int) []int {
	counts := make([]int, n)
	if n <= 0 {
		return counts
	}
	axis := box.MajorAxis()
	for _, c := range idx.corners {
		lo := min(c[0][axis], c[1][axis], c[2][axis])
		counts[Bucket(lo, box.Min[axis], box.Max[axis], n)]++
	}
	return counts
}

// Bucket maps a coordinate on [lo, hi] into one of n equal buckets, clamped
// to [0, n-1].
func Bucket(v, lo, hi float64, n int) int {
	extent := hi - lo
	if extent <= 0 {
		return 0
	}
	b := int((v - lo) / extent * float64(n))
	if b < 0 {
		return 0
	}
	if b > n-1 {
		return n - 1
	}
	return b
}
