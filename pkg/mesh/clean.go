package mesh

import (
	"errors"
	"fmt"

	"github.com/chazu/lodproxy/pkg/geom"
)

// ErrPersistentDegeneracy is returned by Clean when bowtie vertices remain
// after the retry budget. The mesh still holds best-effort data.
var ErrPersistentDegeneracy = errors.New("mesh: degeneracy persists after cleaning")

// bowtieNudge is the fraction of the way a duplicated bowtie vertex moves
// toward the centroid of the fan that adopts it.
const bowtieNudge = 1e-3

// Adjacency lists the triangles incident on every vertex.
type Adjacency struct {
	VertexFaces [][]int
}

// BuildAdjacency returns the vertex-to-face incidence of m.
func BuildAdjacency(m *Mesh) *Adjacency {
	adj := &Adjacency{VertexFaces: make([][]int, len(m.Vertices))}
	for t := 0; t < m.TriangleCount(); t++ {
		for _, idx := range m.Triangle(t) {
			adj.VertexFaces[idx] = append(adj.VertexFaces[idx], t)
		}
	}
	return adj
}

// fans groups the faces around vertex v into edge-connected fans. Two faces
// belong to the same fan when they share an edge through v.
func fans(m *Mesh, v uint32, faces []int) [][]int {
	parent := make([]int, len(faces))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	// Map each neighbour vertex to the first local face seen with it.
	seen := make(map[uint32]int, len(faces)*2)
	for i, f := range faces {
		for _, o := range m.Triangle(f) {
			if o == v {
				continue
			}
			if j, ok := seen[o]; ok {
				parent[find(i)] = find(j)
			} else {
				seen[o] = i
			}
		}
	}
	groups := make(map[int][]int)
	var order []int
	for i, f := range faces {
		r := find(i)
		if _, ok := groups[r]; !ok {
			order = append(order, r)
		}
		groups[r] = append(groups[r], f)
	}
	out := make([][]int, 0, len(order))
	for _, r := range order {
		out = append(out, groups[r])
	}
	return out
}

// SplitBowties gives every extra fan around a non-manifold ("bowtie") vertex
// its own copy of the vertex, nudged slightly toward that fan's centroid so
// the copies no longer share a position. It returns the number of copies made.
func SplitBowties(m *Mesh) int {
	adj := BuildAdjacency(m)
	added := 0
	nv := len(m.Vertices)
	for v := 0; v < nv; v++ {
		faces := adj.VertexFaces[v]
		if len(faces) < 2 {
			continue
		}
		groups := fans(m, uint32(v), faces)
		for _, fan := range groups[1:] {
			copyIdx := uint32(len(m.Vertices))
			dup := m.Vertices[v]
			dup.Pos = lerp(dup.Pos, fanCentroid(m, fan), bowtieNudge)
			m.Vertices = append(m.Vertices, dup)
			for _, f := range fan {
				for k := 0; k < 3; k++ {
					if m.Indices[f*3+k] == uint32(v) {
						m.Indices[f*3+k] = copyIdx
					}
				}
			}
			added++
		}
	}
	return added
}

// CountBowties returns the number of vertices with more than one fan.
func CountBowties(m *Mesh) int {
	adj := BuildAdjacency(m)
	n := 0
	for v, faces := range adj.VertexFaces {
		if len(faces) > 1 && len(fans(m, uint32(v), faces)) > 1 {
			n++
		}
	}
	return n
}

// Clean removes degenerate triangles and splits bowtie vertices, rebuilding
// adjacency and retrying up to maxIterations times. It reports whether the
// mesh ended clean; when it did not, ErrPersistentDegeneracy is returned
// alongside the best-effort mesh.
func Clean(m *Mesh, maxIterations int) (bool, error) {
	if maxIterations < 1 {
		maxIterations = 1
	}
	for i := 0; i < maxIterations; i++ {
		m.RemoveDegenerate()
		m.Compact()
		if CountBowties(m) == 0 {
			return true, nil
		}
		SplitBowties(m)
	}
	m.RemoveDegenerate()
	if n := CountBowties(m); n > 0 {
		return false, fmt.Errorf("%w: %d bowtie vertices after %d iterations", ErrPersistentDegeneracy, n, maxIterations)
	}
	return true, nil
}

func fanCentroid(m *Mesh, fan []int) geom.Vec3 {
	var c geom.Vec3
	for _, f := range fan {
		a, b, d := m.Corners(f)
		c = c.Add(a).Add(b).Add(d)
	}
	return c.Mul(1 / float64(3*len(fan)))
}

func lerp(a, b geom.Vec3, t float64) geom.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
