// Package simplify reduces triangle meshes with quadric edge collapse and
// runs the decimator over spatial partitions in parallel, re-welding the
// partition seams after every stage.
package simplify

import (
	"container/heap"
	"math"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/mesh"
)

const (
	// boundaryWeight scales the constraint planes added along open edges.
	boundaryWeight = 100
	// minFlipCos is the smallest allowed cosine between a face normal before
	// and after a collapse.
	minFlipCos = 1e-3
)

// TargetRange bounds the output triangle count. Collapsing stops at Min; the
// error budget only halts collapsing once the count is at or below Max.
type TargetRange struct {
	Min int
	Max int
}

// Params configures a single decimation pass.
type Params struct {
	Target   TargetRange
	MaxError float64
	// Locked marks vertices that must keep their position and identity.
	Locked []bool
	// AttributeWeight scales the normal and attribute deviation term.
	AttributeWeight float64
}

type candidate struct {
	a, b         uint32
	va, vb       uint32
	keep, remove uint32
	pos          geom.Vec3
	cost         float64
}

type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	if h[i].a != h[j].a {
		return h[i].a < h[j].a
	}
	return h[i].b < h[j].b
}
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x interface{}) {
	*h = append(*h, x.(candidate))
}

func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type decimator struct {
	m        *mesh.Mesh
	p        Params
	quadrics []Quadric
	locked   []bool
	dead     []bool
	version  []uint32
	faceDead []bool
	vf       [][]int32
	heap     candidateHeap
	tris     int
	maxError float64
}

// Decimate collapses edges of m in place until the target or the error budget
// stops it, then drops removed vertices. It returns the old-to-new vertex
// remap (-1 for removed vertices) and the largest collapse error applied.
func Decimate(m *mesh.Mesh, p Params) (remap []int32, maxError float64) {
	if m.TriangleCount() <= p.Target.Min {
		return identity(len(m.Vertices)), 0
	}
	d := newDecimator(m, p)
	d.run()
	return d.finish(), d.maxError
}

func identity(n int) []int32 {
	r := make([]int32, n)
	for i := range r {
		r[i] = int32(i)
	}
	return r
}

type edgeKey [2]uint32

func makeEdge(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

func newDecimator(m *mesh.Mesh, p Params) *decimator {
	nv := len(m.Vertices)
	nt := m.TriangleCount()
	d := &decimator{
		m:        m,
		p:        p,
		quadrics: make([]Quadric, nv),
		locked:   make([]bool, nv),
		dead:     make([]bool, nv),
		version:  make([]uint32, nv),
		faceDead: make([]bool, nt),
		vf:       make([][]int32, nv),
		tris:     nt,
	}
	copy(d.locked, p.Locked)

	edges := make(map[edgeKey]int, nt*3/2)
	var order []edgeKey
	for t := 0; t < nt; t++ {
		tri := m.Triangle(t)
		a, b, c := m.Corners(t)
		cr := b.Sub(a).Cross(c.Sub(a))
		area := cr.Len() / 2
		if area > 0 {
			q := PlaneQuadric(cr.Normalize(), a, area)
			for _, v := range tri {
				d.quadrics[v].Add(q)
			}
		}
		for i, v := range tri {
			d.vf[v] = append(d.vf[v], int32(t))
			e := makeEdge(v, tri[(i+1)%3])
			if _, ok := edges[e]; !ok {
				order = append(order, e)
			}
			edges[e]++
		}
	}

	// Open edges get a perpendicular constraint plane so borders keep their
	// shape.
	for t := 0; t < nt; t++ {
		tri := m.Triangle(t)
		n := m.FaceNormal(t)
		for i := 0; i < 3; i++ {
			a, b := tri[i], tri[(i+1)%3]
			if edges[makeEdge(a, b)] != 1 {
				continue
			}
			pa, pb := m.Vertices[a].Pos, m.Vertices[b].Pos
			e := pb.Sub(pa)
			cn := e.Cross(n)
			if cn.Len() == 0 {
				continue
			}
			q := PlaneQuadric(cn.Normalize(), pa, boundaryWeight*e.LenSqr())
			d.quadrics[a].Add(q)
			d.quadrics[b].Add(q)
		}
	}

	d.heap = make(candidateHeap, 0, len(order))
	for _, e := range order {
		if c, ok := d.evaluate(e[0], e[1]); ok {
			d.heap = append(d.heap, c)
		}
	}
	heap.Init(&d.heap)
	return d
}

// evaluate computes the collapse placement and cost for edge ab.
func (d *decimator) evaluate(a, b uint32) (candidate, bool) {
	if a > b {
		a, b = b, a
	}
	la, lb := d.locked[a], d.locked[b]
	if la && lb {
		return candidate{}, false
	}
	c := candidate{a: a, b: b, va: d.version[a], vb: d.version[b]}
	q := d.quadrics[a]
	q.Add(d.quadrics[b])
	pa, pb := d.m.Vertices[a].Pos, d.m.Vertices[b].Pos

	switch {
	case la:
		c.keep, c.remove, c.pos = a, b, pa
	case lb:
		c.keep, c.remove, c.pos = b, a, pb
	default:
		c.keep, c.remove = a, b
		mid := pa.Add(pb).Mul(0.5)
		best := q.Error(pa)
		c.pos = pa
		if e := q.Error(pb); e < best {
			best, c.pos = e, pb
		}
		if e := q.Error(mid); e < best {
			best, c.pos = e, mid
		}
		if opt, ok := q.Optimal(); ok && opt.Sub(mid).Len() <= pb.Sub(pa).Len() {
			if e := q.Error(opt); e < best {
				c.pos = opt
			}
		}
	}
	c.cost = q.Error(c.pos) + d.attributeCost(a, b)
	return c, true
}

func (d *decimator) attributeCost(a, b uint32) float64 {
	if d.p.AttributeWeight == 0 {
		return 0
	}
	va, vb := &d.m.Vertices[a], &d.m.Vertices[b]
	var dev float64
	if d.m.Kind.HasNormal() {
		dev += 1 - va.Normal.Dot(vb.Normal)
	}
	for i := 0; i < d.m.Kind.AttributeCount(); i++ {
		diff := va.Attr[i] - vb.Attr[i]
		dev += diff * diff
	}
	return d.p.AttributeWeight * dev * va.Pos.Sub(vb.Pos).LenSqr()
}

func (d *decimator) run() {
	for d.heap.Len() > 0 && d.tris > d.p.Target.Min {
		c := heap.Pop(&d.heap).(candidate)
		if d.dead[c.a] || d.dead[c.b] || d.version[c.a] != c.va || d.version[c.b] != c.vb {
			continue
		}
		if c.cost > d.p.MaxError && d.tris <= d.p.Target.Max {
			break
		}
		if d.collapse(c) {
			d.maxError = math.Max(d.maxError, c.cost)
		}
	}
}

// liveFaces returns the alive faces around v, dropping dead ones from the
// adjacency list as a side effect.
func (d *decimator) liveFaces(v uint32) []int32 {
	out := d.vf[v][:0]
	for _, f := range d.vf[v] {
		if !d.faceDead[f] {
			out = append(out, f)
		}
	}
	d.vf[v] = out
	return out
}

func (d *decimator) neighbors(v uint32) map[uint32]struct{} {
	n := make(map[uint32]struct{})
	for _, f := range d.liveFaces(v) {
		for _, w := range d.m.Triangle(int(f)) {
			if w != v {
				n[w] = struct{}{}
			}
		}
	}
	return n
}

func (d *decimator) hasVertex(f int32, v uint32) bool {
	tri := d.m.Triangle(int(f))
	return tri[0] == v || tri[1] == v || tri[2] == v
}

func (d *decimator) collapse(c candidate) bool {
	keep, remove := c.keep, c.remove

	var shared []int32
	apex := make(map[uint32]struct{})
	for _, f := range d.liveFaces(remove) {
		if d.hasVertex(f, keep) {
			shared = append(shared, f)
			for _, w := range d.m.Triangle(int(f)) {
				if w != keep && w != remove {
					apex[w] = struct{}{}
				}
			}
		}
	}
	if len(shared) == 0 || len(shared) > 2 {
		return false
	}

	// Link condition: the only common neighbours are the apexes of the
	// faces on the edge.
	nk := d.neighbors(keep)
	for w := range d.neighbors(remove) {
		if w == keep {
			continue
		}
		if _, ok := nk[w]; ok {
			if _, isApex := apex[w]; !isApex {
				return false
			}
		}
	}

	if !d.preservesOrientation(keep, c.pos, shared) || !d.preservesOrientation(remove, c.pos, shared) {
		return false
	}

	for _, f := range shared {
		d.faceDead[f] = true
		d.tris--
	}
	for _, f := range d.liveFaces(remove) {
		base := int(f) * 3
		for i := 0; i < 3; i++ {
			if d.m.Indices[base+i] == remove {
				d.m.Indices[base+i] = keep
			}
		}
		d.vf[keep] = append(d.vf[keep], f)
	}
	d.vf[remove] = nil

	d.blendAttributes(keep, remove, c.pos)
	d.quadrics[keep].Add(d.quadrics[remove])
	d.dead[remove] = true
	d.version[keep]++
	d.version[remove]++

	for w := range d.neighbors(keep) {
		if cand, ok := d.evaluate(keep, w); ok {
			heap.Push(&d.heap, cand)
		}
	}
	return true
}

// preservesOrientation reports whether moving v to pos keeps every
// surviving face around v from flipping or collapsing to zero area.
func (d *decimator) preservesOrientation(v uint32, pos geom.Vec3, shared []int32) bool {
	for _, f := range d.liveFaces(v) {
		if containsFace(shared, f) {
			continue
		}
		tri := d.m.Triangle(int(f))
		var before, after [3]geom.Vec3
		for i, w := range tri {
			before[i] = d.m.Vertices[w].Pos
			after[i] = before[i]
			if w == v {
				after[i] = pos
			}
		}
		n0 := before[1].Sub(before[0]).Cross(before[2].Sub(before[0]))
		n1 := after[1].Sub(after[0]).Cross(after[2].Sub(after[0]))
		l0, l1 := n0.Len(), n1.Len()
		if l1 == 0 || l1 < 1e-12*l0 {
			return false
		}
		if l0 > 0 && n0.Dot(n1)/(l0*l1) < minFlipCos {
			return false
		}
	}
	return true
}

func containsFace(faces []int32, f int32) bool {
	for _, g := range faces {
		if g == f {
			return true
		}
	}
	return false
}

func (d *decimator) blendAttributes(keep, remove uint32, pos geom.Vec3) {
	vk, vr := &d.m.Vertices[keep], &d.m.Vertices[remove]
	e := vr.Pos.Sub(vk.Pos)
	t := 0.0
	if l := e.LenSqr(); l > 0 {
		t = math.Max(0, math.Min(1, pos.Sub(vk.Pos).Dot(e)/l))
	}
	if d.m.Kind.HasNormal() {
		n := vk.Normal.Mul(1 - t).Add(vr.Normal.Mul(t))
		if l := n.Len(); l > 1e-30 {
			vk.Normal = n.Mul(1 / l)
		}
	}
	for i := 0; i < d.m.Kind.AttributeCount(); i++ {
		vk.Attr[i] = vk.Attr[i]*(1-t) + vr.Attr[i]*t
	}
	vk.Pos = pos
}

// finish rewrites the index buffer without dead faces and compacts the
// vertex array.
func (d *decimator) finish() []int32 {
	out := d.m.Indices[:0]
	for t := 0; t < len(d.faceDead); t++ {
		if d.faceDead[t] {
			continue
		}
		out = append(out, d.m.Indices[t*3], d.m.Indices[t*3+1], d.m.Indices[t*3+2])
	}
	d.m.Indices = out
	return d.m.Compact()
}
