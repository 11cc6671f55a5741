// Package tessellate walks a design graph and produces the source meshes of
// a proxy using a geometry kernel. One mesh is produced per part, carrying
// box-projected UVs, tangents and per-triangle material ids.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/lodproxy/pkg/geom"
	"github.com/chazu/lodproxy/pkg/graph"
	"github.com/chazu/lodproxy/pkg/kernel"
	"github.com/chazu/lodproxy/pkg/mesh"
)

// cylinderSegments is passed to kernels that facet cylinders.
const cylinderSegments = 32

// placement is one (place ...) on the way down from a root.
type placement struct {
	translation graph.Vec3
	rotation    graph.Vec3
}

// transformStack accumulates spatial transforms during graph traversal.
type transformStack struct {
	entries []placement
}

func newTransformStack() *transformStack {
	return &transformStack{}
}

func (ts *transformStack) push(p placement) {
	ts.entries = append(ts.entries, p)
}

func (ts *transformStack) pop() {
	if len(ts.entries) > 0 {
		ts.entries = ts.entries[:len(ts.entries)-1]
	}
}

// apply places s by every entry, innermost first. Each entry rotates about
// the local origin and then translates.
func (ts *transformStack) apply(k kernel.Kernel, s kernel.Solid) kernel.Solid {
	for i := len(ts.entries) - 1; i >= 0; i-- {
		e := ts.entries[i]
		if r := e.rotation; !r.IsZero() {
			s = k.Rotate(s, r.X, r.Y, r.Z)
		}
		if t := e.translation; !t.IsZero() {
			s = k.Translate(s, t.X, t.Y, t.Z)
		}
	}
	return s
}

// partBuilder collects the primitive meshes of one part.
type partBuilder struct {
	name     string
	material string // part-level override
	pieces   []*kernel.Mesh
	ids      []int32
}

// walker carries the per-call traversal state.
type walker struct {
	g      *graph.DesignGraph
	k      kernel.Kernel
	ts     *transformStack
	meshes []*kernel.Mesh
}

// Tessellate walks the design graph and produces one triangle mesh per part
// using the provided geometry kernel. Graphs without roots tessellate their
// top-level parts in place. The tessellator is read-only and never mutates
// the graph.
func Tessellate(g *graph.DesignGraph, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if g == nil {
		return nil, nil
	}

	w := &walker{g: g, k: k, ts: newTransformStack()}

	roots := g.Roots
	if len(roots) == 0 {
		roots = topLevelParts(g)
	}
	for _, rootID := range roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		if err := w.walkNode(root, nil); err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
	}

	return w.meshes, nil
}

// topLevelParts returns the parts no other node references, by name.
func topLevelParts(g *graph.DesignGraph) []graph.NodeID {
	referenced := make(map[graph.NodeID]bool)
	for _, n := range g.Nodes {
		for _, c := range n.Children {
			referenced[c] = true
		}
	}
	var ids []graph.NodeID
	for _, p := range g.Parts() {
		if !referenced[p.ID] {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// walkNode recursively traverses a node and its children. cur is the part
// being assembled, or nil above any part.
func (w *walker) walkNode(n *graph.Node, cur *partBuilder) error {
	switch n.Kind {
	case graph.NodePrimitive:
		return w.handlePrimitive(n, cur)

	case graph.NodeTransform:
		return w.handleTransform(n, cur)

	case graph.NodePart:
		return w.handlePart(n)

	case graph.NodeGroup:
		return w.walkChildren(n, cur)

	default:
		return fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func (w *walker) walkChildren(n *graph.Node, cur *partBuilder) error {
	for _, child := range w.g.Children(n) {
		if err := w.walkNode(child, cur); err != nil {
			return err
		}
	}
	return nil
}

// handlePart tessellates a part's body into a fresh builder and emits it.
func (w *walker) handlePart(n *graph.Node) error {
	pb := &partBuilder{name: n.Name}
	if pb.name == "" {
		pb.name = n.ID.Short()
	}
	if pd, ok := n.Data.(graph.PartData); ok {
		pb.material = pd.Material
	}
	if err := w.walkChildren(n, pb); err != nil {
		return err
	}
	return w.emit(pb)
}

// handlePrimitive creates geometry for a primitive node. Primitives outside
// any part become parts of their own.
func (w *walker) handlePrimitive(n *graph.Node, cur *partBuilder) error {
	data, ok := n.Data.(graph.PrimitiveData)
	if !ok {
		return fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}

	var solid kernel.Solid
	switch data.Shape {
	case graph.PrimBox:
		solid = w.k.Box(data.Size.X, data.Size.Y, data.Size.Z)
	case graph.PrimCylinder:
		solid = w.k.Cylinder(data.Height, data.Radius, cylinderSegments)
	case graph.PrimSphere:
		solid = w.k.Sphere(data.Radius)
	default:
		return fmt.Errorf("primitive node %s has unknown shape %v", n.ID.Short(), data.Shape)
	}
	solid = w.ts.apply(w.k, solid)

	m, err := w.k.ToMesh(solid)
	if err != nil {
		return fmt.Errorf("tessellate: ToMesh failed for node %s: %w", n.ID.Short(), err)
	}

	standalone := cur == nil
	if standalone {
		cur = &partBuilder{name: n.ID.Short()}
	}
	matName := data.Material
	if cur.material != "" {
		matName = cur.material
	}
	var id int32
	if matName != "" {
		var ok bool
		if id, ok = w.g.MaterialID(matName); !ok {
			return fmt.Errorf("primitive node %s: material %q is not defined", n.ID.Short(), matName)
		}
	}
	cur.pieces = append(cur.pieces, m)
	cur.ids = append(cur.ids, id)

	if standalone {
		return w.emit(cur)
	}
	return nil
}

// handleTransform pushes the transform, recurses into children, then pops.
func (w *walker) handleTransform(n *graph.Node, cur *partBuilder) error {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}

	var p placement
	if td.Translation != nil {
		p.translation = *td.Translation
	}
	if td.Rotation != nil {
		p.rotation = *td.Rotation
	}
	w.ts.push(p)
	defer w.ts.pop()

	return w.walkChildren(n, cur)
}

// emit merges a part's pieces, projects UVs and computes tangents.
func (w *walker) emit(pb *partBuilder) error {
	if len(pb.pieces) == 0 {
		return nil
	}
	out := merge(pb.pieces, pb.ids)
	out.PartName = pb.name
	ProjectUVs(out)
	mesh.ComputeTangents(out)
	if err := out.Validate(); err != nil {
		return fmt.Errorf("part %q: %w", pb.name, err)
	}
	w.meshes = append(w.meshes, out)
	return nil
}

// merge flattens the pieces into one mesh with three vertices per triangle
// so every corner can take the UV of its own projection.
func merge(pieces []*kernel.Mesh, ids []int32) *kernel.Mesh {
	tris := 0
	for _, p := range pieces {
		tris += p.TriangleCount()
	}
	out := &kernel.Mesh{
		Vertices:    make([]float32, 0, tris*9),
		Normals:     make([]float32, 0, tris*9),
		Indices:     make([]uint32, 0, tris*3),
		MaterialIDs: make([]int32, 0, tris),
	}
	for pi, p := range pieces {
		hasNormals := len(p.Normals) == len(p.Vertices)
		for t := 0; t < p.TriangleCount(); t++ {
			tri := p.Triangle(t)
			a, b, c := geom.Vec3(p.Position(tri[0])), geom.Vec3(p.Position(tri[1])), geom.Vec3(p.Position(tri[2]))
			face := geom.FaceNormal(a, b, c)
			for _, v := range tri {
				pos := p.Position(v)
				n := face
				if hasNormals {
					n = geom.Vec3(p.Normal(v))
				}
				out.Indices = append(out.Indices, uint32(len(out.Vertices)/3))
				out.Vertices = append(out.Vertices, float32(pos[0]), float32(pos[1]), float32(pos[2]))
				out.Normals = append(out.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
			}
			out.MaterialIDs = append(out.MaterialIDs, ids[pi])
		}
	}
	return out
}

// ProjectUVs assigns box-projected UVs normalized to the mesh bounds. Each
// triangle projects along the dominant axis of its face normal; the largest
// extent maps to [0, 1] so texel density is uniform. km must have three
// distinct vertices per triangle.
func ProjectUVs(km *kernel.Mesh) {
	bounds := geom.EmptyAABB()
	for i := 0; i < km.VertexCount(); i++ {
		bounds = bounds.Extend(geom.Vec3(km.Position(uint32(i))))
	}
	size := bounds.Size()
	ext := math.Max(size[0], math.Max(size[1], size[2]))
	if ext <= 0 {
		ext = 1
	}

	km.UVs = make([]float32, km.VertexCount()*2)
	for t := 0; t < km.TriangleCount(); t++ {
		tri := km.Triangle(t)
		a, b, c := geom.Vec3(km.Position(tri[0])), geom.Vec3(km.Position(tri[1])), geom.Vec3(km.Position(tri[2]))
		n := geom.FaceNormal(a, b, c)
		axis := dominantAxis(n)
		ui, vi := (axis+1)%3, (axis+2)%3
		if axis == 1 {
			ui, vi = 0, 2
		}
		for _, v := range tri {
			p := geom.Vec3(km.Position(v)).Sub(bounds.Min)
			u := p[ui] / ext
			if n[axis] < 0 {
				u = 1 - u
			}
			km.UVs[v*2] = float32(u)
			km.UVs[v*2+1] = float32(p[vi] / ext)
		}
	}
}

func dominantAxis(n geom.Vec3) int {
	ax, ay, az := math.Abs(n[0]), math.Abs(n[1]), math.Abs(n[2])
	switch {
	case ax >= ay && ax >= az:
		return 0
	case ay >= az:
		return 1
	default:
		return 2
	}
}
