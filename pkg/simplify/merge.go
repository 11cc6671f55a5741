package simplify

import (
	"github.com/chazu/lodproxy/pkg/mesh"
)

// Merge concatenates the partitions and welds seam vertices whose positions
// are bit-identical across different partitions into the lowest global index
// of their class. Unreferenced vertices are dropped. A single partition is
// returned unchanged; a seam vertex without a twin stays as it is.
func Merge(parts []Result) *mesh.Mesh {
	if len(parts) == 1 {
		return parts[0].Mesh
	}
	var out *mesh.Mesh
	type member struct {
		global uint32
		part   int
	}
	classes := make(map[mesh.PositionKey][]member)
	var keys []mesh.PositionKey
	for i, p := range parts {
		if p.Mesh == nil {
			continue
		}
		if out == nil {
			out = mesh.New(p.Mesh.Kind)
		}
		if p.Mesh.IsEmpty() {
			continue
		}
		base := out.Append(p.Mesh)
		for _, s := range p.Seams {
			g := base + s
			k := mesh.KeyOf(out.Vertices[g].Pos)
			if _, ok := classes[k]; !ok {
				keys = append(keys, k)
			}
			classes[k] = append(classes[k], member{global: g, part: i})
		}
	}
	if out == nil {
		return mesh.New(mesh.PositionOnly)
	}

	remap := make([]uint32, len(out.Vertices))
	for i := range remap {
		remap[i] = uint32(i)
	}
	for _, k := range keys {
		ms := classes[k]
		lowest := ms[0].global
		spans := false
		for _, m := range ms[1:] {
			if m.part != ms[0].part {
				spans = true
			}
			if m.global < lowest {
				lowest = m.global
			}
		}
		if !spans {
			continue
		}
		for _, m := range ms {
			remap[m.global] = lowest
		}
	}
	for i, idx := range out.Indices {
		out.Indices[i] = remap[idx]
	}
	out.Compact()
	return out
}
