package graph

import (
	"fmt"
	"sort"
)

// DesignGraph is the top-level data structure produced by recipe evaluation.
// It is never mutated after evaluation; each evaluation produces a new graph.
type DesignGraph struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	Materials []Material        `json:"materials"`
	// Settings holds pipeline overrides keyed by setting name.
	Settings map[string]any `json:"settings,omitempty"`
	Version  uint64         `json:"version"`
}

// New creates an empty DesignGraph.
func New() *DesignGraph {
	return &DesignGraph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Settings:  make(map[string]any),
	}
}

// AddNode adds a node to the graph. It does not check for duplicates.
func (g *DesignGraph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
	if n.Name != "" {
		g.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the graph.
func (g *DesignGraph) AddRoot(id NodeID) {
	g.Roots = append(g.Roots, id)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (g *DesignGraph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (g *DesignGraph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *DesignGraph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// Parts returns all part nodes sorted by name.
func (g *DesignGraph) Parts() []*Node {
	var parts []*Node
	for _, n := range g.Nodes {
		if n.Kind == NodePart {
			parts = append(parts, n)
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Name < parts[j].Name })
	return parts
}

// Children returns the child nodes of the given node.
func (g *DesignGraph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (g *DesignGraph) NodeCount() int {
	return len(g.Nodes)
}

// AddMaterial appends a material and returns its id. Names must be unique.
func (g *DesignGraph) AddMaterial(m Material) (int32, error) {
	if m.Name == "" {
		return -1, fmt.Errorf("graph: material needs a name")
	}
	if _, ok := g.MaterialID(m.Name); ok {
		return -1, fmt.Errorf("graph: material %q already defined", m.Name)
	}
	g.Materials = append(g.Materials, m)
	return int32(len(g.Materials) - 1), nil
}

// MaterialID returns the id of a named material.
func (g *DesignGraph) MaterialID(name string) (int32, bool) {
	for i, m := range g.Materials {
		if m.Name == name {
			return int32(i), true
		}
	}
	return -1, false
}

// SetSetting records a pipeline override. Later calls win.
func (g *DesignGraph) SetSetting(key string, v any) {
	g.Settings[key] = v
}
