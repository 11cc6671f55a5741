package graph

// NodeKind enumerates the types of nodes in the assembly graph.
type NodeKind int

const (
	NodePrimitive NodeKind = iota // solid primitive (box, cylinder, sphere)
	NodeTransform                 // spatial transformation (place)
	NodePart                      // named part wrapping a body
	NodeGroup                     // assembly
)

func (k NodeKind) String() string {
	switch k {
	case NodePrimitive:
		return "primitive"
	case NodeTransform:
		return "transform"
	case NodePart:
		return "part"
	case NodeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Node is the fundamental element of the assembly graph.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}
