package graph

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// PrimitiveKind distinguishes between primitive shapes.
type PrimitiveKind int

const (
	PrimBox      PrimitiveKind = iota // axis-aligned box centered at the origin
	PrimCylinder                      // cylinder along Z centered at the origin
	PrimSphere                        // sphere centered at the origin
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimBox:
		return "box"
	case PrimCylinder:
		return "cylinder"
	case PrimSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// PrimitiveData describes a solid primitive. Size is used by boxes; Height
// and Radius by cylinders; Radius by spheres.
type PrimitiveData struct {
	Shape    PrimitiveKind `json:"shape"`
	Size     Vec3          `json:"size,omitempty"`
	Height   float64       `json:"height,omitempty"`
	Radius   float64       `json:"radius,omitempty"`
	Material string        `json:"material,omitempty"`
}

func (PrimitiveData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData represents a spatial transformation applied to the child
// nodes. Created by the (place ...) form.
type TransformData struct {
	Translation *Vec3 `json:"translation,omitempty"`
	Rotation    *Vec3 `json:"rotation,omitempty"` // Euler angles in degrees
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Part
// ---------------------------------------------------------------------------

// PartData marks a named part. A non-empty Material overrides the materials
// of the primitives below it.
type PartData struct {
	Material string `json:"material,omitempty"`
}

func (PartData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData represents an assembly. Created by the (assembly ...) form.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
