package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// NodeID is a content-addressed identifier derived from a node's path.
type NodeID [32]byte

// ZeroID is the unset NodeID.
var ZeroID NodeID

// NewNodeID hashes a path such as "part/wheel" into a NodeID.
func NewNodeID(path string) NodeID {
	return sha256.Sum256([]byte(path))
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Short returns the first eight hex digits.
func (id NodeID) Short() string { return hex.EncodeToString(id[:4]) }

func (id NodeID) String() string { return hex.EncodeToString(id[:]) }

// MarshalText implements encoding.TextMarshaler.
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *NodeID) UnmarshalText(b []byte) error {
	if len(b) != hex.EncodedLen(len(id)) {
		return fmt.Errorf("graph: node id %q has wrong length", b)
	}
	_, err := hex.Decode(id[:], b)
	return err
}

// Vec3 is a 3D vector in recipe units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// IsZero reports whether every component is zero.
func (v Vec3) IsZero() bool { return v == Vec3{} }

// Color is a linear RGB color.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}
