package graph

import (
	"encoding/json"
	"testing"
)

func TestNodeID(t *testing.T) {
	a := NewNodeID("part/body")
	b := NewNodeID("part/body")
	c := NewNodeID("part/wheel")
	if a != b {
		t.Error("same path should give the same id")
	}
	if a == c {
		t.Error("different paths should give different ids")
	}
	if a.IsZero() || !ZeroID.IsZero() {
		t.Error("IsZero mismatch")
	}
	if len(a.Short()) != 8 {
		t.Errorf("Short() = %q", a.Short())
	}

	text, err := a.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var back NodeID
	if err := back.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if back != a {
		t.Error("text round trip changed the id")
	}
	if err := back.UnmarshalText([]byte("abc")); err == nil {
		t.Error("expected error for short id")
	}
}

func TestLookup(t *testing.T) {
	g := buildValidCart()
	if n := g.Lookup("wheel"); n == nil || n.Kind != NodePart {
		t.Fatalf("Lookup(wheel) = %v", n)
	}
	if g.Lookup("nope") != nil {
		t.Error("expected nil for unknown name")
	}
	defer func() {
		if recover() == nil {
			t.Error("MustLookup should panic for unknown name")
		}
	}()
	g.MustLookup("nope")
}

func TestPartsSorted(t *testing.T) {
	g := buildValidCart()
	parts := g.Parts()
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if parts[0].Name != "body" || parts[1].Name != "wheel" {
		t.Errorf("parts = %s, %s", parts[0].Name, parts[1].Name)
	}
}

func TestChildren(t *testing.T) {
	g := buildValidCart()
	cart := g.MustLookup("cart")
	kids := g.Children(cart)
	if len(kids) != 2 {
		t.Fatalf("got %d children", len(kids))
	}
	if kids[0].Name != "body" || kids[1].Kind != NodeTransform {
		t.Errorf("unexpected children %v", kids)
	}
	if g.NodeCount() != 6 {
		t.Errorf("NodeCount = %d, want 6", g.NodeCount())
	}
}

func TestMaterials(t *testing.T) {
	g := New()
	id, err := g.AddMaterial(DefaultMaterial("wood"))
	if err != nil || id != 0 {
		t.Fatalf("AddMaterial = %d, %v", id, err)
	}
	id, err = g.AddMaterial(DefaultMaterial("steel"))
	if err != nil || id != 1 {
		t.Fatalf("AddMaterial = %d, %v", id, err)
	}
	if _, err := g.AddMaterial(DefaultMaterial("wood")); err == nil {
		t.Error("expected duplicate error")
	}
	if _, err := g.AddMaterial(Material{}); err == nil {
		t.Error("expected unnamed error")
	}
	if got, ok := g.MaterialID("steel"); !ok || got != 1 {
		t.Errorf("MaterialID(steel) = %d, %v", got, ok)
	}
	if _, ok := g.MaterialID("glass"); ok {
		t.Error("unexpected material")
	}
}

func TestSettings(t *testing.T) {
	g := New()
	g.SetSetting("texture_size", int64(128))
	g.SetSetting("texture_size", int64(512))
	if g.Settings["texture_size"] != int64(512) {
		t.Errorf("later setting should win, got %v", g.Settings["texture_size"])
	}
}

func TestGraphJSON(t *testing.T) {
	g := New()
	g.AddNode(&Node{ID: NewNodeID("box/0"), Kind: NodePrimitive, Data: PrimitiveData{Shape: PrimBox, Size: Vec3{1, 2, 3}}})
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["nodes"]; !ok {
		t.Error("nodes missing from JSON")
	}
}

func TestKindStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{NodePrimitive.String(), "primitive"},
		{NodeTransform.String(), "transform"},
		{NodePart.String(), "part"},
		{NodeGroup.String(), "group"},
		{NodeKind(99).String(), "unknown"},
		{PrimBox.String(), "box"},
		{PrimCylinder.String(), "cylinder"},
		{PrimSphere.String(), "sphere"},
		{SeverityError.String(), "error"},
		{SeverityWarning.String(), "warning"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
