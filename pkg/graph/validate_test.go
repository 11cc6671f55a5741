package graph

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// buildValidCart creates a two-part cart: a box body and a placed wheel,
// both reachable from an assembly root.
func buildValidCart() *DesignGraph {
	g := New()
	if _, err := g.AddMaterial(DefaultMaterial("wood")); err != nil {
		panic(err)
	}
	if _, err := g.AddMaterial(DefaultMaterial("rubber")); err != nil {
		panic(err)
	}

	bodyBox := NewNodeID("box/0")
	wheelCyl := NewNodeID("cylinder/1")
	bodyID := NewNodeID("part/body")
	wheelID := NewNodeID("part/wheel")
	placeID := NewNodeID("place/2")
	groupID := NewNodeID("assembly/cart")

	g.AddNode(&Node{
		ID: bodyBox, Kind: NodePrimitive,
		Data: PrimitiveData{Shape: PrimBox, Size: Vec3{4, 2, 1}, Material: "wood"},
	})
	g.AddNode(&Node{
		ID: wheelCyl, Kind: NodePrimitive,
		Data: PrimitiveData{Shape: PrimCylinder, Height: 0.2, Radius: 0.5},
	})
	g.AddNode(&Node{
		ID: bodyID, Kind: NodePart, Name: "body",
		Children: []NodeID{bodyBox}, Data: PartData{},
	})
	g.AddNode(&Node{
		ID: wheelID, Kind: NodePart, Name: "wheel",
		Children: []NodeID{wheelCyl}, Data: PartData{Material: "rubber"},
	})
	g.AddNode(&Node{
		ID: placeID, Kind: NodeTransform,
		Children: []NodeID{wheelID},
		Data:     TransformData{Translation: &Vec3{2, 0, -0.5}},
	})
	g.AddNode(&Node{
		ID: groupID, Kind: NodeGroup, Name: "cart",
		Children: []NodeID{bodyID, placeID},
		Data:     GroupData{Description: "cart"},
	})
	g.AddRoot(groupID)
	return g
}

// hasError returns true if errs contains at least one error-severity finding
// whose message contains substr.
func hasError(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityError && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// hasWarning returns true if errs contains at least one warning-severity
// finding whose message contains substr.
func hasWarning(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityWarning && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Structural validation
// ---------------------------------------------------------------------------

func TestValidateValidGraph(t *testing.T) {
	g := buildValidCart()
	res := ValidateAll(g)
	if !res.OK() {
		t.Fatalf("expected no errors, got %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", res.Warnings)
	}
}

func TestValidateCycle(t *testing.T) {
	g := buildValidCart()
	body := g.MustLookup("body")
	cart := g.MustLookup("cart")
	body.Children = append(body.Children, cart.ID)

	errs := Validate(g)
	if !hasError(errs, "cycle") {
		t.Errorf("expected cycle error, got %v", errs)
	}
}

func TestValidateReferences(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *DesignGraph)
		want   string
	}{
		{
			name: "dangling child",
			mutate: func(g *DesignGraph) {
				cart := g.MustLookup("cart")
				cart.Children = append(cart.Children, NewNodeID("missing"))
			},
			want: "does not exist",
		},
		{
			name: "unknown part material",
			mutate: func(g *DesignGraph) {
				w := g.MustLookup("wheel")
				w.Data = PartData{Material: "steel"}
			},
			want: `material "steel" is not defined`,
		},
		{
			name: "unknown primitive material",
			mutate: func(g *DesignGraph) {
				body := g.MustLookup("body")
				prim := g.Get(body.Children[0])
				prim.Data = PrimitiveData{Shape: PrimBox, Size: Vec3{1, 1, 1}, Material: "glass"}
			},
			want: `material "glass" is not defined`,
		},
		{
			name: "dangling root",
			mutate: func(g *DesignGraph) {
				g.AddRoot(NewNodeID("nowhere"))
			},
			want: "root reference",
		},
		{
			name: "stale name index",
			mutate: func(g *DesignGraph) {
				g.NameIndex["ghost"] = NewNodeID("ghost")
			},
			want: `name index entry "ghost"`,
		},
		{
			name: "duplicate names",
			mutate: func(g *DesignGraph) {
				g.AddNode(&Node{
					ID: NewNodeID("part/body#2"), Kind: NodePart, Name: "body",
					Children: []NodeID{g.MustLookup("body").Children[0]},
					Data:     PartData{},
				})
			},
			want: `duplicate name "body"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildValidCart()
			tt.mutate(g)
			errs := Validate(g)
			if !hasError(errs, tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, errs)
			}
		})
	}
}

func TestValidateOrphanWarning(t *testing.T) {
	g := buildValidCart()
	g.AddNode(&Node{
		ID: NewNodeID("sphere/9"), Kind: NodePrimitive,
		Data: PrimitiveData{Shape: PrimSphere, Radius: 1},
	})
	errs := Validate(g)
	if !hasWarning(errs, "orphan") {
		t.Errorf("expected orphan warning, got %v", errs)
	}
	if res := ValidateAll(g); !res.OK() {
		t.Errorf("orphans must not block, got %v", res.Errors)
	}
}

func TestValidateNoRoots(t *testing.T) {
	g := New()
	prim := NewNodeID("box/0")
	g.AddNode(&Node{ID: prim, Kind: NodePrimitive, Data: PrimitiveData{Shape: PrimBox, Size: Vec3{1, 1, 1}}})
	g.AddNode(&Node{ID: NewNodeID("part/a"), Kind: NodePart, Name: "a", Children: []NodeID{prim}, Data: PartData{}})
	if errs := Validate(g); len(errs) != 0 {
		t.Errorf("unplaced parts should validate cleanly, got %v", errs)
	}
}

// ---------------------------------------------------------------------------
// Geometric validation
// ---------------------------------------------------------------------------

func TestValidateDimensions(t *testing.T) {
	tests := []struct {
		name string
		data PrimitiveData
		want string
	}{
		{"flat box", PrimitiveData{Shape: PrimBox, Size: Vec3{1, 0, 1}}, "box has non-positive [y]"},
		{"negative box", PrimitiveData{Shape: PrimBox, Size: Vec3{-1, 1, -1}}, "box has non-positive [x z]"},
		{"zero cylinder", PrimitiveData{Shape: PrimCylinder, Radius: 1}, "cylinder has non-positive [height]"},
		{"zero sphere", PrimitiveData{Shape: PrimSphere}, "sphere has non-positive [radius]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildValidCart()
			body := g.MustLookup("body")
			g.Get(body.Children[0]).Data = tt.data
			res := ValidateAll(g)
			if !hasError(res.Errors, tt.want) {
				t.Errorf("expected %q, got %v", tt.want, res.Errors)
			}
		})
	}
}

func TestValidateArity(t *testing.T) {
	g := buildValidCart()
	g.AddNode(&Node{ID: NewNodeID("part/empty"), Kind: NodePart, Name: "empty", Data: PartData{}})
	cart := g.MustLookup("cart")
	cart.Children = append(cart.Children, NewNodeID("part/empty"))

	res := ValidateAll(g)
	if !hasError(res.Errors, "part has no body") {
		t.Errorf("expected empty part error, got %v", res.Errors)
	}
}

func TestValidateMaterialRange(t *testing.T) {
	g := buildValidCart()
	m := DefaultMaterial("chrome")
	m.Metallic = 1.5
	if _, err := g.AddMaterial(m); err != nil {
		t.Fatal(err)
	}
	res := ValidateAll(g)
	if !hasWarning(res.Warnings, `material "chrome"`) {
		t.Errorf("expected range warning, got %v", res.Warnings)
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Message: "boom", Severity: SeverityError}
	if got := e.Error(); got != "[error] boom" {
		t.Errorf("Error() = %q", got)
	}
	id := NewNodeID("x")
	e = ValidationError{NodeID: id, Message: "boom", Severity: SeverityWarning}
	if got := e.Error(); !strings.Contains(got, id.Short()) || !strings.HasPrefix(got, "[warning]") {
		t.Errorf("Error() = %q", got)
	}
}
