package graph

import "fmt"

// validateGeometry checks primitive dimensions and the structure of parts
// and transforms.
func validateGeometry(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDimensions(g)...)
	errs = append(errs, validateArity(g)...)
	errs = append(errs, validateMaterials(g)...)
	return errs
}

// validateDimensions requires every primitive extent to be positive.
func validateDimensions(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	for _, node := range g.Nodes {
		pd, ok := node.Data.(PrimitiveData)
		if !ok {
			continue
		}
		var bad []string
		switch pd.Shape {
		case PrimBox:
			if pd.Size.X <= 0 {
				bad = append(bad, "x")
			}
			if pd.Size.Y <= 0 {
				bad = append(bad, "y")
			}
			if pd.Size.Z <= 0 {
				bad = append(bad, "z")
			}
		case PrimCylinder:
			if pd.Height <= 0 {
				bad = append(bad, "height")
			}
			if pd.Radius <= 0 {
				bad = append(bad, "radius")
			}
		case PrimSphere:
			if pd.Radius <= 0 {
				bad = append(bad, "radius")
			}
		}
		if len(bad) > 0 {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("%s has non-positive %v", pd.Shape, bad),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateArity requires parts and transforms to wrap something.
func validateArity(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	for _, node := range g.Nodes {
		if (node.Kind == NodePart || node.Kind == NodeTransform) && len(node.Children) == 0 {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("%s has no body", node.Kind),
				Severity: SeverityError,
			})
		}
		if node.Kind == NodePrimitive && len(node.Children) > 0 {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  "primitive has children",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateMaterials warns about unusable material values.
func validateMaterials(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	for _, m := range g.Materials {
		if m.Roughness < 0 || m.Roughness > 1 || m.Metallic < 0 || m.Metallic > 1 || m.Opacity < 0 || m.Opacity > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("material %q has scalar channels outside [0, 1]", m.Name),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
