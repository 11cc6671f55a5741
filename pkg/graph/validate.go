package graph

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks evaluation
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks evaluation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking error was found.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs the structural checks and returns every finding. It never
// mutates the graph.
func Validate(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(g)...)
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validateNames(g)...)
	errs = append(errs, validateRoots(g)...)
	return errs
}

// ValidateAll runs the structural and geometric checks.
func ValidateAll(g *DesignGraph) ValidationResult {
	var result ValidationResult
	all := Validate(g)
	all = append(all, validateGeometry(g)...)
	for _, e := range all {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateDAG(g *DesignGraph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		node, ok := g.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for id := range g.Nodes {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateReferences checks that every child and material reference
// resolves.
func validateReferences(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	material := func(node *Node, name string) {
		if name == "" {
			return
		}
		if _, ok := g.MaterialID(name); !ok {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("material %q is not defined", name),
				Severity: SeverityError,
			})
		}
	}

	for _, node := range g.Nodes {
		for _, childID := range node.Children {
			if _, ok := g.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
		switch d := node.Data.(type) {
		case PrimitiveData:
			material(node, d.Material)
		case PartData:
			material(node, d.Material)
		}
	}
	return errs
}

// validateNames checks that the NameIndex points at existing nodes and that
// no two nodes share a name.
func validateNames(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	for name, id := range g.NameIndex {
		if _, ok := g.Nodes[id]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
		}
	}

	nameToNodes := make(map[string]int)
	for _, node := range g.Nodes {
		if node.Name != "" {
			nameToNodes[node.Name]++
		}
	}
	for name, n := range nameToNodes {
		if n > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, n),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateRoots checks that every root exists and warns about nodes no root
// reaches.
func validateRoots(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	reachable := make(map[NodeID]bool)
	var queue []NodeID
	for _, rid := range g.Roots {
		if _, ok := g.Nodes[rid]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if !reachable[rid] {
			reachable[rid] = true
			queue = append(queue, rid)
		}
	}
	if len(g.Roots) == 0 {
		// Unplaced parts are tessellated in place; nothing is orphaned.
		return errs
	}

	for len(queue) > 0 {
		node := g.Nodes[queue[0]]
		queue = queue[1:]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	for id, node := range g.Nodes {
		if reachable[id] {
			continue
		}
		name := node.Name
		if name == "" {
			name = id.Short()
		}
		errs = append(errs, ValidationError{
			NodeID:   id,
			Message:  fmt.Sprintf("node %q is not reachable from any root (orphan)", name),
			Severity: SeverityWarning,
		})
	}
	return errs
}
