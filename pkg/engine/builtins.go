package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/lodproxy/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms recipe source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: proxy-settings -> proxy_settings
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpMaterial is a reference to a material registered in the graph.
type sexpMaterial struct {
	name string
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material %q)", m.name)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpColor wraps a graph.Color.
type sexpColor struct {
	c graph.Color
}

func (c *sexpColor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(color %.3g %.3g %.3g)", c.c.R, c.c.G, c.c.B)
}
func (c *sexpColor) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a graph.Vec3.
type sexpVec3 struct {
	vec graph.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.1f %.1f %.1f)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string // keyword names in source order
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if _, seen := result.kw[name]; !seen {
				result.order = append(result.order, name)
			}
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// allow reports the first keyword not in names.
func (a kwArgs) allow(names ...string) error {
	for _, k := range a.order {
		found := false
		for _, n := range names {
			if k == n {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown keyword :%s", k)
		}
	}
	return nil
}

// float reads an optional numeric keyword into dst.
func (a kwArgs) float(name string, dst *float64) error {
	v, ok := a.kw[name]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = f
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (graph.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return graph.ZeroID, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (graph.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return graph.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toColor accepts a (color ...) value or a bare number for gray.
func toColor(s zygo.Sexp) (graph.Color, error) {
	if c, ok := s.(*sexpColor); ok {
		return c.c, nil
	}
	if f, err := toFloat64(s); err == nil {
		return graph.Color{R: f, G: f, B: f}, nil
	}
	return graph.Color{}, fmt.Errorf("expected color, got %T (%s)", s, s.SexpString(nil))
}

// toMaterialName accepts a material value or its name.
func toMaterialName(s zygo.Sexp) (string, error) {
	if m, ok := s.(*sexpMaterial); ok {
		return m.name, nil
	}
	name, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected material: %w", err)
	}
	return name, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toSetting converts a Sexp into a plain Go value suitable for JSON
// encoding. Keywords become their bare names.
func toSetting(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return v.Val, nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpStr:
		return toKeywordString(v)
	case *zygo.SexpPair, *zygo.SexpArray, *zygo.SexpSentinel:
		items, err := sexpListToSlice(s)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for _, it := range items {
			x, err := toSetting(it)
			if err != nil {
				return nil, err
			}
			out = append(out, x)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported setting value %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Graph builder
// ---------------------------------------------------------------------------

// builder populates one DesignGraph. Anonymous node ids come from a counter
// local to the evaluation, so the same source always yields the same ids.
type builder struct {
	g    *graph.DesignGraph
	next int
}

func newBuilder(g *graph.DesignGraph) *builder {
	return &builder{g: g}
}

// anonID returns a fresh id for an unnamed node of the given kind.
func (b *builder) anonID(kind string) graph.NodeID {
	b.next++
	return graph.NewNodeID(fmt.Sprintf("%s/%d", kind, b.next))
}

// unroot removes id from the graph roots once it is nested in an assembly.
func (b *builder) unroot(id graph.NodeID) {
	roots := b.g.Roots[:0]
	for _, r := range b.g.Roots {
		if r != id {
			roots = append(roots, r)
		}
	}
	b.g.Roots = roots
}

// primitive adds an anonymous primitive node.
func (b *builder) primitive(pd graph.PrimitiveData) *sexpNodeRef {
	id := b.anonID(pd.Shape.String())
	b.g.AddNode(&graph.Node{ID: id, Kind: graph.NodePrimitive, Data: pd})
	return &sexpNodeRef{id: id}
}

// refs converts builtin arguments into node ids.
func refs(fn string, args []zygo.Sexp) ([]graph.NodeID, error) {
	ids := make([]graph.NodeID, 0, len(args))
	for i, a := range args {
		ref, ok := a.(*sexpNodeRef)
		if !ok {
			return nil, fmt.Errorf("%s: child %d: expected node reference, got %T (%s)",
				fn, i+1, a, a.SexpString(nil))
		}
		ids = append(ids, ref.id)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the recipe builtins into a zygomys environment.
// The builtins operate on the builder's DesignGraph, populating it during
// evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	g := b.g

	// -----------------------------------------------------------------------
	// (color 0.8 0.2 0.1)
	// -----------------------------------------------------------------------
	env.AddFunction("color", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("color requires exactly 3 arguments, got %d", len(args))
		}
		var ch [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("color: component %d: %w", i, err)
			}
			ch[i] = f
		}
		return &sexpColor{c: graph.Color{R: ch[0], G: ch[1], B: ch[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: graph.Vec3{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (material "oak" :diffuse (color 0.6 0.4 0.2) :roughness 0.7
	//           :metallic 0 :emissive (color 0 0 0) :opacity 1
	//           :texture "oak.png" :normal "oak_n.png")
	// -----------------------------------------------------------------------
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("material requires a name argument")
		}
		if err := pa.allow("diffuse", "roughness", "metallic", "emissive", "opacity", "texture", "normal"); err != nil {
			return zygo.SexpNull, fmt.Errorf("material: %w", err)
		}
		matName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("material: name: %w", err)
		}

		m := graph.DefaultMaterial(matName)
		for _, key := range []string{"diffuse", "emissive"} {
			v, ok := pa.kw[key]
			if !ok {
				continue
			}
			c, err := toColor(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: %s: %w", key, err)
			}
			if key == "diffuse" {
				m.Diffuse = c
			} else {
				m.Emissive = c
			}
		}
		for key, dst := range map[string]*float64{
			"roughness": &m.Roughness,
			"metallic":  &m.Metallic,
			"opacity":   &m.Opacity,
		} {
			if err := pa.float(key, dst); err != nil {
				return zygo.SexpNull, fmt.Errorf("material: %w", err)
			}
		}
		if v, ok := pa.kw["texture"]; ok {
			if m.Texture, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("material: texture: %w", err)
			}
		}
		if v, ok := pa.kw["normal"]; ok {
			if m.Normal, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("material: normal: %w", err)
			}
		}

		if _, err := g.AddMaterial(m); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMaterial{name: matName}, nil
	})

	// -----------------------------------------------------------------------
	// (box :size (vec3 400 200 19) :material oak)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.allow("size", "material"); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		pd := graph.PrimitiveData{Shape: graph.PrimBox}
		v, ok := pa.kw["size"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("box requires :size")
		}
		size, err := toVec3(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
		}
		pd.Size = size
		if v, ok := pa.kw["material"]; ok {
			if pd.Material, err = toMaterialName(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %w", err)
			}
		}
		return b.primitive(pd), nil
	})

	// -----------------------------------------------------------------------
	// (cylinder :height 50 :radius 10 :material steel)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.allow("height", "radius", "material"); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		pd := graph.PrimitiveData{Shape: graph.PrimCylinder}
		if err := pa.float("height", &pd.Height); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if err := pa.float("radius", &pd.Radius); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if v, ok := pa.kw["material"]; ok {
			var err error
			if pd.Material, err = toMaterialName(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
			}
		}
		return b.primitive(pd), nil
	})

	// -----------------------------------------------------------------------
	// (sphere :radius 10 :material glass)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.allow("radius", "material"); err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		pd := graph.PrimitiveData{Shape: graph.PrimSphere}
		if err := pa.float("radius", &pd.Radius); err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		if v, ok := pa.kw["material"]; ok {
			var err error
			if pd.Material, err = toMaterialName(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
			}
		}
		return b.primitive(pd), nil
	})

	// -----------------------------------------------------------------------
	// (part "wheel" (cylinder ...) (place (box ...) :at ...) :material rubber)
	// (part "wheel")  ; reference to an existing part
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}
		if err := pa.allow("material"); err != nil {
			return zygo.SexpNull, fmt.Errorf("part: %w", err)
		}

		partName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}

		if len(pa.positional) == 1 && len(pa.kw) == 0 {
			n := g.Lookup(partName)
			if n == nil || n.Kind != graph.NodePart {
				return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
			}
			return &sexpNodeRef{id: n.ID, name: partName}, nil
		}

		if g.Lookup(partName) != nil {
			return zygo.SexpNull, fmt.Errorf("part: %q already defined", partName)
		}
		children, err := refs("part", pa.positional[1:])
		if err != nil {
			return zygo.SexpNull, err
		}
		pd := graph.PartData{}
		if v, ok := pa.kw["material"]; ok {
			if pd.Material, err = toMaterialName(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("part: %w", err)
			}
		}

		id := graph.NewNodeID("part/" + partName)
		g.AddNode(&graph.Node{
			ID:       id,
			Kind:     graph.NodePart,
			Name:     partName,
			Children: children,
			Data:     pd,
		})
		return &sexpNodeRef{id: id, name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (place (part "front") :at (vec3 0 0 19) :rotate (vec3 0 0 90))
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a node reference as first argument")
		}
		if err := pa.allow("at", "rotate"); err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		children, err := refs("place", pa.positional)
		if err != nil {
			return zygo.SexpNull, err
		}

		td := graph.TransformData{}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			td.Translation = &vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotate: %w", err)
			}
			td.Rotation = &vec
		}

		id := b.anonID("place")
		g.AddNode(&graph.Node{
			ID:       id,
			Kind:     graph.NodeTransform,
			Children: children,
			Data:     td,
		})
		return &sexpNodeRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (assembly "name" (place ...) (part "x") ...)
	// -----------------------------------------------------------------------
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
		}

		asmName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
		}
		if g.Lookup(asmName) != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: %q already defined", asmName)
		}

		children, err := refs("assembly", args[1:])
		if err != nil {
			return zygo.SexpNull, err
		}
		for _, c := range children {
			b.unroot(c)
		}

		id := graph.NewNodeID("assembly/" + asmName)
		g.AddNode(&graph.Node{
			ID:       id,
			Kind:     graph.NodeGroup,
			Name:     asmName,
			Children: children,
			Data:     graph.GroupData{Description: asmName},
		})
		g.AddRoot(id)

		return &sexpNodeRef{id: id, name: asmName}, nil
	})

	// -----------------------------------------------------------------------
	// (proxy-settings :texture-size 512 :ray-policy :forward
	//                 :properties (list :diffuse :normal))
	//
	// Registered as "proxy_settings"; the preprocessor rewrites the hyphen.
	// -----------------------------------------------------------------------
	env.AddFunction("proxy_settings", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("proxy-settings takes only keyword arguments")
		}
		for _, key := range pa.order {
			v, err := toSetting(pa.kw[key])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("proxy-settings: %s: %w", key, err)
			}
			g.SetSetting(strings.ReplaceAll(key, "-", "_"), v)
		}
		return zygo.SexpNull, nil
	})
}
