package graph

// Material is a surface material declared by a recipe. Its id in the source
// meshes is its index in DesignGraph.Materials.
type Material struct {
	Name      string  `json:"name"`
	Diffuse   Color   `json:"diffuse"`
	Roughness float64 `json:"roughness"`
	Metallic  float64 `json:"metallic"`
	Emissive  Color   `json:"emissive"`
	Opacity   float64 `json:"opacity"`
	Texture   string  `json:"texture,omitempty"` // diffuse image path
	Normal    string  `json:"normal,omitempty"`  // tangent-space normal map path
}

// DefaultMaterial returns a mid-gray dielectric.
func DefaultMaterial(name string) Material {
	return Material{
		Name:      name,
		Diffuse:   Color{0.5, 0.5, 0.5},
		Roughness: 0.5,
		Opacity:   1,
	}
}
