package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/chazu/lodproxy/pkg/correspond"
	"github.com/chazu/lodproxy/pkg/texture"
)

// DownsampleMode selects how super-sampled bakes are reduced.
type DownsampleMode int

const (
	DownsampleSparse DownsampleMode = iota
	DownsampleArea
)

func (m DownsampleMode) String() string {
	if m == DownsampleArea {
		return "area"
	}
	return "sparse"
}

// MarshalText implements encoding.TextMarshaler.
func (m DownsampleMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DownsampleMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "sparse":
		*m = DownsampleSparse
	case "area":
		*m = DownsampleArea
	default:
		return fmt.Errorf("proxy: unknown downsample mode %q", b)
	}
	return nil
}

// Config holds every pipeline setting. It is passed by value and never
// modified by the pipeline.
type Config struct {
	RayPolicy            correspond.RayPolicy `json:"ray_policy"`
	ChartColorDebug      bool                 `json:"chart_color_debug"`
	TangentSpaceNormals  bool                 `json:"tangent_space_normals"`
	RemeshOnly           bool                 `json:"remesh_only"`
	SingleThreadSimplify bool                 `json:"single_thread_simplify"`
	ParallelMaterialBake bool                 `json:"parallel_material_bake"`

	// Voxelization. A zero VoxelSize derives one from the source bounds
	// and VoxelResolution.
	VoxelSize       float64 `json:"voxel_size"`
	VoxelResolution int     `json:"voxel_resolution"`
	HalfBandWidth   float64 `json:"half_band_width"`
	MaxVoxels       int     `json:"max_voxels"`

	// Simplification
	RetainFraction float64 `json:"retain_fraction"`
	ErrorBudget    float64 `json:"error_budget"`

	// Texturing
	TextureSize    int                `json:"texture_size"`
	SuperSample    int                `json:"super_sample"`
	GutterTexels   int                `json:"gutter_texels"`
	MaxRayDistance float64            `json:"max_ray_distance"`
	UseClosestPoly bool               `json:"use_closest_poly"`
	DownsampleMode DownsampleMode     `json:"downsample_mode"`
	Properties     []texture.Property `json:"properties"`

	CleanIterations int `json:"clean_iterations"`
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		RayPolicy:            correspond.RayPolicyClosest,
		TangentSpaceNormals:  true,
		ParallelMaterialBake: true,

		VoxelResolution: 64,
		HalfBandWidth:   3,
		MaxVoxels:       64 << 20,

		RetainFraction: 0.1,
		ErrorBudget:    1e-3,

		TextureSize:    256,
		SuperSample:    2,
		GutterTexels:   2,
		MaxRayDistance: 0.1,
		DownsampleMode: DownsampleSparse,
		Properties:     []texture.Property{texture.Diffuse, texture.Normal, texture.Roughness, texture.Metallic},

		CleanIterations: 4,
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	switch {
	case c.TextureSize <= 0:
		return fmt.Errorf("proxy: texture size must be positive, got %d", c.TextureSize)
	case c.SuperSample < 1:
		return fmt.Errorf("proxy: super sample factor must be at least 1, got %d", c.SuperSample)
	case c.VoxelSize < 0:
		return fmt.Errorf("proxy: voxel size must not be negative, got %g", c.VoxelSize)
	case c.VoxelSize == 0 && c.VoxelResolution <= 0:
		return fmt.Errorf("proxy: voxel resolution must be positive, got %d", c.VoxelResolution)
	case c.RetainFraction <= 0 || c.RetainFraction > 1:
		return fmt.Errorf("proxy: retain fraction must be in (0, 1], got %g", c.RetainFraction)
	case c.GutterTexels < 0:
		return fmt.Errorf("proxy: gutter must not be negative, got %d", c.GutterTexels)
	case c.MaxRayDistance <= 0:
		return fmt.Errorf("proxy: max ray distance must be positive, got %g", c.MaxRayDistance)
	}
	return nil
}

// LoadConfig reads a JSON config. Fields the file omits keep their default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("proxy: read config: %w", err)
	}
	if err := decodeStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("proxy: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config as indented JSON.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// With returns a copy of c with overrides applied. Keys are JSON field
// names; dashes are accepted in place of underscores so recipe keywords
// such as texture-size map directly.
func (c Config) With(overrides map[string]any) (Config, error) {
	if len(overrides) == 0 {
		return c, nil
	}
	base, err := json.Marshal(c)
	if err != nil {
		return c, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return c, err
	}
	for k, v := range overrides {
		key := strings.ReplaceAll(k, "-", "_")
		if _, ok := fields[key]; !ok {
			return c, fmt.Errorf("proxy: unknown setting %q", k)
		}
		fields[key] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return c, fmt.Errorf("proxy: encode overrides: %w", err)
	}
	var out Config
	if err := decodeStrict(merged, &out); err != nil {
		return c, fmt.Errorf("proxy: apply overrides: %w", err)
	}
	return out, nil
}

func decodeStrict(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}
