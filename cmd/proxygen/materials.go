package main

import (
	"fmt"
	"path/filepath"

	"github.com/chazu/lodproxy/pkg/graph"
	"github.com/chazu/lodproxy/pkg/texture"
)

// loadMaterials converts the recipe materials into a material table with
// matching ids. Image paths are resolved against dir.
func loadMaterials(g *graph.DesignGraph, dir string) (*texture.StaticMaterials, error) {
	mats := texture.NewStaticMaterials()
	for _, m := range g.Materials {
		id := mats.Add(m.Name)
		mats.SetConstant(id, texture.Diffuse, rgb(m.Diffuse))
		mats.SetConstant(id, texture.Emissive, rgb(m.Emissive))
		mats.SetConstant(id, texture.Roughness, texture.Gray(float32(m.Roughness)))
		mats.SetConstant(id, texture.Metallic, texture.Gray(float32(m.Metallic)))
		mats.SetConstant(id, texture.Opacity, texture.Gray(float32(m.Opacity)))

		if m.Texture != "" {
			img, err := texture.LoadImage(resolve(dir, m.Texture), true)
			if err != nil {
				return nil, fmt.Errorf("material %q: %w", m.Name, err)
			}
			mats.Set(id, texture.Diffuse, img)
		}
		if m.Normal != "" {
			img, err := texture.LoadImage(resolve(dir, m.Normal), false)
			if err != nil {
				return nil, fmt.Errorf("material %q: %w", m.Name, err)
			}
			mats.Set(id, texture.Normal, img)
		}
	}
	return mats, nil
}

func rgb(c graph.Color) texture.LinearColor {
	return texture.LinearColor{float32(c.R), float32(c.G), float32(c.B), 1}
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
