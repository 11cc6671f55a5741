package main

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/lodproxy/pkg/graph"
	"github.com/chazu/lodproxy/pkg/texture"
)

// testCells keeps marching cubes cheap in tests.
const testCells = 24

func quietApp() *app {
	return newApp(options{cells: testCells}, log.New(io.Discard, "", 0))
}

// TestE2ECrate exercises the full path: recipe -> engine -> graph ->
// tessellate -> proxy -> files.
func TestE2ECrate(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline")
	}
	out := t.TempDir()
	res, err := quietApp().run(context.Background(), options{recipe: "testdata/crate.lisp", out: out, quiet: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Mesh == nil || res.Mesh.IsEmpty() {
		t.Fatal("expected a proxy mesh")
	}

	data, err := os.ReadFile(filepath.Join(out, "proxy.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc ProxyFile
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("proxy.json: %v", err)
	}
	if doc.Config.TextureSize != 32 {
		t.Errorf("recipe settings not applied: texture size %d", doc.Config.TextureSize)
	}
	if len(doc.Mesh.Indices) != len(res.Mesh.Indices) {
		t.Errorf("json mesh has %d indices, result %d", len(doc.Mesh.Indices), len(res.Mesh.Indices))
	}
	if doc.Failed != res.Failed {
		t.Error("failed flag not written")
	}

	for _, name := range []string{"diffuse", "normal", "roughness"} {
		file, ok := doc.Textures[name]
		if !ok {
			t.Errorf("missing %s texture entry", name)
			continue
		}
		f, err := os.Open(filepath.Join(out, file))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		img, err := texture.Decode(f, false)
		f.Close()
		if err != nil {
			t.Errorf("%s: decode: %v", name, err)
			continue
		}
		if img.Width() != 32 || img.Height() != 32 {
			t.Errorf("%s: size %dx%d", name, img.Width(), img.Height())
		}
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name   string
		recipe string
		config string
	}{
		{"missing recipe", filepath.Join(dir, "nope.lisp"), ""},
		{"syntax error", write("bad.lisp", "(part \"a\""), ""},
		{"validation error", write("flat.lisp", `(part "a" (box :size (vec3 1 0 1)))`), ""},
		{"no parts", write("empty.lisp", "(+ 1 2)"), ""},
		{"bad setting", write("setting.lisp", `(proxy-settings :no-such-thing 1) (part "a" (box :size (vec3 1 1 1)))`), ""},
		{"bad config", write("ok.lisp", `(part "a" (box :size (vec3 1 1 1)))`), write("cfg.json", `{"texture_size": "big"}`)},
		{"missing texture", write("tex.lisp", `(material "m" :texture "missing.png") (part "a" (box :size (vec3 1 1 1) :material "m"))`), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietApp().run(context.Background(), options{recipe: tt.recipe, config: tt.config, out: filepath.Join(dir, "out"), quiet: true})
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadMaterials(t *testing.T) {
	dir := t.TempDir()
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			src.Set(x, y, color.NRGBA{0, 0, 0, 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, "black.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	g := graph.New()
	plain := graph.DefaultMaterial("plain")
	plain.Metallic = 1
	textured := graph.DefaultMaterial("textured")
	textured.Texture = "black.png"
	for _, m := range []graph.Material{plain, textured} {
		if _, err := g.AddMaterial(m); err != nil {
			t.Fatal(err)
		}
	}

	mats, err := loadMaterials(g, dir)
	if err != nil {
		t.Fatal(err)
	}
	if mats.Len() != 2 {
		t.Fatalf("Len = %d", mats.Len())
	}
	if id, ok := mats.Lookup("textured"); !ok || id != 1 {
		t.Errorf("Lookup(textured) = %d, %v", id, ok)
	}
	if got := mats.Channel(0, texture.Metallic).At(0, 0); got != texture.Gray(1) {
		t.Errorf("metallic = %v", got)
	}
	if got := mats.Channel(0, texture.Diffuse).At(0, 0); got != texture.Gray(0.5) {
		t.Errorf("diffuse = %v", got)
	}
	img := mats.Channel(1, texture.Diffuse)
	if img.Width() != 2 || img.At(1, 1) != texture.Gray(0) {
		t.Errorf("textured diffuse = %dx%d %v", img.Width(), img.Height(), img.At(1, 1))
	}
}
