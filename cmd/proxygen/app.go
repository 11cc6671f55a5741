package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/lodproxy/pkg/engine"
	"github.com/chazu/lodproxy/pkg/kernel"
	"github.com/chazu/lodproxy/pkg/kernel/sdfx"
	"github.com/chazu/lodproxy/pkg/proxy"
	"github.com/chazu/lodproxy/pkg/tessellate"
	"github.com/chazu/lodproxy/pkg/texture"
)

// options are the command-line inputs of one run.
type options struct {
	recipe  string
	config  string
	out     string
	cells   int
	timeout time.Duration
	quiet   bool
}

// app wires the recipe engine, the geometry kernel and the proxy pipeline.
type app struct {
	engine *engine.Engine
	kernel kernel.Kernel
	log    *log.Logger
}

// newApp creates an app with an engine and the sdfx kernel.
func newApp(opts options, logger *log.Logger) *app {
	k := sdfx.New()
	if opts.cells > 0 {
		k = sdfx.NewWithCells(opts.cells)
	}
	eng := engine.NewEngine()
	eng.Timeout = opts.timeout
	return &app{engine: eng, kernel: k, log: logger}
}

// MeshData is the JSON form of the proxy mesh.
type MeshData struct {
	Vertices    []float32 `json:"vertices"`
	Normals     []float32 `json:"normals"`
	Tangents    []float32 `json:"tangents,omitempty"`
	UVs         []float32 `json:"uvs,omitempty"`
	Indices     []uint32  `json:"indices"`
	MaterialIDs []int32   `json:"materialIds,omitempty"`
	PartName    string    `json:"partName"`
}

// CoverageData counts how the baked texels found their source surface.
type CoverageData struct {
	Mapped     int `json:"mapped"`
	Forward    int `json:"forward"`
	Reverse    int `json:"reverse"`
	Misaligned int `json:"misaligned"`
}

// ProxyFile is the document written to proxy.json.
type ProxyFile struct {
	Mesh          MeshData          `json:"mesh"`
	Failed        bool              `json:"failed"`
	Reason        string            `json:"reason,omitempty"`
	Warnings      []string          `json:"warnings"`
	SimplifyError float64           `json:"simplifyError"`
	Charts        int               `json:"charts"`
	Coverage      CoverageData      `json:"coverage"`
	Textures      map[string]string `json:"textures"`
	Config        proxy.Config      `json:"config"`
}

// run evaluates the recipe and writes the proxy into opts.out.
func (a *app) run(ctx context.Context, opts options) (*proxy.Result, error) {
	source, err := os.ReadFile(opts.recipe)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}

	// Step 1: Evaluate the recipe into a validated design graph.
	evalRes, err := a.engine.Run(ctx, string(source))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if len(evalRes.Errors) > 0 {
		msgs := make([]string, len(evalRes.Errors))
		for i, e := range evalRes.Errors {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("recipe %s:\n  %s", opts.recipe, strings.Join(msgs, "\n  "))
	}
	for _, w := range evalRes.Warnings {
		a.log.Printf("recipe: warning: %s", w)
	}
	g := evalRes.Graph

	// Step 2: Resolve the pipeline configuration.
	cfg := proxy.DefaultConfig()
	if opts.config != "" {
		if cfg, err = proxy.LoadConfig(opts.config); err != nil {
			return nil, err
		}
	}
	if cfg, err = cfg.With(g.Settings); err != nil {
		return nil, fmt.Errorf("recipe settings: %w", err)
	}

	// Step 3: Tessellate the parts into source meshes.
	meshes, err := tessellate.Tessellate(g, a.kernel)
	if err != nil {
		return nil, err
	}
	if len(meshes) == 0 {
		return nil, errors.New("recipe produced no parts")
	}

	mats, err := loadMaterials(g, filepath.Dir(opts.recipe))
	if err != nil {
		return nil, err
	}

	// Step 4: Build the proxy.
	logger := a.log
	if opts.quiet {
		logger = log.New(io.Discard, "", 0)
	}
	res, err := proxy.Generate(meshes, mats, cfg, proxy.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	if err := writeResult(opts.out, res, cfg); err != nil {
		return nil, err
	}
	return res, nil
}

// writeResult stores proxy.json and one BMP per baked property.
func writeResult(dir string, res *proxy.Result, cfg proxy.Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	doc := ProxyFile{
		Mesh: MeshData{
			Vertices:    res.Mesh.Vertices,
			Normals:     res.Mesh.Normals,
			Tangents:    res.Mesh.Tangents,
			UVs:         res.Mesh.UVs,
			Indices:     res.Mesh.Indices,
			MaterialIDs: res.Mesh.MaterialIDs,
			PartName:    res.Mesh.PartName,
		},
		Failed:        res.Failed,
		Reason:        res.Reason,
		Warnings:      append([]string{}, res.Warnings...),
		SimplifyError: res.SimplifyError,
		Charts:        res.Charts,
		Coverage: CoverageData{
			Mapped:     res.Coverage.Mapped,
			Forward:    res.Coverage.Forward,
			Reverse:    res.Coverage.Reverse,
			Misaligned: res.Coverage.Misaligned,
		},
		Textures: make(map[string]string),
		Config:   cfg,
	}

	for prop, img := range res.Materials {
		name := prop.String() + ".bmp"
		if err := texture.WriteBMP(filepath.Join(dir, name), img, prop.IsColor()); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		doc.Textures[prop.String()] = name
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode proxy: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "proxy.json"), data, 0o644)
}
