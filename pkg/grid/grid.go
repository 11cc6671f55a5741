// Package grid provides a row-major 2D array used for raster, correspondence,
// color and topology grids. A Grid either owns its backing slice (New) or is a
// view over a slice owned by someone else (Wrap).
package grid

import "fmt"

// Grid is a W x H array of T stored row-major.
type Grid[T any] struct {
	w, h int
	data []T
}

// New allocates a zero-valued w x h grid.
func New[T any](w, h int) *Grid[T] {
	if w < 0 || h < 0 {
		panic(fmt.Sprintf("grid: negative size %dx%d", w, h))
	}
	return &Grid[T]{w: w, h: h, data: make([]T, w*h)}
}

// NewFilled allocates a w x h grid with every cell set to v.
func NewFilled[T any](w, h int, v T) *Grid[T] {
	g := New[T](w, h)
	g.Fill(v)
	return g
}

// Wrap returns a grid view over data without copying. The caller keeps
// ownership of data; writes through the grid are visible in the slice.
func Wrap[T any](data []T, w, h int) *Grid[T] {
	if w < 0 || h < 0 || len(data) < w*h {
		panic(fmt.Sprintf("grid: cannot wrap %d values as %dx%d", len(data), w, h))
	}
	return &Grid[T]{w: w, h: h, data: data[:w*h]}
}

// Width returns the number of columns.
func (g *Grid[T]) Width() int { return g.w }

// Height returns the number of rows.
func (g *Grid[T]) Height() int { return g.h }

// Len returns the number of cells.
func (g *Grid[T]) Len() int { return len(g.data) }

// Index returns the linear index of (x, y).
func (g *Grid[T]) Index(x, y int) int { return y*g.w + x }

// InBounds reports whether (x, y) addresses a cell.
func (g *Grid[T]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.w && y < g.h
}

// At returns the value at (x, y).
func (g *Grid[T]) At(x, y int) T { return g.data[y*g.w+x] }

// Set stores v at (x, y).
func (g *Grid[T]) Set(x, y int, v T) { g.data[y*g.w+x] = v }

// Ptr returns a pointer to the cell at (x, y).
func (g *Grid[T]) Ptr(x, y int) *T { return &g.data[y*g.w+x] }

// Row returns the cells of row y as a sub-slice of the backing store.
func (g *Grid[T]) Row(y int) []T { return g.data[y*g.w : (y+1)*g.w] }

// Data returns the backing slice.
func (g *Grid[T]) Data() []T { return g.data }

// Fill sets every cell to v.
func (g *Grid[T]) Fill(v T) {
	for i := range g.data {
		g.data[i] = v
	}
}

// Clone returns an owning deep copy of the grid.
func (g *Grid[T]) Clone() *Grid[T] {
	c := New[T](g.w, g.h)
	copy(c.data, g.data)
	return c
}

// CopyFrom overwrites g with the contents of src. Sizes must match.
func (g *Grid[T]) CopyFrom(src *Grid[T]) error {
	if !SameSize(g, src) {
		return fmt.Errorf("grid: copy %dx%d into %dx%d", src.w, src.h, g.w, g.h)
	}
	copy(g.data, src.data)
	return nil
}

// SameSize reports whether two grids have identical dimensions.
func SameSize[A, B any](a *Grid[A], b *Grid[B]) bool {
	return a.w == b.w && a.h == b.h
}
