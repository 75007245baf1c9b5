package forecast

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ctessum/sparse"
)

// Grid is a gridded forecast: one data variable laid out over named
// dimensions, with a coordinate vector per dimension.
type Grid struct {
	Name   string
	Dims   []string
	Data   *sparse.DenseArray
	Coords map[string][]float64
	Attrs  map[string]string
}

// NewGrid assembles a Grid and checks that it is internally consistent:
// one dimension name per array axis, and every coordinate names a dimension
// and matches its extent.
func NewGrid(name string, dims []string, data *sparse.DenseArray, coords map[string][]float64) (*Grid, error) {
	if data == nil {
		return nil, errors.New("grid data is required")
	}
	if len(dims) != len(data.Shape) {
		return nil, fmt.Errorf("grid has %d dimension names for a %d-d array", len(dims), len(data.Shape))
	}
	n := 1
	for _, s := range data.Shape {
		n *= s
	}
	if len(data.Elements) != n {
		return nil, fmt.Errorf("grid shape %v needs %d elements, got %d", data.Shape, n, len(data.Elements))
	}
	for i, d := range dims {
		if slices.Contains(dims[:i], d) {
			return nil, fmt.Errorf("duplicate dimension %q", d)
		}
	}
	for c, vals := range coords {
		axis := slices.Index(dims, c)
		if axis < 0 {
			return nil, fmt.Errorf("coordinate %q is not a dimension of the grid", c)
		}
		if len(vals) != data.Shape[axis] {
			return nil, fmt.Errorf("coordinate %q has %d values, dimension has %d", c, len(vals), data.Shape[axis])
		}
	}
	if coords == nil {
		coords = map[string][]float64{}
	}
	return &Grid{Name: name, Dims: dims, Data: data, Coords: coords, Attrs: map[string]string{}}, nil
}

// Shape returns a copy of the array shape.
func (g *Grid) Shape() []int {
	return slices.Clone(g.Data.Shape)
}

// Axis returns the array axis of the named dimension, or -1.
func (g *Grid) Axis(dim string) int {
	return slices.Index(g.Dims, dim)
}

// Coord returns the coordinate values of a dimension.
func (g *Grid) Coord(name string) ([]float64, bool) {
	v, ok := g.Coords[name]
	return v, ok
}

// Clone returns a deep copy that shares no memory with g.
func (g *Grid) Clone() *Grid {
	data := sparse.ZerosDense(g.Data.Shape...)
	copy(data.Elements, g.Data.Elements)

	coords := make(map[string][]float64, len(g.Coords))
	for k, v := range g.Coords {
		coords[k] = slices.Clone(v)
	}
	attrs := make(map[string]string, len(g.Attrs))
	for k, v := range g.Attrs {
		attrs[k] = v
	}
	return &Grid{
		Name:   g.Name,
		Dims:   slices.Clone(g.Dims),
		Data:   data,
		Coords: coords,
		Attrs:  attrs,
	}
}

func (g *Grid) renameDim(from, to string) {
	if from == to {
		return
	}
	if axis := g.Axis(from); axis >= 0 {
		g.Dims[axis] = to
	}
	if v, ok := g.Coords[from]; ok {
		delete(g.Coords, from)
		g.Coords[to] = v
	}
}

// reorder permutes the grid along dim so that position k holds what was at
// order[k]. The coordinate moves with the data.
func (g *Grid) reorder(dim string, order []int) {
	axis := g.Axis(dim)
	outer, n, inner := split(g.Data.Shape, axis)

	src := g.Data.Elements
	dst := make([]float64, len(src))
	for o := 0; o < outer; o++ {
		for k, from := range order {
			d := (o*n + k) * inner
			s := (o*n + from) * inner
			copy(dst[d:d+inner], src[s:s+inner])
		}
	}
	g.Data.Elements = dst

	if vals, ok := g.Coords[dim]; ok {
		moved := make([]float64, len(vals))
		for k, from := range order {
			moved[k] = vals[from]
		}
		g.Coords[dim] = moved
	}
}

// split factors shape around axis into (product before, extent, product after)
// so that element (o, k, i) sits at (o*n+k)*inner+i in row-major order.
func split(shape []int, axis int) (outer, n, inner int) {
	outer, inner = 1, 1
	for _, s := range shape[:axis] {
		outer *= s
	}
	for _, s := range shape[axis+1:] {
		inner *= s
	}
	return outer, shape[axis], inner
}
