// Package ncfile reads and writes forecast grids as netCDF classic files.
package ncfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
)

// Global attribute names written alongside the grid.
const (
	AttrDescription = "description"
	AttrVariable    = "variable"
	AttrStartDate   = "fc_start_date"
	AttrPeriod      = "period"
	AttrTeam        = "teamname"
	AttrModel       = "modelname"
)

// Description is the human readable summary stored in the file header.
func Description(id forecast.Identity, periodTag string) string {
	return fmt.Sprintf("%s prediction from %s using %s at %s%s lead time",
		id.Variable, id.Team, id.Model, periodTag, id.Period)
}

// Encode serializes a normalized grid. Dimensions are written under their
// canonical names; a grid without quintile labels gets 0.2, 0.4, ... along
// its first axis.
func Encode(g *forecast.Grid, id forecast.Identity, periodTag string) ([]byte, error) {
	buf := NewBuffer(nil)
	if err := EncodeTo(buf, g, id, periodTag); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo writes the grid into rw.
func EncodeTo(rw cdf.ReaderWriterAt, g *forecast.Grid, id forecast.Identity, periodTag string) error {
	dims, coords := canonicalAxes(g)

	h := cdf.NewHeader(dims, g.Shape())
	h.AddAttribute("", AttrDescription, Description(id, periodTag))
	h.AddAttribute("", AttrVariable, id.Variable)
	h.AddAttribute("", AttrStartDate, id.StartDate)
	h.AddAttribute("", AttrPeriod, id.Period)
	h.AddAttribute("", AttrTeam, id.Team)
	h.AddAttribute("", AttrModel, id.Model)

	for _, d := range dims {
		h.AddVariable(d, []string{d}, []float64{0})
		if u := units(d); u != "" {
			h.AddAttribute(d, "units", u)
		}
	}
	name := g.Name
	if name == "" || slices.Contains(dims, name) {
		name = id.Variable
	}
	h.AddVariable(name, dims, []float64{0})
	h.AddAttribute(name, "units", "probability")
	h.Define()

	f, err := cdf.Create(rw, h)
	if err != nil {
		return fmt.Errorf("create netcdf header: %w", err)
	}
	for _, d := range dims {
		if err := writeVar(f, d, coords[d]); err != nil {
			return err
		}
	}
	return writeVar(f, name, g.Data.Elements)
}

// WriteFile encodes the grid into a new file at path.
func WriteFile(path string, g *forecast.Grid, id forecast.Identity, periodTag string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodeTo(f, g, id, periodTag); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Decode reads a grid from netCDF bytes.
func Decode(b []byte) (*forecast.Grid, error) {
	return DecodeFrom(NewBuffer(b))
}

// ReadFile decodes the netCDF file at path.
func ReadFile(path string) (*forecast.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeFrom(readOnly{f})
}

// DecodeFrom reads a grid. Variables named after a dimension are taken as
// coordinates; the first other variable is the forecast data.
func DecodeFrom(rw cdf.ReaderWriterAt) (*forecast.Grid, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("open netcdf: %w", err)
	}

	var dataVar string
	coordVars := map[string]bool{}
	for _, v := range f.Header.Variables() {
		vdims := f.Header.Dimensions(v)
		if len(vdims) == 1 && vdims[0] == v {
			coordVars[v] = true
			continue
		}
		if dataVar == "" {
			dataVar = v
		}
	}
	if dataVar == "" {
		return nil, errors.New("netcdf file has no data variable")
	}

	dims := f.Header.Dimensions(dataVar)
	shape := f.Header.Lengths(dataVar)
	values, err := readVar(f, dataVar, shape)
	if err != nil {
		return nil, err
	}
	data := sparse.ZerosDense(shape...)
	copy(data.Elements, values)

	coords := make(map[string][]float64, len(dims))
	for _, d := range dims {
		if !coordVars[d] {
			continue
		}
		vals, err := readVar(f, d, f.Header.Lengths(d))
		if err != nil {
			return nil, err
		}
		coords[d] = vals
	}

	g, err := forecast.NewGrid(dataVar, dims, data, coords)
	if err != nil {
		return nil, fmt.Errorf("netcdf variable %s: %w", dataVar, err)
	}
	for _, a := range []string{AttrDescription, AttrVariable, AttrStartDate, AttrPeriod, AttrTeam, AttrModel} {
		if s, ok := f.Header.GetAttribute("", a).(string); ok {
			g.Attrs[a] = s
		}
	}
	return g, nil
}

// canonicalAxes maps the grid's axes to canonical names and fills in labels
// for axes without coordinates: quintile bins along the first axis when no
// quintile coordinate exists, index labels elsewhere.
func canonicalAxes(g *forecast.Grid) ([]string, map[string][]float64) {
	rename := map[string]string{}
	for _, ax := range []struct {
		dim     string
		aliases []string
	}{
		{forecast.DimQuintile, forecast.QuintileAliases},
		{forecast.DimLatitude, forecast.LatitudeAliases},
		{forecast.DimLongitude, forecast.LongitudeAliases},
	} {
		if name, err := forecast.LookupAxis(g, ax.dim, ax.aliases); err == nil {
			rename[name] = ax.dim
		}
	}
	_, hasQuintile := g.Coords[firstKey(rename, forecast.DimQuintile)]

	dims := make([]string, len(g.Dims))
	coords := make(map[string][]float64, len(g.Dims))
	for i, d := range g.Dims {
		out := d
		if r, ok := rename[d]; ok {
			out = r
		}
		vals, ok := g.Coords[d]
		if !ok {
			vals = make([]float64, g.Data.Shape[i])
			quintile := i == 0 && !hasQuintile
			for k := range vals {
				if quintile {
					vals[k] = 0.2 * float64(k+1)
				} else {
					vals[k] = float64(k)
				}
			}
			if quintile {
				out = forecast.DimQuintile
			}
		}
		dims[i] = out
		coords[out] = vals
	}
	return dims, coords
}

func firstKey(m map[string]string, value string) string {
	for k, v := range m {
		if v == value {
			return k
		}
	}
	return ""
}

func units(dim string) string {
	switch dim {
	case forecast.DimLatitude:
		return "degrees_north"
	case forecast.DimLongitude:
		return "degrees_east"
	default:
		return ""
	}
}

func writeVar(f *cdf.File, name string, vals []float64) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(vals); err != nil {
		return fmt.Errorf("write netcdf variable %s: %w", name, err)
	}
	return nil
}

// readVar reads a whole variable as float64 regardless of its stored type.
func readVar(f *cdf.File, name string, shape []int) ([]float64, error) {
	n := 1
	for _, s := range shape {
		n *= s
	}

	f64 := make([]float64, n)
	f32 := make([]float32, n)
	i32 := make([]int32, n)
	i16 := make([]int16, n)
	attempts := []readAttempt{
		{f64, func() []float64 { return f64 }},
		{f32, func() []float64 { return widen(f32) }},
		{i32, func() []float64 { return widen(i32) }},
		{i16, func() []float64 { return widen(i16) }},
	}

	var lastErr error
	for _, a := range attempts {
		r := f.Reader(name, nil, nil)
		got, err := r.Read(a.buf)
		if err != nil && !(errors.Is(err, io.EOF) && got == n) {
			lastErr = err
			continue
		}
		if got != n {
			lastErr = fmt.Errorf("read %d of %d values", got, n)
			continue
		}
		return a.conv(), nil
	}
	return nil, fmt.Errorf("read netcdf variable %s: %w", name, lastErr)
}

type readAttempt struct {
	buf  any
	conv func() []float64
}

func widen[T float32 | int32 | int16](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// readOnly adapts a read-only file to cdf.ReaderWriterAt.
type readOnly struct{ io.ReaderAt }

func (readOnly) WriteAt([]byte, int64) (int, error) {
	return 0, errors.New("ncfile: file opened read-only")
}
