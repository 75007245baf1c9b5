// Package forecasttest builds small valid grids and rule sets for tests.
package forecasttest

import (
	"testing"

	"github.com/ctessum/sparse"

	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
)

// Latitudes and Longitudes span the small test grid.
var (
	Latitudes  = []float64{90, 0, -90}
	Longitudes = []float64{0, 90, 180, 270}
)

// Rules is forecast.DefaultRules sized for the 3 x 4 test grid.
func Rules() forecast.Rules {
	r := forecast.DefaultRules()
	r.LatPoints = len(Latitudes)
	r.LonPoints = len(Longitudes)
	return r
}

// Submission is metadata that passes Rules with any date policy that accepts
// 20241114.
func Submission() forecast.Submission {
	return forecast.Submission{
		Variable:  "tas",
		StartDate: "20241114",
		Period:    forecast.PeriodInt(1),
		Team:      "ECMWF",
		Model:     "modelA",
	}
}

// Grid returns a valid (5, 3, 4) grid in canonical orientation with 0.2 in
// every bin.
func Grid(t testing.TB) *forecast.Grid {
	t.Helper()
	data := sparse.ZerosDense(5, len(Latitudes), len(Longitudes))
	for i := range data.Elements {
		data.Elements[i] = 0.2
	}
	g, err := forecast.NewGrid("tas", []string{forecast.DimQuintile, forecast.DimLatitude, forecast.DimLongitude}, data,
		map[string][]float64{
			forecast.DimQuintile:  {0.2, 0.4, 0.6, 0.8, 1.0},
			forecast.DimLatitude:  append([]float64(nil), Latitudes...),
			forecast.DimLongitude: append([]float64(nil), Longitudes...),
		})
	if err != nil {
		t.Fatalf("build grid: %v", err)
	}
	return g
}
