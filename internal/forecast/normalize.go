package forecast

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
)

// Accepted coordinate names, searched in order.
var (
	LatitudeAliases  = []string{"latitude", "lat", "latitudes", "lat_deg", "y"}
	LongitudeAliases = []string{"longitude", "lon", "longitudes", "lon_deg", "x"}
	QuintileAliases  = []string{"quintile", "Quintile", "q", "percentile", "Q"}
)

// Canonical dimension names written by the normalizer.
const (
	DimQuintile  = "quintile"
	DimLatitude  = "latitude"
	DimLongitude = "longitude"
)

// LookupAxis returns the first alias present as a coordinate of g.
// The first match wins even if a later alias is also present.
func LookupAxis(g *Grid, axis string, aliases []string) (string, error) {
	for _, name := range aliases {
		if _, ok := g.Coords[name]; ok {
			return name, nil
		}
	}
	return "", &ValidationError{Kind: ErrMissingCoordinate, Field: axis, Tried: slices.Clone(aliases)}
}

// NormalizeLatitude returns a copy of g whose latitude axis, renamed to
// "latitude", runs north to south. An ascending axis is re-sorted
// descending together with the data.
func NormalizeLatitude(g *Grid, points int, logger *slog.Logger) (*Grid, error) {
	logger = orDiscard(logger)

	name, vals, err := lookupSized(g, DimLatitude, LatitudeAliases, points)
	if err != nil {
		return nil, err
	}
	logger.Debug("latitude found", "name", name)

	out := g.Clone()
	if vals[0] < vals[len(vals)-1] {
		logger.Debug("latitudes ascending, flipping to descend from north to south", "name", name)
		out.reorder(name, sortedOrder(vals, func(a, b float64) int { return cmp.Compare(b, a) }))
	}
	out.renameDim(name, DimLatitude)
	return out, nil
}

// NormalizeLongitude returns a copy of g whose longitude axis, renamed to
// "longitude", lies in [0, 360). Negative values are taken to mean the
// [-180, 180) convention: all values are shifted by (v+360) mod 360 and the
// axis is re-sorted ascending together with the data.
func NormalizeLongitude(g *Grid, points int, logger *slog.Logger) (*Grid, error) {
	logger = orDiscard(logger)

	name, vals, err := lookupSized(g, DimLongitude, LongitudeAliases, points)
	if err != nil {
		return nil, err
	}
	logger.Debug("longitude found", "name", name)

	out := g.Clone()
	if slices.ContainsFunc(vals, func(v float64) bool { return v < 0 }) {
		logger.Debug("longitudes negative, converting to 0-360", "name", name)
		shifted := out.Coords[name]
		for i, v := range shifted {
			shifted[i] = wrapLongitude(v)
		}
		out.reorder(name, sortedOrder(shifted, cmp.Compare[float64]))
	}
	out.renameDim(name, DimLongitude)
	return out, nil
}

func lookupSized(g *Grid, axis string, aliases []string, points int) (string, []float64, error) {
	name, err := LookupAxis(g, axis, aliases)
	if err != nil {
		return "", nil, err
	}
	vals := g.Coords[name]
	if len(vals) != points {
		return "", nil, &ValidationError{Kind: ErrBadCoordinateSize, Field: axis, Expected: points, Got: len(vals)}
	}
	return name, vals, nil
}

func wrapLongitude(v float64) float64 {
	m := math.Mod(v+360, 360)
	if m < 0 {
		m += 360
	}
	return m
}

// sortedOrder returns the stable permutation that sorts vals by cmpFn.
func sortedOrder(vals []float64, cmpFn func(a, b float64) int) []int {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmpFn(vals[a], vals[b]) })
	return order
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
