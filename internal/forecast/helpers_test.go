package forecast

import (
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/require"
)

const (
	nQ   = 5
	nLat = 181
	nLon = 360
)

// cellValue gives every (lat, lon) point a distinct distribution that still
// sums to one, so reordering bugs show up as value mismatches.
func cellValue(q, i, j int) float64 {
	d := float64(i)/1000 + float64(j)/100000
	switch q {
	case 3:
		return 0.2 + d
	case 4:
		return 0.2 - d
	default:
		return 0.2
	}
}

// canonicalGrid builds a valid (5, 181, 360) grid: latitude 90..-90,
// longitude 0..359, quintiles 0.2..1.0.
func canonicalGrid(t *testing.T) *Grid {
	t.Helper()
	data := sparse.ZerosDense(nQ, nLat, nLon)
	for q := 0; q < nQ; q++ {
		for i := 0; i < nLat; i++ {
			for j := 0; j < nLon; j++ {
				data.Set(cellValue(q, i, j), q, i, j)
			}
		}
	}
	lat := make([]float64, nLat)
	for i := range lat {
		lat[i] = 90 - float64(i)
	}
	lon := make([]float64, nLon)
	for j := range lon {
		lon[j] = float64(j)
	}
	g, err := NewGrid("tas", []string{DimQuintile, DimLatitude, DimLongitude}, data, map[string][]float64{
		DimQuintile:  {0.2, 0.4, 0.6, 0.8, 1.0},
		DimLatitude:  lat,
		DimLongitude: lon,
	})
	require.NoError(t, err)
	return g
}

// ascendingLatitude stores the canonical grid south to north.
func ascendingLatitude(t *testing.T) *Grid {
	t.Helper()
	g := canonicalGrid(t)
	order := make([]int, nLat)
	for k := range order {
		order[k] = nLat - 1 - k
	}
	g.reorder(DimLatitude, order)
	return g
}

// signedLongitude stores the canonical grid with longitudes -180..179.
func signedLongitude(t *testing.T) *Grid {
	t.Helper()
	g := canonicalGrid(t)
	order := make([]int, nLon)
	for k := range order {
		order[k] = (k + 180) % nLon
	}
	g.reorder(DimLongitude, order)
	for k, v := range g.Coords[DimLongitude] {
		if v >= 180 {
			g.Coords[DimLongitude][k] = v - 360
		}
	}
	return g
}

func renamed(g *Grid, from, to string) *Grid {
	out := g.Clone()
	out.renameDim(from, to)
	return out
}

func index(q, i, j int) int {
	return (q*nLat+i)*nLon + j
}
