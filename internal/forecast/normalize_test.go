package forecast

import (
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupAxis_FirstMatchWins(t *testing.T) {
	g := &Grid{Coords: map[string][]float64{
		"y":   {1},
		"lat": {2},
	}}

	name, err := LookupAxis(g, DimLatitude, LatitudeAliases)
	require.NoError(t, err)
	assert.Equal(t, "lat", name)
}

func TestLookupAxis_Missing(t *testing.T) {
	g := &Grid{Coords: map[string][]float64{"rlat": {1}}}

	_, err := LookupAxis(g, DimLatitude, LatitudeAliases)
	require.ErrorIs(t, err, ErrMissingCoordinate)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, DimLatitude, ve.Field)
	assert.Equal(t, LatitudeAliases, ve.Tried)
}

func TestNormalizeLatitude_FlipsAscending(t *testing.T) {
	want := canonicalGrid(t)
	in := ascendingLatitude(t)
	require.Equal(t, -90.0, in.Coords[DimLatitude][0])

	got, err := NormalizeLatitude(in, nLat, nil)
	require.NoError(t, err)

	assert.Equal(t, want.Coords[DimLatitude], got.Coords[DimLatitude])
	assert.Equal(t, want.Data.Elements, got.Data.Elements)
	assert.Equal(t, -90.0, in.Coords[DimLatitude][0], "input must not be modified")
}

func TestNormalizeLatitude_Idempotent(t *testing.T) {
	once, err := NormalizeLatitude(ascendingLatitude(t), nLat, nil)
	require.NoError(t, err)
	twice, err := NormalizeLatitude(once, nLat, nil)
	require.NoError(t, err)

	assert.Equal(t, once.Coords, twice.Coords)
	assert.Equal(t, once.Data.Elements, twice.Data.Elements)
}

func TestNormalizeLatitude_AliasInvariance(t *testing.T) {
	base := ascendingLatitude(t)

	want, err := NormalizeLatitude(base, nLat, nil)
	require.NoError(t, err)

	for _, alias := range LatitudeAliases[1:] {
		t.Run(alias, func(t *testing.T) {
			got, err := NormalizeLatitude(renamed(base, DimLatitude, alias), nLat, nil)
			require.NoError(t, err)
			assert.Equal(t, want.Dims, got.Dims)
			assert.Equal(t, want.Coords, got.Coords)
			assert.Equal(t, want.Data.Elements, got.Data.Elements)
		})
	}
}

func TestNormalizeLatitude_BadSize(t *testing.T) {
	data := sparse.ZerosDense(nQ, 180, nLon)
	lat := make([]float64, 180)
	g, err := NewGrid("tas", []string{DimQuintile, "lat", DimLongitude}, data, map[string][]float64{"lat": lat})
	require.NoError(t, err)

	_, err = NormalizeLatitude(g, nLat, nil)
	require.ErrorIs(t, err, ErrBadCoordinateSize)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, DimLatitude, ve.Field)
	assert.Equal(t, nLat, ve.Expected)
	assert.Equal(t, 180, ve.Got)
}

func TestNormalizeLatitude_Missing(t *testing.T) {
	g := canonicalGrid(t)
	g = renamed(g, DimLatitude, "rlat")

	_, err := NormalizeLatitude(g, nLat, nil)
	assert.ErrorIs(t, err, ErrMissingCoordinate)
}

func TestNormalizeLongitude_ShiftsSigned(t *testing.T) {
	want := canonicalGrid(t)
	in := signedLongitude(t)
	require.Equal(t, -180.0, in.Coords[DimLongitude][0])

	got, err := NormalizeLongitude(in, nLon, nil)
	require.NoError(t, err)

	assert.Equal(t, want.Coords[DimLongitude], got.Coords[DimLongitude])
	assert.Equal(t, want.Data.Elements, got.Data.Elements, "data must follow its longitude labels")
	for _, v := range got.Coords[DimLongitude] {
		assert.True(t, v >= 0 && v < 360, "longitude %v outside [0, 360)", v)
	}
	assert.Equal(t, -180.0, in.Coords[DimLongitude][0], "input must not be modified")
}

func TestNormalizeLongitude_Idempotent(t *testing.T) {
	once, err := NormalizeLongitude(signedLongitude(t), nLon, nil)
	require.NoError(t, err)
	twice, err := NormalizeLongitude(once, nLon, nil)
	require.NoError(t, err)

	assert.Equal(t, once.Coords, twice.Coords)
	assert.Equal(t, once.Data.Elements, twice.Data.Elements)
}

func TestNormalizeLongitude_Alias(t *testing.T) {
	got, err := NormalizeLongitude(renamed(signedLongitude(t), DimLongitude, "lon"), nLon, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{DimQuintile, DimLatitude, DimLongitude}, got.Dims)
	assert.Equal(t, canonicalGrid(t).Coords[DimLongitude], got.Coords[DimLongitude])
}

func TestNormalizeLongitude_BadSize(t *testing.T) {
	data := sparse.ZerosDense(nQ, nLat, 361)
	g, err := NewGrid("tas", []string{DimQuintile, DimLatitude, "x"}, data, map[string][]float64{"x": make([]float64, 361)})
	require.NoError(t, err)

	_, err = NormalizeLongitude(g, nLon, nil)
	require.ErrorIs(t, err, ErrBadCoordinateSize)
	assert.Contains(t, err.Error(), "361")
}

func TestNormalize_CanonicalRoundTrip(t *testing.T) {
	v, err := NewValidator(DefaultRules(), nil, nil)
	require.NoError(t, err)

	in := canonicalGrid(t)
	got, err := v.Normalize(in)
	require.NoError(t, err)

	assert.Equal(t, in.Dims, got.Dims)
	assert.Equal(t, in.Coords, got.Coords)
	assert.Equal(t, in.Data.Elements, got.Data.Elements)
	assert.Equal(t, in.Data.Elements[index(3, 10, 20)], got.Data.Elements[index(3, 10, 20)])
}

func TestNewGrid_Inconsistent(t *testing.T) {
	data := sparse.ZerosDense(2, 3)

	_, err := NewGrid("v", []string{"a"}, data, nil)
	assert.Error(t, err)

	_, err = NewGrid("v", []string{"a", "a"}, data, nil)
	assert.Error(t, err)

	_, err = NewGrid("v", []string{"a", "b"}, data, map[string][]float64{"c": {1}})
	assert.Error(t, err)

	_, err = NewGrid("v", []string{"a", "b"}, data, map[string][]float64{"b": {1, 2}})
	assert.Error(t, err)

	_, err = NewGrid("v", []string{"a", "b"}, nil, nil)
	assert.Error(t, err)
}
