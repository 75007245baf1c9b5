package forecast

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// CheckQuintiles verifies the quintile labels. Storage order is irrelevant:
// the sorted labels must match the sorted expected labels within tol.
func CheckQuintiles(g *Grid, expected []float64, tol float64) error {
	name, err := LookupAxis(g, DimQuintile, QuintileAliases)
	if err != nil {
		return err
	}

	found := slices.Clone(g.Coords[name])
	want := slices.Clone(expected)
	slices.Sort(found)
	slices.Sort(want)

	same := len(found) == len(want) && floats.EqualFunc(found, want, func(a, b float64) bool {
		return scalar.EqualWithinAbs(a, b, tol)
	})
	if !same {
		return &ValidationError{Kind: ErrQuintileMismatch, Field: name, Expected: want, Got: slices.Clone(g.Coords[name])}
	}
	return nil
}

// CheckShape verifies the array extents.
func CheckShape(g *Grid, expected []int) error {
	if !slices.Equal(g.Data.Shape, expected) {
		return &ValidationError{Kind: ErrShapeMismatch, Expected: slices.Clone(expected), Got: g.Shape()}
	}
	return nil
}

// CheckBounds verifies that every cell is a probability in [0, 1] or NaN.
// Failures are reported in aggregate.
func CheckBounds(g *Grid) error {
	count := 0
	worst := 0.0
	worstDist := 0.0
	for _, v := range g.Data.Elements {
		if math.IsNaN(v) || (v >= 0 && v <= 1) {
			continue
		}
		count++
		dist := math.Max(-v, v-1)
		if dist > worstDist {
			worst, worstDist = v, dist
		}
	}
	if count > 0 {
		return &ValidationError{Kind: ErrValueOutOfRange, Count: count, Worst: worst}
	}
	return nil
}

// MassPolicy controls how NaN cells take part in the mass check.
type MassPolicy uint8

const (
	// ExcludeNaN sums only the non-NaN bins of each point. A point where
	// every bin is NaN sums to zero and fails.
	ExcludeNaN MassPolicy = iota
	// SkipMasked ignores points where every bin is NaN; a point with only
	// some NaN bins fails.
	SkipMasked
	// PropagateNaN fails every point with any NaN bin.
	PropagateNaN
)

// CheckMass verifies that probabilities sum to one along the named dimension
// at every other index, within tol.
func CheckMass(g *Grid, dim string, tol float64, policy MassPolicy) error {
	axis := g.Axis(dim)
	if axis < 0 {
		axis = 0
		dim = g.Dims[0]
	}
	outer, n, inner := split(g.Data.Shape, axis)
	elems := g.Data.Elements

	sums := make([]float64, outer*inner)
	nans := make([]int, outer*inner)
	for o := 0; o < outer; o++ {
		dst := sums[o*inner : (o+1)*inner]
		for k := 0; k < n; k++ {
			start := (o*n + k) * inner
			floats.Add(dst, elems[start:start+inner])
		}
	}
	if floats.HasNaN(sums) {
		clean := make([]float64, len(sums))
		for o := 0; o < outer; o++ {
			for k := 0; k < n; k++ {
				start := (o*n + k) * inner
				for i, v := range elems[start : start+inner] {
					if math.IsNaN(v) {
						nans[o*inner+i]++
					} else {
						clean[o*inner+i] += v
					}
				}
			}
		}
		if policy == ExcludeNaN {
			sums = clean
		}
	}

	count := 0
	worst, worstDist := 1.0, -1.0
	for p, s := range sums {
		if nans[p] == n && policy == SkipMasked {
			continue
		}
		if (nans[p] == 0 || policy == ExcludeNaN) && scalar.EqualWithinAbs(s, 1, tol) {
			continue
		}
		count++
		dist := math.Abs(s - 1)
		if math.IsNaN(dist) {
			dist = math.Inf(1)
		}
		if dist > worstDist {
			worst, worstDist = s, dist
		}
	}
	if count > 0 {
		return &ValidationError{Kind: ErrMassNotConserved, Field: dim, Count: count, Worst: worst}
	}
	return nil
}
