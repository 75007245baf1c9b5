package forecast

import (
	"fmt"
	"log/slog"
)

// Validator applies a rule set to submissions. It holds no mutable state
// and is safe for concurrent use as long as callers do not share grids.
type Validator struct {
	rules  Rules
	dates  DatePolicy
	logger *slog.Logger
}

// NewValidator creates a Validator. A nil date policy checks the date format
// only; a nil logger discards.
func NewValidator(rules Rules, dates DatePolicy, logger *slog.Logger) (*Validator, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if dates == nil {
		dates = FormatOnly{}
	}
	return &Validator{rules: rules, dates: dates, logger: orDiscard(logger)}, nil
}

// Rules returns the rule set in force.
func (v *Validator) Rules() Rules { return v.rules }

// Result is an accepted submission.
type Result struct {
	Grid     *Grid // canonical orientation
	Identity Identity
	Filename string
}

// ValidateAndNormalize runs the full pipeline: metadata, latitude and
// longitude normalization, then the enabled distribution checks. It returns
// a new grid in canonical orientation and the canonical file name, or the
// first rejection. The input grid is never modified.
func (v *Validator) ValidateAndNormalize(g *Grid, sub Submission) (*Grid, string, error) {
	res, err := v.Process(g, sub)
	if err != nil {
		return nil, "", err
	}
	return res.Grid, res.Filename, nil
}

// Process is ValidateAndNormalize returning the validated identity as well.
func (v *Validator) Process(g *Grid, sub Submission) (Result, error) {
	id, err := v.ValidateMetadata(sub)
	if err != nil {
		return Result{}, err
	}

	out, err := v.Normalize(g)
	if err != nil {
		return Result{}, err
	}

	if err := v.CheckDistribution(out); err != nil {
		return Result{}, err
	}

	name := v.rules.Filename(id)
	v.logger.Debug("submission accepted", "filename", name)
	return Result{Grid: out, Identity: id, Filename: name}, nil
}

// Normalize rewrites the spatial axes into canonical orientation.
func (v *Validator) Normalize(g *Grid) (*Grid, error) {
	if g == nil || g.Data == nil {
		return nil, fmt.Errorf("grid is required")
	}
	out, err := NormalizeLatitude(g, v.rules.LatPoints, v.logger)
	if err != nil {
		return nil, err
	}
	return NormalizeLongitude(out, v.rules.LonPoints, v.logger)
}

// CheckDistribution runs the statistical checks enabled by the rule set.
// It expects a grid that has already been normalized.
func (v *Validator) CheckDistribution(g *Grid) error {
	if v.rules.CheckQuintiles {
		if err := CheckQuintiles(g, v.rules.Quintiles, v.rules.QuintileTolerance); err != nil {
			return err
		}
	}
	if v.rules.CheckShape {
		if err := CheckShape(g, v.rules.Shape()); err != nil {
			return err
		}
	}
	if err := CheckBounds(g); err != nil {
		return err
	}
	if v.rules.CheckMass {
		dim := DimQuintile
		if name, err := LookupAxis(g, DimQuintile, QuintileAliases); err == nil {
			dim = name
		}
		if err := CheckMass(g, dim, v.rules.MassTolerance, v.rules.MassPolicy); err != nil {
			return err
		}
	}
	return nil
}

// Filename builds the canonical name for an already validated identity.
func (v *Validator) Filename(id Identity) string {
	return v.rules.Filename(id)
}
