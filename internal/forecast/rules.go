package forecast

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultFilenameTemplate lays out the canonical file name. Placeholders are
// {variable}, {date}, {tag}, {period}, {team}, {model} and {ext}.
const DefaultFilenameTemplate = "{variable}_{date}_{tag}{period}_{team}_{model}.{ext}"

// Rules is the full rule set applied to a submission.
type Rules struct {
	Variables []string
	Periods   []string

	PeriodTag        string
	Extension        string
	FilenameTemplate string

	CheckQuintiles bool
	CheckShape     bool
	CheckMass      bool

	LatPoints int
	LonPoints int
	Quintiles []float64

	QuintileTolerance float64
	MassTolerance     float64
	MassPolicy        MassPolicy
}

// DefaultRules accepts the two sub-seasonal periods "1" and "2" and runs
// every distribution check.
func DefaultRules() Rules {
	return Rules{
		Variables:         []string{"tas", "mslp", "pr"},
		Periods:           []string{"1", "2"},
		Extension:         "nc",
		FilenameTemplate:  DefaultFilenameTemplate,
		CheckQuintiles:    true,
		CheckShape:        true,
		CheckMass:         true,
		LatPoints:         181,
		LonPoints:         360,
		Quintiles:         []float64{0.2, 0.4, 0.6, 0.8, 1.0},
		QuintileTolerance: 1e-8,
		MassTolerance:     1e-3,
		MassPolicy:        ExcludeNaN,
	}
}

// PeriodRules is DefaultRules with the period tagged "p" in file names,
// e.g. tas_20241114_p1_team_model.nc.
func PeriodRules() Rules {
	r := DefaultRules()
	r.PeriodTag = "p"
	return r
}

// WeeklyRules accepts week-3 and week-4 lead times, tags them "wk" in file
// names, and only enforces value bounds on the grid.
func WeeklyRules() Rules {
	r := DefaultRules()
	r.Periods = []string{"3", "4"}
	r.PeriodTag = "wk"
	r.CheckQuintiles = false
	r.CheckShape = false
	r.CheckMass = false
	return r
}

// RulesByName resolves a named preset.
func RulesByName(name string) (Rules, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return DefaultRules(), nil
	case "period":
		return PeriodRules(), nil
	case "weekly":
		return WeeklyRules(), nil
	default:
		return Rules{}, fmt.Errorf("unknown rule set %q", name)
	}
}

// Shape is the expected array shape (quintiles, latitudes, longitudes).
func (r Rules) Shape() []int {
	return []int{len(r.Quintiles), r.LatPoints, r.LonPoints}
}

// Validate reports rule sets that cannot be applied.
func (r Rules) Validate() error {
	var errs []error
	if len(r.Variables) == 0 {
		errs = append(errs, errors.New("no variables allowed"))
	}
	if len(r.Periods) == 0 {
		errs = append(errs, errors.New("no periods allowed"))
	}
	if r.LatPoints <= 0 || r.LonPoints <= 0 {
		errs = append(errs, fmt.Errorf("grid points must be positive, got %d x %d", r.LatPoints, r.LonPoints))
	}
	if len(r.Quintiles) == 0 {
		errs = append(errs, errors.New("no quintile labels"))
	}
	if r.QuintileTolerance < 0 || r.MassTolerance < 0 {
		errs = append(errs, errors.New("tolerances must not be negative"))
	}
	if !strings.Contains(r.FilenameTemplate, "{") {
		errs = append(errs, fmt.Errorf("filename template %q has no placeholders", r.FilenameTemplate))
	}
	return errors.Join(errs...)
}

// Filename builds the canonical archive file name for a validated identity.
// It depends on the identity alone, never on grid content.
func (r Rules) Filename(id Identity) string {
	return strings.NewReplacer(
		"{variable}", id.Variable,
		"{date}", id.StartDate,
		"{tag}", r.PeriodTag,
		"{period}", id.Period,
		"{team}", id.Team,
		"{model}", id.Model,
		"{ext}", r.Extension,
	).Replace(r.FilenameTemplate)
}
