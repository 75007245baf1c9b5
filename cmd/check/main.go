// Command check runs every validation stage against a forecast file and
// prints a per-stage report, instead of stopping at the first rejection the
// way the gateway does.
//
// Usage:
//
//	go run ./cmd/check -file forecast.nc \
//	  -variable tas -date 20241114 -period 1 -team ECMWF -model modelA
//
// The metadata stage is skipped unless all of -variable, -date, -period,
// -team and -model are given.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
	"github.com/couchcryptid/forecast-submission-gateway/internal/ncfile"
)

// phase tracks pass/fail for a validation stage.
type phase struct {
	name    string
	skipped bool
	errors  []string
}

func (p *phase) fail(err error) {
	p.errors = append(p.errors, err.Error())
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	file     string
	ruleset  string
	variable string
	date     string
	period   string
	team     string
	model    string
}

func (o options) hasMetadata() bool {
	return o.variable != "" && o.date != "" && o.period != "" && o.team != "" && o.model != ""
}

func main() {
	var o options
	flag.StringVar(&o.file, "file", "", "forecast netCDF file to check")
	flag.StringVar(&o.ruleset, "ruleset", "default", "rule set: default, period or weekly")
	flag.StringVar(&o.variable, "variable", "", "forecast variable")
	flag.StringVar(&o.date, "date", "", "forecast start date, YYYYMMDD")
	flag.StringVar(&o.period, "period", "", "forecast period code")
	flag.StringVar(&o.team, "team", "", "team name")
	flag.StringVar(&o.model, "model", "", "model name")
	flag.Parse()

	if o.file == "" {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(os.Stdout, o))
}

func run(w io.Writer, o options) int {
	rules, err := forecast.RulesByName(o.ruleset)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 2
	}
	v, err := forecast.NewValidator(rules, nil, nil)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 2
	}
	g, err := ncfile.ReadFile(o.file)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 2
	}

	fmt.Fprintf(w, "=== Forecast check: %s ===\n", o.file)
	fmt.Fprintf(w, "Dims %v, shape %v, ruleset %s\n\n", g.Dims, g.Shape(), o.ruleset)

	phases := checkAll(v, g, o)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		if o.hasMetadata() {
			if _, name, err := v.ValidateAndNormalize(g, submission(o)); err == nil {
				fmt.Fprintf(w, "\nCanonical file name: %s\n", name)
			}
		}
		fmt.Fprintln(w, "\nAll checks passed.")
		return 0
	}
	fmt.Fprintln(w, "\nCheck FAILED.")
	return 1
}

// checkAll runs each stage independently. Later stages see the normalized
// grid when normalization succeeded and the grid as read otherwise.
func checkAll(v *forecast.Validator, g *forecast.Grid, o options) []*phase {
	rules := v.Rules()

	meta := &phase{name: "Metadata"}
	if o.hasMetadata() {
		if _, err := v.ValidateMetadata(submission(o)); err != nil {
			meta.fail(err)
		}
	} else {
		meta.skipped = true
	}

	lat := &phase{name: "Latitude orientation"}
	cur := g
	if out, err := forecast.NormalizeLatitude(cur, rules.LatPoints, nil); err != nil {
		lat.fail(err)
	} else {
		cur = out
	}

	lon := &phase{name: "Longitude orientation"}
	if out, err := forecast.NormalizeLongitude(cur, rules.LonPoints, nil); err != nil {
		lon.fail(err)
	} else {
		cur = out
	}

	quint := &phase{name: "Quintile labels", skipped: !rules.CheckQuintiles}
	if rules.CheckQuintiles {
		if err := forecast.CheckQuintiles(cur, rules.Quintiles, rules.QuintileTolerance); err != nil {
			quint.fail(err)
		}
	}

	shape := &phase{name: "Array shape", skipped: !rules.CheckShape}
	if rules.CheckShape {
		if err := forecast.CheckShape(cur, rules.Shape()); err != nil {
			shape.fail(err)
		}
	}

	bounds := &phase{name: "Probability bounds"}
	if err := forecast.CheckBounds(cur); err != nil {
		bounds.fail(err)
	}

	mass := &phase{name: "Probability mass", skipped: !rules.CheckMass}
	if rules.CheckMass {
		dim := forecast.DimQuintile
		if name, err := forecast.LookupAxis(cur, forecast.DimQuintile, forecast.QuintileAliases); err == nil {
			dim = name
		}
		if err := forecast.CheckMass(cur, dim, rules.MassTolerance, rules.MassPolicy); err != nil {
			mass.fail(err)
		}
	}

	return []*phase{meta, lat, lon, quint, shape, bounds, mass}
}

func submission(o options) forecast.Submission {
	// A malformed period is reported by the metadata stage.
	period, _ := forecast.ParsePeriodCode(json.Number(o.period))
	return forecast.Submission{
		Variable:  o.variable,
		StartDate: o.date,
		Period:    period,
		Team:      o.team,
		Model:     o.model,
	}
}
