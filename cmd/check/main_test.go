package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast/forecasttest"
	"github.com/couchcryptid/forecast-submission-gateway/internal/ncfile"
)

func fullOptions() options {
	return options{variable: "tas", date: "20241114", period: "1", team: "ECMWF", model: "modelA"}
}

func testValidator(t *testing.T) *forecast.Validator {
	t.Helper()
	v, err := forecast.NewValidator(forecasttest.Rules(), nil, nil)
	require.NoError(t, err)
	return v
}

func TestCheckAll_ValidGrid(t *testing.T) {
	phases := checkAll(testValidator(t), forecasttest.Grid(t), fullOptions())
	require.Len(t, phases, 7)
	for _, p := range phases {
		assert.True(t, p.passed(), "%s: %v", p.name, p.errors)
		assert.False(t, p.skipped, p.name)
	}
}

func TestCheckAll_ReportsEveryFailingStage(t *testing.T) {
	g := forecasttest.Grid(t)
	g.Data.Elements[0] = 1.5

	o := fullOptions()
	o.variable = "sst"

	byName := map[string]*phase{}
	for _, p := range checkAll(testValidator(t), g, o) {
		byName[p.name] = p
	}
	assert.False(t, byName["Metadata"].passed())
	assert.False(t, byName["Probability bounds"].passed())
	assert.False(t, byName["Probability mass"].passed())
	assert.True(t, byName["Latitude orientation"].passed())
	assert.True(t, byName["Array shape"].passed())
}

func TestCheckAll_SkipsMetadataWithoutFlags(t *testing.T) {
	phases := checkAll(testValidator(t), forecasttest.Grid(t), options{})
	assert.True(t, phases[0].skipped)
	assert.True(t, phases[0].passed())
}

func TestCheckAll_WeeklySkipsDistributionChecks(t *testing.T) {
	rules := forecast.WeeklyRules()
	rules.LatPoints, rules.LonPoints = 3, 4
	v, err := forecast.NewValidator(rules, nil, nil)
	require.NoError(t, err)

	for _, p := range checkAll(v, forecasttest.Grid(t), options{}) {
		switch p.name {
		case "Quintile labels", "Array shape", "Probability mass":
			assert.True(t, p.skipped, p.name)
		}
	}
}

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.nc")
	id := forecast.Identity{Variable: "tas", StartDate: "20241114", Period: "1", Team: "ECMWF", Model: "modelA"}
	require.NoError(t, ncfile.WriteFile(path, forecasttest.Grid(t), id, ""))

	// The default rule set expects a 1-degree global grid.
	var out bytes.Buffer
	code := run(&out, options{file: path, ruleset: "default"})
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "Latitude orientation")
	assert.Contains(t, out.String(), "FAIL")
	assert.Contains(t, out.String(), "Check FAILED.")
}

func TestRun_FatalInputs(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 2, run(&out, options{file: filepath.Join(t.TempDir(), "missing.nc"), ruleset: "default"}))
	assert.Contains(t, out.String(), "FATAL")

	out.Reset()
	assert.Equal(t, 2, run(&out, options{file: "x.nc", ruleset: "monthly"}))
}
