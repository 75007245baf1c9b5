// Package registry decides which team and model names may submit forecasts.
package registry

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotRegistered is returned for a team or model that has not been registered.
	ErrNotRegistered = errors.New("not registered")
	// ErrModelLimit is returned when a team already has MaxModelsPerTeam models.
	ErrModelLimit = errors.New("model limit reached")
	// ErrInvalidName is returned for a blank team or model name.
	ErrInvalidName = errors.New("team and model names are required")
)

// MaxModelsPerTeam is how many models one team may register.
const MaxModelsPerTeam = 3

// Registry checks submitter identity before a forecast is accepted.
type Registry interface {
	CheckRegistered(ctx context.Context, team, model string) error
}

// NormalizeName trims surrounding whitespace so registration and lookup
// agree on the stored form.
func NormalizeName(s string) string {
	return strings.TrimSpace(s)
}

// Noop accepts every team and model.
type Noop struct{}

func (Noop) CheckRegistered(context.Context, string, string) error { return nil }
