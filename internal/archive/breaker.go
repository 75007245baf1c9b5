package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("archive unavailable")

// Breaker stops calling a failing store until it has had time to recover.
type Breaker struct {
	store Store
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker opens after failures consecutive errors and probes again after
// openFor.
func NewBreaker(store Store, name string, failures uint32, openFor time.Duration, logger *slog.Logger) *Breaker {
	if failures == 0 {
		failures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("archive circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return &Breaker{store: store, cb: cb}
}

func (b *Breaker) Put(ctx context.Context, dir, name string, r io.Reader) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.store.Put(ctx, dir, name, r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}

func (b *Breaker) Ping(ctx context.Context) error {
	if b.cb.State() == gobreaker.StateOpen {
		return ErrUnavailable
	}
	return Ping(ctx, b.store)
}

// State returns the breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
