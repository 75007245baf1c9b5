// Package submission runs an uploaded forecast through registration checks,
// validation and archiving.
package submission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/forecast-submission-gateway/internal/archive"
	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
	"github.com/couchcryptid/forecast-submission-gateway/internal/ncfile"
	"github.com/couchcryptid/forecast-submission-gateway/internal/observability"
	"github.com/couchcryptid/forecast-submission-gateway/internal/registry"
)

// ErrArchive wraps failures to store an accepted file.
var ErrArchive = errors.New("archive upload failed")

// Notifier announces accepted submissions.
type Notifier interface {
	Notify(ctx context.Context, r Receipt) error
}

// Request is one forecast upload.
type Request struct {
	Submission forecast.Submission
	Grid       *forecast.Grid
}

// Prepared is a validated submission encoded for the archive.
type Prepared struct {
	forecast.Result
	Payload []byte
}

// Receipt describes an archived submission.
type Receipt struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Directory  string    `json:"directory"`
	Variable   string    `json:"variable"`
	StartDate  string    `json:"fc_start_date"`
	Period     string    `json:"period"`
	Team       string    `json:"teamname"`
	Model      string    `json:"modelname"`
	Bytes      int       `json:"bytes"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// Settings tunes the service. Zero values select defaults.
type Settings struct {
	UploadRetries  int
	InitialBackoff time.Duration
	Clock          clockwork.Clock
}

// Service accepts forecast submissions.
type Service struct {
	validator *forecast.Validator
	registry  registry.Registry
	store     archive.Store
	notifier  Notifier
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	retries   int
	backoff   time.Duration
	ready     atomic.Bool
}

// New creates a Service. reg and notifier may be nil.
func New(v *forecast.Validator, reg registry.Registry, store archive.Store, notifier Notifier,
	logger *slog.Logger, metrics *observability.Metrics, s Settings) *Service {
	if reg == nil {
		reg = registry.Noop{}
	}
	if s.UploadRetries <= 0 {
		s.UploadRetries = 3
	}
	if s.InitialBackoff <= 0 {
		s.InitialBackoff = initialBackoff
	}
	if s.Clock == nil {
		s.Clock = clockwork.NewRealClock()
	}
	return &Service{
		validator: v,
		registry:  reg,
		store:     store,
		notifier:  notifier,
		logger:    logger,
		metrics:   metrics,
		clock:     s.Clock,
		retries:   s.UploadRetries,
		backoff:   s.InitialBackoff,
	}
}

// CheckReadiness returns nil once the archive has accepted an upload or
// answers a ping, and the registry (if it can tell) is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if rc, ok := s.registry.(interface{ CheckReadiness(context.Context) error }); ok {
		if err := rc.CheckReadiness(ctx); err != nil {
			return fmt.Errorf("registry: %w", err)
		}
	}
	if s.ready.Load() {
		return nil
	}
	if err := archive.Ping(ctx, s.store); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	s.ready.Store(true)
	return nil
}

// Prepare validates the metadata, checks registration, validates and
// normalizes the grid, and encodes the canonical file. Nothing is uploaded.
func (s *Service) Prepare(ctx context.Context, req Request) (Prepared, error) {
	s.metrics.SubmissionsReceived.Inc()
	sub := req.Submission

	if _, err := s.validator.ValidateMetadata(sub); err != nil {
		return Prepared{}, s.rejected(err, sub)
	}

	if err := s.registry.CheckRegistered(ctx, sub.Team, sub.Model); err != nil {
		if errors.Is(err, registry.ErrNotRegistered) {
			s.metrics.SubmissionsRejected.WithLabelValues("not_registered").Inc()
			return Prepared{}, err
		}
		return Prepared{}, fmt.Errorf("check registration: %w", err)
	}

	start := s.clock.Now()
	res, err := s.validator.Process(req.Grid, sub)
	s.metrics.ValidationDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		return Prepared{}, s.rejected(err, sub)
	}

	payload, err := ncfile.Encode(res.Grid, res.Identity, s.validator.Rules().PeriodTag)
	if err != nil {
		return Prepared{}, fmt.Errorf("encode %s: %w", res.Filename, err)
	}
	return Prepared{Result: res, Payload: payload}, nil
}

func (s *Service) rejected(err error, sub forecast.Submission) error {
	if forecast.IsRejection(err) {
		s.metrics.SubmissionsRejected.WithLabelValues(forecast.Reason(err)).Inc()
		s.logger.Info("submission rejected",
			"reason", forecast.Reason(err),
			"error", err,
			"team", sub.Team,
			"model", sub.Model,
		)
	}
	return err
}

// Submit prepares the request, uploads the file into the start date's
// directory and publishes a notification. Notification failures are logged
// but do not fail the submission.
func (s *Service) Submit(ctx context.Context, req Request) (Receipt, error) {
	p, err := s.Prepare(ctx, req)
	if err != nil {
		return Receipt{}, err
	}

	id := p.Identity
	if err := s.upload(ctx, id.StartDate, p.Filename, p.Payload); err != nil {
		return Receipt{}, err
	}
	s.ready.Store(true)

	r := Receipt{
		ID:         uuid.NewString(),
		Filename:   p.Filename,
		Directory:  id.StartDate,
		Variable:   id.Variable,
		StartDate:  id.StartDate,
		Period:     id.Period,
		Team:       id.Team,
		Model:      id.Model,
		Bytes:      len(p.Payload),
		AcceptedAt: s.clock.Now().UTC(),
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, r); err != nil {
			s.metrics.NotifyErrors.Inc()
			s.logger.Warn("notify failed", "error", err, "filename", r.Filename)
		}
	}

	s.metrics.SubmissionsAccepted.Inc()
	s.logger.Info("submission accepted",
		"id", r.ID,
		"filename", r.Filename,
		"team", r.Team,
		"model", r.Model,
		"bytes", r.Bytes,
	)
	return r, nil
}

// upload retries with exponential backoff: start at the configured backoff,
// double each retry, cap at 5s. An open circuit breaker ends retries early.
func (s *Service) upload(ctx context.Context, dir, name string, payload []byte) error {
	start := s.clock.Now()
	defer func() { s.metrics.UploadDuration.Observe(s.clock.Since(start).Seconds()) }()

	backoff := s.backoff
	var err error
	for attempt := 1; ; attempt++ {
		err = s.store.Put(ctx, dir, name, bytes.NewReader(payload))
		if err == nil {
			return nil
		}
		if attempt >= s.retries || errors.Is(err, archive.ErrUnavailable) || ctx.Err() != nil {
			break
		}
		s.metrics.UploadRetries.Inc()
		s.logger.Warn("upload failed, retrying", "error", err, "filename", name, "attempt", attempt, "backoff", backoff)
		if !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}

	s.metrics.UploadFailures.Inc()
	s.logger.Error("upload failed", "error", err, "filename", name)
	return fmt.Errorf("%w: %s: %w", ErrArchive, name, err)
}
