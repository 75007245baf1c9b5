package submission

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/forecast-submission-gateway/internal/archive"
	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast/forecasttest"
	"github.com/couchcryptid/forecast-submission-gateway/internal/ncfile"
	"github.com/couchcryptid/forecast-submission-gateway/internal/observability"
	"github.com/couchcryptid/forecast-submission-gateway/internal/registry"
)

// --- mocks ---

type mockStore struct {
	mu    sync.Mutex
	fails int // fail this many calls before succeeding
	err   error
	calls int
	files map[string][]byte
}

func (m *mockStore) Put(_ context.Context, dir, name string, r io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.fails {
		return m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[dir+"/"+name] = b
	return nil
}

type pingStore struct {
	mockStore
	pingErr error
}

func (p *pingStore) Ping(context.Context) error { return p.pingErr }

type mockRegistry struct{ err error }

func (m mockRegistry) CheckRegistered(context.Context, string, string) error { return m.err }

type mockNotifier struct {
	receipts []Receipt
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, r Receipt) error {
	m.receipts = append(m.receipts, r)
	return m.err
}

func newService(t *testing.T, store archive.Store, reg registry.Registry, n Notifier) (*Service, *observability.Metrics) {
	t.Helper()
	v, err := forecast.NewValidator(forecasttest.Rules(), nil, nil)
	require.NoError(t, err)
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 11, 14, 12, 0, 0, 0, time.UTC))
	svc := New(v, reg, store, n, slog.New(slog.DiscardHandler), metrics, Settings{
		UploadRetries:  3,
		InitialBackoff: time.Millisecond,
		Clock:          clock,
	})
	return svc, metrics
}

func validRequest(t *testing.T) Request {
	t.Helper()
	return Request{Submission: forecasttest.Submission(), Grid: forecasttest.Grid(t)}
}

// --- tests ---

func TestSubmit_HappyPath(t *testing.T) {
	store := &mockStore{}
	notifier := &mockNotifier{}
	svc, metrics := newService(t, store, nil, notifier)

	r, err := svc.Submit(context.Background(), validRequest(t))
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "tas_20241114_1_ECMWF_modelA.nc", r.Filename)
	assert.Equal(t, "20241114", r.Directory)
	assert.Equal(t, "1", r.Period)
	assert.Equal(t, time.Date(2024, 11, 14, 12, 0, 0, 0, time.UTC), r.AcceptedAt)

	payload, ok := store.files["20241114/tas_20241114_1_ECMWF_modelA.nc"]
	require.True(t, ok)
	assert.Equal(t, r.Bytes, len(payload))

	g, err := ncfile.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, forecasttest.Grid(t).Data.Elements, g.Data.Elements)

	require.Len(t, notifier.receipts, 1)
	assert.Equal(t, r, notifier.receipts[0])

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SubmissionsReceived), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SubmissionsAccepted), 0)
	require.NoError(t, svc.CheckReadiness(context.Background()))
}

func TestSubmit_Rejection(t *testing.T) {
	store := &mockStore{}
	svc, metrics := newService(t, store, nil, nil)

	req := validRequest(t)
	req.Grid.Data.Elements[0] = 0.5

	_, err := svc.Submit(context.Background(), req)
	require.ErrorIs(t, err, forecast.ErrMassNotConserved)
	assert.Zero(t, store.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SubmissionsRejected.WithLabelValues("mass_not_conserved")), 0)
	assert.Zero(t, testutil.ToFloat64(metrics.SubmissionsAccepted))
}

func TestSubmit_NotRegistered(t *testing.T) {
	store := &mockStore{}
	svc, metrics := newService(t, store, mockRegistry{err: registry.ErrNotRegistered}, nil)

	_, err := svc.Submit(context.Background(), validRequest(t))
	require.ErrorIs(t, err, registry.ErrNotRegistered)
	assert.Zero(t, store.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SubmissionsRejected.WithLabelValues("not_registered")), 0)
}

func TestSubmit_MetadataCheckedBeforeRegistry(t *testing.T) {
	svc, metrics := newService(t, &mockStore{}, mockRegistry{err: registry.ErrNotRegistered}, nil)

	req := validRequest(t)
	req.Submission.Variable = "sst"

	_, err := svc.Submit(context.Background(), req)
	require.ErrorIs(t, err, forecast.ErrInvalidVariable)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SubmissionsRejected.WithLabelValues("invalid_variable")), 0)
	assert.Zero(t, testutil.ToFloat64(metrics.SubmissionsRejected.WithLabelValues("not_registered")))
}

func TestSubmit_RegistryFailure(t *testing.T) {
	svc, _ := newService(t, &mockStore{}, mockRegistry{err: errors.New("database is locked")}, nil)

	_, err := svc.Submit(context.Background(), validRequest(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, registry.ErrNotRegistered)
	assert.False(t, forecast.IsRejection(err))
}

func TestSubmit_RetriesUpload(t *testing.T) {
	store := &mockStore{fails: 2, err: errors.New("421 too many connections")}
	svc, metrics := newService(t, store, nil, nil)

	_, err := svc.Submit(context.Background(), validRequest(t))
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.UploadRetries), 0)
}

func TestSubmit_UploadExhausted(t *testing.T) {
	store := &mockStore{fails: 10, err: errors.New("connection refused")}
	notifier := &mockNotifier{}
	svc, metrics := newService(t, store, nil, notifier)

	_, err := svc.Submit(context.Background(), validRequest(t))
	require.ErrorIs(t, err, ErrArchive)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, store.calls)
	assert.Empty(t, notifier.receipts)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.UploadFailures), 0)
}

func TestSubmit_BreakerOpenStopsRetrying(t *testing.T) {
	store := &mockStore{fails: 10, err: errors.Join(archive.ErrUnavailable, errors.New("circuit breaker is open"))}
	svc, _ := newService(t, store, nil, nil)

	_, err := svc.Submit(context.Background(), validRequest(t))
	require.ErrorIs(t, err, ErrArchive)
	assert.ErrorIs(t, err, archive.ErrUnavailable)
	assert.Equal(t, 1, store.calls)
}

func TestSubmit_NotifyFailureDoesNotFail(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("broker down")}
	svc, metrics := newService(t, &mockStore{}, nil, notifier)

	_, err := svc.Submit(context.Background(), validRequest(t))
	require.NoError(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.NotifyErrors), 0)
}

func TestPrepare_DoesNotUpload(t *testing.T) {
	store := &mockStore{}
	svc, _ := newService(t, store, nil, nil)

	p, err := svc.Prepare(context.Background(), validRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "tas_20241114_1_ECMWF_modelA.nc", p.Filename)
	assert.True(t, bytes.HasPrefix(p.Payload, []byte("CDF")))
	assert.Zero(t, store.calls)
}

func TestPrepare_CountsReceived(t *testing.T) {
	svc, metrics := newService(t, &mockStore{}, nil, nil)

	req := validRequest(t)
	req.Grid.Data.Elements[0] = 0.5
	_, err := svc.Prepare(context.Background(), req)
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SubmissionsReceived), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SubmissionsRejected.WithLabelValues("mass_not_conserved")), 0)
}

func TestCheckReadiness(t *testing.T) {
	down := &pingStore{pingErr: errors.New("no route to host")}
	svc, _ := newService(t, down, nil, nil)
	require.Error(t, svc.CheckReadiness(context.Background()))

	down.pingErr = nil
	require.NoError(t, svc.CheckReadiness(context.Background()))
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 400*time.Millisecond, nextBackoff(200*time.Millisecond, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(4*time.Second, maxBackoff))
}

func TestSleepWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepWithContext(ctx, time.Minute))
	assert.True(t, sleepWithContext(context.Background(), 0))
}
