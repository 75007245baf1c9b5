package allowlist

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := forecast.ParseStartDate(s)
	require.NoError(t, err)
	return d
}

func writeList(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestParse(t *testing.T) {
	in := `# weekly ECMWF initialisations
20241114 20241121
20241107   # late addition

20241114
`
	dates, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, dates, 4)

	_, err = Parse(strings.NewReader("20241114\n2024-11-21\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.ErrorIs(t, err, forecast.ErrInvalidDateFormat)
}

func TestList_ContainsAndBounds(t *testing.T) {
	l := New([]time.Time{date(t, "20241121"), date(t, "20241107"), date(t, "20241114"), date(t, "20241114")})

	assert.Equal(t, 3, l.Len())
	assert.True(t, l.Contains(date(t, "20241114")))
	assert.False(t, l.Contains(date(t, "20241115")))

	first, last, ok := l.Bounds()
	require.True(t, ok)
	assert.Equal(t, date(t, "20241107"), first)
	assert.Equal(t, date(t, "20241121"), last)

	_, _, ok = New(nil).Bounds()
	assert.False(t, ok)
}

func TestList_CheckStartDate(t *testing.T) {
	l := New([]time.Time{date(t, "20241107"), date(t, "20241114")})

	require.NoError(t, l.CheckStartDate(date(t, "20241114")))

	err := l.CheckStartDate(date(t, "20241121"))
	require.ErrorIs(t, err, forecast.ErrDateOutOfWindow)
	var ve *forecast.ValidationError
	require.ErrorAs(t, err, &ve)
	require.NotNil(t, ve.Window)
	assert.Contains(t, err.Error(), "20241107 to 20241114")
	assert.Equal(t, "date_out_of_window", forecast.Reason(err))

	err = New(nil).CheckStartDate(date(t, "20241121"))
	require.ErrorIs(t, err, forecast.ErrDateOutOfWindow)
	assert.Contains(t, err.Error(), "not an accepted forecast start date")
}

func TestList_SatisfiesDatePolicy(t *testing.T) {
	var _ forecast.DatePolicy = New(nil)
}

func TestLoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.txt")
	writeList(t, path, "20241114\n")

	l, err := Load(path)
	require.NoError(t, err)
	assert.True(t, l.Contains(date(t, "20241114")))
	assert.False(t, l.Contains(date(t, "20241121")))

	writeList(t, path, "20241114\n20241121\n")
	require.NoError(t, l.Reload())
	assert.True(t, l.Contains(date(t, "20241121")))

	writeList(t, path, "garbage\n")
	require.Error(t, l.Reload())
	assert.Equal(t, 2, l.Len(), "a failed reload keeps the previous dates")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestRefresher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.txt")
	writeList(t, path, "20241114\n")
	l, err := Load(path)
	require.NoError(t, err)

	var reloads atomic.Int32
	r := NewRefresher(l, 50*time.Millisecond, slog.New(slog.DiscardHandler), func(error) { reloads.Add(1) })
	require.NoError(t, r.Start())
	defer r.Stop()

	writeList(t, path, "20241114\n20241121\n")
	require.Eventually(t, func() bool {
		return l.Contains(date(t, "20241121"))
	}, 5*time.Second, 20*time.Millisecond)
	assert.Positive(t, reloads.Load())
}

func TestRefresher_RejectsZeroInterval(t *testing.T) {
	r := NewRefresher(New(nil), 0, slog.New(slog.DiscardHandler), nil)
	assert.Error(t, r.Start())
}
