package allowlist

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher reloads a List on a fixed interval.
type Refresher struct {
	scheduler *gocron.Scheduler
	list      *List
	interval  time.Duration
	logger    *slog.Logger
	onReload  func(err error)
}

// NewRefresher schedules reloads of list every interval. onReload, if set,
// is called after each attempt.
func NewRefresher(list *List, interval time.Duration, logger *slog.Logger, onReload func(err error)) *Refresher {
	return &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		list:      list,
		interval:  interval,
		logger:    logger,
		onReload:  onReload,
	}
}

// Start schedules the reload job and starts the scheduler in the background.
func (r *Refresher) Start() error {
	if r.interval <= 0 {
		return errors.New("allow-list refresh interval must be positive")
	}
	_, err := r.scheduler.Every(r.interval).WaitForSchedule().Do(r.reload)
	if err != nil {
		return err
	}
	r.scheduler.StartAsync()
	return nil
}

func (r *Refresher) reload() {
	err := r.list.Reload()
	if err != nil {
		r.logger.Warn("allow-list reload failed, keeping previous dates", "error", err)
	} else {
		r.logger.Debug("allow-list reloaded", "dates", r.list.Len())
	}
	if r.onReload != nil {
		r.onReload(err)
	}
}

// Stop cancels future reloads.
func (r *Refresher) Stop() {
	r.scheduler.Stop()
}
