package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"energy-dashboard/internal/models"
	"energy-dashboard/pkg/logging"
)

// Refresher refetches the dashboard mapping into its cache
type Refresher interface {
	Refresh(ctx context.Context) (models.GraphData, error)
}

// Warmer periodically refreshes the dashboard cache so page loads rarely wait on the API
type Warmer struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *logging.StructuredLogger
}

// NewWarmer creates a warmer running every interval
func NewWarmer(refresher Refresher, interval time.Duration, logger *logging.StructuredLogger) *Warmer {
	return &Warmer{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

// Start schedules the refresh job, running it once immediately
func (w *Warmer) Start() error {
	if w.interval <= 0 {
		w.logger.Info(context.Background(), "[WARMER_DISABLED] No warm interval configured", logging.Fields{})
		return nil
	}

	_, err := w.scheduler.Every(w.interval).Do(w.run)
	if err != nil {
		return err
	}

	w.scheduler.StartAsync()
	w.logger.Info(context.Background(), "[WARMER_START] Dashboard cache warmer started", logging.Fields{
		"interval": w.interval.String(),
	})
	return nil
}

// Stop stops the scheduler and cancels any future runs
func (w *Warmer) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}

func (w *Warmer) run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	data, err := w.refresher.Refresh(ctx)
	if err != nil {
		w.logger.Warn(ctx, "[WARMER_FAILED] Cache refresh failed", logging.Fields{
			"error": err.Error(),
		})
		return
	}

	w.logger.Debug(ctx, "[WARMER_RUN] Cache refreshed", logging.Fields{
		"records": len(data),
	})
}
