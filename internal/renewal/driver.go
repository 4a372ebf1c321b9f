// Package renewal runs periodic maintenance against the watch service.
package renewal

import (
	"context"
	"log/slog"
	"time"
)

// Renewer re-registers calendar watches that are close to expiring.
type Renewer interface {
	RenewExpiringWatches(ctx context.Context) error
}

// DefaultInterval is how often the driver triggers a renewal pass.
const DefaultInterval = 12 * time.Hour

// Driver invokes a Renewer on a fixed interval until its context is
// cancelled.
type Driver struct {
	renewer  Renewer
	logger   *slog.Logger
	interval time.Duration
}

// NewDriver wires a periodic renewal driver.
func NewDriver(renewer Renewer, logger *slog.Logger, interval time.Duration) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Driver{
		renewer:  renewer,
		logger:   logger,
		interval: interval,
	}
}

// Run performs one renewal pass immediately, then one per interval. It
// returns when ctx is cancelled. Renewal failures are logged; the loop keeps
// running.
func (d *Driver) Run(ctx context.Context) {
	d.logger.Info("watch renewal driver started", "interval", d.interval.String())

	d.renewOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("watch renewal driver stopped")
			return
		case <-ticker.C:
			d.renewOnce(ctx)
		}
	}
}

func (d *Driver) renewOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := d.renewer.RenewExpiringWatches(ctx); err != nil {
		d.logger.Error("watch renewal pass failed", "error", err)
	}
}
