package clock

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Driver ticks a Clock from a time.Ticker, standing in for a host's
// vsync loop. Frames are skipped while the clock reports no work.
type Driver struct {
	clock    *Clock
	interval time.Duration
	logger   *slog.Logger
}

// NewDriver returns a driver that ticks c every interval.
func NewDriver(c *Clock, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Driver{
		clock:    c,
		interval: interval,
		logger:   slog.Default().With("component", "clock.driver"),
	}
}

// Interval returns the ticker period.
func (d *Driver) Interval() time.Duration {
	return d.interval
}

// Run ticks until ctx is done and returns ctx.Err(). A panic inside a
// tick is logged and the loop keeps going.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	idle := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !d.clock.NeedsFrame() {
				if !idle {
					d.clock.ResetTimestamp()
					idle = true
				}
				continue
			}
			idle = false
			d.tickOnce()
		}
	}
}

func (d *Driver) tickOnce() {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tick panicked", "panic", fmt.Sprint(r))
		}
	}()
	if _, err := d.clock.TickNow(); err != nil {
		d.logger.Debug("tick error", "error", err)
	}
}
