// Package clock sequences frames for the kinetic runtime.
//
// A frame is one call to Tick. It flushes pending effects first, then steps
// every animation with the same dt, and reports whether anything changed:
//
//	c := clock.New(graph, scheduler, clock.WithMaxDt(100))
//	frame, err := c.Tick(16.67)
//	if frame.Redraw {
//	    // repaint
//	}
//
// Ticks are serialized. A Tick that overlaps another returns ErrTickInFlight
// right away instead of waiting, so a host callback can never reenter the
// frame it is running in.
//
// Each tick is recorded as an OpenTelemetry span named "kinetic.tick" and,
// when a metrics.Collector is configured, as prometheus samples.
//
// Driver runs a clock from a time.Ticker for headless hosts such as the
// kinetic CLI.
package clock
