package activity

import (
	"context"
	"time"
)

// DefaultPollInterval is how often the activity counter is sampled
const DefaultPollInterval = 10 * time.Millisecond

// Monitor samples an activity counter and reports whether a window of
// continuous inactivity occurred. It holds no per-pass state, so
// WaitForInactivity can be called back to back for the device lifetime.
type Monitor struct {
	counter Counter
	clock   Clock
	poll    time.Duration
}

// NewMonitor creates a monitor. A non-positive poll uses DefaultPollInterval
// and a nil clock uses SystemClock.
func NewMonitor(counter Counter, clock Clock, poll time.Duration) *Monitor {
	if clock == nil {
		clock = SystemClock{}
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Monitor{
		counter: counter,
		clock:   clock,
		poll:    poll,
	}
}

// WaitForInactivity blocks for at most w.Interval. It returns Suspended as
// soon as the quiet span since the last observed edge reaches
// w.InactiveWindow, TimedOut when the interval runs out first, and Aborted
// when ctx is cancelled. The pass start counts as an edge, and an edge is
// timestamped at the sample that first sees the counter move.
func (m *Monitor) WaitForInactivity(ctx context.Context, w Window) Result {
	var res Result
	if ctx.Err() != nil {
		res.Decision = Aborted
		return res
	}

	start := m.clock.Now()
	lastEdge := start
	last := m.counter.ActivityCount()

	for {
		now := m.clock.Now()
		if c := m.counter.ActivityCount(); c != last {
			last = c
			lastEdge = now
			res.Edges++
		}

		idle := now.Sub(lastEdge)
		if idle > res.LongestIdle {
			res.LongestIdle = idle
		}
		res.Elapsed = now.Sub(start)

		if idle >= w.InactiveWindow {
			res.Decision = Suspended
			return res
		}
		if res.Elapsed >= w.Interval {
			res.Decision = TimedOut
			return res
		}

		// Never sleep past the next point where a verdict could flip.
		wait := m.poll
		if d := w.InactiveWindow - idle; d < wait {
			wait = d
		}
		if d := w.Interval - res.Elapsed; d < wait {
			wait = d
		}
		if err := m.clock.Sleep(ctx, wait); err != nil {
			res.Decision = Aborted
			res.Elapsed = m.clock.Now().Sub(start)
			return res
		}
	}
}
