package activity

import (
	"errors"
	"fmt"
	"time"
)

// Counter exposes a monotonically increasing count of data-path events
// (frames sent or received) on the network interface.
type Counter interface {
	ActivityCount() uint64
}

// CounterFunc adapts a function to Counter
type CounterFunc func() uint64

// ActivityCount calls f
func (f CounterFunc) ActivityCount() uint64 { return f() }

// Window configures one monitoring pass: the stack counts as inactive only
// after InactiveWindow of continuous silence inside one Interval.
type Window struct {
	Interval       time.Duration
	InactiveWindow time.Duration
}

// ErrInvalidWindow is returned by Window.Validate
var ErrInvalidWindow = errors.New("invalid activity window")

// Validate checks 0 < InactiveWindow <= Interval
func (w Window) Validate() error {
	if w.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidWindow, w.Interval)
	}
	if w.InactiveWindow <= 0 {
		return fmt.Errorf("%w: inactive window must be positive, got %s", ErrInvalidWindow, w.InactiveWindow)
	}
	if w.InactiveWindow > w.Interval {
		return fmt.Errorf("%w: inactive window %s exceeds interval %s", ErrInvalidWindow, w.InactiveWindow, w.Interval)
	}
	return nil
}

// Decision is the outcome of one monitoring pass
type Decision int

const (
	// Suspended means inactivity was confirmed and the stack may be suspended.
	Suspended Decision = iota
	// TimedOut means the interval ended before a long enough quiet span.
	TimedOut
	// Aborted means the pass was cancelled.
	Aborted
)

func (d Decision) String() string {
	switch d {
	case Suspended:
		return "suspended"
	case TimedOut:
		return "timed_out"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result describes a finished monitoring pass
type Result struct {
	Decision    Decision
	Elapsed     time.Duration // from pass start to decision
	LongestIdle time.Duration // longest quiet span seen during the pass
	Edges       int           // activity edges observed
}
