package activity

import (
	"context"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// scheduledCounter counts the edges whose offset from epoch has passed
type scheduledCounter struct {
	clock *VirtualClock
	edges []time.Duration
}

func (c *scheduledCounter) ActivityCount() uint64 {
	elapsed := c.clock.Now().Sub(epoch)
	var n uint64
	for _, e := range c.edges {
		if e <= elapsed {
			n++
		}
	}
	return n
}

func newScheduled(edges ...time.Duration) (*Monitor, *VirtualClock) {
	clock := NewVirtualClock(epoch)
	counter := &scheduledCounter{clock: clock, edges: edges}
	return NewMonitor(counter, clock, 10*time.Millisecond), clock
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestWaitForInactivity_ScenarioA_NoActivity(t *testing.T) {
	m, _ := newScheduled()
	res := m.WaitForInactivity(context.Background(), Window{Interval: ms(300), InactiveWindow: ms(200)})

	if res.Decision != Suspended {
		t.Fatalf("Decision = %s, want suspended", res.Decision)
	}
	if res.Elapsed != ms(200) {
		t.Errorf("Elapsed = %s, want 200ms", res.Elapsed)
	}
	if res.Edges != 0 {
		t.Errorf("Edges = %d, want 0", res.Edges)
	}
}

func TestWaitForInactivity_ScenarioB_EdgeResetsSpan(t *testing.T) {
	m, _ := newScheduled(ms(150))
	res := m.WaitForInactivity(context.Background(), Window{Interval: ms(300), InactiveWindow: ms(200)})

	if res.Decision != TimedOut {
		t.Fatalf("Decision = %s, want timed_out", res.Decision)
	}
	if res.Elapsed != ms(300) {
		t.Errorf("Elapsed = %s, want 300ms", res.Elapsed)
	}
	if res.Edges != 1 {
		t.Errorf("Edges = %d, want 1", res.Edges)
	}
	if res.LongestIdle != ms(150) {
		t.Errorf("LongestIdle = %s, want 150ms", res.LongestIdle)
	}
}

func TestWaitForInactivity_EarlyExitBeforeInterval(t *testing.T) {
	windows := []Window{
		{Interval: ms(300), InactiveWindow: ms(10)},
		{Interval: ms(300), InactiveWindow: ms(150)},
		{Interval: ms(1000), InactiveWindow: ms(990)},
		{Interval: ms(55), InactiveWindow: ms(33)},
	}
	for _, w := range windows {
		t.Run(w.InactiveWindow.String(), func(t *testing.T) {
			m, _ := newScheduled()
			res := m.WaitForInactivity(context.Background(), w)
			if res.Decision != Suspended {
				t.Fatalf("Decision = %s, want suspended", res.Decision)
			}
			if res.Elapsed != w.InactiveWindow {
				t.Errorf("Elapsed = %s, want %s", res.Elapsed, w.InactiveWindow)
			}
			if res.Elapsed >= w.Interval {
				t.Errorf("expected verdict strictly before interval %s", w.Interval)
			}
		})
	}
}

func TestWaitForInactivity_FrequentEdgesTimeOut(t *testing.T) {
	var edges []time.Duration
	for e := 20; e < 600; e += 90 {
		edges = append(edges, ms(e))
	}
	m, _ := newScheduled(edges...)
	res := m.WaitForInactivity(context.Background(), Window{Interval: ms(500), InactiveWindow: ms(100)})

	if res.Decision != TimedOut {
		t.Fatalf("Decision = %s, want timed_out", res.Decision)
	}
	if res.Elapsed != ms(500) {
		t.Errorf("Elapsed = %s, want exactly 500ms", res.Elapsed)
	}
}

func TestWaitForInactivity_QuietAfterBurst(t *testing.T) {
	m, _ := newScheduled(ms(10), ms(20), ms(30))
	res := m.WaitForInactivity(context.Background(), Window{Interval: ms(300), InactiveWindow: ms(200)})

	if res.Decision != Suspended {
		t.Fatalf("Decision = %s, want suspended", res.Decision)
	}
	if res.Elapsed != ms(230) {
		t.Errorf("Elapsed = %s, want 230ms", res.Elapsed)
	}
}

func TestWaitForInactivity_CancelledContext(t *testing.T) {
	m, _ := newScheduled()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := m.WaitForInactivity(ctx, Window{Interval: ms(300), InactiveWindow: ms(200)})
	if res.Decision != Aborted {
		t.Fatalf("Decision = %s, want aborted", res.Decision)
	}
}

func TestWaitForInactivity_CancelMidPass(t *testing.T) {
	m, clock := newScheduled()
	ctx, cancel := context.WithCancel(context.Background())
	clock.OnSleep(func(now time.Time) {
		if now.Sub(epoch) >= ms(50) {
			cancel()
		}
	})

	res := m.WaitForInactivity(ctx, Window{Interval: ms(300), InactiveWindow: ms(200)})
	if res.Decision != Aborted {
		t.Fatalf("Decision = %s, want aborted", res.Decision)
	}
	if res.Elapsed != ms(50) {
		t.Errorf("Elapsed = %s, want 50ms", res.Elapsed)
	}
}

func TestWaitForInactivity_RepeatedCalls(t *testing.T) {
	m, clock := newScheduled()
	w := Window{Interval: ms(300), InactiveWindow: ms(200)}
	for i := 0; i < 100; i++ {
		if res := m.WaitForInactivity(context.Background(), w); res.Decision != Suspended {
			t.Fatalf("pass %d: Decision = %s", i, res.Decision)
		}
	}
	if got := clock.Now().Sub(epoch); got != 100*ms(200) {
		t.Errorf("virtual time = %s, want 20s", got)
	}
}

func TestSystemClock_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (SystemClock{}).Sleep(ctx, time.Hour); err == nil {
		t.Error("expected context error")
	}
}

func TestWindowValidate(t *testing.T) {
	tests := []struct {
		name  string
		w     Window
		valid bool
	}{
		{"default", Window{Interval: ms(300), InactiveWindow: ms(200)}, true},
		{"equal", Window{Interval: ms(300), InactiveWindow: ms(300)}, true},
		{"window exceeds interval", Window{Interval: ms(200), InactiveWindow: ms(300)}, false},
		{"zero interval", Window{InactiveWindow: ms(10)}, false},
		{"zero window", Window{Interval: ms(10)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.w.Validate(); (err == nil) != tt.valid {
				t.Errorf("Validate() = %v, valid %v", err, tt.valid)
			}
		})
	}
}
