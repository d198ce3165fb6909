package suspend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wifisleep/internal/activity"
	"wifisleep/internal/logging"
)

const tracerName = "wifisleep/internal/suspend"

// ErrAlreadyRunning is returned when Run is called twice
var ErrAlreadyRunning = errors.New("suspend controller already running")

// Controller runs the suspend/resume decision loop. Run owns the radio
// power-save state and is the only caller of Stack.Suspend; Wake and
// AcquireWakeLock may be called from any goroutine.
type Controller struct {
	config   Config
	stack    Stack
	power    PowerSaver
	monitor  *activity.Monitor
	clock    activity.Clock
	logger   *logging.Logger
	recorder Recorder
	tracer   trace.Tracer

	state   atomic.Int32
	wake    chan struct{}
	started atomic.Bool

	passes          atomic.Uint64
	suspends        atomic.Uint64
	resumes         atomic.Uint64
	timedOut        atomic.Uint64
	aborted         atomic.Uint64
	suspendFailures atomic.Uint64
	lastResult      atomic.Pointer[activity.Result]

	lockMu       sync.Mutex
	wakeLocks    int
	lockReleased chan struct{}
	passCancel   context.CancelFunc
}

// Option customizes a Controller
type Option func(*Controller)

// WithClock replaces the system clock
func WithClock(clock activity.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithRecorder attaches a metrics recorder
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithTracerProvider replaces the global tracer provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) { c.tracer = tp.Tracer(tracerName) }
}

// NewController wires the loop together. The stack doubles as the activity
// counter the monitor samples.
func NewController(config Config, stack Stack, power PowerSaver, logger *logging.Logger, opts ...Option) *Controller {
	c := &Controller{
		config:   config,
		stack:    stack,
		power:    power,
		clock:    activity.SystemClock{},
		logger:   logger,
		recorder: noopRecorder{},
		tracer:   otel.Tracer(tracerName),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.monitor = activity.NewMonitor(stack, c.clock, config.PollInterval)
	return c
}

// State returns the current controller state
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) transition(from, to State) bool {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	c.recorder.ObserveTransition(from, to)
	return true
}

// Run applies the power-save mode once and then loops until ctx is done.
// A power-save failure is returned unchanged (wrapped) so the owner can pick
// a policy; on cancellation the stack is resumed if needed and ctx.Err() is
// returned.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := c.config.Window.Validate(); err != nil {
		return err
	}

	if err := c.power.ConfigurePowerSave(ctx, c.config.PowerSave); err != nil {
		return fmt.Errorf("apply power save: %w", err)
	}

	c.logger.Info("suspend.loop.started", "Network suspend loop started", map[string]interface{}{
		"interval_ms":        c.config.Window.Interval.Milliseconds(),
		"inactive_window_ms": c.config.Window.InactiveWindow.Milliseconds(),
		"settle_delay_ms":    c.config.SettleDelay.Milliseconds(),
		"powersave":          c.config.PowerSave.String(),
	})

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("suspend.loop.stopped", "Network suspend loop stopped", nil)
			return err
		}
		if err := c.waitWakeLocks(ctx); err != nil {
			continue
		}

		passCtx, cancel := c.beginPass(ctx)
		_, span := c.tracer.Start(passCtx, "suspend.pass")
		res := c.monitor.WaitForInactivity(passCtx, c.config.Window)
		c.endPass(cancel)
		c.recordPass(res)
		span.SetAttributes(
			attribute.String("decision", res.Decision.String()),
			attribute.Int64("longest_idle_ms", res.LongestIdle.Milliseconds()),
			attribute.Int("edges", res.Edges),
		)
		span.End()

		switch res.Decision {
		case activity.TimedOut, activity.Aborted:
			continue
		case activity.Suspended:
			if err := c.suspendAndWait(ctx); err != nil {
				continue
			}
		}
	}
}

func (c *Controller) recordPass(res activity.Result) {
	c.passes.Add(1)
	c.lastResult.Store(&res)
	c.recorder.ObservePass(res)

	payload := map[string]interface{}{
		"elapsed_ms":      res.Elapsed.Milliseconds(),
		"longest_idle_ms": res.LongestIdle.Milliseconds(),
		"edges":           res.Edges,
	}
	switch res.Decision {
	case activity.TimedOut:
		c.timedOut.Add(1)
		c.logger.Debug("suspend.pass.timed_out", "Network not idle long enough", payload)
	case activity.Aborted:
		c.aborted.Add(1)
		c.logger.Debug("suspend.pass.aborted", "Monitoring pass aborted", payload)
	case activity.Suspended:
		c.logger.Debug("suspend.pass.idle", "Network inactivity confirmed", payload)
	}
}

// suspendAndWait suspends the stack and blocks until it is resumed and the
// settle delay has passed. A non-nil error means ctx ended.
func (c *Controller) suspendAndWait(ctx context.Context) error {
	_, span := c.tracer.Start(ctx, "suspend.sleep")
	defer span.End()

	if !c.transition(Monitoring, Suspending) {
		c.logger.Warn("suspend.stack.skipped", "Not monitoring, skipping suspend", map[string]interface{}{
			"state": c.State().String(),
		})
		c.state.Store(int32(Monitoring))
		return nil
	}

	if c.wakeLockHeld() {
		// A lock taken after the transition has already moved us to
		// ResumePending through Wake.
		if !c.transition(Suspending, Monitoring) {
			c.transition(ResumePending, Monitoring)
		}
		return nil
	}

	if err := c.stack.Suspend(); err != nil {
		c.suspendFailures.Add(1)
		c.recorder.ObserveSuspendFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "suspend failed")
		c.logger.Error("suspend.stack.failed", "Failed to suspend network stack", map[string]interface{}{
			"error": err.Error(),
		})
		// Wake may have moved us on already; either way go back to monitoring.
		if !c.transition(Suspending, Monitoring) {
			c.transition(ResumePending, Monitoring)
		}
		return c.clock.Sleep(ctx, c.config.SettleDelay)
	}

	select {
	case <-c.wake:
	default:
	}

	if c.transition(Suspending, Suspended) {
		c.suspends.Add(1)
		c.logger.Info("suspend.stack.suspended", "Network stack suspended", nil)

		select {
		case <-c.wake:
		case <-ctx.Done():
			if c.transition(Suspended, ResumePending) {
				c.resumeStack("shutdown")
			}
			c.state.Store(int32(Monitoring))
			return ctx.Err()
		}
	} else {
		// Activity arrived while Suspend was still running: the stack is
		// halted but nobody resumed it.
		c.suspends.Add(1)
		c.resumeStack("suspend_race")
	}

	err := c.clock.Sleep(ctx, c.config.SettleDelay)
	if !c.transition(ResumePending, Monitoring) {
		c.state.Store(int32(Monitoring))
	}
	return err
}

// Wake is the data-path activity callback. When the stack is suspended it
// resumes it immediately and lets the loop move on; activity seen while a
// suspend is in flight hands the resume to the loop. In every other state it
// is a no-op. It reports whether it caused a transition.
func (c *Controller) Wake() bool {
	if c.transition(Suspended, ResumePending) {
		c.resumeStack("activity")
		select {
		case c.wake <- struct{}{}:
		default:
		}
		return true
	}
	return c.transition(Suspending, ResumePending)
}

func (c *Controller) resumeStack(reason string) {
	c.resumes.Add(1)
	if err := c.stack.Resume(); err != nil {
		c.logger.Error("suspend.stack.resume_failed", "Failed to resume network stack", map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
		return
	}
	c.logger.Info("suspend.stack.resumed", "Network stack resumed", map[string]interface{}{
		"reason": reason,
	})
}

// AcquireWakeLock keeps the stack awake until the returned release function
// is called. An in-flight monitoring pass is aborted and a suspended stack
// is resumed. Locks nest; release is idempotent.
func (c *Controller) AcquireWakeLock() (release func()) {
	c.lockMu.Lock()
	c.wakeLocks++
	if c.passCancel != nil {
		c.passCancel()
	}
	held := c.wakeLocks
	c.lockMu.Unlock()

	c.logger.Info("suspend.wake_lock.acquired", "Wake lock acquired", map[string]interface{}{
		"held": held,
	})
	c.Wake()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lockMu.Lock()
			c.wakeLocks--
			if c.wakeLocks == 0 && c.lockReleased != nil {
				close(c.lockReleased)
				c.lockReleased = nil
			}
			held := c.wakeLocks
			c.lockMu.Unlock()

			c.logger.Info("suspend.wake_lock.released", "Wake lock released", map[string]interface{}{
				"held": held,
			})
		})
	}
}

func (c *Controller) wakeLockHeld() bool {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	return c.wakeLocks > 0
}

func (c *Controller) waitWakeLocks(ctx context.Context) error {
	for {
		c.lockMu.Lock()
		if c.wakeLocks == 0 {
			c.lockMu.Unlock()
			return nil
		}
		if c.lockReleased == nil {
			c.lockReleased = make(chan struct{})
		}
		released := c.lockReleased
		c.lockMu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) beginPass(ctx context.Context) (context.Context, context.CancelFunc) {
	passCtx, cancel := context.WithCancel(ctx)
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	if c.wakeLocks > 0 {
		cancel()
	}
	c.passCancel = cancel
	return passCtx, cancel
}

func (c *Controller) endPass(cancel context.CancelFunc) {
	c.lockMu.Lock()
	c.passCancel = nil
	c.lockMu.Unlock()
	cancel()
}

// Snapshot returns the current counters and state
func (c *Controller) Snapshot() Snapshot {
	c.lockMu.Lock()
	locks := c.wakeLocks
	c.lockMu.Unlock()

	s := Snapshot{
		State:           c.State().String(),
		PowerSave:       c.config.PowerSave.String(),
		Passes:          c.passes.Load(),
		Suspends:        c.suspends.Load(),
		Resumes:         c.resumes.Load(),
		TimedOut:        c.timedOut.Load(),
		Aborted:         c.aborted.Load(),
		SuspendFailures: c.suspendFailures.Load(),
		WakeLocks:       locks,
		UpdatedAt:       time.Now().UTC(),
	}
	if res := c.lastResult.Load(); res != nil {
		s.LastDecision = res.Decision.String()
		s.LastIdleMs = res.LongestIdle.Milliseconds()
	}
	return s
}
