package suspend

import (
	"context"
	"time"

	"wifisleep/internal/activity"
	"wifisleep/internal/radio"
)

// State is the suspend controller's position in its cycle
type State int32

const (
	// Monitoring is waiting for a confirmed inactivity window.
	Monitoring State = iota
	// Suspending is between the inactivity verdict and the stack suspend completing.
	Suspending
	// Suspended means the stack is halted and the device may sleep.
	Suspended
	// ResumePending means activity arrived and the settle delay is running.
	ResumePending
)

func (s State) String() string {
	switch s {
	case Monitoring:
		return "monitoring"
	case Suspending:
		return "suspending"
	case Suspended:
		return "suspended"
	case ResumePending:
		return "resume_pending"
	default:
		return "unknown"
	}
}

// DefaultSettleDelay is the pause after a resume before monitoring again.
// It keeps a suspend racing with freshly arriving traffic from turning into
// a suspend/resume oscillation.
const DefaultSettleDelay = 100 * time.Millisecond

// Stack is the network stack being suspended. Resume must be callable from
// the data-path goroutine.
type Stack interface {
	activity.Counter
	Suspend() error
	Resume() error
}

// PowerSaver applies the radio power-save mode. *radio.Link implements it.
type PowerSaver interface {
	ConfigurePowerSave(ctx context.Context, ps radio.PowerSave) error
}

// Recorder receives controller events, typically for metrics
type Recorder interface {
	ObservePass(res activity.Result)
	ObserveTransition(from, to State)
	ObserveSuspendFailure()
}

type noopRecorder struct{}

func (noopRecorder) ObservePass(activity.Result)  {}
func (noopRecorder) ObserveTransition(_, _ State) {}
func (noopRecorder) ObserveSuspendFailure()       {}

// Config is the immutable controller policy
type Config struct {
	Window       activity.Window
	SettleDelay  time.Duration
	PowerSave    radio.PowerSave
	PollInterval time.Duration
}

// DefaultConfig mirrors the reference device policy: 300ms interval, 200ms
// window, PM2 with a 10ms return to sleep.
func DefaultConfig() Config {
	return Config{
		Window: activity.Window{
			Interval:       300 * time.Millisecond,
			InactiveWindow: 200 * time.Millisecond,
		},
		SettleDelay:  DefaultSettleDelay,
		PowerSave:    radio.PowerSave{Mode: radio.WithThroughput, ReturnToSleepMs: 10},
		PollInterval: activity.DefaultPollInterval,
	}
}

// Snapshot is a point-in-time view of the controller for status reporting
type Snapshot struct {
	State           string    `json:"state"`
	PowerSave       string    `json:"powersave"`
	Passes          uint64    `json:"passes"`
	Suspends        uint64    `json:"suspends"`
	Resumes         uint64    `json:"resumes"`
	TimedOut        uint64    `json:"timed_out"`
	Aborted         uint64    `json:"aborted"`
	SuspendFailures uint64    `json:"suspend_failures"`
	WakeLocks       int       `json:"wake_locks"`
	LastDecision    string    `json:"last_decision,omitempty"`
	LastIdleMs      int64     `json:"last_idle_ms"`
	UpdatedAt       time.Time `json:"updated_at"`
}
