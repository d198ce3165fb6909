package inhibit

import (
	"context"
	"sync/atomic"

	"wifisleep/internal/activity"
	"wifisleep/internal/logging"
	"wifisleep/internal/suspend"
)

const (
	who = "wifisleep"
	why = "Network stack active"
)

// Manager follows controller transitions: the lock is held in every state
// except Suspended. D-Bus calls happen on the Run goroutine, never on the
// caller of ObserveTransition, which may be the data path.
type Manager struct {
	acquire Acquirer
	logger  *logging.Logger

	want    atomic.Bool
	changed chan struct{}
	lock    Lock
	held    atomic.Bool
}

// NewManager creates a manager; a nil acquire uses Logind
func NewManager(acquire Acquirer, logger *logging.Logger) *Manager {
	if acquire == nil {
		acquire = Logind
	}
	m := &Manager{
		acquire: acquire,
		logger:  logger,
		changed: make(chan struct{}, 1),
	}
	// The controller starts in Monitoring.
	m.want.Store(true)
	m.signal()
	return m
}

// Held reports whether an inhibitor is currently held
func (m *Manager) Held() bool {
	return m.held.Load()
}

// ObservePass is a no-op; only transitions move the lock
func (m *Manager) ObservePass(activity.Result) {}

// ObserveSuspendFailure is a no-op; the state returns to Monitoring on its own
func (m *Manager) ObserveSuspendFailure() {}

// ObserveTransition records the desired lock state
func (m *Manager) ObserveTransition(_, to suspend.State) {
	if m.want.Swap(to != suspend.Suspended) != (to != suspend.Suspended) {
		m.signal()
	}
}

func (m *Manager) signal() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// Run reconciles the lock until ctx is done, then releases it. Acquire
// failures are logged and retried on the next transition.
func (m *Manager) Run(ctx context.Context) error {
	defer m.release()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.changed:
			if m.want.Load() {
				m.take()
			} else {
				m.release()
			}
		}
	}
}

func (m *Manager) take() {
	if m.lock != nil {
		return
	}
	lock, err := m.acquire(who, why)
	if err != nil {
		m.logger.Warn("inhibit.acquire_failed", "Failed to acquire sleep inhibitor", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	m.lock = lock
	m.held.Store(true)
	m.logger.Debug("inhibit.acquired", "Sleep inhibitor acquired", nil)
}

func (m *Manager) release() {
	if m.lock == nil {
		return
	}
	if err := m.lock.Release(); err != nil {
		m.logger.Warn("inhibit.release_failed", "Failed to release sleep inhibitor", map[string]interface{}{
			"error": err.Error(),
		})
	}
	m.lock = nil
	m.held.Store(false)
	m.logger.Debug("inhibit.released", "Sleep inhibitor released", nil)
}
