// Package publish mirrors the controller status into a Redis hash and
// notifies subscribers of state changes on a channel of the same name.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"wifisleep/internal/activity"
	"wifisleep/internal/logging"
	"wifisleep/internal/suspend"
)

const (
	// DefaultKey is the hash and channel name
	DefaultKey = "wifisleep"
	// DefaultInterval is how often the full hash is refreshed
	DefaultInterval = time.Second
)

// ErrClosed is returned by Publish after Close
var ErrClosed = errors.New("publisher closed")

// SnapshotFunc returns the current controller status
type SnapshotFunc func() suspend.Snapshot

// Publisher writes status to Redis
type Publisher struct {
	client   *redis.Client
	key      string
	source   SnapshotFunc
	logger   *logging.Logger
	changed  chan struct{}
	lastSent suspend.Snapshot

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// NewPublisher creates a publisher for the server at addr (host:port)
func NewPublisher(addr, key string, source SnapshotFunc, logger *logging.Logger) *Publisher {
	if key == "" {
		key = DefaultKey
	}
	return &Publisher{
		client: redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: 2 * time.Second,
			MaxRetries:  1,
		}),
		key:     key,
		source:  source,
		logger:  logger,
		changed: make(chan struct{}, 1),
	}
}

// ObservePass is a no-op; pass counters go out with the next refresh
func (p *Publisher) ObservePass(activity.Result) {}

// ObserveSuspendFailure is a no-op; failures go out with the next refresh
func (p *Publisher) ObserveSuspendFailure() {}

// ObserveTransition schedules an immediate publish
func (p *Publisher) ObserveTransition(_, _ suspend.State) {
	select {
	case p.changed <- struct{}{}:
	default:
	}
}

// Run publishes on every transition and every interval until ctx is done.
// Redis errors are logged and do not stop the agent.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) error {
	defer func() {
		if err := p.Close(); err != nil {
			p.logger.Warn("publish.close_failed", "Failed to close Redis client", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	if err := p.client.Ping(ctx).Err(); err != nil {
		p.logger.Warn("publish.ping_failed", "Redis not reachable, will keep retrying", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-p.changed:
		}
		if err := p.Publish(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("publish.failed", "Failed to publish status", map[string]interface{}{
				"key":   p.key,
				"error": err.Error(),
			})
		}
	}
}

// Publish writes the hash and, when the state changed, notifies the channel
func (p *Publisher) Publish(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}
	snap := p.source()

	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, p.key, StatusFields(snap))
	stateChanged := snap.State != p.lastSent.State
	if stateChanged {
		pipe.Publish(ctx, p.key, "state")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis exec: %w", err)
	}

	if stateChanged {
		p.logger.Debug("publish.state", "Published state change", map[string]interface{}{
			"key":   p.key,
			"state": snap.State,
		})
	}
	p.lastSent = snap
	return nil
}

// Close releases the Redis client. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.closeErr = p.client.Close()
	})
	return p.closeErr
}

// StatusFields flattens a snapshot into hash fields
func StatusFields(snap suspend.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"state":            snap.State,
		"powersave":        snap.PowerSave,
		"passes":           strconv.FormatUint(snap.Passes, 10),
		"suspends":         strconv.FormatUint(snap.Suspends, 10),
		"resumes":          strconv.FormatUint(snap.Resumes, 10),
		"suspend-failures": strconv.FormatUint(snap.SuspendFailures, 10),
		"wake-locks":       strconv.Itoa(snap.WakeLocks),
		"last-decision":    snap.LastDecision,
		"updated-at":       snap.UpdatedAt.Format(time.RFC3339),
	}
}
