package connection

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"wifisleep/internal/logging"
)

// Manager brings the radio up and associates with the configured AP
type Manager struct {
	driver Driver
	config Config
	logger *logging.Logger

	mu      sync.Mutex
	attempt Attempt
}

// NewManager creates a connection manager. A non-positive MaxRetries falls
// back to DefaultMaxRetries.
func NewManager(driver Driver, config Config, logger *logging.Logger) *Manager {
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.Security == "" {
		config.Security = SecurityWPA2
	}
	return &Manager{
		driver: driver,
		config: config,
		logger: logger,
	}
}

// Attempt returns a copy of the most recent attempt record
func (m *Manager) Attempt() Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// Connect turns the radio on and tries to join the AP up to MaxRetries
// times. The assigned address is fetched on a best-effort basis: a failure
// there is logged and the zero Addr is returned with a nil error.
func (m *Manager) Connect(ctx context.Context) (netip.Addr, error) {
	if m.config.SSID == "" || len(m.config.SSID) > MaxSSIDLength {
		return netip.Addr{}, fmt.Errorf("%w: length %d", ErrInvalidSSID, len(m.config.SSID))
	}

	if err := m.driver.RadioOn(ctx); err != nil {
		m.logger.Error("wifi.radio.init_failed", "Failed to initialize the WLAN radio", map[string]interface{}{
			"error": err.Error(),
		})
		return netip.Addr{}, fmt.Errorf("%w: %w", ErrRadioInit, err)
	}

	m.mu.Lock()
	m.attempt = Attempt{
		SSID:       m.config.SSID,
		Security:   m.config.Security,
		MaxRetries: m.config.MaxRetries,
	}
	m.mu.Unlock()

	m.logger.Info("wifi.connect.start", "Connecting to access point", map[string]interface{}{
		"ssid":        m.config.SSID,
		"security":    string(m.config.Security),
		"max_retries": m.config.MaxRetries,
	})

	if err := ctx.Err(); err != nil {
		return netip.Addr{}, err
	}

	join := func() (struct{}, error) {
		err := m.driver.Join(ctx, m.config.SSID, m.config.Password, m.config.Security)

		m.mu.Lock()
		m.attempt.RetryCount++
		n := m.attempt.RetryCount
		if err != nil {
			m.attempt.LastError = err.Error()
		}
		m.mu.Unlock()

		if err == nil {
			return struct{}{}, nil
		}
		m.logger.Warn("wifi.connect.attempt_failed", "Failed to connect to access point", map[string]interface{}{
			"ssid":    m.config.SSID,
			"attempt": n,
			"error":   err.Error(),
		})
		if errors.Is(err, ErrRejected) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, join,
		backoff.WithBackOff(m.retryBackOff()),
		backoff.WithMaxTries(uint(m.config.MaxRetries)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return netip.Addr{}, ctxErr
		}
		attempt := m.Attempt()
		m.logger.Error("wifi.connect.exhausted", "Giving up on access point", map[string]interface{}{
			"ssid":     m.config.SSID,
			"attempts": attempt.RetryCount,
			"error":    err.Error(),
		})
		return netip.Addr{}, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt.RetryCount, err)
	}

	m.logger.Info("wifi.connect.done", "Connected to access point", map[string]interface{}{
		"ssid":     m.config.SSID,
		"attempts": m.Attempt().RetryCount,
	})

	addr, err := m.driver.AssignedAddress(ctx)
	if err != nil {
		m.logger.Warn("wifi.address.failed", "Failed to get assigned IP address", map[string]interface{}{
			"error": err.Error(),
		})
		return netip.Addr{}, nil
	}

	m.logger.Info("wifi.address.assigned", "IP address assigned", map[string]interface{}{
		"address": addr.String(),
	})
	return addr, nil
}

func (m *Manager) retryBackOff() backoff.BackOff {
	if m.config.RetryDelay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	return backoff.NewConstantBackOff(m.config.RetryDelay)
}

// RetryDelayFromMs converts a config value in milliseconds
func RetryDelayFromMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
