package connection

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Security is the AP authentication scheme
type Security string

const (
	SecurityOpen     Security = "open"
	SecurityWPA2     Security = "wpa2"
	SecurityWPA3     Security = "wpa3"
	SecurityWPA2WPA3 Security = "wpa2_wpa3"
)

// ParseSecurity converts a configuration string into a Security value
func ParseSecurity(s string) (Security, error) {
	sec := Security(strings.ToLower(strings.TrimSpace(s)))
	switch sec {
	case SecurityOpen, SecurityWPA2, SecurityWPA3, SecurityWPA2WPA3:
		return sec, nil
	}
	return "", fmt.Errorf("unknown security %q", s)
}

// MaxSSIDLength is the 802.11 limit on SSID octets
const MaxSSIDLength = 32

// DefaultMaxRetries is the number of association attempts before giving up
const DefaultMaxRetries = 3

// Driver is the association side of the WLAN host driver
type Driver interface {
	RadioOn(ctx context.Context) error
	Join(ctx context.Context, ssid, password string, security Security) error
	AssignedAddress(ctx context.Context) (netip.Addr, error)
}

// Config describes the network to join
type Config struct {
	SSID       string
	Password   string
	Security   Security
	MaxRetries int
	// RetryDelay is the pause between failed attempts. Zero retries
	// immediately.
	RetryDelay time.Duration
}

// Attempt tracks one Connect call
type Attempt struct {
	SSID       string
	Security   Security
	RetryCount int
	MaxRetries int
	LastError  string
}

// fatalError marks errors the device cannot continue past
type fatalError struct{ msg string }

func (e *fatalError) Error() string { return e.msg }

func (e *fatalError) Is(target error) bool { return target == ErrFatal }

var (
	// ErrFatal matches every error after which the device cannot proceed
	ErrFatal = errors.New("fatal connection error")
	// ErrRadioInit is returned when the radio could not be brought up
	ErrRadioInit error = &fatalError{"radio bring-up failed"}
	// ErrRetriesExhausted is returned when every association attempt failed
	ErrRetriesExhausted error = &fatalError{"association retries exhausted"}
	// ErrInvalidSSID is returned for an empty or oversized SSID
	ErrInvalidSSID error = &fatalError{"invalid ssid"}

	// ErrRejected can be wrapped by a Driver.Join error to signal a
	// permanent failure (bad credentials, unsupported security) so no
	// further attempts are made.
	ErrRejected = errors.New("association rejected")
)
