package radio

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Mode selects the WLAN power-save behavior negotiated with the AP
type Mode uint8

const (
	// WithoutThroughput is legacy 802.11 PS-Poll: lowest power, for a
	// device that mostly listens passively.
	WithoutThroughput Mode = iota
	// WithThroughput stays awake for ReturnToSleepMs after receiving
	// frames before going back to sleep.
	WithThroughput
	// Disabled turns power save off.
	Disabled
)

// Bounds for the return-to-sleep delay in WithThroughput mode
const (
	MinReturnToSleepMs  = 10
	MaxReturnToSleepMs  = 2000
	ReturnToSleepStepMs = 10
)

// String returns the configuration name of the mode
func (m Mode) String() string {
	switch m {
	case WithoutThroughput:
		return "without_throughput"
	case WithThroughput:
		return "with_throughput"
	case Disabled:
		return "disabled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// IsValid reports whether m is one of the known modes
func (m Mode) IsValid() bool {
	return m <= Disabled
}

// ParseMode converts a configuration string into a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "without_throughput":
		return WithoutThroughput, nil
	case "with_throughput":
		return WithThroughput, nil
	case "disabled":
		return Disabled, nil
	default:
		return 0, fmt.Errorf("unknown power-save mode %q", s)
	}
}

// PowerSave is a mode together with its parameters
type PowerSave struct {
	Mode            Mode
	ReturnToSleepMs int // only used by WithThroughput
}

func (p PowerSave) String() string {
	if p.Mode == WithThroughput {
		return fmt.Sprintf("%s(%dms)", p.Mode, p.ReturnToSleepMs)
	}
	return p.Mode.String()
}

// ValidateReturnToSleep checks the PM2 sleep return delay: a multiple of
// 10 between 10 and 2000 ms.
func ValidateReturnToSleep(ms int) error {
	if ms < MinReturnToSleepMs || ms > MaxReturnToSleepMs {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidReturnToSleep, ms, MinReturnToSleepMs, MaxReturnToSleepMs)
	}
	if ms%ReturnToSleepStepMs != 0 {
		return fmt.Errorf("%w: %d is not a multiple of %d", ErrInvalidReturnToSleep, ms, ReturnToSleepStepMs)
	}
	return nil
}

// LinkState is the association state reported by the driver. BeaconPeriod
// and DTIMPeriod are only meaningful when Up is true.
type LinkState struct {
	Up           bool
	BeaconPeriod uint16
	DTIMPeriod   uint8
}

// APInfo is what the driver knows about the associated access point
type APInfo struct {
	BeaconPeriod uint16
	DTIMPeriod   uint8
	Security     string
}

// Driver is the subset of the WLAN host driver used to apply power save
type Driver interface {
	LinkState() LinkState
	APInfo(ctx context.Context) (APInfo, error)
	EnablePowerSave(ctx context.Context) error
	EnablePowerSaveWithThroughput(ctx context.Context, returnToSleepMs int) error
	DisablePowerSave(ctx context.Context) error
}

var (
	// ErrLinkNotUp is returned when power save is configured without association
	ErrLinkNotUp = errors.New("wlan link is not up")
	// ErrInvalidReturnToSleep flags a return-to-sleep delay outside the PM2 rules
	ErrInvalidReturnToSleep = errors.New("invalid return-to-sleep delay")
)

// ConfigError reports a driver failure applying a power-save mode
type ConfigError struct {
	Mode PowerSave
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configure power save %s: %v", e.Mode, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Temporary reports whether the underlying driver error is transient
// (for example the radio was busy) and the call may be retried.
func (e *ConfigError) Temporary() bool {
	var t interface{ Temporary() bool }
	if errors.As(e.Err, &t) {
		return t.Temporary()
	}
	return false
}
