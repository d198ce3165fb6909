package sim

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"wifisleep/internal/connection"
	"wifisleep/internal/radio"
)

// ErrAssociationTimeout is what a simulated Join returns while failures remain
var ErrAssociationTimeout = errors.New("association timed out")

// RadioConfig shapes the simulated access point
type RadioConfig struct {
	// SSID is the only network in range. Empty accepts any SSID.
	SSID         string
	BeaconPeriod uint16
	DTIMPeriod   uint8
	Security     connection.Security
	// JoinFailures is the number of Join calls that fail before one succeeds.
	// A negative value fails every call.
	JoinFailures int
	// RadioOnError makes RadioOn fail
	RadioOnError error
	Address      netip.Addr
}

// DefaultRadioConfig is a WPA2 AP with a 100 TU beacon and DTIM 1
func DefaultRadioConfig() RadioConfig {
	return RadioConfig{
		BeaconPeriod: 100,
		DTIMPeriod:   1,
		Security:     connection.SecurityWPA2,
		Address:      netip.MustParseAddr("192.168.4.20"),
	}
}

// Radio is an in-process WLAN driver. It satisfies radio.Driver and
// connection.Driver.
type Radio struct {
	mu       sync.Mutex
	config   RadioConfig
	powered  bool
	up       bool
	ssid     string
	joins    int
	failures int
	ps       radio.PowerSave
	psSet    bool
}

// NewRadio creates a powered-off radio
func NewRadio(config RadioConfig) *Radio {
	return &Radio{config: config, failures: config.JoinFailures}
}

// RadioOn powers the radio up
func (r *Radio) RadioOn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.config.RadioOnError != nil {
		return r.config.RadioOnError
	}
	r.powered = true
	return nil
}

// Join associates with the simulated AP
func (r *Radio) Join(ctx context.Context, ssid, password string, security connection.Security) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.joins++
	if !r.powered {
		return errors.New("radio is off")
	}
	if r.config.SSID != "" && ssid != r.config.SSID {
		return fmt.Errorf("%w: no AP %q in range", ErrAssociationTimeout, ssid)
	}
	if security != r.config.Security {
		return fmt.Errorf("%w: AP requires %s", connection.ErrRejected, r.config.Security)
	}
	if security != connection.SecurityOpen && password == "" {
		return fmt.Errorf("%w: missing passphrase", connection.ErrRejected)
	}
	if r.failures != 0 {
		if r.failures > 0 {
			r.failures--
		}
		return ErrAssociationTimeout
	}
	r.up = true
	r.ssid = ssid
	return nil
}

// AssignedAddress returns the DHCP lease once associated
func (r *Radio) AssignedAddress(ctx context.Context) (netip.Addr, error) {
	if err := ctx.Err(); err != nil {
		return netip.Addr{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.up {
		return netip.Addr{}, radio.ErrLinkNotUp
	}
	if !r.config.Address.IsValid() {
		return netip.Addr{}, errors.New("no DHCP lease")
	}
	return r.config.Address, nil
}

// LinkState reports association and beacon parameters
func (r *Radio) LinkState() radio.LinkState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.up {
		return radio.LinkState{}
	}
	return radio.LinkState{Up: true, BeaconPeriod: r.config.BeaconPeriod, DTIMPeriod: r.config.DTIMPeriod}
}

// APInfo returns the associated AP's parameters
func (r *Radio) APInfo(ctx context.Context) (radio.APInfo, error) {
	if err := ctx.Err(); err != nil {
		return radio.APInfo{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.up {
		return radio.APInfo{}, radio.ErrLinkNotUp
	}
	return radio.APInfo{
		BeaconPeriod: r.config.BeaconPeriod,
		DTIMPeriod:   r.config.DTIMPeriod,
		Security:     string(r.config.Security),
	}, nil
}

// EnablePowerSave selects PM1
func (r *Radio) EnablePowerSave(ctx context.Context) error {
	return r.setPowerSave(ctx, radio.PowerSave{Mode: radio.WithoutThroughput})
}

// EnablePowerSaveWithThroughput selects PM2
func (r *Radio) EnablePowerSaveWithThroughput(ctx context.Context, returnToSleepMs int) error {
	if err := radio.ValidateReturnToSleep(returnToSleepMs); err != nil {
		return err
	}
	return r.setPowerSave(ctx, radio.PowerSave{Mode: radio.WithThroughput, ReturnToSleepMs: returnToSleepMs})
}

// DisablePowerSave keeps the radio fully awake
func (r *Radio) DisablePowerSave(ctx context.Context) error {
	return r.setPowerSave(ctx, radio.PowerSave{Mode: radio.Disabled})
}

func (r *Radio) setPowerSave(ctx context.Context, ps radio.PowerSave) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.up {
		return radio.ErrLinkNotUp
	}
	r.ps = ps
	r.psSet = true
	return nil
}

// PowerSave returns the applied mode and whether one was set
func (r *Radio) PowerSave() (radio.PowerSave, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ps, r.psSet
}

// Joins returns the number of Join calls
func (r *Radio) Joins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joins
}
