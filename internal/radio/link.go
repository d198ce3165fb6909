package radio

import (
	"context"

	"wifisleep/internal/logging"
)

// Link applies power-save configuration to an associated WLAN interface
type Link struct {
	driver Driver
	logger *logging.Logger
}

// NewLink creates a Link over the given driver
func NewLink(driver Driver, logger *logging.Logger) *Link {
	return &Link{
		driver: driver,
		logger: logger,
	}
}

// State returns the driver's current link state
func (l *Link) State() LinkState {
	return l.driver.LinkState()
}

// ConfigurePowerSave puts the radio into the requested power-save mode.
// The link must be up; otherwise ErrLinkNotUp is returned and the driver
// is not touched. Driver failures come back as *ConfigError so the caller
// can decide whether to retry or give up.
func (l *Link) ConfigurePowerSave(ctx context.Context, ps PowerSave) error {
	state := l.driver.LinkState()
	if !state.Up {
		l.logger.Error("radio.powersave.link_down", "Cannot configure power save, link is down", map[string]interface{}{
			"mode": ps.String(),
		})
		return ErrLinkNotUp
	}

	if !ps.Mode.IsValid() {
		l.logger.Warn("radio.powersave.unknown_mode", "Unknown power-save mode, leaving radio unchanged", map[string]interface{}{
			"mode": uint8(ps.Mode),
		})
		return nil
	}

	if ps.Mode == WithThroughput {
		if err := ValidateReturnToSleep(ps.ReturnToSleepMs); err != nil {
			return err
		}
	}

	// Diagnostic only.
	if info, err := l.driver.APInfo(ctx); err != nil {
		l.logger.Warn("radio.ap_info.failed", "Failed to read AP info", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		l.logger.Info("radio.ap_info", "Associated AP parameters", map[string]interface{}{
			"beacon_period": info.BeaconPeriod,
			"dtim_period":   info.DTIMPeriod,
			"security":      info.Security,
		})
	}

	var err error
	switch ps.Mode {
	case WithoutThroughput:
		err = l.driver.EnablePowerSave(ctx)
	case WithThroughput:
		err = l.driver.EnablePowerSaveWithThroughput(ctx, ps.ReturnToSleepMs)
	case Disabled:
		err = l.driver.DisablePowerSave(ctx)
	}

	if err != nil {
		cerr := &ConfigError{Mode: ps, Err: err}
		l.logger.Error("radio.powersave.failed", "Failed to configure power save", map[string]interface{}{
			"mode":      ps.String(),
			"error":     err.Error(),
			"temporary": cerr.Temporary(),
		})
		return cerr
	}

	l.logger.Info("radio.powersave.configured", "Power save configured", map[string]interface{}{
		"mode":               ps.Mode.String(),
		"return_to_sleep_ms": ps.ReturnToSleepMs,
	})
	return nil
}
