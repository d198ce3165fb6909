package config

import (
	"time"

	"wifisleep/internal/activity"
	"wifisleep/internal/connection"
	"wifisleep/internal/radio"
	"wifisleep/internal/suspend"
	"wifisleep/internal/tracing"
)

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// PowerSaveSetting returns the radio power-save request. Call on a
// validated config.
func (c Config) PowerSaveSetting() radio.PowerSave {
	mode, _ := radio.ParseMode(c.PowerSave.Mode)
	return radio.PowerSave{Mode: mode, ReturnToSleepMs: c.PowerSave.ReturnToSleepMs}
}

// ControllerConfig returns the suspend controller policy
func (c Config) ControllerConfig() suspend.Config {
	return suspend.Config{
		Window: activity.Window{
			Interval:       ms(c.Activity.IntervalMs),
			InactiveWindow: ms(c.Activity.InactiveWindowMs),
		},
		SettleDelay:  ms(c.Suspend.SettleDelayMs),
		PowerSave:    c.PowerSaveSetting(),
		PollInterval: ms(c.Activity.PollMs),
	}
}

// ConnectionConfig returns the association request. password is the
// resolved passphrase, which may come from the secret store.
func (c Config) ConnectionConfig(password string) connection.Config {
	security, _ := connection.ParseSecurity(c.WiFi.Security)
	return connection.Config{
		SSID:       c.WiFi.SSID,
		Password:   password,
		Security:   security,
		MaxRetries: c.Connect.MaxRetries,
		RetryDelay: connection.RetryDelayFromMs(c.Connect.RetryDelayMs),
	}
}

// TracingSetting returns the tracer provider settings
func (c Config) TracingSetting() tracing.Config {
	return tracing.Config{
		Enabled:     c.Tracing.Enabled,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}
