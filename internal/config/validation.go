package config

import (
	"fmt"
	"net"

	"wifisleep/internal/connection"
	"wifisleep/internal/radio"
	"wifisleep/internal/wol"
)

const (
	minPassphraseLength = 8
	maxPassphraseLength = 63
)

// Validate checks if the configuration is valid
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateWiFi()...)
	errors = append(errors, c.validatePowerSave()...)
	errors = append(errors, c.validateActivity()...)
	errors = append(errors, c.validateConnect()...)
	errors = append(errors, c.validateSuspend()...)
	errors = append(errors, c.validateMetrics()...)
	errors = append(errors, c.validateWake()...)
	errors = append(errors, c.validateRedis()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTracing()...)
	errors = append(errors, c.validateSimulation()...)

	return errors
}

// The SSID itself may be empty here; connecting without one fails at run time.
func (c *Config) validateWiFi() []ValidationError {
	var errors []ValidationError

	if len(c.WiFi.SSID) > connection.MaxSSIDLength {
		errors = append(errors, ValidationError{
			Path:    "wifi.ssid",
			Message: fmt.Sprintf("must be at most %d bytes, got %d", connection.MaxSSIDLength, len(c.WiFi.SSID)),
		})
	}

	security, err := connection.ParseSecurity(c.WiFi.Security)
	if err != nil {
		errors = append(errors, ValidationError{
			Path:    "wifi.security",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validSecurities(), c.WiFi.Security),
		})
		return errors
	}

	if security == connection.SecurityOpen {
		if c.WiFi.Password != "" || c.WiFi.PasswordSecret != "" {
			errors = append(errors, ValidationError{
				Path:    "wifi.password",
				Message: "must be empty for an open network",
			})
		}
		return errors
	}

	if n := len(c.WiFi.Password); n > 0 && (n < minPassphraseLength || n > maxPassphraseLength) {
		errors = append(errors, ValidationError{
			Path:    "wifi.password",
			Message: fmt.Sprintf("must be %d to %d characters, got %d", minPassphraseLength, maxPassphraseLength, n),
		})
	}

	return errors
}

func (c *Config) validatePowerSave() []ValidationError {
	mode, err := radio.ParseMode(c.PowerSave.Mode)
	if err != nil {
		return []ValidationError{{
			Path:    "powersave.mode",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validModes(), c.PowerSave.Mode),
		}}
	}

	if mode != radio.WithThroughput {
		return nil
	}
	if err := radio.ValidateReturnToSleep(c.PowerSave.ReturnToSleepMs); err != nil {
		return []ValidationError{{
			Path:    "powersave.return_to_sleep_ms",
			Message: fmt.Sprintf("must be a multiple of %d between %d and %d, got %d", radio.ReturnToSleepStepMs, radio.MinReturnToSleepMs, radio.MaxReturnToSleepMs, c.PowerSave.ReturnToSleepMs),
		}}
	}
	return nil
}

func (c *Config) validateActivity() []ValidationError {
	var errors []ValidationError
	a := c.Activity

	if a.IntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Path:    "activity.interval_ms",
			Message: fmt.Sprintf("must be positive, got %d", a.IntervalMs),
		})
	}

	if a.InactiveWindowMs <= 0 {
		errors = append(errors, ValidationError{
			Path:    "activity.inactive_window_ms",
			Message: fmt.Sprintf("must be positive, got %d", a.InactiveWindowMs),
		})
	} else if a.IntervalMs > 0 && a.InactiveWindowMs > a.IntervalMs {
		errors = append(errors, ValidationError{
			Path:    "activity.inactive_window_ms",
			Message: fmt.Sprintf("must not exceed interval_ms (%d), got %d", a.IntervalMs, a.InactiveWindowMs),
		})
	}

	if a.PollMs <= 0 {
		errors = append(errors, ValidationError{
			Path:    "activity.poll_ms",
			Message: fmt.Sprintf("must be positive, got %d", a.PollMs),
		})
	}

	return errors
}

func (c *Config) validateConnect() []ValidationError {
	var errors []ValidationError

	if c.Connect.MaxRetries < 1 {
		errors = append(errors, ValidationError{
			Path:    "connect.max_retries",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Connect.MaxRetries),
		})
	}

	if c.Connect.RetryDelayMs < 0 {
		errors = append(errors, ValidationError{
			Path:    "connect.retry_delay_ms",
			Message: fmt.Sprintf("must be non-negative, got %d", c.Connect.RetryDelayMs),
		})
	}

	return errors
}

func (c *Config) validateSuspend() []ValidationError {
	if c.Suspend.SettleDelayMs >= 0 {
		return nil
	}

	return []ValidationError{{
		Path:    "suspend.settle_delay_ms",
		Message: fmt.Sprintf("must be non-negative, got %d", c.Suspend.SettleDelayMs),
	}}
}

func (c *Config) validateMetrics() []ValidationError {
	if c.Metrics.Listen == "" {
		return nil
	}

	if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
		return []ValidationError{{
			Path:    "metrics.listen",
			Message: fmt.Sprintf("must be host:port, got '%s'", c.Metrics.Listen),
		}}
	}
	return nil
}

func (c *Config) validateWake() []ValidationError {
	if c.Wake.Listen == "" {
		return nil
	}

	var errors []ValidationError
	if _, _, err := net.SplitHostPort(c.Wake.Listen); err != nil {
		errors = append(errors, ValidationError{
			Path:    "wake.listen",
			Message: fmt.Sprintf("must be host:port, got '%s'", c.Wake.Listen),
		})
	}
	if err := wol.ValidateMAC(c.Wake.MAC); err != nil {
		errors = append(errors, ValidationError{
			Path:    "wake.mac",
			Message: fmt.Sprintf("required when wake.listen is set: %v", err),
		})
	}
	return errors
}

func (c *Config) validateRedis() []ValidationError {
	if c.Redis.Addr == "" {
		return nil
	}

	if _, _, err := net.SplitHostPort(c.Redis.Addr); err != nil {
		return []ValidationError{{
			Path:    "redis.addr",
			Message: fmt.Sprintf("must be host:port, got '%s'", c.Redis.Addr),
		}}
	}
	return nil
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		errors = append(errors, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validLevels, c.Logging.Level),
		})
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, c.Logging.Format) {
		errors = append(errors, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validFormats, c.Logging.Format),
		})
	}

	return errors
}

func (c *Config) validateTracing() []ValidationError {
	var errors []ValidationError

	validExporters := []string{"stdout", "otlp"}
	if !contains(validExporters, c.Tracing.Exporter) {
		errors = append(errors, ValidationError{
			Path:    "tracing.exporter",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validExporters, c.Tracing.Exporter),
		})
	}

	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		errors = append(errors, ValidationError{
			Path:    "tracing.sample_ratio",
			Message: fmt.Sprintf("must be between 0 and 1, got %f", r),
		})
	}

	return errors
}

func (c *Config) validateSimulation() []ValidationError {
	var errors []ValidationError

	if c.Simulation.TrafficPeriodMs <= 0 {
		errors = append(errors, ValidationError{
			Path:    "simulation.traffic_period_ms",
			Message: fmt.Sprintf("must be positive, got %d", c.Simulation.TrafficPeriodMs),
		})
	}

	if p := c.Simulation.BurstProbability; p < 0 || p > 1 {
		errors = append(errors, ValidationError{
			Path:    "simulation.burst_probability",
			Message: fmt.Sprintf("must be between 0 and 1, got %f", p),
		})
	}

	return errors
}

func validSecurities() []string {
	return []string{
		string(connection.SecurityOpen),
		string(connection.SecurityWPA2),
		string(connection.SecurityWPA3),
		string(connection.SecurityWPA2WPA3),
	}
}

func validModes() []string {
	return []string{
		radio.WithoutThroughput.String(),
		radio.WithThroughput.String(),
		radio.Disabled.String(),
	}
}

// contains checks if a string is in a slice
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
