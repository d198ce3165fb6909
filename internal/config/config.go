package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"wifisleep/internal/configdir"
)

const (
	systemConfigFile = "config.yaml"
	userConfigDir    = ".wifisleep"
	userConfigFile   = "config.yaml"
)

// Load loads and merges configuration from system and user files
// Priority: defaults < system config < user config
func Load() (Config, error) {
	cfg := DefaultConfig()

	systemPath := filepath.Join(configdir.ConfigDir(), systemConfigFile)
	if err := mergeConfigFile(&cfg, systemPath); err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to load system config: %w", err)
		}
		// System config not existing is OK, continue with defaults
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(homeDir, userConfigDir, userConfigFile)
		if err := mergeConfigFile(&cfg, userPath); err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to load user config: %w", err)
			}
		}
	}

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}

	return cfg, nil
}

// LoadFrom loads configuration from a specific file path
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := mergeConfigFile(&cfg, path); err != nil {
		return cfg, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}

	return cfg, nil
}

// mergeConfigFile reads a YAML file and merges it into the existing config
func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path is constructed from trusted sources
	if err != nil {
		return err
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfig(cfg, &overlay)
	return nil
}

// mergeConfig merges non-zero values from src into dst
func mergeConfig(dst, src *Config) {
	mergeString(&dst.WiFi.SSID, src.WiFi.SSID)
	mergeString(&dst.WiFi.Password, src.WiFi.Password)
	mergeString(&dst.WiFi.PasswordSecret, src.WiFi.PasswordSecret)
	mergeString(&dst.WiFi.Security, src.WiFi.Security)

	mergeString(&dst.PowerSave.Mode, src.PowerSave.Mode)
	mergeInt(&dst.PowerSave.ReturnToSleepMs, src.PowerSave.ReturnToSleepMs)

	mergeInt(&dst.Activity.IntervalMs, src.Activity.IntervalMs)
	mergeInt(&dst.Activity.InactiveWindowMs, src.Activity.InactiveWindowMs)
	mergeInt(&dst.Activity.PollMs, src.Activity.PollMs)

	mergeInt(&dst.Connect.MaxRetries, src.Connect.MaxRetries)
	mergeInt(&dst.Connect.RetryDelayMs, src.Connect.RetryDelayMs)

	mergeInt(&dst.Suspend.SettleDelayMs, src.Suspend.SettleDelayMs)
	mergeString(&dst.Suspend.StateFile, src.Suspend.StateFile)
	if src.Suspend.InhibitHostSleep {
		dst.Suspend.InhibitHostSleep = true
	}

	mergeString(&dst.Metrics.Listen, src.Metrics.Listen)
	mergeString(&dst.Metrics.PassLog, src.Metrics.PassLog)

	mergeString(&dst.Wake.Listen, src.Wake.Listen)
	mergeString(&dst.Wake.MAC, src.Wake.MAC)

	mergeString(&dst.Redis.Addr, src.Redis.Addr)
	mergeString(&dst.Redis.Key, src.Redis.Key)

	mergeString(&dst.Logging.Level, src.Logging.Level)
	mergeString(&dst.Logging.Format, src.Logging.Format)
	mergeString(&dst.Logging.File, src.Logging.File)

	if src.Tracing.Enabled {
		dst.Tracing.Enabled = true
	}
	mergeString(&dst.Tracing.Exporter, src.Tracing.Exporter)
	mergeString(&dst.Tracing.Endpoint, src.Tracing.Endpoint)
	if src.Tracing.SampleRatio != 0 {
		dst.Tracing.SampleRatio = src.Tracing.SampleRatio
	}

	mergeInt(&dst.Simulation.TrafficPeriodMs, src.Simulation.TrafficPeriodMs)
	if src.Simulation.BurstProbability != 0 {
		dst.Simulation.BurstProbability = src.Simulation.BurstProbability
	}
	if src.Simulation.Seed != 0 {
		dst.Simulation.Seed = src.Simulation.Seed
	}
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// formatValidationErrors formats validation errors for display
func formatValidationErrors(errors []ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	if len(errors) == 1 {
		return errors[0].Error()
	}
	result := fmt.Sprintf("%d validation errors:\n", len(errors))
	for _, err := range errors {
		result += "  - " + err.Error() + "\n"
	}
	return result
}

// Marshal renders the configuration as YAML with the password redacted
func Marshal(cfg Config) ([]byte, error) {
	if cfg.WiFi.Password != "" {
		cfg.WiFi.Password = "********"
	}
	return yaml.Marshal(cfg)
}

// SystemConfigPath returns the path to the system configuration file
func SystemConfigPath() string {
	return filepath.Join(configdir.ConfigDir(), systemConfigFile)
}

// UserConfigPath returns the path to the user configuration file
func UserConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, userConfigDir, userConfigFile)
}
