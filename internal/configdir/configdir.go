package configdir

import (
	"os"
	"path/filepath"
)

const defaultConfigDir = "/etc/wifisleep"

// EnvVar overrides the system configuration directory
const EnvVar = "WIFISLEEP_CONFIG_DIR"

// ConfigDir resolves the configuration directory respecting overrides
func ConfigDir() string {
	if env := os.Getenv(EnvVar); env != "" {
		if abs, err := filepath.Abs(env); err == nil {
			return abs
		}
	}
	return defaultConfigDir
}
