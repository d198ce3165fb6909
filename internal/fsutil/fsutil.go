package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"wifisleep/internal/logging"
)

const (
	// DefaultStateDir is the default location for wifisleep runtime state
	DefaultStateDir = "/var/lib/wifisleep"
	// StateDirEnv overrides DefaultStateDir
	StateDirEnv = "WIFISLEEP_STATE_DIR"
	// DefaultStatePermissions is the default permission for state directories
	DefaultStatePermissions = 0o750
	// DefaultFilePermissions is the default permission for state files
	DefaultFilePermissions = 0o600
)

// GetStateDir returns the state directory from the environment or defaultDir.
// It returns an absolute path when possible.
func GetStateDir(defaultDir string) string {
	if env := os.Getenv(StateDirEnv); env != "" {
		if abs, err := filepath.Abs(env); err == nil {
			return abs
		}
		return env
	}
	return defaultDir
}

// AtomicWriteFile writes data next to path and renames it into place so
// readers never see a partial file. The parent directory is created.
func AtomicWriteFile(path string, data []byte, perm os.FileMode, logger *logging.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), DefaultStatePermissions); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("fsutil.cleanup_failed", "Failed to remove temp file", map[string]interface{}{
				"path":  tmpPath,
				"error": removeErr.Error(),
			})
		}
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
