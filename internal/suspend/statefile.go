package suspend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"wifisleep/internal/fsutil"
	"wifisleep/internal/logging"
)

// StatusFileName is the snapshot file inside the state directory
const StatusFileName = "suspend_status.json"

// StatusStore persists controller snapshots for the status and watch commands
type StatusStore struct {
	path   string
	logger *logging.Logger
}

// NewStatusStore creates a store writing to path. An empty path resolves to
// StatusFileName in the state directory.
func NewStatusStore(path string, logger *logging.Logger) *StatusStore {
	if path == "" {
		path = DefaultStatusPath()
	}
	return &StatusStore{
		path:   path,
		logger: logger,
	}
}

// DefaultStatusPath returns the snapshot path honoring WIFISLEEP_STATE_DIR
func DefaultStatusPath() string {
	return filepath.Join(fsutil.GetStateDir(fsutil.DefaultStateDir), StatusFileName)
}

// Path returns the file location
func (s *StatusStore) Path() string {
	return s.path
}

// Save writes the snapshot atomically
func (s *StatusStore) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status JSON: %w", err)
	}

	if err := fsutil.AtomicWriteFile(s.path, data, fsutil.DefaultFilePermissions, s.logger); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}

	s.logger.Debug("suspend.status.saved", "Saved suspend status", map[string]interface{}{
		"path":  s.path,
		"state": snap.State,
	})
	return nil
}

// Load reads the last saved snapshot
func (s *StatusStore) Load() (Snapshot, error) {
	data, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, fmt.Errorf("status file not found: %w", err)
		}
		return Snapshot{}, fmt.Errorf("read status file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse status JSON: %w", err)
	}
	return snap, nil
}
