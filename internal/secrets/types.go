package secrets

import (
	"path/filepath"
	"time"

	"wifisleep/internal/fsutil"
)

// Index tracks stored secret metadata
type Index struct {
	Entries []Entry `json:"entries"`
}

// Entry is the metadata recorded for one secret
type Entry struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreConfig holds configuration for the secret store
type StoreConfig struct {
	Dir     string
	KeyFile string
}

// DefaultStoreConfig places secrets under the state directory
func DefaultStoreConfig() StoreConfig {
	stateDir := fsutil.GetStateDir(fsutil.DefaultStateDir)
	return StoreConfig{
		Dir:     filepath.Join(stateDir, "secrets"),
		KeyFile: filepath.Join(stateDir, ".secret_key"),
	}
}
