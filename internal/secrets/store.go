package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"wifisleep/internal/fsutil"
	"wifisleep/internal/logging"
)

const (
	indexFileName = "index.json"
	secretSuffix  = ".enc"
)

var (
	// ErrNotFound is returned for an unknown secret name
	ErrNotFound = errors.New("secret not found")
	// ErrInvalidName is returned for names that are not safe file names
	ErrInvalidName = errors.New("invalid secret name")
)

// Store keeps small secrets such as the Wi-Fi passphrase encrypted at rest
// with NaCl secretbox. The key is generated on first use and kept in
// KeyFile with 0600 permissions.
type Store struct {
	config StoreConfig
	key    *[KeySize]byte
	logger *logging.Logger
}

// NewStore opens the store, creating the directory and key when missing
func NewStore(config StoreConfig, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(config.Dir, fsutil.DefaultStatePermissions); err != nil {
		return nil, fmt.Errorf("failed to create secrets directory: %w", err)
	}

	passphrase, err := loadOrGenerateKey(config.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load secret key: %w", err)
	}
	key := DeriveKey(passphrase)

	return &Store{
		config: config,
		key:    &key,
		logger: logger,
	}, nil
}

// Put encrypts and stores value under name, replacing any existing value
func (s *Store) Put(name string, value []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	sealed, err := Seal(value, s.key)
	if err != nil {
		return fmt.Errorf("encryption failed: %w", err)
	}

	if err := fsutil.AtomicWriteFile(s.secretPath(name), sealed, fsutil.DefaultFilePermissions, s.logger); err != nil {
		return fmt.Errorf("failed to write secret: %w", err)
	}

	if err := s.touchIndex(name); err != nil {
		s.logger.Warn("secrets.index.update_failed", "Failed to update secrets index", map[string]interface{}{
			"name":  name,
			"error": err.Error(),
		})
	}

	s.logger.Info("secrets.stored", "Secret stored", map[string]interface{}{
		"name": name,
	})
	return nil
}

// Get decrypts the secret stored under name
func (s *Store) Get(name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	path := s.secretPath(name)
	sealed, err := os.ReadFile(path) // #nosec G304 -- name is validated and joined to the secrets dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	if info, err := os.Stat(path); err == nil && info.Mode().Perm() != fsutil.DefaultFilePermissions {
		s.logger.Warn("secrets.permissions.warning", "Secret file permissions should be 600", map[string]interface{}{
			"path": path,
			"perm": fmt.Sprintf("%o", info.Mode().Perm()),
		})
	}

	plain, err := Open(sealed, s.key)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}

	s.logger.Debug("secrets.retrieved", "Secret retrieved", map[string]interface{}{
		"name": name,
	})
	return plain, nil
}

// Delete removes a secret
func (s *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	if err := os.Remove(s.secretPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	index, err := s.loadIndex()
	if err == nil {
		filtered := index.Entries[:0]
		for _, e := range index.Entries {
			if e.Name != name {
				filtered = append(filtered, e)
			}
		}
		index.Entries = filtered
		err = s.saveIndex(index)
	}
	if err != nil {
		s.logger.Warn("secrets.index.remove_failed", "Failed to remove from secrets index", map[string]interface{}{
			"name":  name,
			"error": err.Error(),
		})
	}

	s.logger.Info("secrets.deleted", "Secret deleted", map[string]interface{}{
		"name": name,
	})
	return nil
}

// List returns the stored secret names in sorted order
func (s *Store) List() ([]string, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(index.Entries))
	for _, e := range index.Entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) secretPath(name string) string {
	return filepath.Join(s.config.Dir, name+secretSuffix)
}

func (s *Store) touchIndex(name string) error {
	index, err := s.loadIndex()
	if err != nil {
		index = &Index{}
	}

	now := time.Now().UTC()
	for i := range index.Entries {
		if index.Entries[i].Name == name {
			index.Entries[i].UpdatedAt = now
			return s.saveIndex(index)
		}
	}
	index.Entries = append(index.Entries, Entry{Name: name, UpdatedAt: now})
	return s.saveIndex(index)
}

func (s *Store) loadIndex() (*Index, error) {
	data, err := os.ReadFile(filepath.Join(s.config.Dir, indexFileName)) // #nosec G304 -- fixed name inside secrets dir
	if err != nil {
		if os.IsNotExist(err) {
			return &Index{}, nil
		}
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return &index, nil
}

func (s *Store) saveIndex(index *Index) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return fsutil.AtomicWriteFile(filepath.Join(s.config.Dir, indexFileName), data, fsutil.DefaultFilePermissions, s.logger)
}

// validateName accepts [A-Za-z0-9_.-] without leading dots
func validateName(name string) error {
	if name == "" || len(name) > 64 || name[0] == '.' {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

func loadOrGenerateKey(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is from config
	if err == nil {
		return string(data), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}

	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	passphrase := hex.EncodeToString(raw)

	if err := os.MkdirAll(filepath.Dir(path), fsutil.DefaultStatePermissions); err != nil {
		return "", fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(passphrase), fsutil.DefaultFilePermissions); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}
	return passphrase, nil
}
