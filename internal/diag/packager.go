package diag

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"wifisleep/internal/logging"
)

// Packager creates diagnostic ZIP packages
type Packager struct {
	config   *Config
	redactor *Redactor
	logger   *logging.Logger
}

// NewPackager creates a new diagnostic packager
func NewPackager(config *Config, logger *logging.Logger) *Packager {
	return &Packager{
		config:   config,
		redactor: NewRedactor(),
		logger:   logger,
	}
}

// CreatePackage collects config, status and logs into a ZIP. Missing
// sources are skipped with a warning.
func (p *Packager) CreatePackage() (string, error) {
	p.logger.Info("diag.package.start", "Creating diagnostic package", map[string]interface{}{
		"output": p.config.OutputPath,
	})

	files := make(map[string][]byte)

	for i, path := range p.config.ConfigPaths {
		if content, ok := p.read(path, true); ok {
			files[fmt.Sprintf("config/%d-%s", i, filepath.Base(path))] = content
		}
	}
	if len(p.config.EffectiveConfig) > 0 {
		files["config/effective.yaml"] = []byte(p.redactor.Redact(string(p.config.EffectiveConfig)))
	}
	if content, ok := p.read(p.config.StatusPath, false); ok {
		files["state/suspend_status.json"] = content
	}
	if content, ok := p.read(p.config.PassLogPath, false); ok {
		files["logs/passes.jsonl"] = content
	}
	if content, ok := p.read(p.config.LogFile, true); ok {
		files["logs/"+filepath.Base(p.config.LogFile)] = content
	}

	sysInfo, err := p.systemInfo()
	if err != nil {
		return "", err
	}
	files["system_info.json"] = sysInfo

	manifestJSON, err := json.MarshalIndent(p.createManifest(files), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	files["diag_manifest.json"] = manifestJSON

	if err := p.createZIP(files); err != nil {
		return "", fmt.Errorf("failed to create ZIP: %w", err)
	}

	p.logger.Info("diag.package.complete", "Diagnostic package created", map[string]interface{}{
		"output":     p.config.OutputPath,
		"file_count": len(files),
	})
	return p.config.OutputPath, nil
}

// read returns the file content, tail-truncated to MaxFileBytes
func (p *Packager) read(path string, redact bool) ([]byte, bool) {
	if path == "" {
		return nil, false
	}
	content, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- paths come from local config
	if err != nil {
		p.logger.Warn("diag.collect.skipped", "Skipping unreadable file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return nil, false
	}
	if limit := p.config.MaxFileBytes; limit > 0 && int64(len(content)) > limit {
		content = content[int64(len(content))-limit:]
	}
	if redact {
		content = []byte(p.redactor.Redact(string(content)))
	}
	return content, true
}

func (p *Packager) systemInfo() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	data, err := json.MarshalIndent(map[string]interface{}{
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"host":              hostname,
		"wifisleep_version": p.config.Version,
		"pid":               os.Getpid(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal system info: %w", err)
	}
	return data, nil
}

func (p *Packager) createManifest(files map[string][]byte) *Manifest {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	manifest := &Manifest{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Host:      hostname,
		Version:   p.config.Version,
		Files:     make([]ManifestFile, 0, len(files)),
	}
	for _, path := range sortedKeys(files) {
		content := files[path]
		manifest.Files = append(manifest.Files, ManifestFile{
			Path:      path,
			SizeBytes: int64(len(content)),
			SHA256:    CalculateSHA256(content),
		})
	}
	return manifest
}

func (p *Packager) createZIP(files map[string][]byte) (err error) {
	zipFile, err := os.Create(p.config.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := zipFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	zipWriter := zip.NewWriter(zipFile)
	for _, path := range sortedKeys(files) {
		w, err := zipWriter.Create(path)
		if err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
		if _, err := w.Write(files[path]); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return zipWriter.Close()
}

func sortedKeys(files map[string][]byte) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CalculateSHA256 computes SHA256 hash of data
func CalculateSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
