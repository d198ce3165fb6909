package diag

import "time"

// Manifest represents the diagnostic package manifest
type Manifest struct {
	ID        string         `json:"bundle_id"`
	Timestamp string         `json:"timestamp"`
	Host      string         `json:"host"`
	Version   string         `json:"wifisleep_version"`
	Files     []ManifestFile `json:"files"`
}

// ManifestFile represents a file in the diagnostic package
type ManifestFile struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
}

// Config configures diagnostic collection. Empty paths are skipped.
type Config struct {
	ConfigPaths     []string
	// EffectiveConfig is the merged configuration, already redacted
	EffectiveConfig []byte
	StatusPath      string
	PassLogPath     string
	LogFile         string
	OutputPath      string
	Version         string
	// MaxFileBytes keeps only the tail of large logs; zero keeps everything
	MaxFileBytes    int64
}

// NewConfig creates a diagnostic config with a timestamped output name
func NewConfig(version string) *Config {
	return &Config{
		OutputPath:   generateOutputPath(),
		Version:      version,
		MaxFileBytes: 1 << 20,
	}
}

func generateOutputPath() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	return "wifisleep-diag-" + timestamp + ".zip"
}
