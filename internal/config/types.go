package config

// Config represents the complete wifisleep configuration
type Config struct {
	WiFi       WiFiConfig       `yaml:"wifi"`
	PowerSave  PowerSaveConfig  `yaml:"powersave"`
	Activity   ActivityConfig   `yaml:"activity"`
	Connect    ConnectConfig    `yaml:"connect"`
	Suspend    SuspendConfig    `yaml:"suspend"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Wake       WakeConfig       `yaml:"wake"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// WiFiConfig holds the association credentials.
// PasswordSecret names an entry in the secret store and wins over Password.
type WiFiConfig struct {
	SSID           string `yaml:"ssid"`
	Password       string `yaml:"password"`
	PasswordSecret string `yaml:"password_secret"`
	Security       string `yaml:"security"`
}

// PowerSaveConfig represents the radio power-save mode
type PowerSaveConfig struct {
	Mode            string `yaml:"mode"`
	ReturnToSleepMs int    `yaml:"return_to_sleep_ms"`
}

// ActivityConfig represents the inactivity detection window
type ActivityConfig struct {
	IntervalMs       int `yaml:"interval_ms"`
	InactiveWindowMs int `yaml:"inactive_window_ms"`
	PollMs           int `yaml:"poll_ms"`
}

// ConnectConfig represents association retry policy
type ConnectConfig struct {
	MaxRetries   int `yaml:"max_retries"`
	RetryDelayMs int `yaml:"retry_delay_ms"`
}

// SuspendConfig represents the suspend controller settings
type SuspendConfig struct {
	SettleDelayMs    int    `yaml:"settle_delay_ms"`
	StateFile        string `yaml:"state_file"`
	InhibitHostSleep bool   `yaml:"inhibit_host_sleep"`
}

// MetricsConfig represents the Prometheus endpoint and the JSONL pass log.
// Empty values disable either output.
type MetricsConfig struct {
	Listen  string `yaml:"listen"`
	PassLog string `yaml:"pass_log"`
}

// WakeConfig enables the magic packet listener. Listen empty disables it.
type WakeConfig struct {
	Listen string `yaml:"listen"`
	MAC    string `yaml:"mac"`
}

// RedisConfig mirrors the status into a Redis hash. Addr empty disables it.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	Key  string `yaml:"key"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// TracingConfig represents OpenTelemetry span export
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// SimulationConfig drives the in-process radio and traffic generator
type SimulationConfig struct {
	TrafficPeriodMs  int     `yaml:"traffic_period_ms"`
	BurstProbability float64 `yaml:"burst_probability"`
	Seed             int64   `yaml:"seed"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}
