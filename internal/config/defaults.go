package config

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		WiFi: WiFiConfig{
			Security: "wpa2",
		},
		PowerSave: PowerSaveConfig{
			Mode:            "with_throughput",
			ReturnToSleepMs: 10,
		},
		Activity: ActivityConfig{
			IntervalMs:       300,
			InactiveWindowMs: 200,
			PollMs:           10,
		},
		Connect: ConnectConfig{
			MaxRetries:   3,
			RetryDelayMs: 0, // retry immediately
		},
		Suspend: SuspendConfig{
			SettleDelayMs: 100,
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9465",
		},
		Redis: RedisConfig{
			Key: "wifisleep",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			SampleRatio: 1,
		},
		Simulation: SimulationConfig{
			TrafficPeriodMs:  50,
			BurstProbability: 0.05,
		},
	}
}
