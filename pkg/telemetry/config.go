package telemetry

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	// Level is the minimum level to emit: trace, debug, info, warn, error, fatal.
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`

	// Format selects json or console output.
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`

	// Output is stdout, stderr, or a file path.
	Output string `yaml:"output"`

	// TimeFormat is rfc3339, unix, unixms, or unixmicro.
	TimeFormat string `yaml:"time_format" validate:"omitempty,oneof=rfc3339 unix unixms unixmicro"`

	// EnableCaller annotates each entry with the calling file and line.
	EnableCaller bool `yaml:"enable_caller"`
}

// DefaultLoggingConfig returns the logging defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "rfc3339",
	}
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns metric collection on. When false every recording call
	// is a no-op.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`

	// ListenAddress is the host:port for the metrics HTTP server.
	ListenAddress string `yaml:"listen_address" validate:"omitempty,hostname_port"`

	// Path is the HTTP path the metrics are served on.
	Path string `yaml:"path"`
}

// DefaultMetricsConfig returns the metrics defaults. Collection is off unless
// explicitly enabled.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:       false,
		Namespace:     "quarry",
		ListenAddress: "localhost:9464",
		Path:          "/metrics",
	}
}
