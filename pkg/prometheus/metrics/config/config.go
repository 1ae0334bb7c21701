package config

// Metrics toggles the /metrics endpoint, filled from the environment.
type Metrics struct {
	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}
