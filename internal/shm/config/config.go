package config

import (
	"fmt"

	shmconfig "github.com/Borislavv/purgeable-shm/pkg/config"
	serverconfig "github.com/Borislavv/purgeable-shm/pkg/http/server/config"
	"github.com/Borislavv/purgeable-shm/pkg/k8s/probe/liveness"
	metricsconfig "github.com/Borislavv/purgeable-shm/pkg/prometheus/metrics/config"
	"github.com/spf13/viper"
)

// Config is the composite application configuration: the shm core loads from
// yaml, everything around it (listener, metrics, probe) from the environment.
type Config struct {
	*shmconfig.Shm
	serverconfig.Server   `mapstructure:",squash"`
	metricsconfig.Metrics `mapstructure:",squash"`
	liveness.Config       `mapstructure:",squash"`
}

// Load reads the yaml core config selected by APP_ENV and overlays the
// ambient settings from environment variables via viper.
func Load() (*Config, error) {
	shmCfg, err := shmconfig.LoadConfig()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SERVER_NAME", "purgeable-shm")
	v.SetDefault("SERVER_PORT", "8020")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LIVENESS_PROBE_TIMEOUT", "5s")

	// AutomaticEnv alone does not bind keys for Unmarshal; touch each one.
	for _, key := range []string{"SERVER_NAME", "SERVER_PORT", "METRICS_ENABLED", "LIVENESS_PROBE_TIMEOUT"} {
		if err = v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg := &Config{Shm: shmCfg}
	if err = v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal environment config: %w", err)
	}

	return cfg, nil
}
