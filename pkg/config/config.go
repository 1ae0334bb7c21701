package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	Prod = "prod"
	Dev  = "dev"
	Test = "test"
)

type Shm struct {
	Env string
	Shm ShmBox `yaml:"shm"`
}

type ShmBox struct {
	Enabled bool    `yaml:"enabled"`
	Arena   Arena   `yaml:"arena"`
	Purge   Purge   `yaml:"purge"`
	ForceGC ForceGC `yaml:"force_gc"`
}

type Arena struct {
	// MaxRanges bounds the number of live unpinned intervals across all
	// regions. 0 means unbounded.
	MaxRanges int `yaml:"max_ranges"`
}

type Purge struct {
	// RequestsPerSecond throttles the privileged purge-all endpoint.
	RequestsPerSecond int      `yaml:"requests_per_second"`
	Pressure          Pressure `yaml:"pressure"`
}

type Pressure struct {
	Enabled            bool          `yaml:"enabled"`
	Interval           time.Duration `yaml:"interval"`
	ThresholdBytes     int64         `yaml:"threshold_bytes"`
	MaxPassesPerSecond float64       `yaml:"max_passes_per_second"`
}

type ForceGC struct {
	Enabled           bool          `yaml:"enabled"`
	GCInterval        time.Duration `yaml:"gc_interval"`
	FreeOsMemInterval time.Duration `yaml:"free_os_mem_interval"`
}

const (
	configPath      = "/config/config.yaml"
	configPathLocal = "/config/config.local.yaml"
	configPathTest  = "/../../config/config.test.yaml"
)

func LoadConfig() (*Shm, error) {
	env := os.Getenv("APP_ENV")

	var path string
	switch env {
	case Prod:
		path = configPath
	case Dev:
		path = configPathLocal
	case Test:
		path = configPathTest
	default:
		return nil, errors.New("unknown APP_ENV: '" + env + "'")
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	path, err = filepath.Abs(filepath.Clean(dir + path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute config filepath: %w", err)
	}

	if _, err = os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	var cfg *Shm
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	cfg.Env = env

	if cfg.Shm.Purge.Pressure.Enabled {
		if cfg.Shm.Purge.Pressure.Interval <= 0 {
			cfg.Shm.Purge.Pressure.Interval = time.Second
		}
		if cfg.Shm.Purge.Pressure.MaxPassesPerSecond <= 0 {
			cfg.Shm.Purge.Pressure.MaxPassesPerSecond = 1
		}
	}

	return cfg, nil
}

func (c *Shm) IsProd() bool { return c.Env == Prod }
