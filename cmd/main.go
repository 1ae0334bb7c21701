package main

import (
	"context"
	"runtime"
	"time"

	"github.com/Borislavv/purgeable-shm/internal/shm"
	"github.com/Borislavv/purgeable-shm/internal/shm/config"
	"github.com/Borislavv/purgeable-shm/pkg/ctime"
	"github.com/Borislavv/purgeable-shm/pkg/k8s/probe/liveness"
	"github.com/Borislavv/purgeable-shm/pkg/shutdown"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
)

// setMaxProcs automatically sets the optimal GOMAXPROCS value (CPU parallelism)
// based on the available CPUs and cgroup/docker CPU quotas (uses automaxprocs).
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

// loadCfg loads the composite configuration: yaml core selected by APP_ENV,
// ambient settings from environment variables.
func loadCfg() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("[config] no .env file found, relying on the environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Err(err).Msg("[config] failed to load")
		return nil, err
	}
	log.Info().Msg("[config] config loaded")
	return cfg, nil
}

// Main entrypoint: configures and starts the region manager.
func main() {
	// Create a root context for graceful shutdown and cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optimize GOMAXPROCS for the current environment.
	setMaxProcs()

	// Start the coarse clock used by periodic loops.
	stopClock := ctime.Start(100 * time.Millisecond)
	defer stopClock()

	// Load the application configuration.
	cfg, cfgError := loadCfg()
	if cfgError != nil {
		log.Err(cfgError).Msg("[main] failed to load config")
		return
	}

	// Setup graceful shutdown handler (SIGTERM, SIGINT, etc).
	gracefulShutdown := shutdown.NewGraceful(ctx, cancel)
	gracefulShutdown.SetGracefulTimeout(time.Minute)

	// Initialize liveness probe for Kubernetes/Cloud health checks.
	probe := liveness.NewProbe(ctx, cfg.ProbeTimeout)

	// Initialize and start the region manager.
	app, err := shm.NewApp(ctx, cfg, probe)
	if err != nil {
		log.Err(err).Msg("[main] failed to init the region manager app")
		return
	}

	// Register app for graceful shutdown.
	gracefulShutdown.Add(1)
	go app.Start(gracefulShutdown)

	// Listen for OS signals or context cancellation and wait for shutdown.
	if err := gracefulShutdown.ListenCancelAndAwait(); err != nil {
		log.Err(err).Msg("failed to gracefully shut down service")
	}
}
