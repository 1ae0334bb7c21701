package shm

import (
	"context"

	"github.com/Borislavv/purgeable-shm/internal/shm/config"
	"github.com/Borislavv/purgeable-shm/internal/shm/server"
	"github.com/Borislavv/purgeable-shm/pkg/gc"
	"github.com/Borislavv/purgeable-shm/pkg/k8s/probe/liveness"
	"github.com/Borislavv/purgeable-shm/pkg/prometheus/metrics"
	"github.com/Borislavv/purgeable-shm/pkg/prometheus/metrics/keyword"
	"github.com/Borislavv/purgeable-shm/pkg/rangeset"
	"github.com/Borislavv/purgeable-shm/pkg/reclaim"
	"github.com/Borislavv/purgeable-shm/pkg/region"
	"github.com/Borislavv/purgeable-shm/pkg/shutdown"
	"github.com/Borislavv/purgeable-shm/pkg/store"
	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/rs/zerolog/log"
)

// App defines the application lifecycle interface.
type App interface {
	Start(gc shutdown.Gracefuller)
}

// Shm encapsulates the region manager: the interval arena, the global
// reclaim queue, the registry, the purge controller and the HTTP command
// surface on top of them.
type Shm struct {
	cfg      *config.Config
	ctx      context.Context
	cancel   context.CancelFunc
	probe    liveness.Prober
	registry *region.Registry
	queue    *reclaim.Queue
	purger   *reclaim.Purger
	server   server.Http
}

// NewApp builds the app, wiring arena, queue, registry, purger and server.
func NewApp(ctx context.Context, cfg *config.Config, probe liveness.Prober) (*Shm, error) {
	ctx, cancel := context.WithCancel(ctx)

	meter := metrics.New()
	arena := rangeset.NewArena(cfg.Shm.Shm.Arena.MaxRanges)
	queue := reclaim.NewQueue(arena)
	registry := region.NewRegistry(queue, store.NewDefaultProvider())
	purger := reclaim.NewPurger(queue, registry)

	reclaim.NewPressureWatcher(ctx, cfg.Shm, purger, queue).Run()
	gc.Run(ctx, cfg.Shm)

	app := &Shm{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		probe:    probe,
		registry: registry,
		queue:    queue,
		purger:   purger,
	}
	app.registerGauges()

	srv, err := server.New(ctx, cfg, registry, queue, purger, probe, meter)
	if err != nil {
		cancel()
		return nil, err
	}
	app.server = srv

	return app, nil
}

// Start runs the server and liveness probe, and handles graceful shutdown.
// The Gracefuller is expected to be waited on by the caller.
func (a *Shm) Start(gc shutdown.Gracefuller) {
	defer func() {
		a.stop()
		gc.Done()
	}()

	log.Info().Msg("[app] starting the region manager")

	waitCh := make(chan struct{})

	go func() {
		defer close(waitCh)
		a.probe.Watch(a) // Does not block the green-thread
		a.server.Start() // Blocks the green-thread until the server is stopped
	}()

	log.Info().Msg("[app] region manager has been started")

	<-waitCh // Wait until the server exits
}

// IsAlive is called by liveness probes to check app health.
func (a *Shm) IsAlive(_ context.Context) bool {
	if !a.server.IsAlive() {
		log.Info().Msg("[app] http server has gone away")
		return false
	}
	return true
}

// stop cancels the main application context and logs shutdown.
func (a *Shm) stop() {
	log.Info().Msg("[app] stopping the region manager")
	a.cancel()
	log.Info().Msg("[app] region manager has been stopped")
}

// registerGauges exposes live reclaim state; the callbacks read lock-free or
// briefly locked counters.
func (a *Shm) registerGauges() {
	vmetrics.GetOrCreateGauge(keyword.ReclaimableBytes, func() float64 {
		return float64(a.queue.Bytes())
	})
	vmetrics.GetOrCreateGauge(keyword.ReclaimQueueLen, func() float64 {
		return float64(a.queue.Len())
	})
	vmetrics.GetOrCreateGauge(keyword.Regions, func() float64 {
		return float64(a.registry.Len())
	})
}
