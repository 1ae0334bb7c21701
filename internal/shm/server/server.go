package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/purgeable-shm/internal/shm/api"
	"github.com/Borislavv/purgeable-shm/internal/shm/config"
	httpserver "github.com/Borislavv/purgeable-shm/pkg/http/server"
	"github.com/Borislavv/purgeable-shm/pkg/http/server/controller"
	"github.com/Borislavv/purgeable-shm/pkg/http/server/middleware"
	"github.com/Borislavv/purgeable-shm/pkg/k8s/probe/liveness"
	"github.com/Borislavv/purgeable-shm/pkg/prometheus/metrics"
	metricscontroller "github.com/Borislavv/purgeable-shm/pkg/prometheus/metrics/controller"
	"github.com/Borislavv/purgeable-shm/pkg/reclaim"
	"github.com/Borislavv/purgeable-shm/pkg/region"
	"github.com/rs/zerolog/log"
)

var InitFailedErrorMessage = "[server] init. failed"

// Http interface exposes methods for starting and liveness probing.
type Http interface {
	Start()
	IsAlive() bool
}

// HttpServer wraps all dependencies required for running the command surface.
type HttpServer struct {
	ctx           context.Context
	cfg           *config.Config
	registry      *region.Registry
	queue         *reclaim.Queue
	purger        *reclaim.Purger
	probe         liveness.Prober
	metrics       metrics.Meter
	server        httpserver.Server
	isServerAlive *atomic.Bool
}

// New creates a new HttpServer, composing controllers and middlewares.
func New(
	ctx context.Context,
	cfg *config.Config,
	registry *region.Registry,
	queue *reclaim.Queue,
	purger *reclaim.Purger,
	probe liveness.Prober,
	meter metrics.Meter,
) (*HttpServer, error) {
	srv := &HttpServer{
		ctx:           ctx,
		cfg:           cfg,
		registry:      registry,
		queue:         queue,
		purger:        purger,
		probe:         probe,
		metrics:       meter,
		isServerAlive: &atomic.Bool{},
	}

	if err := srv.initServer(); err != nil {
		log.Err(err).Msg(InitFailedErrorMessage)
		return nil, errors.New(InitFailedErrorMessage)
	}

	return srv, nil
}

// Start runs the HTTP server in a goroutine and waits for it to finish.
func (s *HttpServer) Start() {
	waitCh := make(chan struct{})

	go func() {
		defer close(waitCh)
		wg := &sync.WaitGroup{}
		defer wg.Wait()
		s.spawnServer(wg)
	}()

	<-waitCh
}

// IsAlive returns true if the server is marked as alive.
func (s *HttpServer) IsAlive() bool {
	return s.isServerAlive.Load()
}

func (s *HttpServer) spawnServer(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer func() {
			s.isServerAlive.Store(false)
			wg.Done()
		}()
		s.isServerAlive.Store(true)
		s.server.ListenAndServe()
	}()
}

func (s *HttpServer) initServer() error {
	if server, err := httpserver.New(s.ctx, s.cfg.Server, s.controllers(), s.middlewares()); err != nil {
		log.Err(err).Msg(InitFailedErrorMessage)
		return errors.New(InitFailedErrorMessage)
	} else {
		s.server = server
	}

	return nil
}

// controllers returns all HTTP controllers for the server.
func (s *HttpServer) controllers() []controller.HttpController {
	controllers := []controller.HttpController{
		liveness.NewController(s.probe),                             // healthcheck probe endpoint
		api.NewRegionController(s.registry),                         // region lifecycle commands
		api.NewPinController(s.registry, s.metrics),                 // pin/unpin/pin-status commands
		api.NewPurgeController(s.ctx, s.cfg, s.purger, s.metrics),   // privileged purge-all
		api.NewStatsController(s.registry, s.queue, s.purger),       // reclaim stats
	}
	if s.cfg.MetricsEnabled {
		controllers = append(controllers, metricscontroller.NewPrometheusMetrics())
	}
	return controllers
}

// middlewares returns the request middlewares, executed in declaration order.
func (s *HttpServer) middlewares() []middleware.HttpMiddleware {
	return []middleware.HttpMiddleware{
		/** exec 1st. */ middleware.NewApplicationJsonMiddleware(), // sets the Content-Type: application/json
		/** exec 2nd. */ middleware.NewServerNameMiddleware(s.cfg.Server), // sets the Server response header
	}
}
