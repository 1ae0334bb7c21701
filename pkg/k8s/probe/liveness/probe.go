package liveness

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config carries the probe settings, filled from the environment.
type Config struct {
	ProbeTimeout time.Duration `mapstructure:"LIVENESS_PROBE_TIMEOUT"`
}

// Service is anything the probe can ask for a health verdict.
type Service interface {
	IsAlive(ctx context.Context) bool
}

// Prober watches registered services and answers liveness checks.
type Prober interface {
	Watch(svc Service)
	IsAlive() bool
}

// Probe polls each watched service on an interval; the aggregate verdict is
// the AND of all services.
type Probe struct {
	timeout time.Duration
	alive   atomic.Bool

	mu       sync.Mutex
	services []Service
}

func NewProbe(ctx context.Context, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &Probe{timeout: timeout}
	// Prime the verdict so a fresh process does not report dead until the
	// first tick; with nothing watched yet that is alive.
	p.alive.Store(p.check())
	p.run(ctx)
	return p
}

// Watch registers a service and refreshes the verdict.
func (p *Probe) Watch(svc Service) {
	p.mu.Lock()
	p.services = append(p.services, svc)
	p.mu.Unlock()
	p.alive.Store(p.check())
}

// IsAlive reports the last aggregate verdict.
func (p *Probe) IsAlive() bool { return p.alive.Load() }

func (p *Probe) run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.timeout / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.alive.Store(p.check())
			}
		}
	}()
}

func (p *Probe) check() bool {
	p.mu.Lock()
	services := make([]Service, len(p.services))
	copy(services, p.services)
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	for _, svc := range services {
		if !svc.IsAlive(ctx) {
			return false
		}
	}
	return true
}
