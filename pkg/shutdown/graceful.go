package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrGracefulTimeout = errors.New("shutdown: graceful timeout exceeded")

// Gracefuller is what long-running components see: they register with Add and
// report completion with Done, mirroring sync.WaitGroup.
type Gracefuller interface {
	Add(delta int)
	Done()
}

// Graceful coordinates shutdown: it cancels the root context on SIGTERM/SIGINT
// (or an upstream cancel) and then waits for every registered component,
// bounded by the graceful timeout.
type Graceful struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewGraceful(ctx context.Context, cancel context.CancelFunc) *Graceful {
	return &Graceful{ctx: ctx, cancel: cancel, timeout: time.Minute}
}

// SetGracefulTimeout bounds how long ListenCancelAndAwait waits for
// registered components after cancellation.
func (g *Graceful) SetGracefulTimeout(timeout time.Duration) {
	g.timeout = timeout
}

func (g *Graceful) Add(delta int) { g.wg.Add(delta) }
func (g *Graceful) Done()         { g.wg.Done() }

// ListenCancelAndAwait blocks until the context is cancelled or a termination
// signal arrives, then waits for all registered components up to the graceful
// timeout.
func (g *Graceful) ListenCancelAndAwait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("[shutdown] received %s, shutting down", sig)
		g.cancel()
	case <-g.ctx.Done():
	}

	waitCh := make(chan struct{})
	go func() {
		defer close(waitCh)
		g.wg.Wait()
	}()

	select {
	case <-waitCh:
		return nil
	case <-time.After(g.timeout):
		return ErrGracefulTimeout
	}
}
