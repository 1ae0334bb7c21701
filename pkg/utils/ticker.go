package utils

import (
	"context"
	"time"

	"github.com/Borislavv/purgeable-shm/pkg/ctime"
)

// NewTicker is the ticker the periodic loops (pressure watcher, stats
// loggers) run on: it fires once immediately with the coarse clock's time so
// a loop evaluates its condition at startup instead of one interval later,
// and it stops with the context.
func NewTicker(ctx context.Context, interval time.Duration) (ch <-chan time.Time) {
	ctx, cancel := context.WithCancel(ctx)

	tickCh := make(chan time.Time, 1)
	tickCh <- ctime.Now()

	go func() {
		ticker := time.NewTicker(interval)
		defer func() {
			ticker.Stop()
			close(tickCh)
			cancel()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				tickCh <- t
			}
		}
	}()

	return tickCh
}
