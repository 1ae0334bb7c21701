package reclaim

import (
	"context"

	"github.com/Borislavv/purgeable-shm/pkg/config"
	"github.com/Borislavv/purgeable-shm/pkg/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// PressureWatcher triggers purge passes when the aggregate reclaimable byte
// count crosses the configured threshold. Passes are rate limited: pressure
// can stay high for a while after a pass (callers re-unpin), and purging the
// same queue in a tight loop reclaims nothing new.
type PressureWatcher struct {
	ctx     context.Context
	cfg     *config.Shm
	purger  *Purger
	queue   *Queue
	limiter *rate.Limiter
}

func NewPressureWatcher(ctx context.Context, cfg *config.Shm, purger *Purger, queue *Queue) *PressureWatcher {
	return &PressureWatcher{
		ctx:     ctx,
		cfg:     cfg,
		purger:  purger,
		queue:   queue,
		limiter: rate.NewLimiter(rate.Limit(cfg.Shm.Purge.Pressure.MaxPassesPerSecond), 1),
	}
}

// Run starts the watcher loop. It is a no-op when pressure purge is disabled.
func (w *PressureWatcher) Run() *PressureWatcher {
	if !w.cfg.Shm.Purge.Pressure.Enabled {
		return w
	}

	go func() {
		ticker := utils.NewTicker(w.ctx, w.cfg.Shm.Purge.Pressure.Interval)

		log.Info().Msgf(
			"[pressure] watching reclaimable bytes (threshold=%d, interval=%s)",
			w.cfg.Shm.Purge.Pressure.ThresholdBytes, w.cfg.Shm.Purge.Pressure.Interval,
		)

		for {
			select {
			case <-w.ctx.Done():
				log.Info().Msg("[pressure] stopped")
				return
			case <-ticker:
				reclaimable := w.queue.Bytes()
				if reclaimable < w.cfg.Shm.Purge.Pressure.ThresholdBytes {
					continue
				}
				if !w.limiter.Allow() {
					continue
				}
				reclaimed := w.purger.PurgeAll()
				log.Info().Msgf(
					"[pressure] purge pass done (reclaimable=%d, reclaimed=%d)",
					reclaimable, reclaimed,
				)
			}
		}
	}()

	return w
}
