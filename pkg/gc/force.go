package gc

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/Borislavv/purgeable-shm/pkg/config"
	"github.com/rs/zerolog/log"
)

// Run periodically forces Go's garbage collector and returns freed pages to
// the OS. A region manager holds most of its weight outside the Go heap (the
// mmap'd backing stores), so the heap stays small and GOGC may not trigger a
// collection for a long time while interval churn keeps producing garbage.
// Forcing a pass on an interval, plus FreeOSMemory, keeps RSS honest next to
// the purge accounting.
func Run(ctx context.Context, cfg *config.Shm) {
	if !cfg.Shm.ForceGC.Enabled {
		return
	}

	go func() {
		gcTicker := time.NewTicker(cfg.Shm.ForceGC.GCInterval)
		defer gcTicker.Stop()

		freeOsMemTicker := time.NewTicker(cfg.Shm.ForceGC.FreeOsMemInterval)
		defer freeOsMemTicker.Stop()

		log.Info().Msgf(
			"[force-GC] running with gcInterval=%s, freeOsMemInterval=%s",
			cfg.Shm.ForceGC.GCInterval, cfg.Shm.ForceGC.FreeOsMemInterval,
		)

		var lastAlloc uint64

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("[force-GC] stopped")
				return

			case <-gcTicker.C:
				var mem runtime.MemStats
				runtime.ReadMemStats(&mem)

				runtime.GC()

				log.Info().Msgf(
					"[force-GC] forced GC pass (last GC pass at: %s, pause: %s)",
					time.Unix(0, int64(mem.LastGC)).Format(time.RFC3339Nano),
					lastGCPauseNs(mem.PauseNs),
				)

				lastAlloc = mem.Alloc

			case <-freeOsMemTicker.C:
				var mem runtime.MemStats
				runtime.ReadMemStats(&mem)

				if lastAlloc == 0 {
					lastAlloc = mem.Alloc
					continue
				}

				debug.FreeOSMemory()

				log.Info().Msgf(
					"[force-GC] forcing flush of freed memory to OS (alloc was %s, now %s)",
					fmtBytes(lastAlloc), fmtBytes(mem.Alloc),
				)

				lastAlloc = mem.Alloc
			}
		}
	}()
}

// fmtBytes formats a byte count to a human-readable string.
func fmtBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func lastGCPauseNs(pauses [256]uint64) time.Duration {
	for i := 255; i >= 0; i-- {
		if pauses[i] > 0 {
			return time.Duration(pauses[i])
		}
	}
	return time.Duration(0)
}
