package reclaim

import (
	"sync/atomic"
	"time"

	"github.com/Borislavv/purgeable-shm/pkg/buffer"
	"github.com/rs/zerolog/log"
)

// Evictor drops the backing content of a page span inside a region and
// returns the number of bytes it gave back. The registry implements it; a
// region closed mid-purge simply evicts nothing.
type Evictor interface {
	Evict(regionID uint64, pgStart, pgEnd uint64) (int64, error)
}

var (
	PurgePasses    = &atomic.Int64{}
	PurgeEvicted   = &atomic.Int64{}
	PurgeSkipped   = &atomic.Int64{}
	PurgeDiscarded = &atomic.Int64{}
	PurgeFailed    = &atomic.Int64{}
)

// Purger walks the reclaim queue on demand and evicts content of intervals
// still unpinned at eviction time. Metadata survives: purge marks intervals,
// it never removes them.
type Purger struct {
	queue   *Queue
	evictor Evictor
	history *buffer.Ring
}

func NewPurger(queue *Queue, evictor Evictor) *Purger {
	return &Purger{queue: queue, evictor: evictor, history: buffer.NewRing(64)}
}

// History returns the most recent purge passes, oldest first.
func (p *Purger) History() []buffer.Record {
	return p.history.Recent()
}

// PurgeAll visits the queue oldest to newest and purges every interval that
// is not purged yet. The guard is reacquired per entry: eviction itself runs
// outside the lock, and if the interval was pinned, resized or replaced in
// the meantime the eviction result is discarded (pin wins). Already-purged
// entries are skipped, so back-to-back calls reclaim nothing extra. A failed
// eviction is logged and left not-purged for a later pass.
func (p *Purger) PurgeAll() (reclaimed int64) {
	PurgePasses.Add(1)

	for _, ref := range p.queue.Refs() {
		arena := p.queue.Arena()

		p.queue.Lock()
		if !arena.Valid(ref) || arena.Purged(ref.H) {
			p.queue.Unlock()
			PurgeSkipped.Add(1)
			continue
		}
		owner := arena.Owner(ref.H)
		start, end := arena.Span(ref.H)
		p.queue.Unlock()

		n, err := p.evictor.Evict(owner, start, end)
		if err != nil {
			PurgeFailed.Add(1)
			log.Warn().Err(err).
				Uint64("region", owner).
				Uint64("pgStart", start).
				Uint64("pgEnd", end).
				Msg("[purger] eviction failed, interval left for a later pass")
			continue
		}

		p.queue.Lock()
		if arena.Valid(ref) && !arena.Purged(ref.H) {
			st, en := arena.Span(ref.H)
			if st == start && en == end {
				arena.MarkPurged(ref.H)
				reclaimed += n
				PurgeEvicted.Add(1)
			} else {
				PurgeDiscarded.Add(1)
			}
		} else {
			PurgeDiscarded.Add(1)
		}
		p.queue.Unlock()
	}

	p.history.Push(buffer.Record{UnixNano: time.Now().UnixNano(), Reclaimed: reclaimed})
	return reclaimed
}
