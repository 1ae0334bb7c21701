package region

import (
	"sync"
	"sync/atomic"

	"github.com/Borislavv/purgeable-shm/pkg/reclaim"
	"github.com/Borislavv/purgeable-shm/pkg/store"
	"github.com/zeebo/xxh3"
)

// Registry is the process-wide open/close bookkeeping of regions. It hands
// out ids, indexes explicit names for lookup and resolves region ids to
// backing stores for the purge controller (it implements reclaim.Evictor).
type Registry struct {
	queue    *reclaim.Queue
	provider store.Provider

	mu      sync.RWMutex
	regions map[uint64]*Region
	byName  map[uint64][]uint64 // xxh3(name) -> region ids
	seq     atomic.Uint64
}

func NewRegistry(queue *reclaim.Queue, provider store.Provider) *Registry {
	return &Registry{
		queue:    queue,
		provider: provider,
		regions:  make(map[uint64]*Region),
		byName:   make(map[uint64][]uint64),
	}
}

// Open creates a fresh region and registers it.
func (g *Registry) Open() *Region {
	r := newRegion(g.seq.Add(1), g.queue, g.provider)

	g.mu.Lock()
	g.regions[r.ID()] = r
	g.mu.Unlock()
	return r
}

// Get resolves a region by id.
func (g *Registry) Get(id uint64) (*Region, bool) {
	g.mu.RLock()
	r, ok := g.regions[id]
	g.mu.RUnlock()
	return r, ok
}

// SetName names a region and indexes it for Lookup.
func (g *Registry) SetName(id uint64, name string) error {
	r, ok := g.Get(id)
	if !ok {
		return ErrNotFound
	}

	old := r.Name()
	if err := r.SetName(name); err != nil {
		return err
	}

	g.mu.Lock()
	if old != DefaultName {
		g.dropNameLocked(old, id)
	}
	key := xxh3.HashString(name)
	g.byName[key] = append(g.byName[key], id)
	g.mu.Unlock()
	return nil
}

// Lookup resolves a region by its explicit name. With duplicate names the
// earliest still-open region wins.
func (g *Registry) Lookup(name string) (*Region, bool) {
	key := xxh3.HashString(name)

	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, id := range g.byName[key] {
		if r, ok := g.regions[id]; ok && r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Close tears a region down: intervals leave the set and the reclaim queue,
// the backing store is released, the id and name are forgotten.
func (g *Registry) Close(id uint64) error {
	g.mu.Lock()
	r, ok := g.regions[id]
	if !ok {
		g.mu.Unlock()
		return ErrNotFound
	}
	delete(g.regions, id)
	if name := r.Name(); name != DefaultName {
		g.dropNameLocked(name, id)
	}
	g.mu.Unlock()

	return r.Close()
}

// Len returns the number of open regions.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.regions)
}

// Evict implements reclaim.Evictor. A region that closed since the purger
// captured its reference has nothing left to evict.
func (g *Registry) Evict(regionID uint64, pgStart, pgEnd uint64) (int64, error) {
	r, ok := g.Get(regionID)
	if !ok {
		return 0, nil
	}
	return r.evictRange(pgStart, pgEnd)
}

func (g *Registry) dropNameLocked(name string, id uint64) {
	key := xxh3.HashString(name)
	ids := g.byName[key]
	for i, v := range ids {
		if v == id {
			g.byName[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(g.byName[key]) == 0 {
		delete(g.byName, key)
	}
}
