package region

import (
	"sync"
	"sync/atomic"

	"github.com/Borislavv/purgeable-shm/pkg/page"
	"github.com/Borislavv/purgeable-shm/pkg/rangeset"
	"github.com/Borislavv/purgeable-shm/pkg/reclaim"
	"github.com/Borislavv/purgeable-shm/pkg/store"
)

// Protection bits a mapping may request. The mask starts wide open and can
// only ever be narrowed.
const (
	ProtRead  uint32 = 1 << 0
	ProtWrite uint32 = 1 << 1
	ProtExec  uint32 = 1 << 2
	ProtMask         = ProtRead | ProtWrite | ProtExec
)

const (
	// NameLen caps a region name, terminator included.
	NameLen = 256
	// DefaultName is reported while no name has been set.
	DefaultName = "dev/purgeable-shm"
)

type storeBox struct{ store.Store }

// Region is one named shared-memory object: a size fixed on the first
// SetSize, a narrow-only protection mask, a backing store created lazily on
// the first mapping, and the set of its unpinned page intervals.
//
// size, prot and store presence sit on the mapping hot path and are read
// lock-free; they are assigned at most once (prot only narrows). Pin/unpin
// traffic serializes on the global reclaim guard, backing-store creation on
// the narrower per-region mutex.
type Region struct {
	id       uint64
	queue    *reclaim.Queue
	unpinned *rangeset.Set
	provider store.Provider

	size   atomic.Uint64
	prot   atomic.Uint32
	store  atomic.Pointer[storeBox]
	closed atomic.Bool

	// mapMu serializes the create-once race on the backing store and guards
	// the name, which becomes immutable the moment the store exists.
	mapMu sync.Mutex
	name  string
}

func newRegion(id uint64, queue *reclaim.Queue, provider store.Provider) *Region {
	r := &Region{
		id:       id,
		queue:    queue,
		provider: provider,
		unpinned: rangeset.New(queue.Arena(), queue, id),
	}
	r.prot.Store(ProtMask)
	return r
}

func (r *Region) ID() uint64 { return r.id }

// SetSize fixes the region size. It succeeds exactly once.
func (r *Region) SetSize(bytes uint64) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if bytes == 0 {
		return page.ErrInvalidRange
	}
	if !r.size.CompareAndSwap(0, bytes) {
		return ErrAlreadySized
	}
	return nil
}

func (r *Region) Size() uint64 { return r.size.Load() }

// SetProtMask narrows the allowed protection bits. Widening is rejected.
func (r *Region) SetProtMask(mask uint32) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if mask&^ProtMask != 0 {
		return ErrPermissionDenied
	}
	for {
		cur := r.prot.Load()
		if cur&mask != mask {
			return ErrPermissionDenied
		}
		if r.prot.CompareAndSwap(cur, mask) {
			return nil
		}
	}
}

func (r *Region) ProtMask() uint32 { return r.prot.Load() }

// SetName names the region. The name freezes once the backing store exists.
func (r *Region) SetName(name string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if len(name) >= NameLen {
		return ErrNameTooLong
	}

	r.mapMu.Lock()
	defer r.mapMu.Unlock()

	if r.store.Load() != nil {
		return ErrNameFixed
	}
	r.name = name
	return nil
}

func (r *Region) Name() string {
	r.mapMu.Lock()
	defer r.mapMu.Unlock()

	if r.name == "" {
		return DefaultName
	}
	return r.name
}

// Map creates the backing store on first use and returns it. The store is
// created at most once for the region's lifetime, at the page-aligned size.
func (r *Region) Map() (store.Store, error) {
	if box := r.store.Load(); box != nil {
		return box.Store, nil
	}
	if r.closed.Load() {
		return nil, ErrClosed
	}

	size := r.size.Load()
	if size == 0 {
		return nil, ErrSizeNotSet
	}

	r.mapMu.Lock()
	defer r.mapMu.Unlock()

	if box := r.store.Load(); box != nil {
		return box.Store, nil
	}
	// Close releases the store under this mutex; a mapping that lost the race
	// to it must not materialize a store nobody will ever release.
	if r.closed.Load() {
		return nil, ErrClosed
	}

	name := r.name
	if name == "" {
		name = DefaultName
	}
	s, err := r.provider.New(name, int64(page.Align(size)))
	if err != nil {
		return nil, err
	}
	r.store.Store(&storeBox{s})
	return s, nil
}

// Store returns the backing store if it has been created.
func (r *Region) Store() (store.Store, bool) {
	if box := r.store.Load(); box != nil {
		return box.Store, true
	}
	return nil, false
}

// Pin marks [offset, offset+length) as must-retain and reports whether any
// page of it was purged while unpinned. A zero length means "to the end of
// the region".
func (r *Region) Pin(offset, length uint64) (wasPurged bool, err error) {
	pgStart, pgEnd, err := r.pageSpan(offset, length)
	if err != nil {
		return false, err
	}

	r.queue.Lock()
	defer r.queue.Unlock()
	// pageSpan reads closed lock-free; Close may have drained the set between
	// that check and the guard. A mutation slipping in after Clear would pin
	// its interval in the queue forever.
	if r.closed.Load() {
		return false, ErrClosed
	}
	return r.unpinned.Pin(pgStart, pgEnd)
}

// Unpin marks [offset, offset+length) as reclaimable.
func (r *Region) Unpin(offset, length uint64) error {
	pgStart, pgEnd, err := r.pageSpan(offset, length)
	if err != nil {
		return err
	}

	r.queue.Lock()
	defer r.queue.Unlock()
	if r.closed.Load() {
		return ErrClosed
	}
	return r.unpinned.Unpin(pgStart, pgEnd)
}

// PinStatus reports true if any page of the range is unpinned.
func (r *Region) PinStatus(offset, length uint64) (unpinned bool, err error) {
	pgStart, pgEnd, err := r.pageSpan(offset, length)
	if err != nil {
		return false, err
	}

	r.queue.Lock()
	defer r.queue.Unlock()
	if r.closed.Load() {
		return false, ErrClosed
	}
	return r.unpinned.Unpinned(pgStart, pgEnd), nil
}

// RangeLen returns the number of unpinned intervals.
func (r *Region) RangeLen() int {
	r.queue.Lock()
	defer r.queue.Unlock()
	return r.unpinned.Len()
}

// Ranges visits the unpinned intervals in ascending page order.
func (r *Region) Ranges(fn func(pgStart, pgEnd uint64, purged bool)) {
	r.queue.Lock()
	defer r.queue.Unlock()
	r.unpinned.Each(fn)
}

// Close removes every interval from the set and the reclaim queue and
// releases the backing store. Mappings do not extend the region's lifetime.
func (r *Region) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	r.queue.Lock()
	r.unpinned.Clear()
	r.queue.Unlock()

	// mapMu orders this against an in-flight Map: either Map already stored
	// the box and it is released here, or Map re-checks closed and creates
	// nothing.
	r.mapMu.Lock()
	defer r.mapMu.Unlock()

	if s, ok := r.Store(); ok {
		return s.Close()
	}
	return nil
}

// evictRange drops backing content of the page span. Called by the registry
// on behalf of the purge controller, outside the global guard.
func (r *Region) evictRange(pgStart, pgEnd uint64) (int64, error) {
	s, ok := r.Store()
	if !ok {
		return 0, store.ErrUnavailable
	}
	off := int64(pgStart) * page.Size
	n := int64(pgEnd-pgStart+1) * page.Size
	return s.Drop(off, n)
}

// pageSpan validates a pin/unpin/status byte range against the region state.
// Pinning starts only once the backing store exists; the original driver
// rejects pin traffic on an unmapped region.
func (r *Region) pageSpan(offset, length uint64) (pgStart, pgEnd uint64, err error) {
	if r.closed.Load() {
		return 0, 0, ErrClosed
	}
	size := r.size.Load()
	if size == 0 {
		return 0, 0, ErrSizeNotSet
	}
	if r.store.Load() == nil {
		return 0, 0, store.ErrUnavailable
	}
	return page.Span(offset, length, size)
}
