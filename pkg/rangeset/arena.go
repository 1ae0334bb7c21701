package rangeset

import (
	"errors"

	"github.com/Borislavv/purgeable-shm/pkg/page"
)

var ErrOutOfMemory = errors.New("rangeset: interval arena exhausted")

// Handle is a stable index of an interval inside the arena. It stays valid
// across appends and frees of other intervals, so the reclaim queue can hold
// it instead of a raw pointer.
type Handle int32

// None marks an empty recency link.
const None Handle = -1

// Ref pairs a handle with the generation it was allocated at. A Ref taken
// before the global lock is dropped can be re-validated after reacquiring it:
// if the slot was freed and reused in between, the generation won't match.
type Ref struct {
	H   Handle
	Gen uint32
}

type node struct {
	start, end uint64 // inclusive page indexes
	owner      uint64 // region id, resolved by the purger to a backing store
	gen        uint32
	purged     bool
	used       bool
	prev, next Handle // recency links, owned by the reclaim queue
}

// Arena is the process-wide interval storage. All access happens under the
// global reclaim guard; the arena itself carries no lock.
type Arena struct {
	nodes []node
	free  []Handle
	limit int
	live  int
}

// NewArena creates an arena bounded to at most limit live intervals.
// A limit of 0 means unbounded.
func NewArena(limit int) *Arena {
	return &Arena{limit: limit}
}

func (a *Arena) alloc(owner, start, end uint64, purged bool) (Handle, error) {
	if a.limit > 0 && a.live >= a.limit {
		return None, ErrOutOfMemory
	}

	var h Handle
	if n := len(a.free); n > 0 {
		h = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.nodes = append(a.nodes, node{})
		h = Handle(len(a.nodes) - 1)
	}

	nd := &a.nodes[h]
	nd.gen++
	nd.start, nd.end = start, end
	nd.owner = owner
	nd.purged = purged
	nd.used = true
	nd.prev, nd.next = None, None

	a.live++
	return h, nil
}

func (a *Arena) release(h Handle) {
	nd := &a.nodes[h]
	nd.used = false
	nd.prev, nd.next = None, None
	a.free = append(a.free, h)
	a.live--
}

// Live reports how many intervals are currently allocated.
func (a *Arena) Live() int { return a.live }

// Valid reports whether ref still addresses the interval it was taken from.
func (a *Arena) Valid(ref Ref) bool {
	if ref.H < 0 || int(ref.H) >= len(a.nodes) {
		return false
	}
	nd := &a.nodes[ref.H]
	return nd.used && nd.gen == ref.Gen
}

// RefOf returns a generation-stamped reference to h.
func (a *Arena) RefOf(h Handle) Ref { return Ref{H: h, Gen: a.nodes[h].gen} }

// Span returns the inclusive page span of h.
func (a *Arena) Span(h Handle) (start, end uint64) {
	nd := &a.nodes[h]
	return nd.start, nd.end
}

func (a *Arena) setSpan(h Handle, start, end uint64) {
	nd := &a.nodes[h]
	nd.start, nd.end = start, end
}

// Owner returns the region id the interval belongs to.
func (a *Arena) Owner(h Handle) uint64 { return a.nodes[h].owner }

// Purged returns the interval's purge tag.
func (a *Arena) Purged(h Handle) bool { return a.nodes[h].purged }

// MarkPurged flips the interval's tag to purged. The only way back to
// not-purged is a fresh Unpin that replaces the interval.
func (a *Arena) MarkPurged(h Handle) { a.nodes[h].purged = true }

// Bytes returns the interval size in bytes.
func (a *Arena) Bytes(h Handle) int64 {
	nd := &a.nodes[h]
	return int64(nd.end-nd.start+1) * page.Size
}

// Prev, Next, SetPrev and SetNext expose the recency links the reclaim queue
// threads through arena slots.
func (a *Arena) Prev(h Handle) Handle   { return a.nodes[h].prev }
func (a *Arena) Next(h Handle) Handle   { return a.nodes[h].next }
func (a *Arena) SetPrev(h, prev Handle) { a.nodes[h].prev = prev }
func (a *Arena) SetNext(h, next Handle) { a.nodes[h].next = next }
