package rangeset

import "sort"

// Recency is the reclaim queue side of every structural change. Both the set
// and the queue mutate under the same global guard, so a Set call never
// returns with the queue out of sync.
type Recency interface {
	Pushed(h Handle)               // h appended at the queue tail (fresh recency)
	Removed(h Handle)              // h unlinked from the queue
	Resized(h Handle, delta int64) // h shrunk in place; delta is negative
	Touched(h Handle)              // h moved to the queue tail, size unchanged
}

// Set is one region's sorted, disjoint collection of unpinned page intervals.
// Absence of a page from the set means the page is pinned. All methods must
// be called with the global reclaim guard held.
type Set struct {
	arena *Arena
	queue Recency
	owner uint64
	hs    []Handle // ascending by start page, pairwise disjoint
}

// New creates an empty set for the region identified by owner.
func New(arena *Arena, queue Recency, owner uint64) *Set {
	return &Set{arena: arena, queue: queue, owner: owner}
}

// searchStart returns the index of the first interval whose end page reaches
// pgStart. Intervals are disjoint and sorted, so both starts and ends ascend.
func (s *Set) searchStart(pgStart uint64) int {
	return sort.Search(len(s.hs), func(i int) bool {
		_, end := s.arena.Span(s.hs[i])
		return end >= pgStart
	})
}

// Unpin makes [pgStart, pgEnd] reclaimable. Overlapping intervals are
// absorbed: their bounds extend the request, their purge tags are OR'd into
// the replacement, and the union interval lands at the queue tail. Adjacent
// but non-overlapping neighbors are left alone. On ErrOutOfMemory the set is
// exactly as it was.
func (s *Set) Unpin(pgStart, pgEnd uint64) error {
	lo := s.searchStart(pgStart)

	hi := lo
	purged := false
	start, end := pgStart, pgEnd
	for hi < len(s.hs) {
		h := s.hs[hi]
		st, en := s.arena.Span(h)
		if st > pgEnd {
			break
		}
		if st < start {
			start = st
		}
		if en > end {
			end = en
		}
		purged = purged || s.arena.Purged(h)
		hi++
	}

	// Already fully unpinned by a single interval: keep the structure and the
	// tag, only refresh recency.
	if hi-lo == 1 {
		st, en := s.arena.Span(s.hs[lo])
		if st <= pgStart && en >= pgEnd {
			s.queue.Touched(s.hs[lo])
			return nil
		}
	}

	// Allocate the union interval before touching anything so an exhausted
	// arena cannot leave a half-merged set behind.
	nh, err := s.arena.alloc(s.owner, start, end, purged)
	if err != nil {
		return err
	}

	for i := lo; i < hi; i++ {
		s.queue.Removed(s.hs[i])
		s.arena.release(s.hs[i])
	}

	s.hs = append(s.hs[:lo], append([]Handle{nh}, s.hs[hi:]...)...)
	s.queue.Pushed(nh)
	return nil
}

// Pin removes [pgStart, pgEnd] from the reclaimable set and reports whether
// any overlapping interval had been purged. Four cases per overlap: the
// request subsumes the interval (delete), overlaps its front (trim), overlaps
// its back (trim), or punches a hole (split). A split allocates its second
// half up front, so failure mutates nothing.
func (s *Set) Pin(pgStart, pgEnd uint64) (wasPurged bool, err error) {
	lo := s.searchStart(pgStart)

	// A hole punch is the only overlap that allocates; it is also terminal
	// (the interval strictly contains the request, nothing past it can
	// overlap), so at most one spare is ever needed.
	spare := None
	for i := lo; i < len(s.hs); i++ {
		st, en := s.arena.Span(s.hs[i])
		if st > pgEnd {
			break
		}
		if st < pgStart && en > pgEnd {
			spare, err = s.arena.alloc(s.owner, pgEnd+1, en, s.arena.Purged(s.hs[i]))
			if err != nil {
				return false, err
			}
		}
	}

	i := lo
	for i < len(s.hs) {
		h := s.hs[i]
		st, en := s.arena.Span(h)
		if st > pgEnd {
			break
		}

		wasPurged = wasPurged || s.arena.Purged(h)

		switch {
		case st >= pgStart && en <= pgEnd:
			// Case 1: the request subsumes the interval.
			s.queue.Removed(h)
			s.arena.release(h)
			s.hs = append(s.hs[:i], s.hs[i+1:]...)

		case st >= pgStart:
			// Case 2: overlap at the front of the interval.
			s.resize(h, pgEnd+1, en)
			i++

		case en <= pgEnd:
			// Case 3: overlap at the back of the interval.
			s.resize(h, st, pgStart-1)
			i++

		default:
			// Case 4: the request punches a hole. Shrink the front half in
			// place, link in the pre-allocated back half right after it.
			s.resize(h, st, pgStart-1)
			s.hs = append(s.hs[:i+1], append([]Handle{spare}, s.hs[i+1:]...)...)
			s.queue.Pushed(spare)
			return wasPurged, nil
		}
	}

	return wasPurged, nil
}

// Unpinned reports whether any page of [pgStart, pgEnd] is unpinned.
func (s *Set) Unpinned(pgStart, pgEnd uint64) bool {
	i := s.searchStart(pgStart)
	if i == len(s.hs) {
		return false
	}
	st, _ := s.arena.Span(s.hs[i])
	return st <= pgEnd
}

// Clear removes every interval from the set and the queue. Called when the
// owning region closes.
func (s *Set) Clear() {
	for _, h := range s.hs {
		s.queue.Removed(h)
		s.arena.release(h)
	}
	s.hs = s.hs[:0]
}

// Len returns the number of intervals in the set.
func (s *Set) Len() int { return len(s.hs) }

// Each visits the intervals in ascending order.
func (s *Set) Each(fn func(pgStart, pgEnd uint64, purged bool)) {
	for _, h := range s.hs {
		st, en := s.arena.Span(h)
		fn(st, en, s.arena.Purged(h))
	}
}

func (s *Set) resize(h Handle, start, end uint64) {
	before := s.arena.Bytes(h)
	s.arena.setSpan(h, start, end)
	s.queue.Resized(h, s.arena.Bytes(h)-before)
}
