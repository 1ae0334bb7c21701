package reclaim

import (
	"sync"
	"sync/atomic"

	"github.com/Borislavv/purgeable-shm/pkg/rangeset"
)

// Queue is the process-wide recency list of every unpinned interval across
// all regions, oldest at the head. It also owns the single mutex that
// serializes all rangeset mutations: cross-region ordering lives here, so
// per-region locks would only reintroduce lost-update races between a set and
// the queue.
type Queue struct {
	mu    sync.Mutex
	arena *rangeset.Arena
	head  rangeset.Handle
	tail  rangeset.Handle
	len   int
	bytes atomic.Int64 // sum of member interval sizes, readable off-lock
}

func NewQueue(arena *rangeset.Arena) *Queue {
	return &Queue{arena: arena, head: rangeset.None, tail: rangeset.None}
}

// Lock and Unlock expose the global guard. Every rangeset and queue mutation
// across every region happens inside it.
func (q *Queue) Lock()   { q.mu.Lock() }
func (q *Queue) Unlock() { q.mu.Unlock() }

// Arena returns the interval storage the queue threads its links through.
func (q *Queue) Arena() *rangeset.Arena { return q.arena }

// Bytes returns the aggregate reclaimable byte count.
func (q *Queue) Bytes() int64 { return q.bytes.Load() }

// Len returns the number of queued intervals.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.len
}

// Pushed appends a freshly unpinned interval at the tail (most recent).
func (q *Queue) Pushed(h rangeset.Handle) {
	q.linkTail(h)
	q.len++
	q.bytes.Add(q.arena.Bytes(h))
}

// Removed unlinks an interval that left its rangeset.
func (q *Queue) Removed(h rangeset.Handle) {
	q.unlink(h)
	q.len--
	q.bytes.Add(-q.arena.Bytes(h))
}

// Resized accounts an in-place shrink; the queue position does not change.
func (q *Queue) Resized(_ rangeset.Handle, delta int64) {
	q.bytes.Add(delta)
}

// Touched moves an interval to the tail without changing its size.
func (q *Queue) Touched(h rangeset.Handle) {
	q.unlink(h)
	q.linkTail(h)
}

// Refs snapshots the queue oldest to newest as generation-stamped references.
// It takes the guard itself; the purger validates each ref again per entry.
func (q *Queue) Refs() []rangeset.Ref {
	q.mu.Lock()
	defer q.mu.Unlock()

	refs := make([]rangeset.Ref, 0, q.len)
	for h := q.head; h != rangeset.None; h = q.arena.Next(h) {
		refs = append(refs, q.arena.RefOf(h))
	}
	return refs
}

func (q *Queue) linkTail(h rangeset.Handle) {
	q.arena.SetPrev(h, q.tail)
	q.arena.SetNext(h, rangeset.None)
	if q.tail != rangeset.None {
		q.arena.SetNext(q.tail, h)
	} else {
		q.head = h
	}
	q.tail = h
}

func (q *Queue) unlink(h rangeset.Handle) {
	prev, next := q.arena.Prev(h), q.arena.Next(h)
	if prev != rangeset.None {
		q.arena.SetNext(prev, next)
	} else {
		q.head = next
	}
	if next != rangeset.None {
		q.arena.SetPrev(next, prev)
	} else {
		q.tail = prev
	}
	q.arena.SetPrev(h, rangeset.None)
	q.arena.SetNext(h, rangeset.None)
}
