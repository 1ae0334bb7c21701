package buffer

import "sync"

// Record is one finished purge pass.
type Record struct {
	UnixNano  int64
	Reclaimed int64
}

// Ring keeps the most recent purge passes, overwriting the oldest once full.
type Ring struct {
	mu   sync.Mutex
	buf  []Record
	head uint64 // total pushes
	mask uint64
}

// NewRing creates a ring holding size records. size is rounded up to the next
// power of two.
func NewRing(size int) *Ring {
	cp := 1
	for cp < size {
		cp <<= 1
	}
	return &Ring{buf: make([]Record, cp), mask: uint64(cp - 1)}
}

func (r *Ring) Push(rec Record) {
	r.mu.Lock()
	r.buf[r.head&r.mask] = rec
	r.head++
	r.mu.Unlock()
}

// Recent returns the stored records oldest to newest.
func (r *Ring) Recent() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.head
	if n > uint64(len(r.buf)) {
		n = uint64(len(r.buf))
	}

	out := make([]Record, 0, n)
	for i := r.head - n; i < r.head; i++ {
		out = append(out, r.buf[i&r.mask])
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.head > uint64(len(r.buf)) {
		return len(r.buf)
	}
	return int(r.head)
}
