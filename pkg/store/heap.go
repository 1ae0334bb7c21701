package store

import (
	"fmt"
	"sync"
)

// Heap is a plain in-heap store. It backs regions on platforms without
// anonymous mmap and doubles as the test double for the region layer.
type Heap struct {
	mu   sync.Mutex
	name string
	mem  []byte
}

type HeapProvider struct{}

func NewHeapProvider() HeapProvider { return HeapProvider{} }

func (HeapProvider) New(name string, size int64) (Store, error) {
	return &Heap{name: name, mem: make([]byte, size)}, nil
}

func (s *Heap) Len() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.mem))
}

func (s *Heap) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem
}

func (s *Heap) Drop(off, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mem == nil {
		return 0, ErrUnavailable
	}
	if off < 0 || n <= 0 || off+n > int64(len(s.mem)) {
		return 0, fmt.Errorf("store: drop [%d, %d) out of bounds of %q: %w",
			off, off+n, s.name, ErrUnavailable)
	}
	seg := s.mem[off : off+n]
	for i := range seg {
		seg[i] = 0
	}
	return n, nil
}

func (s *Heap) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem = nil
	return nil
}
