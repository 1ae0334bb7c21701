//go:build unix

package store

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Anon is an anonymous-mmap backed store. Dropping a range hands the pages
// back to the kernel with madvise(MADV_DONTNEED); anonymous pages re-read as
// zeros after that, which is exactly the purge contract.
type Anon struct {
	mu   sync.Mutex
	name string
	mem  []byte
}

type AnonProvider struct{}

func NewAnonProvider() AnonProvider { return AnonProvider{} }

func (AnonProvider) New(name string, size int64) (Store, error) {
	mem, err := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("store: mmap %d bytes for %q: %w", size, name, err)
	}
	return &Anon{name: name, mem: mem}, nil
}

func (s *Anon) Len() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.mem))
}

func (s *Anon) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem
}

func (s *Anon) Drop(off, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mem == nil {
		return 0, ErrUnavailable
	}
	if off < 0 || n <= 0 || off+n > int64(len(s.mem)) {
		return 0, fmt.Errorf("store: drop [%d, %d) out of bounds of %q: %w",
			off, off+n, s.name, ErrUnavailable)
	}
	if err := unix.Madvise(s.mem[off:off+n], unix.MADV_DONTNEED); err != nil {
		return 0, fmt.Errorf("store: madvise %q: %w", s.name, err)
	}
	return n, nil
}

func (s *Anon) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mem == nil {
		return nil
	}
	mem := s.mem
	s.mem = nil
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("store: munmap %q: %w", s.name, err)
	}
	return nil
}

// NewDefaultProvider returns the platform-preferred provider.
func NewDefaultProvider() Provider { return AnonProvider{} }
