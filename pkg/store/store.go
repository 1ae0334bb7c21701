// Package store holds the backing byte storage of a region: an opaque,
// page-aligned block whose content can be dropped range-wise under memory
// pressure while the block itself stays alive.
package store

import "errors"

var ErrUnavailable = errors.New("store: backing store unavailable")

// Store is the content side of a region. The interval metadata never lives
// here; the region manager only asks a Store to give page content back.
type Store interface {
	// Len returns the page-aligned byte length of the store.
	Len() int64
	// Bytes exposes the content for the mapping collaborator.
	Bytes() []byte
	// Drop releases the content of [off, off+n), which reads back as zeros
	// afterwards, and returns the number of bytes given back.
	Drop(off, n int64) (int64, error)
	// Close releases the store. Any later Drop fails with ErrUnavailable.
	Close() error
}

// Provider creates stores; regions create theirs lazily on first mapping.
type Provider interface {
	New(name string, size int64) (Store, error)
}
