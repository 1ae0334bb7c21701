//go:build !unix

package store

// NewDefaultProvider returns the platform-preferred provider.
func NewDefaultProvider() Provider { return HeapProvider{} }
