//go:build unix

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnon_DropGivesPagesBackAsZeros(t *testing.T) {
	s, err := NewAnonProvider().New("test", 2*4096)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	mem := s.Bytes()
	mem[0] = 0xAB
	mem[4096] = 0xCD

	n, err := s.Drop(0, 4096)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), n)

	assert.Equal(t, byte(0), mem[0])
	assert.Equal(t, byte(0xCD), mem[4096], "untouched page keeps its content")
}

func TestAnon_CloseIsIdempotent(t *testing.T) {
	s, err := NewAnonProvider().New("test", 4096)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Drop(0, 4096)
	assert.ErrorIs(t, err, ErrUnavailable)
}
