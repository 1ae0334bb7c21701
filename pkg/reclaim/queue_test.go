package reclaim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Borislavv/purgeable-shm/pkg/page"
	"github.com/Borislavv/purgeable-shm/pkg/rangeset"
)

func TestQueue_TracksBytesAcrossRegions(t *testing.T) {
	arena := rangeset.NewArena(0)
	q := NewQueue(arena)
	s1 := rangeset.New(arena, q, 1)
	s2 := rangeset.New(arena, q, 2)

	require.NoError(t, s1.Unpin(0, 3))
	require.NoError(t, s2.Unpin(0, 7))
	assert.Equal(t, int64(12*page.Size), q.Bytes())
	assert.Equal(t, 2, q.Len())

	_, err := s2.Pin(0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(8*page.Size), q.Bytes())

	s1.Clear()
	s2.Clear()
	assert.Equal(t, int64(0), q.Bytes())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_RefsOldestFirst(t *testing.T) {
	arena := rangeset.NewArena(0)
	q := NewQueue(arena)
	s1 := rangeset.New(arena, q, 1)
	s2 := rangeset.New(arena, q, 2)

	require.NoError(t, s1.Unpin(0, 3))
	require.NoError(t, s2.Unpin(0, 3))
	require.NoError(t, s1.Unpin(10, 13))

	refs := q.Refs()
	require.Len(t, refs, 3)
	assert.Equal(t, uint64(1), arena.Owner(refs[0].H))
	assert.Equal(t, uint64(2), arena.Owner(refs[1].H))
	assert.Equal(t, uint64(1), arena.Owner(refs[2].H))
}

func TestQueue_RepeatUnpinMovesToTail(t *testing.T) {
	arena := rangeset.NewArena(0)
	q := NewQueue(arena)
	s1 := rangeset.New(arena, q, 1)
	s2 := rangeset.New(arena, q, 2)

	require.NoError(t, s1.Unpin(0, 3))
	require.NoError(t, s2.Unpin(0, 3))

	// Fully covered by the existing interval: no structural change, but the
	// interval becomes the most recent and so the last purge candidate.
	require.NoError(t, s1.Unpin(1, 2))

	refs := q.Refs()
	require.Len(t, refs, 2)
	assert.Equal(t, uint64(2), arena.Owner(refs[0].H))
	assert.Equal(t, uint64(1), arena.Owner(refs[1].H))
	assert.Equal(t, int64(8*page.Size), q.Bytes())
}

func TestQueue_MergeReplacesWithSingleTailEntry(t *testing.T) {
	arena := rangeset.NewArena(0)
	q := NewQueue(arena)
	s1 := rangeset.New(arena, q, 1)
	s2 := rangeset.New(arena, q, 2)

	require.NoError(t, s1.Unpin(0, 3))
	require.NoError(t, s1.Unpin(8, 11))
	require.NoError(t, s2.Unpin(0, 3))
	require.NoError(t, s1.Unpin(2, 9))

	refs := q.Refs()
	require.Len(t, refs, 2)
	assert.Equal(t, uint64(2), arena.Owner(refs[0].H))
	assert.Equal(t, uint64(1), arena.Owner(refs[1].H))

	start, end := arena.Span(refs[1].H)
	assert.Equal(t, uint64(0), start)
	assert.Equal(t, uint64(11), end)
	assert.Equal(t, int64(16*page.Size), q.Bytes())
}
