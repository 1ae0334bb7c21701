package reclaim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Borislavv/purgeable-shm/pkg/page"
	"github.com/Borislavv/purgeable-shm/pkg/rangeset"
)

type evictFunc func(regionID, pgStart, pgEnd uint64) (int64, error)

func (f evictFunc) Evict(regionID, pgStart, pgEnd uint64) (int64, error) {
	return f(regionID, pgStart, pgEnd)
}

func bytesEvictor() evictFunc {
	return func(_, pgStart, pgEnd uint64) (int64, error) {
		return int64(pgEnd-pgStart+1) * page.Size, nil
	}
}

func TestPurgeAll_MarksEverythingOnce(t *testing.T) {
	arena := rangeset.NewArena(0)
	q := NewQueue(arena)
	s1 := rangeset.New(arena, q, 1)
	s2 := rangeset.New(arena, q, 2)

	require.NoError(t, s1.Unpin(0, 3))
	require.NoError(t, s2.Unpin(8, 15))

	p := NewPurger(q, bytesEvictor())

	assert.Equal(t, int64(12*page.Size), p.PurgeAll())

	// Intervals stay queued and keep their spans, only the tag flips, so a
	// second pass finds nothing to reclaim.
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, int64(0), p.PurgeAll())
}

func TestPurgeAll_SkipsFailedEvictions(t *testing.T) {
	arena := rangeset.NewArena(0)
	q := NewQueue(arena)
	s := rangeset.New(arena, q, 1)

	require.NoError(t, s.Unpin(0, 3))
	require.NoError(t, s.Unpin(8, 11))

	fail := true
	p := NewPurger(q, evictFunc(func(_, pgStart, pgEnd uint64) (int64, error) {
		if fail && pgStart == 0 {
			return 0, errors.New("backing store busy")
		}
		return int64(pgEnd-pgStart+1) * page.Size, nil
	}))

	assert.Equal(t, int64(4*page.Size), p.PurgeAll())

	// The failed interval was left not-purged and is picked up next pass.
	fail = false
	assert.Equal(t, int64(4*page.Size), p.PurgeAll())
}

func TestPurgeAll_PinDuringEvictionWins(t *testing.T) {
	arena := rangeset.NewArena(0)
	q := NewQueue(arena)
	s := rangeset.New(arena, q, 1)

	require.NoError(t, s.Unpin(0, 9))

	p := NewPurger(q, evictFunc(func(_, pgStart, pgEnd uint64) (int64, error) {
		// Re-pin part of the interval while it is being evicted, the same
		// window a concurrent client would hit.
		q.Lock()
		_, err := s.Pin(0, 3)
		q.Unlock()
		require.NoError(t, err)
		return int64(pgEnd-pgStart+1) * page.Size, nil
	}))

	// The span changed under the purger, so the result is discarded and the
	// surviving interval stays not-purged.
	assert.Equal(t, int64(0), p.PurgeAll())

	refs := q.Refs()
	require.Len(t, refs, 1)
	assert.False(t, arena.Purged(refs[0].H))
}

func TestPurgeAll_ReplacedIntervalDiscarded(t *testing.T) {
	arena := rangeset.NewArena(0)
	q := NewQueue(arena)
	s := rangeset.New(arena, q, 1)

	require.NoError(t, s.Unpin(0, 3))

	p := NewPurger(q, evictFunc(func(_, pgStart, pgEnd uint64) (int64, error) {
		// Pin everything away and unpin a new interval into the same slots.
		q.Lock()
		defer q.Unlock()
		if _, err := s.Pin(0, 3); err != nil {
			return 0, err
		}
		if err := s.Unpin(0, 3); err != nil {
			return 0, err
		}
		return int64(pgEnd-pgStart+1) * page.Size, nil
	}))

	// The snapshot's generation no longer matches the reused slot.
	assert.Equal(t, int64(0), p.PurgeAll())

	refs := q.Refs()
	require.Len(t, refs, 1)
	assert.False(t, arena.Purged(refs[0].H))
}
