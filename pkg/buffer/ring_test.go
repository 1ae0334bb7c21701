package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_Basic(t *testing.T) {
	r := NewRing(8)

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Recent())

	r.Push(Record{UnixNano: 1, Reclaimed: 42})

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []Record{{UnixNano: 1, Reclaimed: 42}}, r.Recent())
}

func TestRing_OverwritesOldest(t *testing.T) {
	r := NewRing(4)

	for i := int64(1); i <= 6; i++ {
		r.Push(Record{UnixNano: i, Reclaimed: i * 10})
	}

	recent := r.Recent()
	assert.Len(t, recent, 4)
	assert.Equal(t, int64(3), recent[0].UnixNano)
	assert.Equal(t, int64(6), recent[3].UnixNano)
	assert.Equal(t, 4, r.Len())
}

func TestRing_RoundsSizeUp(t *testing.T) {
	r := NewRing(5)

	for i := int64(0); i < 8; i++ {
		r.Push(Record{UnixNano: i})
	}
	assert.Equal(t, 8, r.Len())
}

func TestRing_ConcurrentPushes(t *testing.T) {
	r := NewRing(64)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Push(Record{Reclaimed: int64(i)})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 64, r.Len())
	assert.Len(t, r.Recent(), 64)
}
