package region_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Borislavv/purgeable-shm/pkg/mock"
	"github.com/Borislavv/purgeable-shm/pkg/page"
	"github.com/Borislavv/purgeable-shm/pkg/rangeset"
	"github.com/Borislavv/purgeable-shm/pkg/reclaim"
	"github.com/Borislavv/purgeable-shm/pkg/region"
	"github.com/Borislavv/purgeable-shm/pkg/store"
)

func BenchmarkPinUnpinChurn(b *testing.B) {
	q := reclaim.NewQueue(rangeset.NewArena(0))
	g := region.NewRegistry(q, store.NewHeapProvider())

	regions, err := mock.GenRegions(g, 4, 1024*page.Size)
	require.NoError(b, err)
	ops := mock.GenOps(42, 1024*page.Size, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		require.NoError(b, mock.Apply(regions[i%len(regions)], ops))
	}
}

func BenchmarkPurgeAll(b *testing.B) {
	q := reclaim.NewQueue(rangeset.NewArena(0))
	g := region.NewRegistry(q, store.NewHeapProvider())

	regions, err := mock.GenRegions(g, 16, 256*page.Size)
	require.NoError(b, err)

	purger := reclaim.NewPurger(q, g)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		for _, r := range regions {
			_, err := r.Pin(0, 0)
			require.NoError(b, err)
			require.NoError(b, r.Unpin(0, 0))
		}
		b.StartTimer()
		purger.PurgeAll()
	}
}
