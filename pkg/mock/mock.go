package mock

import (
	"context"
	"math/rand"
	"strconv"

	"github.com/Borislavv/purgeable-shm/pkg/page"
	"github.com/Borislavv/purgeable-shm/pkg/region"
)

// GenRegions opens num regions of size bytes each, sized, named and mapped,
// for use in tests and benchmarks.
func GenRegions(g *region.Registry, num int, size uint64) ([]*region.Region, error) {
	list := make([]*region.Region, 0, num)
	for i := 0; i < num; i++ {
		r := g.Open()
		if err := g.SetName(r.ID(), "bench/region_"+strconv.Itoa(i)); err != nil {
			return nil, err
		}
		if err := r.SetSize(size); err != nil {
			return nil, err
		}
		if _, err := r.Map(); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, nil
}

// Op is one pin or unpin request against a region.
type Op struct {
	Pin    bool
	Offset uint64
	Length uint64
}

// GenOps produces num page-aligned pin/unpin operations within a region of
// size bytes, deterministic per seed. Roughly half pin, half unpin, so a
// replay keeps the interval set churning instead of converging.
func GenOps(seed int64, size uint64, num int) []Op {
	rnd := rand.New(rand.NewSource(seed))
	pages := page.Align(size) / page.Size

	list := make([]Op, 0, num)
	for i := 0; i < num; i++ {
		start := rnd.Uint64() % pages
		length := rnd.Uint64()%(pages-start) + 1
		list = append(list, Op{
			Pin:    rnd.Intn(2) == 0,
			Offset: start * page.Size,
			Length: length * page.Size,
		})
	}
	return list
}

// StreamOps emits the same workload as GenOps over a channel until num
// operations are sent or the context is canceled.
func StreamOps(ctx context.Context, seed int64, size uint64, num int) <-chan Op {
	out := make(chan Op)

	go func() {
		defer close(out)
		for _, op := range GenOps(seed, size, num) {
			select {
			case <-ctx.Done():
				return
			case out <- op:
			}
		}
	}()

	return out
}

// Apply replays ops against a region. Invalid ranges cannot occur by
// construction, so any error is the region's.
func Apply(r *region.Region, ops []Op) error {
	for _, op := range ops {
		if op.Pin {
			if _, err := r.Pin(op.Offset, op.Length); err != nil {
				return err
			}
		} else if err := r.Unpin(op.Offset, op.Length); err != nil {
			return err
		}
	}
	return nil
}
