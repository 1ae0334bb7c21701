package liveness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeService struct{ alive bool }

func (f *fakeService) IsAlive(ctx context.Context) bool { return f.alive }

func TestProbe_WatchAndToggle(t *testing.T) {
	svc := &fakeService{alive: true}
	probe := NewProbe(context.Background(), 50*time.Millisecond)
	probe.Watch(svc)

	assert.Eventually(t, probe.IsAlive, time.Second, 10*time.Millisecond)

	// change state
	svc.alive = false
	assert.Eventually(t, func() bool { return !probe.IsAlive() }, time.Second, 10*time.Millisecond)
}

func TestProbe_AliveBeforeFirstTick(t *testing.T) {
	// A fresh probe with a healthy service must not report dead while the
	// first tick is still pending.
	probe := NewProbe(context.Background(), time.Hour)
	assert.True(t, probe.IsAlive())

	probe.Watch(&fakeService{alive: true})
	assert.True(t, probe.IsAlive())

	probe.Watch(&fakeService{alive: false})
	assert.False(t, probe.IsAlive())
}

func TestProbe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeService{alive: true}
	probe := NewProbe(ctx, 20*time.Millisecond)
	probe.Watch(svc)
	assert.True(t, probe.IsAlive())

	cancel()
	time.Sleep(50 * time.Millisecond)

	// The watcher goroutine is gone; verdicts no longer refresh.
	svc.alive = false
	time.Sleep(50 * time.Millisecond)
	assert.True(t, probe.IsAlive())
}
