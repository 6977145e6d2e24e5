package collector

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRunsImmediatelyAndStops(t *testing.T) {
	var ticks atomic.Int32
	c := newCollector("test", time.Hour, func(ctx context.Context) {
		ticks.Add(1)
	})

	c.Start()
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, 10*time.Millisecond)

	c.Stop()
	assert.Equal(t, int32(1), ticks.Load())

	// Stop again is a no-op.
	c.Stop()
}

func TestCollectorSkipsOverlappingTick(t *testing.T) {
	var ticks atomic.Int32
	release := make(chan struct{})
	c := newCollector("test", 20*time.Millisecond, func(ctx context.Context) {
		ticks.Add(1)
		<-release
	})

	c.Start()
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Several intervals elapse while the first tick is stuck; none of them
	// may start a second one.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), ticks.Load())

	close(release)
	c.Stop()
}

func TestCollectorSurvivesPanic(t *testing.T) {
	var ticks atomic.Int32
	c := newCollector("test", 10*time.Millisecond, func(ctx context.Context) {
		if ticks.Add(1) == 1 {
			panic("boom")
		}
	})

	c.Start()
	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)
	c.Stop()
}

func TestCollectorStartTwice(t *testing.T) {
	var ticks atomic.Int32
	c := newCollector("test", time.Hour, func(ctx context.Context) {
		ticks.Add(1)
	})

	c.Start()
	c.Start()
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, 10*time.Millisecond)
	c.Stop()
	assert.Equal(t, int32(1), ticks.Load())
}

func TestNewTargetLimiter(t *testing.T) {
	sem := NewTargetLimiter(2)

	ctx := context.Background()
	require.NoError(t, sem.Acquire(ctx, 1))
	require.NoError(t, sem.Acquire(ctx, 1))
	assert.False(t, sem.TryAcquire(1))
	sem.Release(1)
	assert.True(t, sem.TryAcquire(1))

	// A non-positive budget still admits one at a time.
	sem = NewTargetLimiter(0)
	assert.True(t, sem.TryAcquire(1))
	assert.False(t, sem.TryAcquire(1))
}
