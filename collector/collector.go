// Package collector owns the scheduled monitoring loops. Each collector has
// its own repeating timer and a busy flag so a tick can never overlap with
// itself; per-target work inside a tick fans out under a semaphore that both
// collectors share, which bounds the number of simultaneous remote
// connections across the whole process.
package collector

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Collector runs a tick function on a fixed interval with Start/Stop
// lifecycle and overlap protection.
type Collector struct {
	name     string
	interval time.Duration
	tick     func(ctx context.Context)

	busy   atomic.Bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func newCollector(name string, interval time.Duration, tick func(ctx context.Context)) *Collector {
	return &Collector{name: name, interval: interval, tick: tick}
}

// Start launches the timer loop. Calling Start twice is a no-op until Stop.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		log.Printf("⏱️  %s collector started (interval: %s)", c.name, c.interval)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		// First cycle runs shortly after startup rather than a full
		// interval later.
		c.runTick(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.runTick(ctx)
			}
		}
	}()
}

func (c *Collector) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !c.busy.CompareAndSwap(false, true) {
		log.Printf("⏭️  %s collector: previous tick still running, skipping", c.name)
		return
	}
	defer c.busy.Store(false)

	defer func() {
		if r := recover(); r != nil {
			// A failed tick must never take the scheduler down.
			log.Printf("❌ %s collector: tick panicked: %v", c.name, r)
		}
	}()

	start := time.Now()
	c.tick(ctx)
	log.Printf("✅ %s collector: tick finished in %s", c.name, time.Since(start).Round(time.Millisecond))
}

// Stop halts the timer and waits for the in-flight tick to wind down.
// Per-target operations are cancelled through the tick context and resolve
// via their own executor timeouts.
func (c *Collector) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
	log.Printf("🛑 %s collector stopped", c.name)
}

// NewTargetLimiter builds the concurrency budget shared between the health
// collector and the security auditor.
func NewTargetLimiter(max int) *semaphore.Weighted {
	if max < 1 {
		max = 1
	}
	return semaphore.NewWeighted(int64(max))
}
