package util

import (
	"context"
	"sync/atomic"
	"time"
)

// ManualBlocks is a hand-advanced block counter for tests and for
// deployments where an external feed drives the height.
type ManualBlocks struct {
	height atomic.Uint64
}

func NewManualBlocks(start uint64) *ManualBlocks {
	b := &ManualBlocks{}
	b.height.Store(start)
	return b
}

func (b *ManualBlocks) Height() uint64 { return b.height.Load() }

// Advance moves the height forward by n blocks.
func (b *ManualBlocks) Advance(n uint64) { b.height.Add(n) }

// SetHeight jumps directly to a height. Heights never move backward; a
// lower value is ignored.
func (b *ManualBlocks) SetHeight(h uint64) {
	for {
		cur := b.height.Load()
		if h <= cur {
			return
		}
		if b.height.CompareAndSwap(cur, h) {
			return
		}
	}
}

// TickingBlocks advances the height on a fixed wall-clock interval,
// simulating block production for standalone deployments.
type TickingBlocks struct {
	ManualBlocks
	interval time.Duration
}

func NewTickingBlocks(start uint64, interval time.Duration) *TickingBlocks {
	t := &TickingBlocks{interval: interval}
	t.height.Store(start)
	return t
}

// Run ticks until the context is cancelled.
func (t *TickingBlocks) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Advance(1)
		}
	}
}
