// Package diagnostics implements the periodic, coalescing diagnostics
// flush (Component F): a ~250ms timer drains the pending-document set the
// state actor has accumulated, computing and publishing each document's
// diagnostics exactly once per tick regardless of how many edits marked it.
package diagnostics

import (
	"context"
	"time"

	"github.com/csharp-ls/csharp-ls-go/state"
)

// Interval is the steady-state tick period; FirstDelay is the delay before
// the first tick after Start, giving initialize's solution load a head
// start before diagnostics begin flowing.
const (
	Interval   = 250 * time.Millisecond
	FirstDelay = 1 * time.Second
)

// Coalescer drives the actor's TimerTick event on a fixed schedule. It
// holds no diagnostic state itself — pendingDiagnostics lives in the
// actor — so Coalescer is just a clock.
type Coalescer struct {
	actor *state.Actor
}

// New constructs a Coalescer over actor. Call Start to begin ticking.
func New(actor *state.Actor) *Coalescer {
	return &Coalescer{actor: actor}
}

// Start runs the tick loop until ctx is done. cmd/csharp-ls launches it in
// its own goroutine at process start, before initialize; ticks that find
// nothing pending do nothing.
func (c *Coalescer) Start(ctx context.Context) {
	timer := time.NewTimer(FirstDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			c.actor.Tick(ctx)
			timer.Reset(Interval)
		}
	}
}
