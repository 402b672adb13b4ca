// Package gate implements the Concurrency Gate: a global, process-wide
// bounded semaphore admitting at most 3 one-shot provider executions at
// a time, FIFO ordered, cancellable while queued.
package gate

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/multiagents/multiagents/internal/metrics"
)

// Capacity is the fixed global concurrency cap (spec §4.5).
const Capacity = 3

// Gate is a process-wide, bounded admission control. The zero value is
// not usable; construct with New.
type Gate struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	queued   atomic.Int64
}

// New constructs a Gate with the fixed capacity of 3.
func New() *Gate {
	return &Gate{sem: semaphore.NewWeighted(Capacity)}
}

// Permit represents one acquired slot; call Release exactly once.
type Permit struct {
	g *Gate
}

// Release returns the permit's slot to the gate.
func (p Permit) Release() {
	p.g.inFlight.Add(-1)
	metrics.GateInFlight.Set(float64(p.g.InFlight()))
	p.g.sem.Release(1)
}

// Acquire blocks until a slot is available or ctx is cancelled. On
// cancellation while queued, the underlying weighted semaphore removes
// the waiter from its internal queue with no side effects; InFlight and
// QueueDepth are adjusted to match.
func (g *Gate) Acquire(ctx context.Context) (Permit, error) {
	start := time.Now()
	g.queued.Add(1)
	metrics.GateQueueDepth.Set(float64(g.QueueDepth()))
	err := g.sem.Acquire(ctx, 1)
	g.queued.Add(-1)
	metrics.GateQueueDepth.Set(float64(g.QueueDepth()))
	if err != nil {
		return Permit{}, err
	}
	g.inFlight.Add(1)
	metrics.GateInFlight.Set(float64(g.InFlight()))
	metrics.GateWaitSeconds.Observe(time.Since(start).Seconds())
	return Permit{g: g}, nil
}

// InFlight reports how many permits are currently held.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// QueueDepth reports how many callers are currently blocked in Acquire.
func (g *Gate) QueueDepth() int {
	return int(g.queued.Load())
}
