// Package metrics collects the operator-facing counters spec.md §9 implies
// an implementation should expose (fills, volume, rejected orders) without
// committing to a particular metrics backend, matching the plain atomic
// counters used by the teacher's engine metrics collector.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/holiman/uint256"
)

// Counters accumulates matching-engine activity. The plain integer counters
// are lock-free; the 256-bit volume totals are guarded by volMu since
// uint256.Int has no atomic operations of its own.
type Counters struct {
	ordersPlaced   atomic.Int64
	ordersCanceled atomic.Int64
	fillsExecuted  atomic.Int64
	rejections     atomic.Int64

	volMu      sync.Mutex
	fillVolume *uint256.Int
	costVolume *uint256.Int
}

// New returns a zeroed Counters.
func New() *Counters {
	return &Counters{
		fillVolume: uint256.NewInt(0),
		costVolume: uint256.NewInt(0),
	}
}

// Snapshot is a point-in-time, immutable read of Counters.
type Snapshot struct {
	OrdersPlaced   int64
	OrdersCanceled int64
	FillsExecuted  int64
	Rejections     int64
	FillVolume     *uint256.Int
	CostVolume     *uint256.Int
}

func (c *Counters) RecordOrderPlaced() { c.ordersPlaced.Add(1) }

func (c *Counters) RecordOrderCanceled() { c.ordersCanceled.Add(1) }

func (c *Counters) RecordRejection() { c.rejections.Add(1) }

// RecordFill accumulates one crossing fill's quantity and cost.
func (c *Counters) RecordFill(qty, cost *uint256.Int) {
	c.fillsExecuted.Add(1)
	c.volMu.Lock()
	defer c.volMu.Unlock()
	c.fillVolume = new(uint256.Int).Add(c.fillVolume, qty)
	c.costVolume = new(uint256.Int).Add(c.costVolume, cost)
}

// Snapshot returns a consistent copy of the current counters.
func (c *Counters) Snapshot() Snapshot {
	c.volMu.Lock()
	fv, cv := c.fillVolume.Clone(), c.costVolume.Clone()
	c.volMu.Unlock()
	return Snapshot{
		OrdersPlaced:   c.ordersPlaced.Load(),
		OrdersCanceled: c.ordersCanceled.Load(),
		FillsExecuted:  c.fillsExecuted.Load(),
		Rejections:     c.rejections.Load(),
		FillVolume:     fv,
		CostVolume:     cv,
	}
}
