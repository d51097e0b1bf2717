package game

import (
	"sync/atomic"
	"time"
)

// Clock supplies the millisecond timestamps carried by snapshots, inputs and
// lasers.
type Clock interface {
	NowMillis() uint64
}

// SystemClock reads the wall clock as Unix milliseconds.
type SystemClock struct{}

func (SystemClock) NowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// ManualClock only moves when told to.
type ManualClock struct {
	ms atomic.Uint64
}

func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.ms.Store(start)
	return c
}

func (c *ManualClock) NowMillis() uint64 { return c.ms.Load() }

func (c *ManualClock) Advance(d time.Duration) {
	c.ms.Add(uint64(d.Milliseconds()))
}
