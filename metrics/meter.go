package metrics

import (
	"sync/atomic"
	"time"
)

// Meter counts events and reports their mean rate since creation.
type Meter interface {
	Count() int64
	Mark(int64)
	RateMean() float64
}

// NewMeter constructs a new StandardMeter.
func NewMeter() Meter {
	if !Enabled {
		return NilMeter{}
	}
	return &StandardMeter{start: time.Now()}
}

// NewRegisteredMeter constructs and registers a new StandardMeter.
func NewRegisteredMeter(name string, r Registry) Meter {
	c := NewMeter()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// NilMeter is a no-op Meter.
type NilMeter struct{}

func (NilMeter) Count() int64      { return 0 }
func (NilMeter) Mark(n int64)      {}
func (NilMeter) RateMean() float64 { return 0 }

// StandardMeter is the standard implementation of a Meter.
type StandardMeter struct {
	count atomic.Int64
	start time.Time
}

func (m *StandardMeter) Count() int64 { return m.count.Load() }
func (m *StandardMeter) Mark(n int64) { m.count.Add(n) }

func (m *StandardMeter) RateMean() float64 {
	elapsed := time.Since(m.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.count.Load()) / elapsed
}
