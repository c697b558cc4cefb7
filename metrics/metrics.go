// Package metrics provides the light-weight counters, gauges and meters the
// holding pools and their drivers report through.
package metrics

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/tos-network/holdpool/log"
)

// Enabled is checked by the constructor functions for all of the
// standard metrics. If it is false, the metric returned is a stub.
//
// The flag is set once during startup, before any metric is registered.
var Enabled = false

// enablerFlags is the CLI flag name to use to enable metrics collections.
var enablerFlags = []string{"metrics"}

// Init enables or disables the metrics system. Since we need this to run before
// any other code gets to create meters and timers, we'll actually do an ugly hack
// and peek into the command line args for the metrics flag.
func init() {
	for _, arg := range os.Args {
		flag := strings.TrimLeft(arg, "-")

		for _, enabler := range enablerFlags {
			if !Enabled && flag == enabler {
				log.Info("Enabling metrics collection")
				Enabled = true
			}
		}
	}
}

// Counter holds an int64 value that can be incremented and decremented.
type Counter interface {
	Clear()
	Count() int64
	Dec(int64)
	Inc(int64)
}

// NewCounter constructs a new StandardCounter.
func NewCounter() Counter {
	if !Enabled {
		return NilCounter{}
	}
	return &StandardCounter{}
}

// NewRegisteredCounter constructs and registers a new StandardCounter.
func NewRegisteredCounter(name string, r Registry) Counter {
	c := NewCounter()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// NilCounter is a no-op Counter.
type NilCounter struct{}

func (NilCounter) Clear()       {}
func (NilCounter) Count() int64 { return 0 }
func (NilCounter) Dec(i int64)  {}
func (NilCounter) Inc(i int64)  {}

// StandardCounter is the standard implementation of a Counter and uses the
// sync/atomic package to manage a single int64 value.
type StandardCounter struct {
	count atomic.Int64
}

func (c *StandardCounter) Clear()       { c.count.Store(0) }
func (c *StandardCounter) Count() int64 { return c.count.Load() }
func (c *StandardCounter) Dec(i int64)  { c.count.Add(-i) }
func (c *StandardCounter) Inc(i int64)  { c.count.Add(i) }

// Gauge holds an int64 value that can be set arbitrarily.
type Gauge interface {
	Update(int64)
	Inc(int64)
	Dec(int64)
	Value() int64
}

// NewGauge constructs a new StandardGauge.
func NewGauge() Gauge {
	if !Enabled {
		return NilGauge{}
	}
	return &StandardGauge{}
}

// NewRegisteredGauge constructs and registers a new StandardGauge.
func NewRegisteredGauge(name string, r Registry) Gauge {
	c := NewGauge()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// NilGauge is a no-op Gauge.
type NilGauge struct{}

func (NilGauge) Update(v int64) {}
func (NilGauge) Inc(i int64)    {}
func (NilGauge) Dec(i int64)    {}
func (NilGauge) Value() int64   { return 0 }

// StandardGauge is the standard implementation of a Gauge.
type StandardGauge struct {
	value atomic.Int64
}

func (g *StandardGauge) Update(v int64) { g.value.Store(v) }
func (g *StandardGauge) Inc(i int64)    { g.value.Add(i) }
func (g *StandardGauge) Dec(i int64)    { g.value.Add(-i) }
func (g *StandardGauge) Value() int64   { return g.value.Load() }
