// Package mclock provides the second-resolution time sources used to stamp and
// expire pooled protocol data.
package mclock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock reports the current time in whole seconds since the Unix epoch. The
// value must be consistent across calls within the process.
type Clock interface {
	Now() uint64
}

// System implements Clock using the system wall clock.
type System struct{}

// Now returns the current wall clock time in seconds.
func (System) Now() uint64 {
	return uint64(time.Now().Unix())
}

// Unified is the wall clock shifted by a network-agreed offset. Peers adjust the
// offset as they sample remote clocks so that timestamps stay comparable across
// the network.
type Unified struct {
	offset atomic.Int64
}

// Now returns the system time plus the current offset, clamped at zero.
func (u *Unified) Now() uint64 {
	now := time.Now().Unix() + u.offset.Load()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

// Adjust shifts the offset by delta seconds and returns the new offset.
func (u *Unified) Adjust(delta int64) int64 {
	return u.offset.Add(delta)
}

// Offset returns the current offset in seconds.
func (u *Unified) Offset() int64 {
	return u.offset.Load()
}

// Simulated is a manually driven Clock for tests. The zero value starts at
// second 0.
type Simulated struct {
	mu  sync.RWMutex
	now uint64
}

// Now returns the simulated time.
func (s *Simulated) Now() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now
}

// Set moves the clock to the given timestamp.
func (s *Simulated) Set(ts uint64) {
	s.mu.Lock()
	s.now = ts
	s.mu.Unlock()
}

// Run advances the clock by the given number of seconds.
func (s *Simulated) Run(seconds uint64) {
	s.mu.Lock()
	s.now += seconds
	s.mu.Unlock()
}
