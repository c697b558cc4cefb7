// Package sweep drives periodic cleanup of holding pools from the caller's
// side; the pools themselves never spawn goroutines.
package sweep

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tos-network/holdpool/log"
	"github.com/tos-network/holdpool/metrics"
)

var (
	// errAlreadyRunning is returned if Start is called on a running sweeper.
	errAlreadyRunning = errors.New("sweeper already running")

	// errInvalidInterval is returned if Start is called on a sweeper without a
	// positive interval.
	errInvalidInterval = errors.New("non-positive sweep interval")
)

const (
	passMeterName    = "p2p/holding/sweep/passes"
	removedMeterName = "p2p/holding/sweep/removed"
)

// Cleaner is anything that can drop its expired entries, reporting how many
// were removed.
type Cleaner interface {
	Clean() int
}

// Sweeper calls Clean on a set of targets at a fixed interval.
type Sweeper struct {
	targets  []Cleaner
	interval time.Duration

	passMeter    metrics.Meter
	removedMeter metrics.Meter

	lock    sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	removed int
}

// New creates a sweeper cleaning the given targets every interval. A sweeper
// without a positive interval can only be driven manually through Sweep.
func New(interval time.Duration, targets ...Cleaner) *Sweeper {
	return &Sweeper{
		targets:      targets,
		interval:     interval,
		passMeter:    metrics.GetOrRegisterMeter(passMeterName, nil),
		removedMeter: metrics.GetOrRegisterMeter(removedMeterName, nil),
	}
}

// Sweep runs one cleaning pass over every target and returns the number of
// entries removed.
func (s *Sweeper) Sweep() int {
	var removed int
	for _, target := range s.targets {
		removed += target.Clean()
	}
	s.passMeter.Mark(1)
	if removed > 0 {
		s.removedMeter.Mark(int64(removed))
		log.Debug("Swept holding pools", "targets", len(s.targets), "removed", removed)
	}
	s.lock.Lock()
	s.removed += removed
	s.lock.Unlock()
	return removed
}

// Removed returns the total number of entries removed since creation.
func (s *Sweeper) Removed() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.removed
}

// Start launches the sweeping loop. It stops when ctx is cancelled or Stop is
// called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.interval <= 0 {
		return errInvalidInterval
	}
	if s.cancel != nil {
		return errAlreadyRunning
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	return nil
}

// Stop terminates the sweeping loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.lock.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.lock.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.release(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// release clears the running state if it still belongs to the loop owning
// done, so the sweeper can be restarted after its parent context ends.
func (s *Sweeper) release(done chan struct{}) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.done != done {
		return
	}
	s.cancel()
	s.cancel, s.done = nil, nil
}
