package sweep

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/holdpool/common/mclock"
	"github.com/tos-network/holdpool/metrics"
	"github.com/tos-network/holdpool/p2p/holding"
)

type countingCleaner struct {
	calls atomic.Int32
}

func (c *countingCleaner) Clean() int {
	c.calls.Add(1)
	return 1
}

func TestSweepOnce(t *testing.T) {
	clock := new(mclock.Simulated)
	orphans := holding.New[int, string](holding.Config{Expiration: 10, Clock: clock})
	relay := holding.New[string, []byte](holding.Config{Expiration: 30, Clock: clock})

	orphans.Add(1, "a")
	orphans.Add(2, "b")
	relay.Add("x", []byte{1})

	clock.Run(20)
	s := New(time.Hour, orphans, relay)
	require.Equal(t, 2, s.Sweep())
	require.Zero(t, orphans.Count())
	require.Equal(t, 1, relay.Count())

	clock.Run(20)
	require.Equal(t, 1, s.Sweep())
	require.Equal(t, 3, s.Removed())
}

func TestSweepLoop(t *testing.T) {
	target := new(countingCleaner)
	s := New(5*time.Millisecond, target)

	require.NoError(t, s.Start(context.Background()))
	require.ErrorIs(t, s.Start(context.Background()), errAlreadyRunning)

	require.Eventually(t, func() bool { return target.calls.Load() >= 3 }, time.Second, time.Millisecond)
	s.Stop()

	calls := target.calls.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, calls, target.calls.Load(), "sweeper kept running after Stop")

	// Stopping twice is harmless and the sweeper can be restarted.
	s.Stop()
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}

func TestSweepContextCancel(t *testing.T) {
	target := new(countingCleaner)
	s := New(time.Millisecond, target)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	// Once the loop has exited on its own the sweeper must be startable again.
	require.Eventually(t, func() bool {
		return s.Start(context.Background()) == nil
	}, time.Second, time.Millisecond)
	s.Stop()
}

func TestSweepRejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		target := new(countingCleaner)
		s := New(interval, target)

		require.ErrorIs(t, s.Start(context.Background()), errInvalidInterval)
		s.Stop()

		// Manual passes still work.
		require.Equal(t, 1, s.Sweep())
		require.Equal(t, int32(1), target.calls.Load())
	}
}

func TestSweepMetrics(t *testing.T) {
	enabled := metrics.Enabled
	metrics.Enabled = true
	defer func() { metrics.Enabled = enabled }()

	s := New(time.Hour, new(countingCleaner), new(countingCleaner))

	passes, ok := metrics.DefaultRegistry.Get(passMeterName).(*metrics.StandardMeter)
	require.True(t, ok, "passes meter not registered while metrics are enabled")
	removed, ok := metrics.DefaultRegistry.Get(removedMeterName).(*metrics.StandardMeter)
	require.True(t, ok, "removed meter not registered while metrics are enabled")

	startPasses, startRemoved := passes.Count(), removed.Count()
	s.Sweep()
	s.Sweep()
	require.Equal(t, startPasses+2, passes.Count())
	require.Equal(t, startRemoved+4, removed.Count())
}
