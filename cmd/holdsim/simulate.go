package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync"

	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tos-network/holdpool/common/mclock"
	"github.com/tos-network/holdpool/log"
	"github.com/tos-network/holdpool/metrics"
	"github.com/tos-network/holdpool/metrics/prometheus"
	"github.com/tos-network/holdpool/p2p/holding"
	"github.com/tos-network/holdpool/p2p/holding/sweep"
)

var runCommand = &cli.Command{
	Action: runSimulation,
	Name:   "run",
	Usage:  "Run the relay workload against a holding pool",
	Flags:  simFlags,
	Description: `
The run command announces synthetic messages into a holding pool, verifies
them, parks the ones whose parent is unknown as orphans, relays verified ones
and sweeps whatever expires. A per-state summary is printed at the end.`,
}

// Protocol-defined states of a held message.
const (
	stateVerified holding.State = iota // Parent known, ready to relay
	stateOrphan                        // Parent not seen yet
)

// message is the payload held while a message waits to be relayed.
type message struct {
	ID     uint64
	Parent uint64 // Zero for messages without a parent
	Body   []byte
}

func (m message) Clone() message {
	m.Body = append([]byte(nil), m.Body...)
	return m
}

// simStats are the counters reported after a run.
type simStats struct {
	Produced   int
	Duplicates int
	Adopted    int
	Relayed    int
	Expired    int
	Held       map[holding.State]int
}

// simulator runs the workload against one pool on a simulated clock.
type simulator struct {
	cfg     workloadConfig
	clock   *mclock.Simulated
	pool    *holding.Pool[uint64, message]
	sweeper *sweep.Sweeper
	relayed *lru.Cache // Relayed message ids
	orphans mapset.Set // Message ids parked as orphans
	rand    *rand.Rand
	nextID  uint64
	mu      sync.Mutex // Protects rand and nextID
	stats   simStats
	statsMu sync.Mutex
}

func newSimulator(cfg simConfig) (*simulator, error) {
	relayed, err := lru.New(cfg.Workload.CacheSize)
	if err != nil {
		return nil, err
	}
	clock := new(mclock.Simulated)

	poolCfg := cfg.Pool
	poolCfg.Clock = clock
	if poolCfg.Name == "" {
		poolCfg.Name = "holdsim/pool"
	}
	pool := holding.New[uint64, message](poolCfg)

	return &simulator{
		cfg:     cfg.Workload,
		clock:   clock,
		pool:    pool,
		sweeper: sweep.New(0, pool),
		relayed: relayed,
		orphans: mapset.NewSet(),
		rand:    rand.New(rand.NewSource(cfg.Workload.Seed)),
	}, nil
}

// run executes all rounds and returns the final statistics.
func (s *simulator) run(ctx context.Context) (simStats, error) {
	for round := 0; round < s.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return s.stats, err
		}
		if err := s.step(ctx); err != nil {
			return s.stats, fmt.Errorf("round %d: %w", round, err)
		}
		s.clock.Run(1)
		s.stats.Expired += s.sweeper.Sweep()
		s.forgetSwept()
	}
	s.stats.Held = map[holding.State]int{
		holding.Unverified: s.pool.CountState(holding.Unverified),
		stateVerified:      s.pool.CountState(stateVerified),
		stateOrphan:        s.pool.CountState(stateOrphan),
	}
	log.Info("Simulation finished", "rounds", s.cfg.Rounds, "produced", s.stats.Produced,
		"relayed", s.stats.Relayed, "expired", s.stats.Expired, "held", s.pool.Count())
	return s.stats, nil
}

// step runs one simulated second: produce, verify, adopt orphans and relay.
func (s *simulator) step(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < s.cfg.Producers; p++ {
		g.Go(func() error { return s.produce(gctx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	pending, _ := s.pool.IndexesByState(holding.Unverified, 0)

	g, gctx = errgroup.WithContext(ctx)
	for v := 0; v < s.cfg.Verifiers; v++ {
		v := v
		g.Go(func() error {
			for i := v; i < len(pending); i += s.cfg.Verifiers {
				if err := gctx.Err(); err != nil {
					return err
				}
				s.verify(pending[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.adopt()
	s.relay()
	return nil
}

func (s *simulator) produce(ctx context.Context) error {
	for i := 0; i < s.cfg.Messages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := s.nextMessage()
		if s.relayed.Contains(msg.ID) || !s.pool.Add(msg.ID, msg) {
			s.count(func(st *simStats) { st.Duplicates++ })
			continue
		}
		s.count(func(st *simStats) { st.Produced++ })
	}
	return nil
}

// nextMessage generates a message. Some re-announce an old id, some reference
// a parent that is only announced later.
func (s *simulator) nextMessage() message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextID > 0 && s.rand.Intn(10) == 0 {
		id := uint64(s.rand.Int63n(int64(s.nextID))) + 1
		return message{ID: id}
	}
	s.nextID++
	msg := message{ID: s.nextID, Body: []byte(strconv.FormatUint(s.nextID, 10))}
	switch roll := s.rand.Intn(100); {
	case roll < s.cfg.OrphanRate:
		msg.Parent = s.nextID + uint64(1+s.rand.Intn(8))
	case s.nextID > 1:
		msg.Parent = s.nextID - 1
	}
	return msg
}

func (s *simulator) verify(id uint64) {
	msg, ok := s.pool.Get(id)
	if !ok {
		return
	}
	if s.parentKnown(msg) {
		s.pool.SetState(id, stateVerified)
		return
	}
	s.pool.SetState(id, stateOrphan)
	s.orphans.Add(id)
}

func (s *simulator) parentKnown(msg message) bool {
	if msg.Parent == 0 || s.relayed.Contains(msg.Parent) {
		return true
	}
	state := s.pool.State(msg.Parent)
	return state == stateVerified
}

// adopt promotes orphans whose parent became known.
func (s *simulator) adopt() {
	for _, item := range s.orphans.ToSlice() {
		id := item.(uint64)
		msg, ok := s.pool.Get(id)
		if ok && s.parentKnown(msg) {
			s.pool.SetState(id, stateVerified)
			s.orphans.Remove(id)
			s.stats.Adopted++
		}
	}
}

// forgetSwept drops orphans the sweeper removed from the pool.
func (s *simulator) forgetSwept() {
	for _, item := range s.orphans.ToSlice() {
		if id := item.(uint64); !s.pool.Has(id) {
			s.orphans.Remove(id)
		}
	}
}

func (s *simulator) relay() {
	batch, ok := s.pool.GetByState(stateVerified, s.cfg.RelayBatch)
	if !ok {
		return
	}
	for _, msg := range batch {
		if s.pool.Remove(msg.ID) {
			s.relayed.Add(msg.ID, struct{}{})
			s.stats.Relayed++
		}
	}
	log.Trace("Relayed verified messages", "count", len(batch), "time", s.clock.Now())
}

func (s *simulator) count(fn func(*simStats)) {
	s.statsMu.Lock()
	fn(&s.stats)
	s.statsMu.Unlock()
}

// writeReport renders the run statistics as a table.
func writeReport(w io.Writer, stats simStats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"produced", strconv.Itoa(stats.Produced)})
	table.Append([]string{"duplicates", strconv.Itoa(stats.Duplicates)})
	table.Append([]string{"adopted orphans", strconv.Itoa(stats.Adopted)})
	table.Append([]string{"relayed", strconv.Itoa(stats.Relayed)})
	table.Append([]string{"expired", strconv.Itoa(stats.Expired)})
	for _, state := range []holding.State{holding.Unverified, stateVerified, stateOrphan} {
		table.Append([]string{"held " + stateName(state), strconv.Itoa(stats.Held[state])})
	}
	table.Render()
}

func stateName(s holding.State) string {
	switch s {
	case stateVerified:
		return "verified"
	case stateOrphan:
		return "orphan"
	default:
		return s.String()
	}
}

// startMetricsServer exposes the default registry over HTTP until ctx ends.
func startMetricsServer(ctx context.Context, cfg metrics.Config) error {
	address := net.JoinHostPort(cfg.HTTP, strconv.Itoa(cfg.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/debug/metrics/prometheus", prometheus.Handler(metrics.DefaultRegistry))
	srv := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Metrics server stopped", "err", err)
		}
	}()
	log.Info("Starting metrics server", "addr", fmt.Sprintf("http://%s/debug/metrics/prometheus", listener.Addr()))
	return nil
}

func runSimulation(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		metrics.Enabled = true
		if ctx.IsSet(metricsAddrFlag.Name) {
			if err := startMetricsServer(ctx.Context, cfg.Metrics); err != nil {
				return err
			}
		}
	}
	sim, err := newSimulator(cfg)
	if err != nil {
		return err
	}
	stats, err := sim.run(ctx.Context)
	if err != nil {
		return err
	}
	writeReport(ctx.App.Writer, stats)

	if cfg.Metrics.Enabled {
		var buf bytes.Buffer
		if err := prometheus.Write(&buf, metrics.DefaultRegistry); err != nil {
			return err
		}
		ctx.App.Writer.Write(buf.Bytes())
	}
	return nil
}
