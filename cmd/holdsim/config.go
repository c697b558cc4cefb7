package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/holdpool/internal/flags"
	"github.com/tos-network/holdpool/metrics"
	"github.com/tos-network/holdpool/p2p/holding"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}
	expirationFlag = &cli.Uint64Flag{
		Name:     "pool.expiration",
		Usage:    "Seconds an untouched entry is held before it is swept",
		Value:    holding.DefaultConfig.Expiration,
		Category: flags.PoolCategory,
	}
	roundsFlag = &cli.IntFlag{
		Name:     "sim.rounds",
		Usage:    "Number of simulated seconds to run",
		Value:    defaultWorkload.Rounds,
		Category: flags.WorkloadCategory,
	}
	producersFlag = &cli.IntFlag{
		Name:     "sim.producers",
		Usage:    "Number of concurrent message producers",
		Value:    defaultWorkload.Producers,
		Category: flags.WorkloadCategory,
	}
	messagesFlag = &cli.IntFlag{
		Name:     "sim.messages",
		Usage:    "Messages each producer announces per round",
		Value:    defaultWorkload.Messages,
		Category: flags.WorkloadCategory,
	}
	verifiersFlag = &cli.IntFlag{
		Name:     "sim.verifiers",
		Usage:    "Number of concurrent verifiers",
		Value:    defaultWorkload.Verifiers,
		Category: flags.WorkloadCategory,
	}
	relayBatchFlag = &cli.IntFlag{
		Name:     "sim.relaybatch",
		Usage:    "Maximum verified messages relayed per round (0 = unlimited)",
		Value:    defaultWorkload.RelayBatch,
		Category: flags.WorkloadCategory,
	}
	seedFlag = &cli.Int64Flag{
		Name:     "sim.seed",
		Usage:    "Seed of the workload generator",
		Value:    defaultWorkload.Seed,
		Category: flags.WorkloadCategory,
	}
	metricsFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Enable metrics collection and print them after the run",
		Category: flags.MetricsCategory,
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:     "metrics.addr",
		Usage:    "Enable the Prometheus endpoint on the given listening interface",
		Category: flags.MetricsCategory,
	}
	metricsPortFlag = &cli.IntFlag{
		Name:     "metrics.port",
		Usage:    "Prometheus endpoint listening port",
		Value:    metrics.DefaultConfig.Port,
		Category: flags.MetricsCategory,
	}

	simFlags = []cli.Flag{
		configFileFlag,
		expirationFlag,
		roundsFlag,
		producersFlag,
		messagesFlag,
		verifiersFlag,
		relayBatchFlag,
		seedFlag,
		metricsFlag,
		metricsAddrFlag,
		metricsPortFlag,
	}
)

var dumpConfigCommand = &cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Show configuration values",
	ArgsUsage:   "",
	Flags:       simFlags,
	Description: `The dumpconfig command shows configuration values.`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// workloadConfig shapes the synthetic relay traffic.
type workloadConfig struct {
	Rounds     int   // Simulated seconds
	Producers  int   // Concurrent producers
	Messages   int   // Messages per producer per round
	Verifiers  int   // Concurrent verifiers
	RelayBatch int   // Verified messages relayed per round
	OrphanRate int   // Percentage of messages referencing a parent not seen yet
	CacheSize  int   // Relayed message ids remembered to drop re-announcements
	Seed       int64 // Generator seed
}

var defaultWorkload = workloadConfig{
	Rounds:     300,
	Producers:  4,
	Messages:   16,
	Verifiers:  4,
	RelayBatch: 32,
	OrphanRate: 20,
	CacheSize:  4096,
	Seed:       1,
}

type simConfig struct {
	Pool     holding.Config
	Workload workloadConfig
	Metrics  metrics.Config
}

func defaultConfig() simConfig {
	return simConfig{
		Pool:     holding.DefaultConfig,
		Workload: defaultWorkload,
		Metrics:  metrics.DefaultConfig,
	}
}

func loadConfig(file string, cfg *simConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies the command
// line flags on top of it.
func makeConfig(ctx *cli.Context) (simConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if ctx.IsSet(expirationFlag.Name) {
		cfg.Pool.Expiration = ctx.Uint64(expirationFlag.Name)
	}
	if ctx.IsSet(roundsFlag.Name) {
		cfg.Workload.Rounds = ctx.Int(roundsFlag.Name)
	}
	if ctx.IsSet(producersFlag.Name) {
		cfg.Workload.Producers = ctx.Int(producersFlag.Name)
	}
	if ctx.IsSet(messagesFlag.Name) {
		cfg.Workload.Messages = ctx.Int(messagesFlag.Name)
	}
	if ctx.IsSet(verifiersFlag.Name) {
		cfg.Workload.Verifiers = ctx.Int(verifiersFlag.Name)
	}
	if ctx.IsSet(relayBatchFlag.Name) {
		cfg.Workload.RelayBatch = ctx.Int(relayBatchFlag.Name)
	}
	if ctx.IsSet(seedFlag.Name) {
		cfg.Workload.Seed = ctx.Int64(seedFlag.Name)
	}
	if ctx.IsSet(metricsFlag.Name) {
		cfg.Metrics.Enabled = ctx.Bool(metricsFlag.Name)
	}
	if ctx.IsSet(metricsAddrFlag.Name) {
		cfg.Metrics.HTTP = ctx.String(metricsAddrFlag.Name)
	}
	if ctx.IsSet(metricsPortFlag.Name) {
		cfg.Metrics.Port = ctx.Int(metricsPortFlag.Name)
	}
	return cfg, cfg.Workload.validate()
}

var errInvalidWorkload = errors.New("invalid workload")

func (w workloadConfig) validate() error {
	switch {
	case w.Rounds <= 0:
		return fmt.Errorf("%w: rounds must be positive", errInvalidWorkload)
	case w.Producers <= 0 || w.Verifiers <= 0:
		return fmt.Errorf("%w: need at least one producer and one verifier", errInvalidWorkload)
	case w.Messages < 0 || w.RelayBatch < 0:
		return fmt.Errorf("%w: negative message counts", errInvalidWorkload)
	case w.OrphanRate < 0 || w.OrphanRate > 100:
		return fmt.Errorf("%w: orphan rate %d out of range", errInvalidWorkload, w.OrphanRate)
	case w.CacheSize <= 0:
		return fmt.Errorf("%w: cache size must be positive", errInvalidWorkload)
	}
	return nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.Write(out)
	return nil
}
