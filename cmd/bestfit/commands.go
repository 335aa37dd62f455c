package main

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/QuangTung97/bestfit/allocator"
	"github.com/QuangTung97/bestfit/arena"
	"github.com/QuangTung97/bestfit/diag"
	"github.com/QuangTung97/bestfit/workload"
)

const (
	configFlag   = "config"
	capacityFlag = "capacity"
	minSplitFlag = "min-split"
	arenaFlag    = "arena"
	sinkFlag     = "sink"
	verboseFlag  = "verbose"
)

func heapFlags() []cli.Flag {
	return []cli.Flag{
		newVerboseFlag(),
		&cli.StringFlag{
			Name:  configFlag,
			Usage: "TOML allocator config file",
		},
		&cli.Uint64Flag{
			Name:  capacityFlag,
			Usage: "arena size in bytes",
		},
		&cli.Uint64Flag{
			Name:  minSplitFlag,
			Usage: "smallest payload a split may leave behind",
		},
		&cli.StringFlag{
			Name:  arenaFlag,
			Usage: "arena backing: go or mmap",
		},
	}
}

func newSinkFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  sinkFlag,
		Usage: "block dump format: table, log or spew",
		Value: "table",
	}
}

// loadConfig starts from base, replaces it with --config when given and then
// applies explicit flags.
func loadConfig(ctx *cli.Context, base allocator.Config) (allocator.Config, error) {
	conf := base
	if path := ctx.String(configFlag); path != "" {
		var err error
		conf, err = allocator.LoadConfig(path)
		if err != nil {
			return allocator.Config{}, err
		}
	}
	if ctx.IsSet(capacityFlag) {
		v, err := uint32Flag(ctx, capacityFlag)
		if err != nil {
			return allocator.Config{}, err
		}
		conf.Capacity = v
	}
	if ctx.IsSet(minSplitFlag) {
		v, err := uint32Flag(ctx, minSplitFlag)
		if err != nil {
			return allocator.Config{}, err
		}
		conf.MinSplitPayload = v
	}
	if ctx.IsSet(arenaFlag) {
		conf.Arena = arena.Kind(ctx.String(arenaFlag))
	}
	return conf, nil
}

func uint32Flag(ctx *cli.Context, name string) (uint32, error) {
	v := ctx.Uint64(name)
	if v > math.MaxUint32 {
		return 0, errors.Newf("--%s %d does not fit in 32 bits", name, v)
	}
	return uint32(v), nil
}

func newReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "run a YAML workload script",
		ArgsUsage: "<script.yaml>",
		Flags:     append(heapFlags(), newSinkFlag()),
		Action:    replay,
	}
}

func replay(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("replay: expected one script path")
	}
	logger := newLogger(ctx)

	script, err := workload.Load(ctx.Args().First())
	if err != nil {
		return err
	}
	script.Config, err = loadConfig(ctx, script.Config)
	if err != nil {
		return err
	}

	result, blocks, err := workload.Replay(ctx.Context, script, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.App.Writer, "steps=%d allocs=%d frees=%d failures=%d evictions=%d live=%d\n",
		result.Steps, result.Allocs, result.Frees, result.Failures, result.Evictions, result.Live)

	sink, err := diag.NewSink(ctx.String(sinkFlag), ctx.App.Writer, logger)
	if err != nil {
		return err
	}
	return sink.Report(blocks, result.Stats)
}

func newInspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "allocate and free on a fresh heap, then dump its blocks",
		Flags: append(heapFlags(), newSinkFlag(),
			&cli.IntSliceFlag{
				Name:  "alloc",
				Usage: "sizes to allocate, in order",
			},
			&cli.IntSliceFlag{
				Name:  "free",
				Usage: "indexes into --alloc to free afterwards, in order",
			},
		),
		Action: inspect,
	}
}

func inspect(ctx *cli.Context) error {
	logger := newLogger(ctx)

	conf, err := loadConfig(ctx, allocator.DefaultConfig())
	if err != nil {
		return err
	}
	h, err := allocator.New(conf)
	if err != nil {
		return err
	}
	defer func() {
		_ = h.Close()
	}()

	var addrs []uint32
	for _, size := range ctx.IntSlice("alloc") {
		if size < 0 {
			return errors.Newf("inspect: negative size %d", size)
		}
		addr, ok := h.Allocate(uint32(size))
		if !ok {
			logger.Warn("allocation failed", "size", size)
			addr = 0
		}
		addrs = append(addrs, addr)
	}
	for _, i := range ctx.IntSlice("free") {
		if i < 0 || i >= len(addrs) {
			return errors.Newf("inspect: free index %d out of range", i)
		}
		if addrs[i] == 0 {
			continue
		}
		h.Deallocate(addrs[i])
		addrs[i] = 0
	}

	if err := h.Validate(); err != nil {
		return err
	}

	sink, err := diag.NewSink(ctx.String(sinkFlag), ctx.App.Writer, logger)
	if err != nil {
		return err
	}
	return diag.Dump(sink, h)
}

func newDumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "dumpconfig",
		Usage: "print the effective allocator config as TOML",
		Flags: heapFlags(),
		Action: func(ctx *cli.Context) error {
			conf, err := loadConfig(ctx, allocator.DefaultConfig())
			if err != nil {
				return err
			}
			return conf.WriteTOML(ctx.App.Writer)
		},
	}
}
