// Package diag reports heap block layouts to pluggable sinks.
package diag

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/exp/slog"

	"github.com/QuangTung97/bestfit/allocator"
)

// Sink receives a snapshot of a heap.
type Sink interface {
	Report(blocks []allocator.BlockInfo, stats allocator.Stats) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(blocks []allocator.BlockInfo, stats allocator.Stats) error

// Report ...
func (f SinkFunc) Report(blocks []allocator.BlockInfo, stats allocator.Stats) error {
	return f(blocks, stats)
}

// Dump takes a snapshot of h and hands it to s.
func Dump(s Sink, h *allocator.Heap) error {
	return s.Report(h.Blocks(), h.Stats())
}

func stateName(b allocator.BlockInfo) string {
	if b.Free {
		return "free"
	}
	return "in use"
}

// TableSink renders one row per block.
type TableSink struct {
	W io.Writer
}

// Report ...
func (s TableSink) Report(blocks []allocator.BlockInfo, stats allocator.Stats) error {
	table := tablewriter.NewWriter(s.W)
	table.SetHeader([]string{"Block", "Offset", "Addr", "State", "Bytes"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, b := range blocks {
		table.Append([]string{
			strconv.Itoa(i),
			strconv.FormatUint(uint64(b.Offset), 10),
			strconv.FormatUint(uint64(b.Addr()), 10),
			stateName(b),
			strconv.FormatUint(uint64(b.Payload), 10),
		})
	}
	table.SetFooter([]string{
		"", "", "",
		fmt.Sprintf("%d free", stats.FreeBlocks),
		fmt.Sprintf("%d/%d used", stats.MemUsage, stats.Capacity),
	})
	table.Render()
	return nil
}

// SlogSink logs one record per block and a summary record.
type SlogSink struct {
	Logger *slog.Logger
	Level  slog.Level
}

// Report ...
func (s SlogSink) Report(blocks []allocator.BlockInfo, stats allocator.Stats) error {
	ctx := context.Background()
	for i, b := range blocks {
		s.Logger.Log(ctx, s.Level, "block",
			slog.Int("index", i),
			slog.Uint64("offset", uint64(b.Offset)),
			slog.String("state", stateName(b)),
			slog.Uint64("bytes", uint64(b.Payload)),
		)
	}
	s.Logger.Log(ctx, s.Level, "heap",
		slog.Uint64("capacity", uint64(stats.Capacity)),
		slog.Uint64("blocks", uint64(stats.Blocks)),
		slog.Uint64("free_blocks", uint64(stats.FreeBlocks)),
		slog.Uint64("free_bytes", stats.FreeBytes),
		slog.Uint64("largest_free", uint64(stats.LargestFree)),
		slog.Uint64("mem_usage", stats.MemUsage),
	)
	return nil
}

// SpewSink dumps the raw snapshot structures.
type SpewSink struct {
	W io.Writer
}

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Report ...
func (s SpewSink) Report(blocks []allocator.BlockInfo, stats allocator.Stats) error {
	spewConfig.Fdump(s.W, blocks, stats)
	return nil
}

// NewSink returns the sink registered under name: "table", "log" or "spew".
// The log sink falls back to slog.Default when logger is nil.
func NewSink(name string, w io.Writer, logger *slog.Logger) (Sink, error) {
	switch name {
	case "table", "":
		return TableSink{W: w}, nil
	case "log":
		if logger == nil {
			logger = slog.Default()
		}
		return SlogSink{Logger: logger, Level: slog.LevelInfo}, nil
	case "spew":
		return SpewSink{W: w}, nil
	default:
		return nil, errors.Newf("diag: unknown sink %q", name)
	}
}
