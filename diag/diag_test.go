package diag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/QuangTung97/bestfit/allocator"
)

func newTestHeap(t *testing.T) *allocator.Heap {
	conf := allocator.DefaultConfig()
	conf.Capacity = 1024
	h, err := allocator.New(conf)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = h.Close()
	})

	p1, _ := h.Allocate(100)
	_, _ = h.Allocate(200)
	h.Deallocate(p1)
	return h
}

func TestDump_SinkFunc(t *testing.T) {
	h := newTestHeap(t)

	var gotBlocks []allocator.BlockInfo
	var gotStats allocator.Stats
	err := Dump(SinkFunc(func(blocks []allocator.BlockInfo, stats allocator.Stats) error {
		gotBlocks = blocks
		gotStats = stats
		return nil
	}), h)
	require.NoError(t, err)

	assert.Equal(t, []allocator.BlockInfo{
		{Offset: 0, Payload: 100, Free: true},
		{Offset: 116, Payload: 200, Free: false},
		{Offset: 332, Payload: 676, Free: true},
	}, gotBlocks)
	assert.Equal(t, uint32(3), gotStats.Blocks)
	assert.Equal(t, uint64(200), gotStats.MemUsage)
	assert.Equal(t, uint32(676), gotStats.LargestFree)
}

func TestTableSink(t *testing.T) {
	h := newTestHeap(t)

	var buf bytes.Buffer
	require.NoError(t, Dump(TableSink{W: &buf}, h))

	out := strings.ToLower(buf.String())
	assert.Contains(t, out, "offset")
	assert.Contains(t, out, "in use")
	assert.Contains(t, out, "676")
	assert.Contains(t, out, "2 free")
	assert.Contains(t, out, "200/1024 used")
}

func TestSlogSink(t *testing.T) {
	h := newTestHeap(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	require.NoError(t, Dump(SlogSink{Logger: logger, Level: slog.LevelInfo}, h))

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "msg=block"))
	assert.Equal(t, 1, strings.Count(out, "msg=heap"))
	assert.Contains(t, out, "offset=116")
	assert.Contains(t, out, "largest_free=676")
}

func TestSlogSink_BelowLevel(t *testing.T) {
	h := newTestHeap(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	require.NoError(t, Dump(SlogSink{Logger: logger, Level: slog.LevelDebug}, h))
	assert.Equal(t, "", buf.String())
}

func TestSpewSink(t *testing.T) {
	h := newTestHeap(t)

	var buf bytes.Buffer
	require.NoError(t, Dump(SpewSink{W: &buf}, h))

	out := buf.String()
	assert.Contains(t, out, "Offset: (uint32) 116")
	assert.Contains(t, out, "Payload: (uint32) 676")
	assert.Contains(t, out, "LargestFree: (uint32) 676")
}

func TestNewSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s, err := NewSink("table", &buf, logger)
	require.NoError(t, err)
	assert.IsType(t, TableSink{}, s)

	s, err = NewSink("log", &buf, logger)
	require.NoError(t, err)
	assert.IsType(t, SlogSink{}, s)

	s, err = NewSink("spew", &buf, logger)
	require.NoError(t, err)
	assert.IsType(t, SpewSink{}, s)

	_, err = NewSink("xml", &buf, logger)
	assert.Error(t, err)
}

func TestNewSink_LogWithoutLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() {
		slog.SetDefault(prev)
	})

	s, err := NewSink("log", nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Report(nil, allocator.Stats{Capacity: 1024}))
	assert.Contains(t, buf.String(), "capacity=1024")
}
