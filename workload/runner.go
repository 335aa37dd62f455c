package workload

import (
	"context"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"

	"github.com/QuangTung97/bestfit/allocator"
	"github.com/QuangTung97/bestfit/lru"
)

const (
	lruNodeSize      = 12
	defaultChunkSize = 240
)

// Options ...
type Options struct {
	Logger *slog.Logger

	// NodeChunkSize is the size of the heap chunks holding LRU nodes.
	NodeChunkSize uint32
}

// Result ...
type Result struct {
	Steps     int
	Allocs    int
	Frees     int
	Touches   int
	Failures  int // alloc steps that got no memory
	Evictions int
	Live      int
	Stats     allocator.Stats
}

type liveEntry struct {
	addr uint32
	node uint32
}

// Runner replays scripts against one heap. Live allocations survive between
// Run calls.
type Runner struct {
	heap   *allocator.Heap
	logger *slog.Logger

	slab *allocator.Slab
	lru  *lru.LRU

	live   map[string]liveEntry
	byAddr map[uint32]string
}

// NewRunner ...
func NewRunner(heap *allocator.Heap, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	chunkSize := opts.NodeChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}

	slab := allocator.NewSlab(heap, lruNodeSize, chunkSize)
	return &Runner{
		heap:   heap,
		logger: logger,

		slab: slab,
		lru:  lru.New(slab, math.MaxUint32),

		live:   map[string]liveEntry{},
		byAddr: map[uint32]string{},
	}
}

// Addr returns the address of the live allocation named id.
func (r *Runner) Addr(id string) (uint32, bool) {
	e, ok := r.live[id]
	return e.addr, ok
}

// LiveIDs returns the ids of live allocations, least recently used last.
func (r *Runner) LiveIDs() []string {
	addrs := r.lru.GetLRUList()
	result := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		result = append(result, r.byAddr[addr])
	}
	return result
}

// Run executes the steps of s in order. It stops at the first invalid step,
// at a failed check, or when ctx is done. The live cap of s replaces the cap
// of earlier runs.
func (r *Runner) Run(ctx context.Context, s Script) (Result, error) {
	var result Result

	limit := s.MaxLive
	if limit == 0 {
		limit = math.MaxUint32
	}
	r.lru.UpdateLimit(limit)
	logger := r.logger.With(
		slog.String("script", s.Name),
		slog.Uint64("max_live", uint64(r.lru.Limit())),
	)

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return r.finish(result), err
		}

		var err error
		switch step.Op {
		case OpAlloc:
			err = r.alloc(logger, &result, s.Evict, step)
		case OpFree:
			if err = r.free(step.ID); err == nil {
				result.Frees++
			}
		case OpTouch:
			if err = r.touch(step.ID); err == nil {
				result.Touches++
			}
		default:
			err = errors.Wrapf(ErrUnknownOp, "%q", string(step.Op))
		}
		if err != nil {
			return r.finish(result), errors.Wrapf(err, "step %d", i)
		}
		result.Steps++

		if s.Check {
			if err := r.heap.Validate(); err != nil {
				return r.finish(result), errors.Wrapf(err, "step %d", i)
			}
		}
	}

	result = r.finish(result)
	logger.Info("workload finished",
		slog.Int("steps", result.Steps),
		slog.Int("failures", result.Failures),
		slog.Int("evictions", result.Evictions),
		slog.Int("live", result.Live),
	)
	return result, nil
}

func (r *Runner) finish(result Result) Result {
	result.Live = len(r.live)
	result.Stats = r.heap.Stats()
	return result
}

func (r *Runner) alloc(logger *slog.Logger, result *Result, evict bool, step Step) error {
	if _, ok := r.live[step.ID]; ok {
		return errors.Wrapf(ErrDuplicateID, "%q", step.ID)
	}
	result.Allocs++

	addr, ok := r.heap.Allocate(step.Size)
	for !ok && evict && r.evictOldest(logger, result) {
		addr, ok = r.heap.Allocate(step.Size)
	}
	if !ok {
		result.Failures++
		logger.Debug("allocation failed", slog.String("id", step.ID), slog.Uint64("size", uint64(step.Size)))
		return nil
	}

	node, ok := r.lru.Put(addr)
	for !ok && evict && r.evictOldest(logger, result) {
		node, ok = r.lru.Put(addr)
	}
	if !ok {
		r.heap.Deallocate(addr)
		result.Failures++
		logger.Debug("no room to track allocation", slog.String("id", step.ID))
		return nil
	}

	r.live[step.ID] = liveEntry{addr: addr, node: node}
	r.byAddr[addr] = step.ID
	logger.Debug("allocated",
		slog.String("id", step.ID),
		slog.Uint64("size", uint64(step.Size)),
		slog.Uint64("addr", uint64(addr)),
	)
	return nil
}

func (r *Runner) evictOldest(logger *slog.Logger, result *Result) bool {
	_, addr, ok := r.lru.Last()
	if !ok {
		return false
	}
	id := r.byAddr[addr]
	r.release(id)
	result.Evictions++
	logger.Debug("evicted", slog.String("id", id), slog.Uint64("addr", uint64(addr)))
	return true
}

func (r *Runner) free(id string) error {
	if _, ok := r.live[id]; !ok {
		return errors.Wrapf(ErrUnknownID, "free %q", id)
	}
	r.release(id)
	return nil
}

func (r *Runner) touch(id string) error {
	e, ok := r.live[id]
	if !ok {
		return errors.Wrapf(ErrUnknownID, "touch %q", id)
	}
	r.lru.Touch(e.node)
	return nil
}

func (r *Runner) release(id string) {
	e := r.live[id]
	r.lru.Delete(e.node)
	r.heap.Deallocate(e.addr)
	delete(r.live, id)
	delete(r.byAddr, e.addr)
}

// Replay builds a heap from the script config, runs the script and closes
// the heap. The returned blocks describe the heap just before it was closed.
func Replay(ctx context.Context, s Script, logger *slog.Logger) (Result, []allocator.BlockInfo, error) {
	h, err := allocator.New(s.Config)
	if err != nil {
		return Result{}, nil, err
	}
	defer func() {
		_ = h.Close()
	}()

	result, err := NewRunner(h, Options{Logger: logger}).Run(ctx, s)
	return result, h.Blocks(), err
}
