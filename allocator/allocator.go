package allocator

import (
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/QuangTung97/bestfit/arena"
)

// noCopy makes go vet report copies of a Heap.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Heap is a best-fit allocator over one arena. It owns the arena until Close.
type Heap struct {
	noCopy noCopy

	arena    arena.Arena
	data     []byte
	capacity uint32

	splitThreshold uint32
	checkPointers  bool

	memoryUsage uint64
	stats       Stats
}

// Stats ...
type Stats struct {
	Capacity uint32

	AllocCalls       uint64
	AllocFailures    uint64
	FreeCalls        uint64
	Splits           uint64
	CoalesceForward  uint64
	CoalesceBackward uint64

	Blocks      uint32
	FreeBlocks  uint32
	FreeBytes   uint64 // payload bytes in free blocks
	LargestFree uint32
	MemUsage    uint64 // payload bytes in used blocks
}

// New acquires an arena of conf.Capacity bytes and builds a Heap on it.
func New(conf Config) (*Heap, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}

	a, err := arena.New(conf.Arena, int(conf.Capacity))
	if err != nil {
		return nil, err
	}

	h, err := NewWithArena(conf, a)
	if err != nil {
		_ = a.Release()
		return nil, err
	}
	return h, nil
}

// NewWithArena builds a Heap on a caller-provided arena. The Heap takes
// ownership and releases the arena on Close.
func NewWithArena(conf Config, a arena.Arena) (*Heap, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}

	data := a.Bytes()
	if len(data) != int(conf.Capacity) {
		return nil, errors.Wrapf(ErrArenaMismatch, "arena has %d bytes, capacity is %d", len(data), conf.Capacity)
	}
	if uintptr(unsafe.Pointer(&data[0]))%uintptr(Alignment) != 0 {
		return nil, errors.Wrapf(ErrArenaMismatch, "arena base not %d-byte aligned", Alignment)
	}

	h := &Heap{
		arena:    a,
		data:     data,
		capacity: conf.Capacity,

		splitThreshold: conf.splitThreshold(),
		checkPointers:  conf.CheckPointers,
	}
	h.initHeader(0, conf.Capacity-HeaderSize, nullPtr, nullPtr)

	h.stats.Capacity = conf.Capacity
	h.stats.Blocks = 1
	h.stats.FreeBlocks = 1
	h.stats.FreeBytes = uint64(conf.Capacity - HeaderSize)
	return h, nil
}

// Close releases the arena. The Heap must not be used afterwards.
func (h *Heap) Close() error {
	if h.arena == nil {
		return ErrClosed
	}
	a := h.arena
	h.arena = nil
	h.data = nil
	return a.Release()
}

// Capacity ...
func (h *Heap) Capacity() uint32 {
	return h.capacity
}

// GetMemUsage returns the payload bytes currently granted to callers.
func (h *Heap) GetMemUsage() uint64 {
	return h.memoryUsage
}

// Allocate returns the address of at least size bytes, or ok == false when
// no free block is large enough. Nothing changes on failure.
func (h *Heap) Allocate(size uint32) (addr uint32, ok bool) {
	h.stats.AllocCalls++

	if size > h.capacity-HeaderSize {
		h.stats.AllocFailures++
		return 0, false
	}
	rounded := alignUp(size)

	best := nullPtr
	bestLeftover := uint32(0)
	for off := uint32(0); off != nullPtr; {
		b := h.header(off)
		if b.isFree() && b.size >= rounded {
			leftover := b.size - rounded
			if best == nullPtr || leftover < bestLeftover {
				best = off
				bestLeftover = leftover
				if leftover == 0 {
					break
				}
			}
		}
		off = b.next
	}

	if best == nullPtr {
		h.stats.AllocFailures++
		return 0, false
	}

	winner := h.header(best)
	winner.setState(stateInUse)
	h.stats.FreeBlocks--
	h.stats.FreeBytes -= uint64(winner.size)

	if bestLeftover >= h.splitThreshold {
		remainder := bestLeftover - HeaderSize
		h.insertAfter(best, winner, best+HeaderSize+rounded, remainder)
		winner.size = rounded

		h.stats.Splits++
		h.stats.Blocks++
		h.stats.FreeBlocks++
		h.stats.FreeBytes += uint64(remainder)
	}

	h.memoryUsage += uint64(winner.size)
	return best + HeaderSize, true
}

// Deallocate returns a block obtained from Allocate and merges it with free
// neighbours. addr must be live on this Heap.
func (h *Heap) Deallocate(addr uint32) {
	if h.checkPointers {
		h.checkLive(addr)
	}
	h.stats.FreeCalls++

	b := h.header(addr - HeaderSize)
	h.memoryUsage -= uint64(b.size)
	b.setState(stateFree)
	h.stats.FreeBlocks++
	h.stats.FreeBytes += uint64(b.size)

	if b.next != nullPtr && h.header(b.next).isFree() {
		h.absorbNext(b)
		h.mergeAccounted()
		h.stats.CoalesceForward++
	}

	if b.prev != nullPtr {
		prev := h.header(b.prev)
		if prev.isFree() {
			h.absorbNext(prev)
			h.mergeAccounted()
			h.stats.CoalesceBackward++
		}
	}
}

// mergeAccounted updates counters after two free blocks became one: the
// absorbed header turns into payload.
func (h *Heap) mergeAccounted() {
	h.stats.Blocks--
	h.stats.FreeBlocks--
	h.stats.FreeBytes += uint64(HeaderSize)
}

func (h *Heap) checkLive(addr uint32) {
	if addr < HeaderSize || addr > h.capacity || addr%Alignment != 0 {
		panic(errors.AssertionFailedf("allocator: address %d is not inside the arena", addr))
	}
	b := h.header(addr - HeaderSize)
	if !b.hasMagic() {
		panic(errors.AssertionFailedf("allocator: no block header in front of address %d", addr))
	}
	if s := b.state(); s != stateInUse {
		panic(errors.AssertionFailedf("allocator: deallocate of %s block at address %d", s, addr))
	}
}

// PayloadSize returns the granted size of the live allocation at addr.
func (h *Heap) PayloadSize(addr uint32) uint32 {
	return h.header(addr - HeaderSize).size
}

// Bytes returns the payload of the live allocation at addr.
func (h *Heap) Bytes(addr uint32) []byte {
	end := addr + h.PayloadSize(addr)
	return h.data[addr:end:end]
}

// ToRealAddr returns the memory address of addr. A zero-byte allocation at
// the very end of the arena has no memory behind it and gets nil.
func (h *Heap) ToRealAddr(addr uint32) unsafe.Pointer {
	if addr >= h.capacity {
		return nil
	}
	return unsafe.Add(unsafe.Pointer(&h.data[0]), addr)
}
