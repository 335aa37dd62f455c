package allocator

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// BlockInfo describes one block for diagnostics.
type BlockInfo struct {
	Offset  uint32 // header offset in the arena
	Payload uint32
	Free    bool
}

// Addr returns the address Allocate handed out for this block.
func (b BlockInfo) Addr() uint32 {
	return b.Offset + HeaderSize
}

// Blocks lists every block in address order.
func (h *Heap) Blocks() []BlockInfo {
	result := make([]BlockInfo, 0, h.stats.Blocks)
	for off := uint32(0); off != nullPtr; {
		b := h.header(off)
		result = append(result, BlockInfo{
			Offset:  off,
			Payload: b.size,
			Free:    b.isFree(),
		})
		off = b.next
	}
	return result
}

// Base returns the address of the first arena byte.
func (h *Heap) Base() unsafe.Pointer {
	return unsafe.Pointer(&h.data[0])
}

// Stats returns a snapshot of the counters. LargestFree is computed by a scan.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.MemUsage = h.memoryUsage
	for off := uint32(0); off != nullPtr; {
		b := h.header(off)
		if b.isFree() && b.size > s.LargestFree {
			s.LargestFree = b.size
		}
		off = b.next
	}
	return s
}

// Validate walks the block list and reports the first broken invariant.
func (h *Heap) Validate() error {
	maxBlocks := h.capacity/HeaderSize + 1

	var (
		blocks, freeBlocks uint32
		freeBytes, used    uint64
	)

	prevOff := nullPtr
	prevFree := false
	off := uint32(0)
	for off != nullPtr {
		if blocks >= maxBlocks {
			return errors.Wrapf(ErrCorrupt, "more than %d blocks, list has a cycle", maxBlocks)
		}
		if off > h.capacity-HeaderSize {
			return errors.Wrapf(ErrCorrupt, "block at %d: header outside arena", off)
		}

		b := h.header(off)
		if !b.hasMagic() {
			return errors.Wrapf(ErrCorrupt, "block at %d: bad magic %#x", off, b.tag)
		}
		s := b.state()
		if s != stateFree && s != stateInUse {
			return errors.Wrapf(ErrCorrupt, "block at %d: reachable %s block", off, s)
		}
		if b.prev != prevOff {
			return errors.Wrapf(ErrCorrupt, "block at %d: prev is %d, expected %d", off, b.prev, prevOff)
		}
		if uint64(off)+uint64(HeaderSize)+uint64(b.size) > uint64(h.capacity) {
			return errors.Wrapf(ErrCorrupt, "block at %d: payload %d overruns arena", off, b.size)
		}

		end := off + HeaderSize + b.size
		if b.next == nullPtr && end != h.capacity {
			return errors.Wrapf(ErrCorrupt, "last block at %d ends at %d, capacity is %d", off, end, h.capacity)
		}
		if b.next != nullPtr && b.next != end {
			return errors.Wrapf(ErrCorrupt, "block at %d: next is %d, expected %d", off, b.next, end)
		}

		free := s == stateFree
		if free && prevFree {
			return errors.Wrapf(ErrCorrupt, "blocks at %d and %d are both free", prevOff, off)
		}

		blocks++
		if free {
			freeBlocks++
			freeBytes += uint64(b.size)
		} else {
			used += uint64(b.size)
		}

		prevOff = off
		prevFree = free
		off = b.next
	}

	if blocks != h.stats.Blocks || freeBlocks != h.stats.FreeBlocks || freeBytes != h.stats.FreeBytes {
		return errors.Wrapf(ErrCorrupt, "counted %d blocks (%d free, %d free bytes), stats say %d (%d free, %d free bytes)",
			blocks, freeBlocks, freeBytes, h.stats.Blocks, h.stats.FreeBlocks, h.stats.FreeBytes)
	}
	if used != h.memoryUsage {
		return errors.Wrapf(ErrCorrupt, "counted %d used bytes, memory usage is %d", used, h.memoryUsage)
	}
	return nil
}
