package allocator

import (
	"math"
	"unsafe"
)

const (
	// HeaderSize is the number of bytes in front of every payload.
	HeaderSize uint32 = uint32(unsafe.Sizeof(blockHeader{}))

	// Alignment is the granularity of every granted payload size.
	Alignment uint32 = 4

	nullPtr uint32 = math.MaxUint32

	headerMagic uint32 = 0xb1f70000
	magicMask   uint32 = 0xffff0000
)

type blockState uint32

const (
	stateFree     blockState = 1
	stateInUse    blockState = 2
	stateAbsorbed blockState = 3
)

func (s blockState) String() string {
	switch s {
	case stateFree:
		return "free"
	case stateInUse:
		return "in-use"
	case stateAbsorbed:
		return "absorbed"
	default:
		return "invalid"
	}
}

type blockHeader struct {
	next uint32
	prev uint32
	size uint32 // payload bytes after the header
	tag  uint32 // headerMagic | blockState
}

func (b *blockHeader) state() blockState {
	return blockState(b.tag &^ magicMask)
}

func (b *blockHeader) setState(s blockState) {
	b.tag = headerMagic | uint32(s)
}

func (b *blockHeader) hasMagic() bool {
	return b.tag&magicMask == headerMagic
}

func (b *blockHeader) isFree() bool {
	return b.state() == stateFree
}

func alignUp(size uint32) uint32 {
	mask := Alignment - 1
	return (size + mask) &^ mask
}

// header overlays the block header at off. Slicing panics when the header
// would not fit inside the arena.
func (h *Heap) header(off uint32) *blockHeader {
	b := h.data[off : off+HeaderSize]
	return (*blockHeader)(unsafe.Pointer(&b[0]))
}

func (h *Heap) initHeader(off uint32, size uint32, prev uint32, next uint32) *blockHeader {
	b := h.header(off)
	b.size = size
	b.prev = prev
	b.next = next
	b.setState(stateFree)
	return b
}

// insertAfter installs a free header at newOff as the successor of the header at off.
func (h *Heap) insertAfter(off uint32, b *blockHeader, newOff uint32, size uint32) {
	h.initHeader(newOff, size, off, b.next)
	if b.next != nullPtr {
		h.header(b.next).prev = newOff
	}
	b.next = newOff
}

// absorbNext merges the successor of b into b and unlinks it.
func (h *Heap) absorbNext(b *blockHeader) {
	n := h.header(b.next)
	b.size += HeaderSize + n.size
	b.next = n.next
	if n.next != nullPtr {
		h.header(n.next).prev = n.prev
	}

	n.setState(stateAbsorbed)
	n.next = nullPtr
	n.prev = nullPtr
}
