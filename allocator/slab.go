package allocator

import "unsafe"

// Slab hands out fixed-size elements carved from chunks allocated on a Heap.
type Slab struct {
	heap            *Heap
	elemSize        uint32
	chunkSize       uint32
	numElemPerChunk uint32
	unusedBytes     uint64
	memoryUsage     uint64

	freeList uint32
	chunks   []uint32
}

type slabListHead struct {
	next uint32
}

// NewSlab ...
func NewSlab(heap *Heap, elemSize uint32, chunkSize uint32) *Slab {
	if elemSize < Alignment {
		elemSize = Alignment
	}
	elemSize = alignUp(elemSize)
	if chunkSize < elemSize {
		chunkSize = elemSize
	}
	chunkSize = alignUp(chunkSize)

	return &Slab{
		heap:            heap,
		elemSize:        elemSize,
		chunkSize:       chunkSize,
		numElemPerChunk: chunkSize / elemSize,
		unusedBytes:     uint64(chunkSize % elemSize),
		memoryUsage:     0,

		freeList: nullPtr,
	}
}

func (s *Slab) contentOfList() []uint32 {
	var result []uint32
	n := s.freeList
	for n != nullPtr {
		result = append(result, n)
		list := (*slabListHead)(s.heap.ToRealAddr(n))
		n = list.next
	}
	return result
}

func (s *Slab) initChunk(chunkAddr uint32) {
	s.freeList = chunkAddr
	for i := uint32(0); i < s.numElemPerChunk; i++ {
		addr := chunkAddr + i*s.elemSize
		list := (*slabListHead)(s.heap.ToRealAddr(addr))
		if i == s.numElemPerChunk-1 {
			list.next = nullPtr
		} else {
			list.next = addr + s.elemSize
		}
	}
	s.chunks = append(s.chunks, chunkAddr)
	s.memoryUsage += s.unusedBytes
}

// Allocate ...
func (s *Slab) Allocate() (uint32, bool) {
	if s.freeList == nullPtr {
		chunkAddr, ok := s.heap.Allocate(s.chunkSize)
		if !ok {
			return 0, false
		}
		s.initChunk(chunkAddr)
	}

	list := (*slabListHead)(s.heap.ToRealAddr(s.freeList))
	result := s.freeList
	s.freeList = list.next
	s.memoryUsage += uint64(s.elemSize)

	return result, true
}

// Deallocate ...
func (s *Slab) Deallocate(addr uint32) {
	s.memoryUsage -= uint64(s.elemSize)
	list := (*slabListHead)(s.heap.ToRealAddr(addr))
	list.next = s.freeList
	s.freeList = addr
}

// Release gives every chunk back to the heap. Elements handed out before
// must not be used afterwards.
func (s *Slab) Release() {
	for _, chunkAddr := range s.chunks {
		s.heap.Deallocate(chunkAddr)
	}
	s.chunks = nil
	s.freeList = nullPtr
	s.memoryUsage = 0
}

// ToRealAddr ...
func (s *Slab) ToRealAddr(addr uint32) unsafe.Pointer {
	return s.heap.ToRealAddr(addr)
}

// ElemSize ...
func (s *Slab) ElemSize() uint32 {
	return s.elemSize
}

// GetMemUsage ...
func (s *Slab) GetMemUsage() uint64 {
	return s.memoryUsage
}
