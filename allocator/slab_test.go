package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSlab(t *testing.T) {
	h := newTestHeap(t, 4096)

	slab := NewSlab(h, 10, 100)
	assert.Equal(t, h, slab.heap)
	assert.Equal(t, uint32(12), slab.elemSize)
	assert.Equal(t, uint32(100), slab.chunkSize)
	assert.Equal(t, uint32(8), slab.numElemPerChunk)
	assert.Equal(t, uint64(4), slab.unusedBytes)
	assert.Equal(t, uint64(0), slab.memoryUsage)
	assert.Equal(t, nullPtr, slab.freeList)

	slab = NewSlab(h, 1, 2)
	assert.Equal(t, uint32(4), slab.ElemSize())
	assert.Equal(t, uint32(4), slab.chunkSize)
	assert.Equal(t, uint32(1), slab.numElemPerChunk)
}

func TestSlab_Allocate_Deallocate(t *testing.T) {
	h := newTestHeap(t, 4096)
	slab := NewSlab(h, 12, 48)

	p1, ok := slab.Allocate()
	assert.True(t, ok)
	assert.Equal(t, uint32(16), p1)
	assert.Equal(t, []uint32{28, 40, 52}, slab.contentOfList())
	assert.Equal(t, uint64(12), slab.GetMemUsage())

	p2, _ := slab.Allocate()
	p3, _ := slab.Allocate()
	p4, _ := slab.Allocate()
	assert.Equal(t, []uint32{28, 40, 52}, []uint32{p2, p3, p4})
	assert.Equal(t, []uint32(nil), slab.contentOfList())

	p5, ok := slab.Allocate()
	assert.True(t, ok)
	assert.Equal(t, uint32(16+48+16), p5)
	assert.Equal(t, []uint32{92, 104, 116}, slab.contentOfList())
	assert.Equal(t, uint64(5*12), slab.GetMemUsage())
	assert.Equal(t, uint64(96), h.GetMemUsage())

	slab.Deallocate(p2)
	assert.Equal(t, []uint32{28, 92, 104, 116}, slab.contentOfList())
	slab.Deallocate(p5)
	assert.Equal(t, []uint32{80, 28, 92, 104, 116}, slab.contentOfList())
	assert.Equal(t, uint64(3*12), slab.GetMemUsage())

	p6, ok := slab.Allocate()
	assert.True(t, ok)
	assert.Equal(t, p5, p6)
	assert.NoError(t, h.Validate())

	slab.Release()
	assert.Equal(t, uint64(0), slab.GetMemUsage())
	assert.Equal(t, []BlockInfo{{Offset: 0, Payload: 4080, Free: true}}, h.Blocks())
}

func TestSlab_HeapExhausted(t *testing.T) {
	h := newTestHeap(t, 64)
	slab := NewSlab(h, 16, 48)

	for i := 0; i < 3; i++ {
		_, ok := slab.Allocate()
		assert.True(t, ok)
	}

	_, ok := slab.Allocate()
	assert.False(t, ok)
	assert.Equal(t, uint64(48), slab.GetMemUsage())
}
