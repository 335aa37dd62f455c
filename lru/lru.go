// Package lru keeps live heap allocations in least-recently-used order.
// List nodes are stored in a slab carved from the same heap.
package lru

import (
	"math"
	"unsafe"

	"github.com/QuangTung97/bestfit/allocator"
)

const nullPtr uint32 = math.MaxUint32

// LRU ...
type LRU struct {
	slab  *allocator.Slab
	limit uint32

	next uint32
	prev uint32
	size uint32
}

// ListHead ...
type ListHead struct {
	next uint32
	prev uint32
	addr uint32
}

// New ...
func New(slab *allocator.Slab, limit uint32) *LRU {
	if slab.ElemSize() < uint32(unsafe.Sizeof(ListHead{})) {
		panic("lru: slab elements are smaller than a list node")
	}
	return &LRU{
		slab:  slab,
		limit: limit,

		next: nullPtr,
		prev: nullPtr,
		size: 0,
	}
}

// GetLRUList returns tracked addresses, most recently used first.
func (l *LRU) GetLRUList() []uint32 {
	var result []uint32
	n := l.next
	for n != nullPtr {
		head := (*ListHead)(l.slab.ToRealAddr(n))
		result = append(result, head.addr)
		n = head.next
	}
	return result
}

// Put tracks addr as the most recently used allocation and returns its node.
// It fails when the limit is reached or the slab cannot get memory.
func (l *LRU) Put(addr uint32) (uint32, bool) {
	if l.size >= l.limit {
		return 0, false
	}

	node, ok := l.slab.Allocate()
	if !ok {
		return 0, false
	}

	l.size++
	head := (*ListHead)(l.slab.ToRealAddr(node))
	head.addr = addr
	l.pushFront(node, head)

	return node, true
}

// Last returns the least recently used node and its address.
func (l *LRU) Last() (node uint32, addr uint32, ok bool) {
	if l.prev == nullPtr {
		return 0, 0, false
	}
	last := (*ListHead)(l.slab.ToRealAddr(l.prev))
	return l.prev, last.addr, true
}

// Delete untracks node and gives it back to the slab.
func (l *LRU) Delete(node uint32) {
	l.size--
	l.unlink((*ListHead)(l.slab.ToRealAddr(node)))
	l.slab.Deallocate(node)
}

// Touch moves node to the front.
func (l *LRU) Touch(node uint32) {
	head := (*ListHead)(l.slab.ToRealAddr(node))
	l.unlink(head)
	l.pushFront(node, head)
}

func (l *LRU) unlink(head *ListHead) {
	if head.next != nullPtr {
		next := (*ListHead)(l.slab.ToRealAddr(head.next))
		next.prev = head.prev
	} else {
		l.prev = head.prev
	}

	if head.prev != nullPtr {
		prev := (*ListHead)(l.slab.ToRealAddr(head.prev))
		prev.next = head.next
	} else {
		l.next = head.next
	}
}

func (l *LRU) pushFront(node uint32, head *ListHead) {
	if l.next != nullPtr {
		next := (*ListHead)(l.slab.ToRealAddr(l.next))
		next.prev = node
	} else {
		l.prev = node
	}

	head.next = l.next
	head.prev = nullPtr
	l.next = node
}

// Size ...
func (l *LRU) Size() uint32 {
	return l.size
}

// Limit ...
func (l *LRU) Limit() uint32 {
	return l.limit
}

// UpdateLimit ...
func (l *LRU) UpdateLimit(newLimit uint32) {
	l.limit = newLimit
}
