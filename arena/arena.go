// Package arena acquires and releases the fixed-size buffers a heap manages.
//
// An Arena is owned by exactly one allocator and released exactly once.
package arena

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Kind names a backing for New.
type Kind string

const (
	// KindGo backs the arena with memory from the Go heap.
	KindGo Kind = "go"
	// KindMmap backs the arena with an anonymous private mapping.
	KindMmap Kind = "mmap"
)

var (
	// ErrReleased is returned when an arena is released twice.
	ErrReleased = errors.New("arena: already released")

	// ErrUnknownKind is returned by New for an unsupported backing.
	ErrUnknownKind = errors.New("arena: unknown kind")
)

// Arena ...
type Arena interface {
	// Bytes returns the whole buffer. Must not be used after Release.
	Bytes() []byte

	// Release gives the buffer back. Only the first call succeeds.
	Release() error
}

// New ...
func New(kind Kind, size int) (Arena, error) {
	switch kind {
	case KindGo, "":
		return NewGo(size), nil
	case KindMmap:
		return NewMmap(size)
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "kind %q", string(kind))
	}
}

type goArena struct {
	data []byte
}

func allocateData(size int) []byte {
	if size <= 0 {
		return []byte{}
	}
	words := make([]uint64, (size+7)>>3)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
}

// NewGo returns an arena of size bytes backed by a []uint64, so the base is 8-byte aligned.
func NewGo(size int) Arena {
	return &goArena{data: allocateData(size)}
}

func (a *goArena) Bytes() []byte {
	return a.data
}

func (a *goArena) Release() error {
	if a.data == nil {
		return ErrReleased
	}
	a.data = nil
	return nil
}
