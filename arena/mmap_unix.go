//go:build unix

package arena

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

type mmapArena struct {
	data []byte
}

// NewMmap maps size bytes of anonymous, private, read-write memory.
func NewMmap(size int) (Arena, error) {
	if size <= 0 {
		return NewGo(size), nil
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "arena: mmap %d bytes", size)
	}
	return &mmapArena{data: data}, nil
}

func (a *mmapArena) Bytes() []byte {
	return a.data
}

func (a *mmapArena) Release() error {
	if a.data == nil {
		return ErrReleased
	}
	data := a.data
	a.data = nil
	if err := unix.Munmap(data); err != nil {
		return errors.Wrap(err, "arena: munmap")
	}
	return nil
}
