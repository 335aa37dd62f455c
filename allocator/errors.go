package allocator

import "github.com/cockroachdb/errors"

var (
	// ErrCapacityTooSmall indicates the arena cannot hold even one header.
	ErrCapacityTooSmall = errors.New("allocator: capacity must exceed header size")

	// ErrCapacityUnaligned indicates the capacity is not a multiple of Alignment.
	ErrCapacityUnaligned = errors.New("allocator: capacity must be a multiple of alignment")

	// ErrInvalidConfig indicates a config field outside its allowed range.
	ErrInvalidConfig = errors.New("allocator: invalid config")

	// ErrArenaMismatch indicates a supplied arena does not match the config.
	ErrArenaMismatch = errors.New("allocator: arena does not match config")

	// ErrClosed indicates the heap has already been torn down.
	ErrClosed = errors.New("allocator: heap closed")

	// ErrCorrupt indicates Validate found a broken block list.
	ErrCorrupt = errors.New("allocator: corrupt block list")
)
