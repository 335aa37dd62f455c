// Package allocator implements an explicit best-fit allocator over a single
// fixed-size arena.
//
// # Layout
//
// Every block in the arena starts with a 16-byte header written in place:
//
//	+--------+--------+--------+--------+------------------+
//	|  next  |  prev  |  size  |  tag   | payload (size B) |
//	+--------+--------+--------+--------+------------------+
//
// next and prev are arena offsets of the neighbouring headers in address
// order. The first header always sits at offset 0. size counts payload bytes
// only. tag holds a magic stamp and the block state (free, in use, absorbed).
//
// # Policy
//
// Allocate rounds the request up to 4 bytes and scans all headers once,
// choosing the free block that leaves the smallest remainder; the first such
// block in address order wins ties. A remainder of at least
// HeaderSize+MinSplitPayload bytes is split off as a new free block,
// anything smaller stays inside the allocation.
//
// Deallocate marks the block free, then merges it with a free successor and
// after that with a free predecessor, so no two neighbouring blocks are ever
// both free.
//
// Running out of space is not an error: Allocate reports ok == false and the
// caller decides whether to free something and retry.
//
// # Thread Safety
//
// A Heap is not safe for concurrent use. Callers must serialize every
// Allocate, Deallocate and inspection call externally, for example with a
// mutex held around each call.
//
// # Misuse
//
// Deallocate trusts its argument. Freeing an address that is not live on
// this Heap corrupts the block list. Config.CheckPointers turns on a guard
// that panics on the common mistakes (double free, foreign pointer).
package allocator
