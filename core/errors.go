// Package core implements the memory hierarchy simulator: a linear
// allocator, a buddy allocator, a two-level cache, and a demand-paged
// virtual memory translator, wired together by System.
package core

import "errors"

// Error definitions. Each is a sentinel so callers can compare with
// errors.Is rather than parse message text.
var (
	// ErrConfiguration is returned when a size, page size, or RAM value
	// fails a configuration-time check (non-positive, not a multiple of
	// page size, not a power of two where required).
	ErrConfiguration = errors.New("invalid configuration")
	// ErrAllocationFailed is returned when no free block is large enough.
	ErrAllocationFailed = errors.New("no space available")
	// ErrUnknownID is returned when free is called with an id that is not
	// currently allocated.
	ErrUnknownID = errors.New("no block with id")
	// ErrInvalidAddress is returned when free targets a non-boundary
	// address, or vm_access targets an out-of-range virtual address.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrAlreadyFree is returned when free targets a block that is
	// already free.
	ErrAlreadyFree = errors.New("block already free")
	// ErrNoAllocator is returned when free is requested before any alloc
	// has chosen an allocator mode for the session.
	ErrNoAllocator = errors.New("no allocator selected")
	// ErrAllocatorLocked is returned when an alloc names a strategy that
	// belongs to the allocator mode not locked in for this session.
	ErrAllocatorLocked = errors.New("allocator mode already locked")
	// ErrUnknownProcess is returned when a vm command names a pid that has
	// never been passed to init_process.
	ErrUnknownProcess = errors.New("unknown process")
)
