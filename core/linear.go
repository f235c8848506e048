package core

import "sort"

// linearBlock is one entry in the ordered partition of [0, RAM). Free
// blocks carry id == FreeID.
type linearBlock struct {
	start uint64
	size  uint64
	free  bool
	id    int
}

// LinearAllocator manages [0, RAM) as an ordered, gapless sequence of
// blocks and places requests by first/best/worst fit, splitting and
// coalescing as blocks are allocated and freed.
type LinearAllocator struct {
	ram      uint64
	strategy Strategy
	blocks   []*linearBlock
	nextID   int
}

// NewLinearAllocator creates a LinearAllocator covering [0, ram) as a
// single free block.
func NewLinearAllocator(ram uint64) *LinearAllocator {
	Info("Creating linear allocator for %d bytes", ram)
	return &LinearAllocator{
		ram:      ram,
		strategy: FirstFit,
		blocks:   []*linearBlock{{start: 0, size: ram, free: true, id: FreeID}},
		nextID:   1,
	}
}

// SetStrategy changes the placement rule used by subsequent Alloc calls.
func (a *LinearAllocator) SetStrategy(s Strategy) {
	Debug("Linear allocator strategy changed to %s", s)
	a.strategy = s
}

// Strategy returns the currently active placement rule.
func (a *LinearAllocator) Strategy() Strategy {
	return a.strategy
}

// Alloc reserves size bytes according to the active strategy, splitting
// the chosen block if it is larger than requested. It returns the id and
// start address of the new block.
func (a *LinearAllocator) Alloc(size uint64) (id int, start uint64, err error) {
	if size == 0 {
		return 0, 0, ErrConfiguration
	}

	idx := a.selectBlock(size)
	if idx < 0 {
		Error("Linear allocator: no block >= %d bytes", size)
		return 0, 0, ErrAllocationFailed
	}

	block := a.blocks[idx]
	id = a.nextID
	a.nextID++

	if block.size == size {
		block.free = false
		block.id = id
		Debug("Linear alloc %d bytes at %d (exact fit, id=%d)", size, block.start, id)
		return id, block.start, nil
	}

	leftover := &linearBlock{
		start: block.start + size,
		size:  block.size - size,
		free:  true,
		id:    FreeID,
	}
	block.size = size
	block.free = false
	block.id = id

	a.blocks = append(a.blocks, nil)
	copy(a.blocks[idx+2:], a.blocks[idx+1:])
	a.blocks[idx+1] = leftover

	Debug("Linear alloc %d bytes at %d (split, leftover %d bytes, id=%d)", size, block.start, leftover.size, id)
	return id, block.start, nil
}

// selectBlock returns the index of the block chosen for size by the
// active strategy, or -1 if none qualifies.
func (a *LinearAllocator) selectBlock(size uint64) int {
	best := -1
	switch a.strategy {
	case FirstFit:
		for i, b := range a.blocks {
			if b.free && b.size >= size {
				return i
			}
		}
		return -1
	case BestFit:
		for i, b := range a.blocks {
			if b.free && b.size >= size {
				if best < 0 || b.size < a.blocks[best].size {
					best = i
				}
			}
		}
	case WorstFit:
		for i, b := range a.blocks {
			if b.free && b.size >= size {
				if best < 0 || b.size > a.blocks[best].size {
					best = i
				}
			}
		}
	}
	return best
}

// FreeByID locates the allocated block carrying id and frees it,
// coalescing with free neighbors. Returns ErrUnknownID if no allocated
// block carries that id.
func (a *LinearAllocator) FreeByID(id int) error {
	for i, b := range a.blocks {
		if !b.free && b.id == id {
			return a.freeAt(i)
		}
	}
	Error("Linear allocator: no block with id %d", id)
	return ErrUnknownID
}

// FreeByAddress frees the allocated block starting at address. Returns
// ErrInvalidAddress if no block starts there, and ErrAlreadyFree if the
// block at that address is already free.
func (a *LinearAllocator) FreeByAddress(address uint64) error {
	idx := sort.Search(len(a.blocks), func(i int) bool { return a.blocks[i].start >= address })
	if idx >= len(a.blocks) || a.blocks[idx].start != address {
		Error("Linear allocator: no block boundary at %d", address)
		return ErrInvalidAddress
	}
	if a.blocks[idx].free {
		Error("Linear allocator: double free at %d", address)
		return ErrAlreadyFree
	}
	return a.freeAt(idx)
}

func (a *LinearAllocator) freeAt(idx int) error {
	b := a.blocks[idx]
	Debug("Linear free %d bytes at %d (id=%d)", b.size, b.start, b.id)
	b.free = true
	b.id = FreeID

	// Coalesce with successor first so the predecessor merge below only
	// has to look one step back.
	if idx+1 < len(a.blocks) && a.blocks[idx+1].free {
		Debug("Linear coalesce %d-byte block at %d with free successor at %d", b.size, b.start, a.blocks[idx+1].start)
		b.size += a.blocks[idx+1].size
		a.blocks = append(a.blocks[:idx+1], a.blocks[idx+2:]...)
	}
	if idx-1 >= 0 && a.blocks[idx-1].free {
		prev := a.blocks[idx-1]
		Debug("Linear coalesce %d-byte block at %d with free predecessor at %d", b.size, b.start, prev.start)
		prev.size += b.size
		a.blocks = append(a.blocks[:idx], a.blocks[idx+1:]...)
	}
	return nil
}

// UsedBytes returns the sum of sizes of allocated blocks.
func (a *LinearAllocator) UsedBytes() uint64 {
	var used uint64
	for _, b := range a.blocks {
		if !b.free {
			used += b.size
		}
	}
	return used
}

// LargestFree returns the size of the largest free block, used for
// external-fragmentation reporting.
func (a *LinearAllocator) LargestFree() uint64 {
	var largest uint64
	for _, b := range a.blocks {
		if b.free && b.size > largest {
			largest = b.size
		}
	}
	return largest
}

// FreeBytes returns the sum of sizes of free blocks.
func (a *LinearAllocator) FreeBytes() uint64 {
	return a.ram - a.UsedBytes()
}

// BlockCount returns the number of blocks (free and used) in the
// partition, mainly useful for dump output and invariant tests.
func (a *LinearAllocator) BlockCount() int {
	return len(a.blocks)
}
