package core

import "math/bits"

// buddyEntry records what an allocated start offset actually holds: the
// order it was carved from (which may be larger than the request), the
// caller's requested size (for internal-fragmentation reporting), and
// its block id.
type buddyEntry struct {
	order int
	size  uint64
	id    int
}

// BuddyAllocator manages [0, ram) as power-of-two blocks on per-order
// free lists, splitting on allocation and merging buddies on free. ram
// and the minimum block size must both be powers of two.
type BuddyAllocator struct {
	ram      uint64
	minOrder int
	maxOrder int
	free     [][]uint64 // free[k] holds starts of free blocks of order k
	alloc    map[uint64]buddyEntry
	nextID   int
}

// NewBuddyAllocator creates a BuddyAllocator covering [0, ram) as a
// single free block of order maxOrder = log2(ram). minBlockSize sets the
// smallest order the allocator will ever hand out. Returns
// ErrConfiguration if ram or minBlockSize is not a power of two, or if
// minBlockSize exceeds ram.
func NewBuddyAllocator(ram, minBlockSize uint64) (*BuddyAllocator, error) {
	if !isPowerOfTwo(ram) || !isPowerOfTwo(minBlockSize) || minBlockSize > ram {
		return nil, ErrConfiguration
	}
	maxOrder := bits.TrailingZeros64(ram)
	minOrder := bits.TrailingZeros64(minBlockSize)

	free := make([][]uint64, maxOrder+1)
	for i := range free {
		free[i] = nil
	}
	free[maxOrder] = []uint64{0}

	Info("Creating buddy allocator for %d bytes, min order %d, max order %d", ram, minOrder, maxOrder)
	return &BuddyAllocator{
		ram:      ram,
		minOrder: minOrder,
		maxOrder: maxOrder,
		free:     free,
		alloc:    make(map[uint64]buddyEntry),
		nextID:   1,
	}, nil
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// orderFor returns the smallest order k with 2^k >= max(size, 2^minOrder).
func (b *BuddyAllocator) orderFor(size uint64) int {
	order := b.minOrder
	for (uint64(1) << uint(order)) < size {
		order++
	}
	return order
}

// Alloc reserves the smallest power-of-two block that can hold size,
// splitting larger free blocks as needed.
func (b *BuddyAllocator) Alloc(size uint64) (id int, start uint64, err error) {
	if size == 0 {
		return 0, 0, ErrConfiguration
	}
	k := b.orderFor(size)
	if k > b.maxOrder {
		Error("Buddy allocator: size %d exceeds max order %d", size, b.maxOrder)
		return 0, 0, ErrAllocationFailed
	}

	j := k
	for j <= b.maxOrder && len(b.free[j]) == 0 {
		j++
	}
	if j > b.maxOrder {
		Error("Buddy allocator: no free block for %d bytes", size)
		return 0, 0, ErrAllocationFailed
	}

	addr := b.popFree(j)
	for j > k {
		j--
		buddy := addr + (uint64(1) << uint(j))
		b.pushFree(j, buddy)
	}

	id = b.nextID
	b.nextID++
	b.alloc[addr] = buddyEntry{order: k, size: size, id: id}
	Debug("Buddy alloc %d bytes at %d (order %d, id=%d)", size, addr, k, id)
	return id, addr, nil
}

// FreeByID frees the allocated block carrying id, merging with its
// buddy chain upward as far as the invariant allows.
func (b *BuddyAllocator) FreeByID(id int) error {
	for addr, entry := range b.alloc {
		if entry.id == id {
			return b.freeAt(addr, entry)
		}
	}
	Error("Buddy allocator: no block with id %d", id)
	return ErrUnknownID
}

// FreeByAddress frees the allocated block starting at address.
func (b *BuddyAllocator) FreeByAddress(address uint64) error {
	entry, ok := b.alloc[address]
	if !ok {
		Error("Buddy allocator: no allocation at %d", address)
		return ErrInvalidAddress
	}
	return b.freeAt(address, entry)
}

func (b *BuddyAllocator) freeAt(addr uint64, entry buddyEntry) error {
	delete(b.alloc, addr)
	Debug("Buddy free %d bytes at %d (order %d, id=%d)", entry.size, addr, entry.order, entry.id)

	k := entry.order
	for k < b.maxOrder {
		if addr&((uint64(1)<<uint(k))-1) != 0 {
			panic("buddy invariant violated: block not aligned to its order")
		}
		buddyAddr := addr ^ (uint64(1) << uint(k))
		if !b.removeFree(k, buddyAddr) {
			break
		}
		if buddyAddr < addr {
			addr = buddyAddr
		}
		k++
	}
	b.pushFree(k, addr)
	return nil
}

func (b *BuddyAllocator) popFree(order int) uint64 {
	list := b.free[order]
	addr := list[len(list)-1]
	b.free[order] = list[:len(list)-1]
	return addr
}

func (b *BuddyAllocator) pushFree(order int, addr uint64) {
	b.free[order] = append(b.free[order], addr)
}

// removeFree deletes addr from order's free list if present, reporting
// whether it was found (i.e. whether the buddy is actually free).
func (b *BuddyAllocator) removeFree(order int, addr uint64) bool {
	list := b.free[order]
	for i, v := range list {
		if v == addr {
			b.free[order] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// UsedBytes sums 2^order over every allocation table entry.
func (b *BuddyAllocator) UsedBytes() uint64 {
	var used uint64
	for _, entry := range b.alloc {
		used += uint64(1) << uint(entry.order)
	}
	return used
}

// InternalFragmentation sums 2^order - requestedSize over every
// allocation: the bytes carved out but never requested.
func (b *BuddyAllocator) InternalFragmentation() uint64 {
	var frag uint64
	for _, entry := range b.alloc {
		frag += (uint64(1) << uint(entry.order)) - entry.size
	}
	return frag
}

// MaxOrder returns log2(ram).
func (b *BuddyAllocator) MaxOrder() int { return b.maxOrder }

// FreeOrders returns a snapshot of free-list lengths indexed by order,
// mainly for dump output and invariant tests.
func (b *BuddyAllocator) FreeOrders() []int {
	counts := make([]int, len(b.free))
	for i, list := range b.free {
		counts[i] = len(list)
	}
	return counts
}
