package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuddyAllocatorFreeByAddress(t *testing.T) {
	b, err := NewBuddyAllocator(1024, 64)
	require.NoError(t, err)

	_, addr, err := b.Alloc(64)
	require.NoError(t, err)

	require.NoError(t, b.FreeByAddress(addr))
	assert.ErrorIs(t, b.FreeByAddress(addr), ErrInvalidAddress)
}

func TestBuddyAllocatorConfiguration(t *testing.T) {
	_, err := NewBuddyAllocator(1000, 64)
	assert.ErrorIs(t, err, ErrConfiguration, "ram must be a power of two")

	_, err = NewBuddyAllocator(1024, 100)
	assert.ErrorIs(t, err, ErrConfiguration, "min block size must be a power of two")
}

// TestBuddyAllocatorScenario2 covers RAM 1024, min order block 128: two
// 100-byte allocations each round up to order 7 (128 bytes); freeing
// both merges all the way back to order 10.
func TestBuddyAllocatorScenario2(t *testing.T) {
	b, err := NewBuddyAllocator(1024, 128)
	require.NoError(t, err)
	assert.Equal(t, 10, b.MaxOrder())

	id1, addr1, err := b.Alloc(100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), addr1)
	assert.Equal(t, 7, b.alloc[addr1].order)

	id2, addr2, err := b.Alloc(100)
	require.NoError(t, err)
	assert.Equal(t, uint64(128), addr2)

	require.NoError(t, b.FreeByID(id1))
	assert.Equal(t, []uint64{0}, b.free[7])

	require.NoError(t, b.FreeByID(id2))
	assert.Equal(t, []uint64{0}, b.free[10])
	for order := 0; order < 10; order++ {
		assert.Empty(t, b.free[order], "order %d should be empty after full merge", order)
	}
}

func TestBuddyAllocatorExactFitNoSplit(t *testing.T) {
	b, err := NewBuddyAllocator(1024, 64)
	require.NoError(t, err)

	_, _, err = b.Alloc(1024)
	require.NoError(t, err)
	for order := 0; order < b.MaxOrder(); order++ {
		assert.Empty(t, b.free[order])
	}
}

func TestBuddyAllocatorFailureLeavesStateUnchanged(t *testing.T) {
	b, err := NewBuddyAllocator(256, 64)
	require.NoError(t, err)

	before := b.FreeOrders()
	_, _, err = b.Alloc(1000)
	assert.ErrorIs(t, err, ErrAllocationFailed)
	assert.Equal(t, before, b.FreeOrders())
}

func TestBuddyAllocatorUsedBytesAndFragmentation(t *testing.T) {
	b, err := NewBuddyAllocator(1024, 64)
	require.NoError(t, err)

	_, _, err = b.Alloc(100) // rounds up to 128
	require.NoError(t, err)

	assert.Equal(t, uint64(128), b.UsedBytes())
	assert.Equal(t, uint64(28), b.InternalFragmentation())
}

func TestBuddyAllocatorRoundTrip(t *testing.T) {
	b, err := NewBuddyAllocator(1024, 64)
	require.NoError(t, err)

	var ids []int
	for _, size := range []uint64{64, 128, 256, 64} {
		id, _, err := b.Alloc(size)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for _, id := range ids {
		require.NoError(t, b.FreeByID(id))
	}
	assert.Equal(t, []uint64{0}, b.free[b.maxOrder])
	assert.Equal(t, uint64(0), b.UsedBytes())
}
