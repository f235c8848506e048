package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearAllocatorBasic(t *testing.T) {
	a := NewLinearAllocator(1024)

	t.Run("exact fit does not split", func(t *testing.T) {
		id, addr, err := a.Alloc(1024)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), addr)
		assert.Equal(t, 1, a.BlockCount())
		require.NoError(t, a.FreeByID(id))
	})

	t.Run("split then coalesce returns to one free block", func(t *testing.T) {
		id1, _, err := a.Alloc(200)
		require.NoError(t, err)
		id2, _, err := a.Alloc(300)
		require.NoError(t, err)

		require.NoError(t, a.FreeByID(id1))
		require.NoError(t, a.FreeByID(id2))

		assert.Equal(t, 1, a.BlockCount())
		assert.Equal(t, uint64(1024), a.LargestFree())
	})

	t.Run("alloc larger than any region fails and leaves state unchanged", func(t *testing.T) {
		before := a.BlockCount()
		_, _, err := a.Alloc(2048)
		assert.ErrorIs(t, err, ErrAllocationFailed)
		assert.Equal(t, before, a.BlockCount())
	})

	t.Run("free of unknown id is reported, not fatal", func(t *testing.T) {
		err := a.FreeByID(9999)
		assert.ErrorIs(t, err, ErrUnknownID)
	})
}

// TestLinearAllocatorScenario1 covers: alloc ff 200; alloc ff 300; free
// id=1; alloc bf 40 must land inside the 200-byte hole, not after the
// 300-byte block.
func TestLinearAllocatorScenario1(t *testing.T) {
	a := NewLinearAllocator(1024)
	a.SetStrategy(FirstFit)

	id1, addr1, err := a.Alloc(200)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), addr1)

	_, addr2, err := a.Alloc(300)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), addr2)

	require.NoError(t, a.FreeByID(id1))

	a.SetStrategy(BestFit)
	_, addr3, err := a.Alloc(40)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), addr3)
}

func TestLinearAllocatorStrategies(t *testing.T) {
	// Allocate 100, 500, 300 to fill the space, then free the 500-byte
	// middle block, leaving a single free region.
	a := NewLinearAllocator(900)
	a.SetStrategy(FirstFit)
	_, _, err := a.Alloc(100) // region A: [0,100)
	require.NoError(t, err)
	idMid, _, err := a.Alloc(500) // region B: [100,600)
	require.NoError(t, err)
	_, _, err = a.Alloc(300) // region C: [600,900)
	require.NoError(t, err)

	require.NoError(t, a.FreeByID(idMid))
	// blocks: used[0,100), free[100,600) size500, used[600,900)
	// Add a small free hole before the 500-byte one by carving region A
	// down further is unnecessary: we only have one free block here, so
	// exercise strategy selection against a partition with two holes.
	a2 := NewLinearAllocator(900)
	a2.SetStrategy(FirstFit)
	h1, _, _ := a2.Alloc(100)
	_, _, _ = a2.Alloc(200)
	h3, _, _ := a2.Alloc(100)
	_, _, _ = a2.Alloc(500)
	require.NoError(t, a2.FreeByID(h1)) // hole of 100 at start
	require.NoError(t, a2.FreeByID(h3)) // hole of 100 at offset 300

	a2.SetStrategy(WorstFit)
	_, addr, err := a2.Alloc(50)
	require.NoError(t, err)
	// Worst fit picks the larger-or-equal hole; both holes are 100, tie
	// broken by lowest start, so address 0.
	assert.Equal(t, uint64(0), addr)
}

func TestLinearAllocatorDoubleFreeRejected(t *testing.T) {
	a := NewLinearAllocator(256)
	id, _, err := a.Alloc(64)
	require.NoError(t, err)
	require.NoError(t, a.FreeByID(id))

	err = a.FreeByID(id)
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestLinearAllocatorFreeByAddressNonBoundary(t *testing.T) {
	a := NewLinearAllocator(256)
	_, _, err := a.Alloc(64)
	require.NoError(t, err)

	err = a.FreeByAddress(10)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
