package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVirtualMemoryScenario3 covers a single process whose first access
// to each new page faults and whose repeat access within a page hits.
func TestVirtualMemoryScenario3(t *testing.T) {
	vm := NewVirtualMemory(1024, 256)
	vm.InitProcess(1, 1024)

	ev, err := vm.Access(1, 0)
	require.NoError(t, err)
	assert.True(t, ev.Fault)
	assert.Equal(t, 0, ev.Frame)

	ev, err = vm.Access(1, 255)
	require.NoError(t, err)
	assert.True(t, ev.Hit)
	assert.Equal(t, 0, ev.Frame)

	ev, err = vm.Access(1, 256)
	require.NoError(t, err)
	assert.True(t, ev.Fault)
	assert.Equal(t, 1, ev.Frame)
}

// TestVirtualMemoryScenario4 covers four processes faulting into four
// distinct frames with no eviction, then a fifth process's fault evicts
// the least-recently-used among pids 2-4 (pid 1 having just been
// re-touched).
func TestVirtualMemoryScenario4(t *testing.T) {
	vm := NewVirtualMemory(4*256, 256)
	for pid := 1; pid <= 4; pid++ {
		vm.InitProcess(pid, 256)
		ev, err := vm.Access(pid, 0)
		require.NoError(t, err)
		assert.True(t, ev.Fault)
		assert.False(t, ev.Evicted)
	}

	// Touch pid 1 again so it becomes the most-recently-used frame.
	_, err := vm.Access(1, 0)
	require.NoError(t, err)

	vm.InitProcess(5, 256)
	ev, err := vm.Access(5, 0)
	require.NoError(t, err)
	assert.True(t, ev.Fault)
	assert.True(t, ev.Evicted)
	assert.Equal(t, 2, ev.EvictedPID, "pid 2 was the least recently used among 2-4")
}

func TestVirtualMemoryInvalidAddress(t *testing.T) {
	vm := NewVirtualMemory(1024, 256)
	vm.InitProcess(1, 256)

	_, err := vm.Access(1, 256) // only page 0 exists for a 256-byte space
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestVirtualMemoryUnknownProcess(t *testing.T) {
	vm := NewVirtualMemory(1024, 256)
	_, err := vm.Access(99, 0)
	assert.ErrorIs(t, err, ErrUnknownProcess)
}

func TestVirtualMemoryFrameExclusivity(t *testing.T) {
	vm := NewVirtualMemory(2*256, 256)
	vm.InitProcess(1, 256)
	vm.InitProcess(2, 256)
	vm.InitProcess(3, 256)

	vm.Access(1, 0)
	vm.Access(2, 0)
	ev, err := vm.Access(3, 0) // must evict whichever of 1/2 is older
	require.NoError(t, err)
	assert.True(t, ev.Evicted)

	table1, _ := vm.PageTable(1)
	table2, _ := vm.PageTable(2)
	validCount := 0
	if table1[0].Valid {
		validCount++
	}
	if table2[0].Valid {
		validCount++
	}
	assert.Equal(t, 1, validCount, "exactly one of pid 1/2 keeps its frame after pid 3 faults in")
}
