package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCacheLevelScenario5 covers four distinct blocks mapping to one set
// with 2-way associativity evicting by FIFO, so the first block misses
// again on re-access.
func TestCacheLevelScenario5(t *testing.T) {
	cfg := CacheConfig{TotalSize: 128, BlockSize: 64, Associativity: 2, AccessCost: 1, Policy: FIFO}
	l1 := NewCacheLevel(cfg, nil, 100)

	addrs := []uint64{0x1000, 0x1040, 0x1080, 0x10C0}
	for _, a := range addrs {
		cost := l1.Access(a)
		assert.Equal(t, cfg.AccessCost+100, cost, "each of the first four addresses must miss")
	}
	assert.Equal(t, uint64(4), l1.Misses())

	cost := l1.Access(0x1000)
	assert.Equal(t, cfg.AccessCost+100, cost, "0x1000 must miss again: it was FIFO-evicted by 0x1080")
}

func TestCacheLevelAssociativityOneEvictsEveryTagChange(t *testing.T) {
	cfg := CacheConfig{TotalSize: 64, BlockSize: 64, Associativity: 1, AccessCost: 1, Policy: LRU}
	l1 := NewCacheLevel(cfg, nil, 100)

	l1.Access(0)
	l1.Access(64) // different tag, same (only) set -> must evict
	cost := l1.Access(0)
	assert.Equal(t, cfg.AccessCost+100, cost, "address 0 must miss: associativity 1 evicted it on the second access")
}

func TestCacheLevelChainsToNextOnMiss(t *testing.T) {
	l2cfg := CacheConfig{TotalSize: 512, BlockSize: 64, Associativity: 4, AccessCost: 5, Policy: FIFO}
	l2 := NewCacheLevel(l2cfg, nil, 100)
	l1cfg := CacheConfig{TotalSize: 128, BlockSize: 64, Associativity: 2, AccessCost: 1, Policy: FIFO}
	l1 := NewCacheLevel(l1cfg, l2, 0)

	cost := l1.Access(0x2000)
	assert.Equal(t, l1cfg.AccessCost+l2cfg.AccessCost+100, cost, "first access misses both levels, falls to main memory")

	cost = l1.Access(0x2000)
	assert.Equal(t, l1cfg.AccessCost, cost, "second access hits L1")
}

func TestCacheLevelLFUEvictsLeastFrequent(t *testing.T) {
	cfg := CacheConfig{TotalSize: 128, BlockSize: 64, Associativity: 2, AccessCost: 1, Policy: LFU}
	l1 := NewCacheLevel(cfg, nil, 100)

	l1.Access(0)   // way 0, freq 1
	l1.Access(64)  // way 1, freq 1
	l1.Access(0)   // hit, way 0 freq 2
	l1.Access(128) // miss, evicts way 1 (freq 1 < 2)
	cost := l1.Access(64)
	assert.Equal(t, cfg.AccessCost+100, cost, "address 64 was evicted by the LFU victim choice")
}
