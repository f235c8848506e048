package core

// cacheLine is one way within a set.
type cacheLine struct {
	valid        bool
	tag          uint64
	insertedTick uint64
	lastTick     uint64
	frequency    uint64
}

// CacheLevel is one set-associative cache, optionally chained to a next
// level consulted on miss. Ways within a set are evicted by FIFO, LRU, or
// LFU according to cfg.Policy.
type CacheLevel struct {
	cfg     CacheConfig
	numSets uint64
	sets    [][]cacheLine
	next    *CacheLevel
	tick    uint64

	// mainMemPenalty is charged on a miss when next is nil. Ignored at
	// any level that chains to a next level.
	mainMemPenalty uint64

	hits   uint64
	misses uint64
}

// NewCacheLevel builds a cache level from cfg, chained to next (nil for
// the last level). numSets = TotalSize / (BlockSize * Associativity).
// mainMemPenalty is only consulted when next is nil.
func NewCacheLevel(cfg CacheConfig, next *CacheLevel, mainMemPenalty uint64) *CacheLevel {
	numSets := cfg.TotalSize / (cfg.BlockSize * uint64(cfg.Associativity))
	if numSets == 0 {
		numSets = 1
	}
	sets := make([][]cacheLine, numSets)
	for i := range sets {
		sets[i] = make([]cacheLine, cfg.Associativity)
	}
	Info("Creating cache level: %d bytes, %d-byte blocks, %d-way, %s policy, %d sets",
		cfg.TotalSize, cfg.BlockSize, cfg.Associativity, cfg.Policy, numSets)
	return &CacheLevel{cfg: cfg, numSets: numSets, sets: sets, next: next, mainMemPenalty: mainMemPenalty}
}

// blockTag splits a physical address into (set index, tag).
func (c *CacheLevel) blockTag(address uint64) (setIdx uint64, tag uint64) {
	block := address / c.cfg.BlockSize
	setIdx = block % c.numSets
	tag = block / c.numSets
	return setIdx, tag
}

// Access performs one memory access through this level (and, on miss,
// through the chain below it), returning the total cycles charged.
func (c *CacheLevel) Access(address uint64) uint64 {
	c.tick++
	setIdx, tag := c.blockTag(address)
	set := c.sets[setIdx]

	for i := range set {
		line := &set[i]
		if line.valid && line.tag == tag {
			c.hits++
			switch c.cfg.Policy {
			case LRU:
				line.lastTick = c.tick
			case LFU:
				line.frequency++
				line.lastTick = c.tick
			case FIFO:
				// no metadata update on hit
			}
			Debug("Cache hit at address %d (set %d, tag %d)", address, setIdx, tag)
			return c.cfg.AccessCost
		}
	}

	c.misses++
	var penalty uint64
	if c.next != nil {
		penalty = c.next.Access(address)
	} else {
		penalty = c.mainMemPenalty
	}

	victim := c.victimIndex(set)
	set[victim] = cacheLine{valid: true, tag: tag, insertedTick: c.tick, lastTick: c.tick, frequency: 1}
	Debug("Cache miss at address %d (set %d, tag %d), installed way %d", address, setIdx, tag, victim)

	return c.cfg.AccessCost + penalty
}

// victimIndex picks an invalid way if one exists, else the way chosen by
// the level's eviction policy.
func (c *CacheLevel) victimIndex(set []cacheLine) int {
	for i := range set {
		if !set[i].valid {
			return i
		}
	}

	victim := 0
	switch c.cfg.Policy {
	case FIFO:
		for i := 1; i < len(set); i++ {
			if set[i].insertedTick < set[victim].insertedTick {
				victim = i
			}
		}
	case LRU:
		for i := 1; i < len(set); i++ {
			if set[i].lastTick < set[victim].lastTick {
				victim = i
			}
		}
	case LFU:
		for i := 1; i < len(set); i++ {
			if set[i].frequency < set[victim].frequency ||
				(set[i].frequency == set[victim].frequency && set[i].lastTick < set[victim].lastTick) {
				victim = i
			}
		}
	}
	return victim
}

// Hits returns the number of hits recorded at this level.
func (c *CacheLevel) Hits() uint64 { return c.hits }

// Misses returns the number of misses recorded at this level.
func (c *CacheLevel) Misses() uint64 { return c.misses }

// AccessCost returns this level's per-access cost, used by System to
// decode which levels hit/missed from the total cycles Access returned.
func (c *CacheLevel) AccessCost() uint64 { return c.cfg.AccessCost }

// Next returns the chained next level, or nil if this is the last level.
func (c *CacheLevel) Next() *CacheLevel { return c.next }
