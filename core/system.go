package core

import "fmt"

// AllocResult reports the outcome of a successful alloc command.
type AllocResult struct {
	ID      int
	Address uint64
}

// AccessOutcome classifies which level(s) of the cache hierarchy an
// access satisfied, decoded from the cycles CacheLevel.Access returned.
type AccessOutcome int

const (
	// L1Hit means the access was satisfied by L1 alone.
	L1Hit AccessOutcome = iota
	// L1MissL2Hit means L1 missed but L2 held the block.
	L1MissL2Hit
	// L1MissL2Miss means both levels missed and main memory answered.
	L1MissL2Miss
)

// AccessReport bundles a routed vm_access result with its cache outcome.
type AccessReport struct {
	VM         VMEvent
	Outcome    AccessOutcome
	CacheCost  uint64
	TotalCycle uint64
}

// Stats is the snapshot returned by System.Stats.
type Stats struct {
	AllocatorMode       AllocatorMode
	UsedBytes           uint64
	TotalBytes          uint64
	UtilizationPct      float64
	InternalFragBytes   uint64
	InternalFragPct     float64
	ExternalFragBytes   uint64
	ExternalFragPct     float64
	AllocAttempts       uint64
	AllocSuccesses      uint64
	AllocSuccessRatePct float64
	PageHits            uint64
	PageFaults          uint64
	PageFaultRatePct    float64
	FramesByPID         map[int]struct{ Used, Total int }
	L1Hits              uint64
	L1Misses            uint64
	L1HitRatioPct       float64
	L2Hits              uint64
	L2Misses            uint64
	L2HitRatioPct       float64
	TotalCycles         uint64
	DiskPenalty         uint64
}

// System holds everything a driver needs for one session: the chosen
// allocator, the VM subsystem, the cache chain, and the global cycle
// counter. A session is reset by building a new System with NewSystem,
// which constructs every field below in one call.
type System struct {
	cfg SystemConfig

	mode   AllocatorMode
	linear *LinearAllocator
	buddy  *BuddyAllocator

	vm *VirtualMemory
	l1 *CacheLevel
	l2 *CacheLevel

	cycles uint64

	allocAttempts  uint64
	allocSuccesses uint64
}

// NewSystem validates cfg and constructs a fresh session. It is the only
// way to obtain a *System; there is no zero-value usable instance, so a
// new init always starts from a clean slate.
func NewSystem(cfg SystemConfig) (*System, error) {
	if cfg.RAM == 0 || cfg.PageSize == 0 || cfg.RAM%cfg.PageSize != 0 {
		return nil, fmt.Errorf("%w: RAM must be a positive multiple of page size", ErrConfiguration)
	}
	for _, c := range []CacheConfig{cfg.L1, cfg.L2} {
		if c.BlockSize == 0 || c.Associativity <= 0 {
			return nil, fmt.Errorf("%w: cache block size and associativity must be positive", ErrConfiguration)
		}
	}
	if cfg.MainMemPenalty == 0 {
		cfg.MainMemPenalty = DefaultMainMemPenalty
	}
	if cfg.DiskPenalty == 0 {
		cfg.DiskPenalty = DefaultDiskPenalty
	}

	l2 := NewCacheLevel(cfg.L2, nil, cfg.MainMemPenalty)
	l1 := NewCacheLevel(cfg.L1, l2, 0)
	vm := NewVirtualMemory(cfg.RAM, cfg.PageSize)

	Info("System initialized: RAM=%d page=%d", cfg.RAM, cfg.PageSize)
	return &System{
		cfg:  cfg,
		mode: ModeUnset,
		vm:   vm,
		l1:   l1,
		l2:   l2,
	}, nil
}

// Alloc dispatches to whichever allocator the session is locked to. The
// first alloc after NewSystem picks the mode (linear vs buddy) and locks
// it for the rest of the session, whether or not that allocation itself
// succeeds; the mode stays unset only if the chosen allocator cannot be
// built for the configured RAM. strategy is only meaningful for
// mode == ModeLinear.
func (s *System) Alloc(mode AllocatorMode, strategy Strategy, size uint64) (AllocResult, error) {
	s.allocAttempts++

	if s.mode == ModeUnset {
		if err := s.lockMode(mode); err != nil {
			return AllocResult{}, err
		}
	} else if s.mode != mode {
		Error("Alloc rejected: session locked to %v, requested %v", s.mode, mode)
		return AllocResult{}, ErrAllocatorLocked
	}

	switch s.mode {
	case ModeLinear:
		s.linear.SetStrategy(strategy)
		id, addr, err := s.linear.Alloc(size)
		if err != nil {
			return AllocResult{}, err
		}
		s.allocSuccesses++
		return AllocResult{ID: id, Address: addr}, nil
	case ModeBuddy:
		id, addr, err := s.buddy.Alloc(size)
		if err != nil {
			return AllocResult{}, err
		}
		s.allocSuccesses++
		return AllocResult{ID: id, Address: addr}, nil
	default:
		return AllocResult{}, ErrNoAllocator
	}
}

// lockMode constructs the chosen allocator and locks the session to it.
func (s *System) lockMode(mode AllocatorMode) error {
	switch mode {
	case ModeLinear:
		s.linear = NewLinearAllocator(s.cfg.RAM)
		s.mode = ModeLinear
		Info("Session locked to linear allocator")
		return nil
	case ModeBuddy:
		buddy, err := NewBuddyAllocator(s.cfg.RAM, MinBuddyBlockSize)
		if err != nil {
			return err
		}
		s.buddy = buddy
		s.mode = ModeBuddy
		Info("Session locked to buddy allocator")
		return nil
	default:
		return ErrConfiguration
	}
}

// MinBuddyBlockSize is the smallest block the buddy allocator will ever
// carve for a default session.
const MinBuddyBlockSize uint64 = 64

// Free routes a free-by-id to whichever allocator is live.
func (s *System) Free(id int) error {
	switch s.mode {
	case ModeLinear:
		return s.linear.FreeByID(id)
	case ModeBuddy:
		return s.buddy.FreeByID(id)
	default:
		return ErrNoAllocator
	}
}

// VMInit creates (or replaces) pid's page table.
func (s *System) VMInit(pid int, virtualSize uint64) {
	s.vm.InitProcess(pid, virtualSize)
}

// VMAccess translates (pid, vaddr), routes the resulting physical address
// through L1->L2->main memory, and charges the global cycle counter for
// both the VM fault path (if any) and the cache path.
func (s *System) VMAccess(pid int, vaddr uint64) (AccessReport, error) {
	event, err := s.vm.Access(pid, vaddr)
	if err != nil {
		return AccessReport{VM: event}, err
	}

	if event.Fault {
		s.cycles += s.cfg.DiskPenalty
	}

	cost := s.l1.Access(event.PhysAddr)
	s.cycles += cost

	var outcome AccessOutcome
	switch {
	case cost == s.l1.AccessCost():
		outcome = L1Hit
	case cost == s.l1.AccessCost()+s.l2.AccessCost():
		outcome = L1MissL2Hit
	default:
		outcome = L1MissL2Miss
	}

	return AccessReport{VM: event, Outcome: outcome, CacheCost: cost, TotalCycle: s.cycles}, nil
}

// VMTable returns pid's page table for a vm_table dump.
func (s *System) VMTable(pid int) ([]struct {
	Valid bool
	Frame int
}, bool) {
	return s.vm.PageTable(pid)
}

// Stats gathers fragmentation, utilization, and hit/miss reporting across
// every subsystem.
func (s *System) Stats() Stats {
	stats := Stats{
		AllocatorMode: s.mode,
		TotalBytes:    s.cfg.RAM,
		AllocAttempts: s.allocAttempts,
		PageHits:      s.vm.Hits(),
		PageFaults:    s.vm.Faults(),
		L1Hits:        s.l1.Hits(),
		L1Misses:      s.l1.Misses(),
		L2Hits:        s.l2.Hits(),
		L2Misses:      s.l2.Misses(),
		TotalCycles:   s.cycles,
		DiskPenalty:   s.cfg.DiskPenalty,
		FramesByPID:   map[int]struct{ Used, Total int }{},
	}
	stats.AllocSuccesses = s.allocSuccesses

	switch s.mode {
	case ModeLinear:
		stats.UsedBytes = s.linear.UsedBytes()
		stats.ExternalFragBytes = s.linear.FreeBytes() - s.linear.LargestFree()
	case ModeBuddy:
		stats.UsedBytes = s.buddy.UsedBytes()
		stats.InternalFragBytes = s.buddy.InternalFragmentation()
	}

	if stats.TotalBytes > 0 {
		stats.UtilizationPct = pct(stats.UsedBytes, stats.TotalBytes)
	}
	if stats.UsedBytes > 0 {
		stats.InternalFragPct = pct(stats.InternalFragBytes, stats.UsedBytes)
	}
	freeBytes := stats.TotalBytes - stats.UsedBytes
	if freeBytes > 0 {
		stats.ExternalFragPct = pct(stats.ExternalFragBytes, freeBytes)
	}
	if stats.AllocAttempts > 0 {
		stats.AllocSuccessRatePct = pct(stats.AllocSuccesses, stats.AllocAttempts)
	}
	if total := stats.PageHits + stats.PageFaults; total > 0 {
		stats.PageFaultRatePct = pct(stats.PageFaults, total)
	}
	if total := stats.L1Hits + stats.L1Misses; total > 0 {
		stats.L1HitRatioPct = pct(stats.L1Hits, total)
	}
	if total := stats.L2Hits + stats.L2Misses; total > 0 {
		stats.L2HitRatioPct = pct(stats.L2Hits, total)
	}

	for _, pid := range s.vm.ProcessIDs() {
		stats.FramesByPID[pid] = struct{ Used, Total int }{
			Used:  s.vm.FramesUsed(pid),
			Total: s.vm.TotalFrames(),
		}
	}

	return stats
}

func pct(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
