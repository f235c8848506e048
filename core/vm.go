package core

// pageTableEntry is one row of a process's page table.
type pageTableEntry struct {
	valid    bool
	frame    int
	lastUsed uint64
}

// frameOwner identifies which (pid, page) currently occupies a frame.
type frameOwner struct {
	occupied bool
	pid      int
	page     int
}

// VMEvent describes one observable outcome of VirtualMemory.Access, for
// a driver to report to its user.
type VMEvent struct {
	Hit          bool
	Fault        bool
	Evicted      bool
	EvictedPID   int
	EvictedFrame int
	Frame        int
	Page         int
	PhysAddr     uint64
	InvalidVAddr bool
}

// VirtualMemory translates (pid, virtual address) pairs to physical
// addresses through per-process page tables and a shared frame table,
// evicting by global least-recently-used frame on a page fault.
type VirtualMemory struct {
	pageSize  uint64
	numFrames int
	frames    []frameOwner
	tables    map[int][]pageTableEntry
	tick      uint64

	hits   uint64
	faults uint64
}

// NewVirtualMemory creates a VirtualMemory over physicalSize bytes, sliced
// into physicalSize/pageSize frames.
func NewVirtualMemory(physicalSize, pageSize uint64) *VirtualMemory {
	numFrames := int(physicalSize / pageSize)
	Info("Creating virtual memory: %d frames of %d bytes", numFrames, pageSize)
	return &VirtualMemory{
		pageSize:  pageSize,
		numFrames: numFrames,
		frames:    make([]frameOwner, numFrames),
		tables:    make(map[int][]pageTableEntry),
	}
}

// InitProcess creates (or replaces) pid's page table, sized for
// virtualSize bytes. Re-initializing a pid does not reclaim its frames;
// they stay occupied by stale entries until global LRU evicts them.
func (vm *VirtualMemory) InitProcess(pid int, virtualSize uint64) {
	numPages := int(virtualSize / vm.pageSize)
	Info("Initializing process %d with %d pages", pid, numPages)
	vm.tables[pid] = make([]pageTableEntry, numPages)
}

// HasProcess reports whether InitProcess has been called for pid.
func (vm *VirtualMemory) HasProcess(pid int) bool {
	_, ok := vm.tables[pid]
	return ok
}

// Access translates vaddr for pid, faulting in a frame if necessary.
func (vm *VirtualMemory) Access(pid int, vaddr uint64) (VMEvent, error) {
	table, ok := vm.tables[pid]
	if !ok {
		return VMEvent{}, ErrUnknownProcess
	}

	page := int(vaddr / vm.pageSize)
	offset := vaddr % vm.pageSize
	if page < 0 || page >= len(table) {
		Error("VM: pid %d vaddr %d out of range", pid, vaddr)
		return VMEvent{InvalidVAddr: true}, ErrInvalidAddress
	}

	vm.tick++
	entry := &table[page]
	if entry.valid {
		vm.hits++
		entry.lastUsed = vm.tick
		Debug("VM hit: pid %d page %d frame %d", pid, page, entry.frame)
		return VMEvent{
			Hit:      true,
			Frame:    entry.frame,
			Page:     page,
			PhysAddr: uint64(entry.frame)*vm.pageSize + offset,
		}, nil
	}

	vm.faults++
	frame, evicted, evictedPID, evictedFrame := vm.chooseVictim()
	if evicted {
		vm.invalidate(evictedPID, evictedFrame)
	}

	vm.frames[frame] = frameOwner{occupied: true, pid: pid, page: page}
	entry.valid = true
	entry.frame = frame
	entry.lastUsed = vm.tick

	Debug("VM fault: pid %d page %d assigned frame %d (evicted=%v)", pid, page, frame, evicted)
	return VMEvent{
		Fault:        true,
		Evicted:      evicted,
		EvictedPID:   evictedPID,
		EvictedFrame: evictedFrame,
		Frame:        frame,
		Page:         page,
		PhysAddr:     uint64(frame)*vm.pageSize + offset,
	}, nil
}

// chooseVictim picks the first free frame, or failing that the globally
// least-recently-used occupied frame (ties broken by lowest frame index).
func (vm *VirtualMemory) chooseVictim() (frame int, evicted bool, evictedPID, evictedFrame int) {
	for i, f := range vm.frames {
		if !f.occupied {
			return i, false, 0, 0
		}
	}

	victim := -1
	var oldest uint64
	for i, f := range vm.frames {
		// A frame whose owner's table no longer maps it here (the pid was
		// re-initialized) counts as least recently used.
		owner := vm.tables[f.pid]
		var last uint64
		if f.page < len(owner) && owner[f.page].valid && owner[f.page].frame == i {
			last = owner[f.page].lastUsed
		}
		if victim < 0 || last < oldest {
			victim = i
			oldest = last
		}
	}
	return victim, true, vm.frames[victim].pid, victim
}

// invalidate clears the page table entry that currently owns frame,
// restoring the frame-exclusivity invariant before it is reassigned.
func (vm *VirtualMemory) invalidate(pid, frame int) {
	table := vm.tables[pid]
	for i := range table {
		if table[i].valid && table[i].frame == frame {
			table[i].valid = false
			table[i].frame = 0
			return
		}
	}
}

// Hits returns the cumulative page-hit count.
func (vm *VirtualMemory) Hits() uint64 { return vm.hits }

// Faults returns the cumulative page-fault count.
func (vm *VirtualMemory) Faults() uint64 { return vm.faults }

// FramesUsed returns how many of pid's pages currently hold a valid
// frame mapping.
func (vm *VirtualMemory) FramesUsed(pid int) int {
	table := vm.tables[pid]
	used := 0
	for _, e := range table {
		if e.valid {
			used++
		}
	}
	return used
}

// TotalFrames returns the number of physical frames in the session.
func (vm *VirtualMemory) TotalFrames() int { return vm.numFrames }

// PageTable returns a copy-safe view of pid's page table for vm_table
// dumps: (valid, frame) per page index.
func (vm *VirtualMemory) PageTable(pid int) ([]struct {
	Valid bool
	Frame int
}, bool) {
	table, ok := vm.tables[pid]
	if !ok {
		return nil, false
	}
	out := make([]struct {
		Valid bool
		Frame int
	}, len(table))
	for i, e := range table {
		out[i] = struct {
			Valid bool
			Frame int
		}{e.valid, e.frame}
	}
	return out, true
}

// ProcessIDs returns every pid that has been initialized, in no
// particular order.
func (vm *VirtualMemory) ProcessIDs() []int {
	ids := make([]int, 0, len(vm.tables))
	for pid := range vm.tables {
		ids = append(ids, pid)
	}
	return ids
}
