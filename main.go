// Command memsim is a line-oriented front end for the memory hierarchy
// simulator in package core. It is intentionally thin: parsing, help
// text, and dump formatting live here so the core's semantics do not
// depend on any particular driver.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shenjiangwei/memsim/core"
)

func main() {
	scriptPath := flag.String("script", "", "read commands from a file instead of stdin")
	flag.Parse()

	var in *bufio.Scanner
	if *scriptPath != "" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			log.Fatalf("could not open script: %v", err)
		}
		defer f.Close()
		in = bufio.NewScanner(f)
	} else {
		in = bufio.NewScanner(os.Stdin)
	}

	repl := newREPL(os.Stdout)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !repl.dispatch(line) {
			break
		}
	}
}

// repl holds the one live System for the session between commands.
type repl struct {
	out    *bufio.Writer
	system *core.System
}

func newREPL(w *os.File) *repl {
	return &repl{out: bufio.NewWriter(w)}
}

func (r *repl) dispatch(line string) bool {
	defer r.out.Flush()
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "init":
		r.cmdInit(args)
	case "alloc":
		r.cmdAlloc(args)
	case "free":
		r.cmdFree(args)
	case "vm_init":
		r.cmdVMInit(args)
	case "access":
		r.cmdAccess(args)
	case "vm_table":
		r.cmdVMTable(args)
	case "stats", "dump":
		r.cmdStats()
	case "exit":
		return false
	default:
		fmt.Fprintf(r.out, "unknown command: %s\n", cmd)
	}
	return true
}

// cmdInit parses: init ram page l1:size,blk,assoc,cost,policy l2:size,blk,assoc,cost,policy
// Each cache level is given as comma-separated "size,blk,assoc,cost,policy".
func (r *repl) cmdInit(args []string) {
	if len(args) < 4 {
		fmt.Fprintln(r.out, "usage: init ram page l1:size,blk,assoc,cost,policy l2:size,blk,assoc,cost,policy")
		return
	}
	ram, err1 := strconv.ParseUint(args[0], 10, 64)
	page, err2 := strconv.ParseUint(args[1], 10, 64)
	l1, err3 := parseCacheConfig(args[2], "l1:")
	l2, err4 := parseCacheConfig(args[3], "l2:")
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		fmt.Fprintln(r.out, "failure: bad init arguments")
		return
	}

	system, err := core.NewSystem(core.SystemConfig{RAM: ram, PageSize: page, L1: l1, L2: l2})
	if err != nil {
		fmt.Fprintf(r.out, "failure: %v\n", err)
		return
	}
	r.system = system
	fmt.Fprintln(r.out, "ok: session reset")
}

func parseCacheConfig(arg, prefix string) (core.CacheConfig, error) {
	if !strings.HasPrefix(arg, prefix) {
		return core.CacheConfig{}, fmt.Errorf("expected prefix %s", prefix)
	}
	parts := strings.Split(strings.TrimPrefix(arg, prefix), ",")
	if len(parts) != 5 {
		return core.CacheConfig{}, fmt.Errorf("expected 5 comma-separated fields")
	}
	size, err1 := strconv.ParseUint(parts[0], 10, 64)
	blk, err2 := strconv.ParseUint(parts[1], 10, 64)
	assoc, err3 := strconv.Atoi(parts[2])
	cost, err4 := strconv.ParseUint(parts[3], 10, 64)
	policy, err5 := parsePolicy(parts[4])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return core.CacheConfig{}, fmt.Errorf("malformed cache config %q", arg)
	}
	return core.CacheConfig{TotalSize: size, BlockSize: blk, Associativity: assoc, AccessCost: cost, Policy: policy}, nil
}

func parsePolicy(s string) (core.Policy, error) {
	switch strings.ToLower(s) {
	case "fifo":
		return core.FIFO, nil
	case "lru":
		return core.LRU, nil
	case "lfu":
		return core.LFU, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", s)
	}
}

func (r *repl) cmdAlloc(args []string) {
	if r.system == nil {
		fmt.Fprintln(r.out, "failure: session not initialized")
		return
	}
	if len(args) != 2 {
		fmt.Fprintln(r.out, "usage: alloc mode size")
		return
	}
	size, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		fmt.Fprintln(r.out, "failure: bad size")
		return
	}

	var mode core.AllocatorMode
	var strategy core.Strategy
	switch args[0] {
	case "ff":
		mode, strategy = core.ModeLinear, core.FirstFit
	case "bf":
		mode, strategy = core.ModeLinear, core.BestFit
	case "wf":
		mode, strategy = core.ModeLinear, core.WorstFit
	case "buddy":
		mode = core.ModeBuddy
	default:
		fmt.Fprintf(r.out, "failure: unknown mode %q\n", args[0])
		return
	}

	result, err := r.system.Alloc(mode, strategy, size)
	if err != nil {
		fmt.Fprintf(r.out, "failure: %v\n", err)
		return
	}
	if mode == core.ModeBuddy {
		fmt.Fprintf(r.out, "ok: id=%d address=0x%x\n", result.ID, result.Address)
	} else {
		fmt.Fprintf(r.out, "ok: id=%d address=%d\n", result.ID, result.Address)
	}
}

func (r *repl) cmdFree(args []string) {
	if r.system == nil {
		fmt.Fprintln(r.out, "failure: session not initialized")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(r.out, "usage: free id")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(r.out, "failure: bad id")
		return
	}
	if err := r.system.Free(id); err != nil {
		fmt.Fprintf(r.out, "no block with id %d: %v\n", id, err)
		return
	}
	fmt.Fprintf(r.out, "ok: freed id=%d\n", id)
}

func (r *repl) cmdVMInit(args []string) {
	if r.system == nil {
		fmt.Fprintln(r.out, "failure: session not initialized")
		return
	}
	if len(args) != 2 {
		fmt.Fprintln(r.out, "usage: vm_init pid virtual_size")
		return
	}
	pid, err1 := strconv.Atoi(args[0])
	size, err2 := strconv.ParseUint(args[1], 10, 64)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(r.out, "failure: bad vm_init arguments")
		return
	}
	r.system.VMInit(pid, size)
	fmt.Fprintf(r.out, "ok: process %d initialized\n", pid)
}

func (r *repl) cmdAccess(args []string) {
	if r.system == nil {
		fmt.Fprintln(r.out, "failure: session not initialized")
		return
	}
	if len(args) != 2 {
		fmt.Fprintln(r.out, "usage: access pid vaddr")
		return
	}
	pid, err1 := strconv.Atoi(args[0])
	vaddr, err2 := strconv.ParseUint(args[1], 0, 64)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(r.out, "failure: bad access arguments")
		return
	}

	report, err := r.system.VMAccess(pid, vaddr)
	if err != nil {
		fmt.Fprintf(r.out, "failure: %v\n", err)
		return
	}

	switch {
	case report.VM.Hit:
		fmt.Fprintf(r.out, "page hit frame %d; ", report.VM.Frame)
	case report.VM.Evicted:
		fmt.Fprintf(r.out, "page fault, page eviction pid %d frame %d, mapped pid %d page %d -> frame %d; ",
			report.VM.EvictedPID, report.VM.EvictedFrame, pid, report.VM.Page, report.VM.Frame)
	default:
		fmt.Fprintf(r.out, "page fault, mapped pid %d page %d -> frame %d; ", pid, report.VM.Page, report.VM.Frame)
	}

	switch report.Outcome {
	case core.L1Hit:
		fmt.Fprintln(r.out, "L1 hit")
	case core.L1MissL2Hit:
		fmt.Fprintln(r.out, "L1 miss, L2 hit")
	default:
		fmt.Fprintln(r.out, "L1 miss, L2 miss, main memory")
	}
}

func (r *repl) cmdVMTable(args []string) {
	if r.system == nil {
		fmt.Fprintln(r.out, "failure: session not initialized")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(r.out, "usage: vm_table pid")
		return
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(r.out, "failure: bad pid")
		return
	}
	table, ok := r.system.VMTable(pid)
	if !ok {
		fmt.Fprintf(r.out, "failure: unknown process %d\n", pid)
		return
	}
	for page, entry := range table {
		fmt.Fprintf(r.out, "page %d: valid=%v frame=%d\n", page, entry.Valid, entry.Frame)
	}
}

func (r *repl) cmdStats() {
	if r.system == nil {
		fmt.Fprintln(r.out, "failure: session not initialized")
		return
	}
	s := r.system.Stats()
	fmt.Fprintf(r.out, "utilization: %.2f%% (%d/%d bytes)\n", s.UtilizationPct, s.UsedBytes, s.TotalBytes)
	fmt.Fprintf(r.out, "internal fragmentation: %d bytes (%.2f%%)\n", s.InternalFragBytes, s.InternalFragPct)
	fmt.Fprintf(r.out, "external fragmentation: %d bytes (%.2f%%)\n", s.ExternalFragBytes, s.ExternalFragPct)
	fmt.Fprintf(r.out, "alloc success rate: %.2f%% (%d/%d)\n", s.AllocSuccessRatePct, s.AllocSuccesses, s.AllocAttempts)
	fmt.Fprintf(r.out, "page hits: %d, faults: %d, fault rate: %.2f%%\n", s.PageHits, s.PageFaults, s.PageFaultRatePct)

	pids := make([]int, 0, len(s.FramesByPID))
	for pid := range s.FramesByPID {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	for _, pid := range pids {
		f := s.FramesByPID[pid]
		fmt.Fprintf(r.out, "  pid %d: %d/%d frames\n", pid, f.Used, f.Total)
	}

	fmt.Fprintf(r.out, "L1: %d hits, %d misses, %.2f%% hit ratio\n", s.L1Hits, s.L1Misses, s.L1HitRatioPct)
	fmt.Fprintf(r.out, "L2: %d hits, %d misses, %.2f%% hit ratio\n", s.L2Hits, s.L2Misses, s.L2HitRatioPct)
	fmt.Fprintf(r.out, "total cycles: %d (disk penalty %d per fault)\n", s.TotalCycles, s.DiskPenalty)
}
