package task

import "sync"

// InitPID is the reserved PID of the init task, which every orphaned
// task is re-parented to on its parent's exit (spec.md §4.8 Exit).
const InitPID = 1

// idlePID is reserved for the per-hart idle pseudo-task, which never
// appears in the scheduler's ready structure and never allocates a real
// PID from the pool below.
const idlePID = 0

// pidAllocator recycles freed PIDs before growing the bump cursor, the
// same shape as original_source/kernel/src/id.rs's IdAllocator, generalized
// from its app-id use there to the PID pool pid.rs builds on top of it.
type pidAllocator struct {
	mu       sync.Mutex
	current  int
	recycled []int
}

func newPIDAllocator(start int) *pidAllocator {
	return &pidAllocator{current: start}
}

func (p *pidAllocator) alloc() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.recycled); n > 0 {
		id := p.recycled[n-1]
		p.recycled = p.recycled[:n-1]
		return id
	}
	id := p.current
	p.current++
	return id
}

func (p *pidAllocator) dealloc(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.recycled {
		if r == pid {
			panic("task: pid double-freed")
		}
	}
	p.recycled = append(p.recycled, pid)
}

// globalPIDs is the process-wide PID pool: 0 is reserved for the idle
// pseudo-task, 1 for init, so the pool starts handing out PIDs at 2
// (pid.rs: "0 IDLE 1 INIT PROC").
var globalPIDs = newPIDAllocator(2)

// AllocPID reserves the next PID, recycled ones first.
func AllocPID() int { return globalPIDs.alloc() }

// DeallocPID returns pid to the pool; panics on a double-free, mirroring
// IdAllocator::dealloc's assert (an internal invariant violation, fatal
// per spec.md §7 "internal invariant violations ... are fatal").
func DeallocPID(pid int) { globalPIDs.dealloc(pid) }
