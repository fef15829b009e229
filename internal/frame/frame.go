// Package frame is the physical frame allocator (spec.md §4.1, C1): a
// bump cursor over [start, end) backed by a LIFO free list, exactly the
// shape of original_source/kernel/src/memory/frame_allocator.rs's
// StackFrameAllocator, with the same two failure modes
// (OutOfRange, Duplicate) and the same "freed frames are zeroed on next
// alloc, not on free" policy the teacher's allocatePageTable/allocPhysFrame
// pair also follows (mmu.go).
package frame

import (
	"errors"
	"sync"
)

// PPN is a physical page number — a physical address divided by the page
// size, never a raw address.
type PPN uint64

// ErrOutOfRange is returned by Dealloc when ppn never belonged to the pool.
var ErrOutOfRange = errors.New("frame: ppn out of range")

// ErrDuplicate is returned by Dealloc when ppn is already on the free list.
// Detection is exact (a linear scan against recycled PPNs), matching
// spec.md §4.1's "Duplicate detection must be exact; a dropped frame token
// must not double-free."
var ErrDuplicate = errors.New("frame: duplicate free")

// Allocator is the C1 physical frame allocator. The zero value is not
// usable; construct with New.
type Allocator struct {
	mu sync.Mutex

	start PPN // first frame ever handed out by the bump cursor
	next  PPN // bump cursor: next frame the pool has not yet touched
	end   PPN // one past the last valid frame

	free []PPN // LIFO free list

	// zeroPage, if set, is called to zero a frame's backing bytes before
	// it is handed to a caller. Real boot wires a fill-memory callback;
	// the simulator and tests can leave it nil (spec only requires the
	// returned frame to read as zero from the allocator's own point of
	// view once a backing store is wired up by the caller).
	zeroPage func(PPN)
}

// New initializes the allocator over the inclusive-start/exclusive-end
// frame range [startAddr, endAddr), page-aligning start up and end down,
// per spec.md §4.1.
func New(startAddr, endAddr uintptr, pageSize uintptr, zeroPage func(PPN)) *Allocator {
	start := PPN((startAddr + pageSize - 1) / pageSize)
	end := PPN(endAddr / pageSize)
	if end < start {
		end = start
	}
	return &Allocator{start: start, next: start, end: end, zeroPage: zeroPage}
}

// Alloc pops the free list if non-empty, else advances the bump cursor,
// else reports exhaustion. The returned frame is zeroed.
func (a *Allocator) Alloc() (PPN, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		ppn := a.free[n-1]
		a.free = a.free[:n-1]
		a.zero(ppn)
		return ppn, true
	}
	if a.next < a.end {
		ppn := a.next
		a.next++
		a.zero(ppn)
		return ppn, true
	}
	return 0, false
}

func (a *Allocator) zero(ppn PPN) {
	if a.zeroPage != nil {
		a.zeroPage(ppn)
	}
}

// Dealloc returns a frame to the free list. ErrOutOfRange if ppn was never
// part of the pool (below start, or at/above the bump cursor — a frame the
// bump allocator has not yet handed out cannot be a valid free); ErrDuplicate
// if ppn is already free.
func (a *Allocator) Dealloc(ppn PPN) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ppn < a.start || ppn >= a.next {
		return ErrOutOfRange
	}
	for _, f := range a.free {
		if f == ppn {
			return ErrDuplicate
		}
	}
	a.free = append(a.free, ppn)
	return nil
}

// Stats reports current allocator bookkeeping for the sys_meminfo syscall
// and for debug diagnostics (spec_full.md C1 expansion).
type Stats struct {
	Total     uint64 // total frames in the pool
	Allocated uint64 // frames currently held by a caller (not free)
	Free      uint64 // frames not held by a caller: the free list plus frames the bump cursor has not reached
}

func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := uint64(a.end - a.start)
	touched := uint64(a.next - a.start)
	free := uint64(len(a.free))
	allocated := touched - free
	return Stats{Total: total, Allocated: allocated, Free: total - allocated}
}
