// Package heap is the kernel heap collaborator (spec.md §4, C2): a hybrid
// allocator that serves allocations at or below 2KiB from a slab of
// fixed-size blocks and everything larger from a buddy allocator, falling
// back from slab to buddy when a size class is exhausted. This is a
// direct port of the dispatch shape in
// original_source/kernel/src/memory/heap_allocator.rs's HybridAllocator,
// with the teacher's heap.go contributing the "single fixed arena sized at
// init, zeroed header on init" style (heapInit/KERNEL_HEAP_SIZE).
package heap

import (
	"errors"
	"sync"
)

// ErrOutOfMemory is returned when neither the slab nor the buddy
// allocator can satisfy a request. Per spec.md §4.2/§7, heap exhaustion
// terminates only the faulting task, never the kernel: it is an ordinary
// error return here, not a panic.
var ErrOutOfMemory = errors.New("heap: out of memory")

const pageSize = 4096

// Heap is the hybrid slab+buddy allocator over one fixed-size backing
// arena, established once at boot by Init.
type Heap struct {
	mu    sync.Mutex
	buddy *BuddyAllocator
	slab  *SlabAllocator
}

// New creates a Heap over the byte range [base, base+size). size is
// rounded down to a power of two by the buddy allocator beneath it.
func New(base uintptr, size uint32) *Heap {
	h := &Heap{}
	h.buddy = NewBuddyAllocator(base, size, 16)
	h.slab = newSlabAllocator(buddyPageSource{h.buddy}, pageSize)
	return h
}

// buddyPageSource adapts a BuddyAllocator to the slab's pageSource
// interface, so the slab never needs its own arena.
type buddyPageSource struct{ b *BuddyAllocator }

func (s buddyPageSource) allocPage() (uintptr, bool) { return s.b.alloc(pageSize) }
func (s buddyPageSource) freePage(addr uintptr, size uint32) { s.b.free(addr, size) }

// Alloc returns size bytes. Requests at or below the slab cutoff try the
// slab first and fall back to the buddy allocator on slab exhaustion,
// exactly as HybridAllocator::alloc falls back; larger requests go
// straight to the buddy allocator.
func (h *Heap) Alloc(size uint32) (uintptr, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if size <= slabCutoff {
		if addr, ok := h.slab.alloc(size); ok {
			return addr, nil
		}
		if addr, ok := h.buddy.alloc(size); ok {
			return addr, nil
		}
		return 0, ErrOutOfMemory
	}
	if addr, ok := h.buddy.alloc(size); ok {
		return addr, nil
	}
	return 0, ErrOutOfMemory
}

// Free returns a previously allocated size-byte block. The caller must
// pass the same size given to Alloc, mirroring Rust's Layout-carrying
// GlobalAlloc::dealloc.
func (h *Heap) Free(addr uintptr, size uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if size <= slabCutoff && h.slab.free(addr, size) {
		return
	}
	h.buddy.free(addr, size)
}

// global is the process-wide kernel heap singleton (spec.md §9). Init is
// one-shot; Global panics if used before Init, matching every other
// global singleton's contract in this kernel.
var global struct {
	mu sync.Mutex
	h  *Heap
}

// Init installs the kernel heap over [base, base+size). Must be called
// exactly once during boot, after the physical frame allocator is ready.
func Init(base uintptr, size uint32) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.h != nil {
		panic("heap: Init called twice")
	}
	global.h = New(base, size)
}

// Global returns the installed kernel heap.
func Global() *Heap {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.h == nil {
		panic("heap: used before Init")
	}
	return global.h
}
