//go:build !riscv64

// Host simulator for pagetable.Memory: off real hardware there is no
// physical address space to dereference, so frames are backed by a map
// of PPN to a heap-allocated [512]uint64 array. Production boot instead
// uses the riscv64-tagged physical-memory view in
// internal/physmem/hw_riscv64.go, which casts the PPN directly to an unsafe.Pointer into the linear-mapped physical
// region, the same way the teacher treats page-table frames as raw
// pointers in mmu.go.
package pagetable

import (
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/frame"
)

// SimMemory is a pagetable.Memory backed by host heap memory, for tests
// and the qemu-less simulator build.
type SimMemory struct {
	mu     sync.Mutex
	tables map[frame.PPN]*[512]uint64
}

// NewSimMemory returns an empty simulated physical memory.
func NewSimMemory() *SimMemory {
	return &SimMemory{tables: make(map[frame.PPN]*[512]uint64)}
}

// Table returns the [512]uint64 view backing ppn, allocating it lazily on
// first touch (mirrors the frame allocator's "zero on alloc" guarantee:
// a never-before-seen frame reads as all-zero PTEs).
func (m *SimMemory) Table(ppn frame.PPN) *[512]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, ok := m.tables[ppn]
	if !ok {
		tbl = &[512]uint64{}
		m.tables[ppn] = tbl
	}
	return tbl
}
