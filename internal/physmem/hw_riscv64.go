//go:build riscv64

package physmem

import (
	"unsafe"

	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
)

// HW is a Memory backed directly by the identity-mapped kernel view of
// physical RAM: the kernel address space (internal/memset.NewKernel) maps
// every frame in the pool 1:1, so a PPN's page-table view and byte view
// are just unsafe.Pointer casts of ppn<<PageShift, exactly how the
// teacher's mmu.go treats a physical frame as whatever fixed-shape array
// the caller needs via a pointer cast.
type HW struct{}

// Table returns the 512-entry PTE view of the frame at ppn.
func (HW) Table(ppn frame.PPN) *[512]uint64 {
	return (*[512]uint64)(unsafe.Pointer(uintptr(ppn) << memlayout.PageShift))
}

// Bytes returns the 4096-byte view of the frame at ppn.
func (HW) Bytes(ppn frame.PPN) *[4096]byte {
	return (*[4096]byte)(unsafe.Pointer(uintptr(ppn) << memlayout.PageShift))
}
