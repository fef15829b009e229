// Package physmem is the single view of physical memory shared by the
// page-table engine (internal/pagetable) and the address-space builder
// (internal/memset): a page-table frame and a data frame are both just
// bytes at a physical page number, interpreted two different ways. This
// mirrors how original_source's PhysicalPageNumber::get_bytes_mut and
// page_table.rs's frame-as-[PageTableEntry; 512] cast are really the same
// operation on the same underlying storage, and matches the teacher's own
// habit (mmu.go) of treating a physical frame as whatever fixed-shape
// array the caller needs via a pointer cast.
package physmem

import "github.com/gitwillsky/lite-os-sub002/internal/frame"

// Memory is the physical-page access surface the kernel core needs: a
// page-table view (512 PTEs) and a data view (4096 bytes) of any frame.
// The riscv64 build backs this with unsafe.Pointer casts into the
// identity-mapped physical region (hw_riscv64.go); the host build backs
// it with plain Go maps (sim.go) so the same kernel logic is testable
// without real hardware.
type Memory interface {
	Table(ppn frame.PPN) *[512]uint64
	Bytes(ppn frame.PPN) *[4096]byte
}
