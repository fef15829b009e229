package memset

import (
	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/pagetable"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
)

// KernelSection is one identity-mapped range of the running kernel image
// (text/rodata/data/bss), named the way a linker script's section
// symbols would name them, since Go has no equivalent to
// original_source's kernel.ld PROVIDE() boundary symbols — the caller
// (cmd/kernel's boot sequence) supplies the ranges it read out of its own
// build's layout instead of this package inventing linker symbols that
// do not exist for a Go binary.
type KernelSection struct {
	Low, High uintptr
	Perm      pagetable.Flags
}

// MMIORegion is one device's physical MMIO window, identity-mapped R|W
// and never U or X (spec.md §4.4 "new_kernel(): ... maps all device MMIO
// regions read/write (no user, no execute)").
type MMIORegion struct {
	Low, High uintptr
}

// NewKernel builds the kernel address space (spec.md §4.4 C4
// "new_kernel()"): identity-maps every kernel image section at its own
// permission, the physical frame pool itself (so the kernel can address
// any frame it hands out through physmem.HW's direct pointer casts),
// every device MMIO window, and the trampoline page. Grounded on
// original_source/kernel/src/memory/memory_set.rs's
// MemorySet::new_kernel, generalized from that file's fixed .text/
// .rodata/.data/.bss/.bss.stack symbol list (unavailable here — see
// KernelSection's doc comment) to a caller-supplied section table.
func NewKernel(mem physmem.Memory, frames *frame.Allocator, sections []KernelSection, physPool frame.PPN, physPoolFrames uint64, mmio []MMIORegion, trampolinePPN frame.PPN) (*AddressSpace, error) {
	as, err := New(mem, frames)
	if err != nil {
		return nil, err
	}

	for _, s := range sections {
		if s.Low == s.High {
			continue
		}
		if err := as.InsertIdenticalArea(s.Low, s.High, s.Perm); err != nil {
			return nil, err
		}
	}

	if physPoolFrames > 0 {
		low := uintptr(physPool) << memlayout.PageShift
		high := low + uintptr(physPoolFrames)<<memlayout.PageShift
		if err := as.InsertIdenticalArea(low, high, pagetable.R|pagetable.W); err != nil {
			return nil, err
		}
	}

	for _, m := range mmio {
		if m.Low == m.High {
			continue
		}
		if err := as.InsertIdenticalArea(memlayout.AlignDown(m.Low), memlayout.AlignUp(m.High), pagetable.R|pagetable.W); err != nil {
			return nil, err
		}
	}

	if err := as.MapTrampoline(trampolinePPN); err != nil {
		return nil, err
	}

	return as, nil
}
