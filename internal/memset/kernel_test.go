package memset

import (
	"testing"

	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/pagetable"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
)

func TestNewKernelMapsSectionsMMIOAndTrampoline(t *testing.T) {
	frames := frame.New(0, 512*memlayout.PageSize, memlayout.PageSize, nil)
	mem := physmem.NewSim()

	trampPPN, ok := frames.Alloc()
	if !ok {
		t.Fatal("alloc trampoline frame")
	}

	sections := []KernelSection{
		{Low: 0x1000, High: 0x3000, Perm: pagetable.R | pagetable.X},
		{Low: 0x3000, High: 0x4000, Perm: pagetable.R | pagetable.W},
	}
	mmio := []MMIORegion{{Low: 0x1000_0000, High: 0x1000_0100}}

	as, err := NewKernel(mem, frames, sections, 0, 0, mmio, trampPPN)
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}

	if pa, ok := as.table.TranslateVA(0x1500); !ok || pa != 0x1500 {
		t.Fatalf("text identity map: pa=%#x ok=%v", pa, ok)
	}
	if _, flags, ok := as.table.Translate(memlayout.VPN(0x3000)); !ok || flags&pagetable.W == 0 {
		t.Fatalf("data section not writable: flags=%v ok=%v", flags, ok)
	}
	if pa, ok := as.table.TranslateVA(0x1000_0010); !ok || pa != 0x1000_0010 {
		t.Fatalf("mmio identity map: pa=%#x ok=%v", pa, ok)
	}
	if _, flags, ok := as.table.Translate(memlayout.VPN(0x1000_0000)); !ok || flags&pagetable.U != 0 || flags&pagetable.X != 0 {
		t.Fatalf("mmio must not be U or X: flags=%v ok=%v", flags, ok)
	}
	ppn, flags, ok := as.table.Translate(memlayout.VPN(memlayout.TrampolineVA))
	if !ok || ppn != trampPPN || flags&pagetable.U != 0 || flags&pagetable.X == 0 {
		t.Fatalf("trampoline mapping wrong: ppn=%v flags=%v ok=%v", ppn, flags, ok)
	}
}

func TestNewKernelMapsPhysicalFramePool(t *testing.T) {
	frames := frame.New(0x2000, 0x2000+64*memlayout.PageSize, memlayout.PageSize, nil)
	mem := physmem.NewSim()
	trampPPN, _ := frames.Alloc()

	as, err := NewKernel(mem, frames, nil, frame.PPN(0x2000/memlayout.PageSize), 64, nil, trampPPN)
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}
	if pa, ok := as.table.TranslateVA(0x2000); !ok || pa != 0x2000 {
		t.Fatalf("frame pool identity map: pa=%#x ok=%v", pa, ok)
	}
}
