package memset

import (
	"testing"

	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/pagetable"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
)

func newTestSpace(t *testing.T) (*AddressSpace, *frame.Allocator) {
	t.Helper()
	frames := frame.New(0, 256*0x1000, 0x1000, nil)
	mem := physmem.NewSim()
	as, err := New(mem, frames)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return as, frames
}

func TestInsertFramedAreaIsReadableAndWritable(t *testing.T) {
	as, _ := newTestSpace(t)
	const base = 0x1000
	if err := as.InsertFramedArea(base, base+memlayout.PageSize, pagetable.R|pagetable.W); err != nil {
		t.Fatalf("InsertFramedArea: %v", err)
	}
	bufs, err := as.TranslateByteBuffer(base, 4)
	if err != nil {
		t.Fatalf("TranslateByteBuffer: %v", err)
	}
	if len(bufs) != 1 || len(bufs[0]) != 4 {
		t.Fatalf("got %v", bufs)
	}
}

func TestTranslateByteBufferSpansPageBoundary(t *testing.T) {
	as, _ := newTestSpace(t)
	const base = 0x2000
	size := uintptr(2 * memlayout.PageSize)
	if err := as.InsertFramedArea(base, base+size, pagetable.R|pagetable.W); err != nil {
		t.Fatalf("InsertFramedArea: %v", err)
	}
	// Straddle the page boundary: last 8 bytes of page 1 into the first
	// 8 bytes of page 2.
	start := base + uintptr(memlayout.PageSize) - 8
	bufs, err := as.TranslateByteBuffer(start, 16)
	if err != nil {
		t.Fatalf("TranslateByteBuffer: %v", err)
	}
	if len(bufs) != 2 || len(bufs[0]) != 8 || len(bufs[1]) != 8 {
		t.Fatalf("got %d chunks: %v", len(bufs), bufs)
	}
}

func TestAppendToGrowsHeapAreaOnePageAtATime(t *testing.T) {
	as, frames := newTestSpace(t)
	const base = 0x3000
	if err := as.InsertFramedArea(base, base+memlayout.PageSize, pagetable.R|pagetable.W); err != nil {
		t.Fatalf("InsertFramedArea: %v", err)
	}
	before := frames.Stats().Allocated
	if err := as.AppendTo(base, base+3*memlayout.PageSize); err != nil {
		t.Fatalf("AppendTo: %v", err)
	}
	after := frames.Stats().Allocated
	if after-before != 2 {
		t.Fatalf("expected 2 new frames, got %d", after-before)
	}
	if _, err := as.TranslateByteBuffer(base+2*memlayout.PageSize, 1); err != nil {
		t.Fatalf("expected grown page to translate: %v", err)
	}
}

func TestShrinkToFreesFrames(t *testing.T) {
	as, frames := newTestSpace(t)
	const base = 0x4000
	if err := as.InsertFramedArea(base, base+3*memlayout.PageSize, pagetable.R|pagetable.W); err != nil {
		t.Fatalf("InsertFramedArea: %v", err)
	}
	before := frames.Stats().Allocated
	if err := as.ShrinkTo(base, base+memlayout.PageSize); err != nil {
		t.Fatalf("ShrinkTo: %v", err)
	}
	after := frames.Stats().Allocated
	if before-after != 2 {
		t.Fatalf("expected 2 frames freed, got %d", before-after)
	}
}

func TestAppendToUnknownAreaFails(t *testing.T) {
	as, _ := newTestSpace(t)
	if err := as.AppendTo(0xdead000, 0xdead000+memlayout.PageSize); err != ErrNoSuchArea {
		t.Fatalf("got %v, want ErrNoSuchArea", err)
	}
}

func TestMapTrampolineUsesFixedVA(t *testing.T) {
	as, frames := newTestSpace(t)
	ppn, _ := frames.Alloc()
	if err := as.MapTrampoline(ppn); err != nil {
		t.Fatalf("MapTrampoline: %v", err)
	}
	pa, ok := as.table.TranslateVA(memlayout.TrampolineVA)
	if !ok {
		t.Fatal("expected trampoline VA to translate")
	}
	if want := uintptr(ppn) << memlayout.PageShift; pa != want {
		t.Fatalf("got %#x want %#x", pa, want)
	}
}
