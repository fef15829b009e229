package heap

import "testing"

func TestSlabAllocDistinctAddresses(t *testing.T) {
	h := New(0x1000_0000, 1<<20)
	a, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("alloc a: %v", err)
	}
	b, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("alloc b: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct addresses, got %#x twice", a)
	}
}

func TestFreeThenReallocReusesSlabBlock(t *testing.T) {
	h := New(0x2000_0000, 1<<16)
	a, _ := h.Alloc(64)
	h.Free(a, 64)
	b, _ := h.Alloc(64)
	if a != b {
		t.Fatalf("expected freed block %#x to be reused, got %#x", a, b)
	}
}

func TestLargeAllocGoesToBuddy(t *testing.T) {
	h := New(0x3000_0000, 1<<20)
	addr, err := h.Alloc(8192)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if addr < 0x3000_0000 || addr >= 0x3000_0000+1<<20 {
		t.Fatalf("address %#x outside arena", addr)
	}
}

func TestOutOfMemoryReturnsErrNotPanic(t *testing.T) {
	h := New(0x4000_0000, 4096) // one page total
	for i := 0; i < 1000; i++ {
		if _, err := h.Alloc(4096 * 2); err != nil {
			if err != ErrOutOfMemory {
				t.Fatalf("got %v, want ErrOutOfMemory", err)
			}
			return
		}
	}
	t.Fatal("expected exhaustion within 1000 iterations")
}

func TestBuddyAllocatorSplitsAndMerges(t *testing.T) {
	b := NewBuddyAllocator(0, 1024, 16)
	a1, ok := b.alloc(100)
	if !ok {
		t.Fatal("alloc a1 failed")
	}
	a2, ok := b.alloc(100)
	if !ok {
		t.Fatal("alloc a2 failed")
	}
	if a1 == a2 {
		t.Fatalf("expected distinct blocks, got %#x twice", a1)
	}
	b.free(a1, 100)
	b.free(a2, 100)
	// After freeing both splits, the whole 1024-byte region should be
	// available again as one block.
	whole, ok := b.alloc(1024)
	if !ok {
		t.Fatal("expected merged free list to satisfy a full-size alloc")
	}
	if whole != 0 {
		t.Fatalf("got base %#x, want 0", whole)
	}
}

func TestGlobalPanicsBeforeInit(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when Global used before Init")
		}
	}()
	global.mu.Lock()
	global.h = nil
	global.mu.Unlock()
	Global()
}
