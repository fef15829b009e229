package heap

// BuddyAllocator is a classic power-of-two buddy allocator over a fixed
// byte region, the Go-idiom stand-in for the Rust side's
// buddy_system_allocator::LockedHeap — same "largest object first, split
// on demand, merge on free" algorithm, grounded on
// original_source/kernel/src/memory/heap_allocator.rs's BUDDY_ALLOCATOR,
// generalized here from a crate dependency to an in-package implementation
// since no buddy-allocator package appears anywhere in the example pack.
type BuddyAllocator struct {
	base     uintptr
	minBlock uint32
	maxOrder int
	freeList [][]uintptr // freeList[order] = list of block base addresses
}

// NewBuddyAllocator carves [base, base+size) into a buddy heap with a
// minBlock-byte smallest block. size and minBlock must both be powers of
// two; size is truncated down to a power of two if it is not already one.
func NewBuddyAllocator(base uintptr, size uint32, minBlock uint32) *BuddyAllocator {
	total := floorPow2(size)
	maxOrder := 0
	for blockSize(minBlock, maxOrder+1) <= total {
		maxOrder++
	}
	b := &BuddyAllocator{base: base, minBlock: minBlock, maxOrder: maxOrder, freeList: make([][]uintptr, maxOrder+1)}
	b.freeList[maxOrder] = []uintptr{base}
	return b
}

func floorPow2(v uint32) uint32 {
	p := uint32(1)
	for p*2 <= v {
		p *= 2
	}
	return p
}

func blockSize(minBlock uint32, order int) uint32 {
	return minBlock << uint(order)
}

func (b *BuddyAllocator) orderFor(size uint32) (int, bool) {
	for order := 0; order <= b.maxOrder; order++ {
		if blockSize(b.minBlock, order) >= size {
			return order, true
		}
	}
	return 0, false
}

// alloc finds a free block able to hold size bytes, splitting a larger
// block down as needed. ok=false means the heap cannot satisfy size.
func (b *BuddyAllocator) alloc(size uint32) (uintptr, bool) {
	want, ok := b.orderFor(size)
	if !ok {
		return 0, false
	}
	order := want
	for order <= b.maxOrder && len(b.freeList[order]) == 0 {
		order++
	}
	if order > b.maxOrder {
		return 0, false
	}
	for order > want {
		addr := b.pop(order)
		half := blockSize(b.minBlock, order-1)
		order--
		b.push(order, addr)
		b.push(order, addr+uintptr(half))
	}
	return b.pop(want), true
}

// free returns a size-byte block at addr to the heap, merging with its
// buddy repeatedly while the buddy is also free.
func (b *BuddyAllocator) free(addr uintptr, size uint32) bool {
	order, ok := b.orderFor(size)
	if !ok {
		return false
	}
	for order < b.maxOrder {
		bsz := uintptr(blockSize(b.minBlock, order))
		rel := addr - b.base
		buddy := b.base + (rel ^ bsz)
		if !b.remove(order, buddy) {
			break
		}
		if buddy < addr {
			addr = buddy
		}
		order++
	}
	b.push(order, addr)
	return true
}

func (b *BuddyAllocator) pop(order int) uintptr {
	list := b.freeList[order]
	addr := list[len(list)-1]
	b.freeList[order] = list[:len(list)-1]
	return addr
}

func (b *BuddyAllocator) push(order int, addr uintptr) {
	b.freeList[order] = append(b.freeList[order], addr)
}

func (b *BuddyAllocator) remove(order int, addr uintptr) bool {
	list := b.freeList[order]
	for i, a := range list {
		if a == addr {
			list[i] = list[len(list)-1]
			b.freeList[order] = list[:len(list)-1]
			return true
		}
	}
	return false
}
