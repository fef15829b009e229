package heap

// sizeClasses are the slab's fixed block sizes, covering every allocation
// up to the 2KiB cutoff from original_source/kernel/src/memory/
// heap_allocator.rs's HybridAllocator ("SLAB for <=2048, buddy above").
var sizeClasses = [...]uint32{16, 32, 64, 128, 256, 512, 1024, 2048}

const slabCutoff = 2048

// classFor returns the smallest size class that fits size bytes, or false
// if size exceeds the slab cutoff.
func classFor(size uint32) (uint32, bool) {
	if size > slabCutoff {
		return 0, false
	}
	for _, c := range sizeClasses {
		if size <= c {
			return c, true
		}
	}
	return 0, false
}

// pageSource supplies whole pages for the slab to carve into blocks, and
// reclaims an empty page. Backed by the buddy allocator so the slab never
// needs its own arena.
type pageSource interface {
	allocPage() (uintptr, bool)
	freePage(addr uintptr, size uint32)
}

// slabPage tracks one page's partition into fixed-size blocks for a single
// size class, as a bitmap of free blocks.
type slabPage struct {
	base      uintptr
	class     uint32
	blocks    uint32
	freeCount uint32
	freeMask  []uint64 // 1 bit per block, 1 = free
	next      *slabPage
}

func newSlabPage(base uintptr, pageSize, class uint32) *slabPage {
	blocks := pageSize / class
	words := (blocks + 63) / 64
	p := &slabPage{base: base, class: class, blocks: blocks, freeCount: blocks, freeMask: make([]uint64, words)}
	for i := uint32(0); i < blocks; i++ {
		p.freeMask[i/64] |= 1 << (i % 64)
	}
	return p
}

func (p *slabPage) takeFree() (uint32, bool) {
	for w, bits := range p.freeMask {
		if bits == 0 {
			continue
		}
		for b := 0; b < 64; b++ {
			if bits&(1<<uint(b)) != 0 {
				idx := uint32(w)*64 + uint32(b)
				if idx >= p.blocks {
					continue
				}
				p.freeMask[w] &^= 1 << uint(b)
				p.freeCount--
				return idx, true
			}
		}
	}
	return 0, false
}

func (p *slabPage) release(idx uint32) {
	p.freeMask[idx/64] |= 1 << (idx % 64)
	p.freeCount++
}

func (p *slabPage) contains(addr uintptr, pageSize uint32) bool {
	return addr >= p.base && addr < p.base+uintptr(pageSize)
}

// SlabAllocator carves fixed-size blocks out of pages drawn from a
// pageSource, one free page-list per size class (spec_full.md C2
// expansion of the heap collaborator, grounded on the dispatch-by-size
// shape of HybridAllocator).
type SlabAllocator struct {
	pages    pageSource
	pageSize uint32
	byClass  map[uint32]*slabPage
}

func newSlabAllocator(pages pageSource, pageSize uint32) *SlabAllocator {
	return &SlabAllocator{pages: pages, pageSize: pageSize, byClass: make(map[uint32]*slabPage)}
}

// alloc returns the address of a free block for size, or ok=false if size
// is above the slab cutoff or the backing page source is exhausted.
func (s *SlabAllocator) alloc(size uint32) (uintptr, bool) {
	class, ok := classFor(size)
	if !ok {
		return 0, false
	}
	page := s.byClass[class]
	for page != nil && page.freeCount == 0 {
		page = page.next
	}
	if page == nil {
		base, got := s.pages.allocPage()
		if !got {
			return 0, false
		}
		page = newSlabPage(base, s.pageSize, class)
		page.next = s.byClass[class]
		s.byClass[class] = page
	}
	idx, _ := page.takeFree()
	return page.base + uintptr(idx)*uintptr(class), true
}

// free returns addr (sized for size) to its slab page. Reports ok=false if
// size is above the cutoff or addr is not currently tracked by any page
// for that class, leaving the allocator unchanged.
func (s *SlabAllocator) free(addr uintptr, size uint32) bool {
	class, ok := classFor(size)
	if !ok {
		return false
	}
	var prev *slabPage
	page := s.byClass[class]
	for page != nil {
		if page.contains(addr, s.pageSize) {
			idx := uint32(addr-page.base) / class
			page.release(idx)
			if page.freeCount == page.blocks {
				if prev == nil {
					s.byClass[class] = page.next
				} else {
					prev.next = page.next
				}
				s.pages.freePage(page.base, s.pageSize)
			}
			return true
		}
		prev, page = page, page.next
	}
	return false
}
