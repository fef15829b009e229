// Package memset is the address-space collaborator (spec.md §4.4, C4):
// map areas, ELF program loading, byte-buffer translation for syscall
// arguments, and the brk/sbrk grow/shrink operations. Grounded on
// original_source's mm::MemorySet as used from task.rs (`from_elf`,
// `map_one` for TRAP_CONTEXT, `insert_framed_area` for kernel stacks,
// `append_to`/`shrink_to` for program_brk) — the MemorySet source file
// itself was not present in original_source's filtered index, so its
// shape is reconstructed from every call site that exercises it plus
// page_table.rs's PTE semantics.
package memset

import (
	"debug/elf"
	"errors"
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/pagetable"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
)

var errOutOfFrames = errors.New("memset: out of physical frames")

// ErrNoSuchArea is returned by AppendTo/ShrinkTo when no area starts at
// the given address.
var ErrNoSuchArea = errors.New("memset: no area at address")

// AddressSpace is one task's (or the kernel's) page table plus the
// bookkeeping of which VPN ranges are mapped and how.
type AddressSpace struct {
	mu     sync.Mutex
	table  *pagetable.Table
	frames *frame.Allocator
	mem    physmem.Memory
	areas  []*area
}

// New creates an empty address space with a fresh root page table.
func New(mem physmem.Memory, frames *frame.Allocator) (*AddressSpace, error) {
	tbl, err := pagetable.New(mem, frames)
	if err != nil {
		return nil, err
	}
	return &AddressSpace{table: tbl, frames: frames, mem: mem}, nil
}

// Token returns the satp value selecting this address space.
func (as *AddressSpace) Token() uint64 {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.table.Token()
}

// InsertFramedArea maps [startVA, endVA) with freshly allocated frames.
func (as *AddressSpace) InsertFramedArea(startVA, endVA uintptr, perm pagetable.Flags) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	a := newArea(startVA, endVA, Framed, perm)
	if err := a.mapAll(as.table, as.frames); err != nil {
		return err
	}
	as.areas = append(as.areas, a)
	return nil
}

// InsertIdenticalArea maps [startVA, endVA) so that VPN n resolves to PPN
// n directly, for the kernel's own identity-mapped regions.
func (as *AddressSpace) InsertIdenticalArea(startVA, endVA uintptr, perm pagetable.Flags) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	a := newArea(startVA, endVA, Identical, perm)
	if err := a.mapAll(as.table, as.frames); err != nil {
		return err
	}
	as.areas = append(as.areas, a)
	return nil
}

// MapOne installs a single page outside of any tracked area: used to map
// the trap-context page and the trampoline page, both of which are
// shared, externally-owned frames rather than area-owned allocations
// (task.rs's map_one(trap_context_vpn, trap_cx_ppn, ...)).
func (as *AddressSpace) MapOne(va uintptr, ppn frame.PPN, perm pagetable.Flags) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.table.Map(memlayout.VPN(va), ppn, perm)
}

// MapTrampoline installs the trampoline code page at the fixed
// TrampolineVA in every address space, RX and not user-accessible
// (spec.md §8 invariant: trampoline mapped identically in every space).
func (as *AddressSpace) MapTrampoline(trampolinePPN frame.PPN) error {
	return as.MapOne(memlayout.TrampolineVA, trampolinePPN, pagetable.R|pagetable.X)
}

// areaAt finds the area whose start matches startVA.
func (as *AddressSpace) areaAt(startVA uintptr) *area {
	vpn := memlayout.VPN(startVA)
	for _, a := range as.areas {
		if a.startVPN == vpn {
			return a
		}
	}
	return nil
}

// AppendTo grows the Framed area starting at startVA so it ends at
// newEndVA, mapping additional pages one at a time (mirrors
// MemorySet::append_to's per-page growth, used by sbrk).
func (as *AddressSpace) AppendTo(startVA, newEndVA uintptr) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	a := as.areaAt(startVA)
	if a == nil {
		return ErrNoSuchArea
	}
	target := memlayout.VPN(memlayout.AlignUp(newEndVA))
	for a.endVPN < target {
		if err := a.grow(as.table, as.frames); err != nil {
			return err
		}
	}
	return nil
}

// ShrinkTo shrinks the Framed area starting at startVA down to newEndVA,
// unmapping and freeing pages one at a time.
func (as *AddressSpace) ShrinkTo(startVA, newEndVA uintptr) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	a := as.areaAt(startVA)
	if a == nil {
		return ErrNoSuchArea
	}
	target := memlayout.VPN(memlayout.AlignUp(newEndVA))
	for a.endVPN > target {
		a.shrink(as.table, as.frames)
	}
	return nil
}

// TranslateByteBuffer resolves a user-space [va, va+length) span into the
// physical byte slices backing each page it crosses, for syscall argument
// translation (spec.md §6: "argument pointers always translated via
// memory-set byte-buffer translation, never direct dereference").
func (as *AddressSpace) TranslateByteBuffer(va uintptr, length int) ([][]byte, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	var out [][]byte
	remaining := length
	cur := va
	for remaining > 0 {
		pa, ok := as.table.TranslateVA(cur)
		if !ok {
			return nil, ErrNoSuchArea
		}
		offsetInPage := memlayout.PageOffset(cur)
		chunk := memlayout.PageSize - offsetInPage
		if uintptr(remaining) < chunk {
			chunk = uintptr(remaining)
		}
		ppn, _, _ := as.table.Translate(memlayout.VPN(cur))
		page := as.mem.Bytes(ppn)
		start := pa - uintptr(ppn)<<memlayout.PageShift
		out = append(out, page[start:start+chunk])
		cur += chunk
		remaining -= int(chunk)
	}
	return out, nil
}

// RemoveArea unmaps and frees the Framed area starting at startVA,
// returning ErrNoSuchArea if none starts there (used on munmap and when a
// task's stack/heap areas are individually torn down).
func (as *AddressSpace) RemoveArea(startVA uintptr) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	vpn := memlayout.VPN(startVA)
	for i, a := range as.areas {
		if a.startVPN == vpn {
			a.unmapAll(as.table, as.frames)
			as.areas = append(as.areas[:i], as.areas[i+1:]...)
			return nil
		}
	}
	return ErrNoSuchArea
}

// Destroy unmaps and frees every area's frames, leaving only the root
// table itself (reclaimed separately by the caller). Called once on task
// exit, mirroring original_source's "memory frames belonging to user
// areas are released immediately" (spec.md §4.8 Exit).
func (as *AddressSpace) Destroy() {
	as.mu.Lock()
	defer as.mu.Unlock()
	for _, a := range as.areas {
		a.unmapAll(as.table, as.frames)
	}
	as.areas = nil
}

// AreaContaining reports the permission flags of the Framed area spanning
// va, if any, for the trap handler's stack/heap growth decision (spec.md
// §4.6: "inside a writable user stack or heap area").
func (as *AddressSpace) AreaContaining(va uintptr) (perm pagetable.Flags, lowVA, highVA uintptr, ok bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	vpn := memlayout.VPN(va)
	for _, a := range as.areas {
		if a.mapType == Framed && vpn >= a.startVPN && vpn < a.endVPN {
			return a.perm, a.startVPN << memlayout.PageShift, a.endVPN << memlayout.PageShift, true
		}
	}
	return 0, 0, 0, false
}

// GrowDown extends the Framed area currently starting at startVA one page
// further down (decrementing its start), mapping the new low page. Used to
// grow a user stack toward lower addresses on a page fault just below it,
// up to the caller-enforced growth limit.
func (as *AddressSpace) GrowDown(startVA uintptr) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	vpn := memlayout.VPN(startVA)
	for _, a := range as.areas {
		if a.startVPN == vpn {
			newLow := a.startVPN - 1
			if err := a.mapOne(as.table, as.frames, newLow); err != nil {
				return err
			}
			a.startVPN = newLow
			return nil
		}
	}
	return ErrNoSuchArea
}

// FromELF builds a fresh user address space from an ELF image: each
// loadable program header becomes a Framed area with its segment's
// permission bits, its initial bytes copied in; a user stack area follows
// one unmapped guard page (UserStackGuard) above the highest segment. Returns the new address space,
// the initial user stack pointer, and the entry point — the same triple
// original_source's MemorySet::from_elf returns to TaskControlBlock::new.
//
// Parsing uses the standard library's debug/elf: no third-party ELF
// reader appears anywhere in the example pack, and the format itself is a
// fixed, well-documented binary layout rather than a library concern.
func FromELF(mem physmem.Memory, frames *frame.Allocator, data []byte) (as *AddressSpace, userSP uintptr, entry uintptr, err error) {
	f, err := elf.NewFile(newSliceReaderAt(data))
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	as, err = New(mem, frames)
	if err != nil {
		return nil, 0, 0, err
	}

	var maxEnd uintptr
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		start := uintptr(prog.Vaddr)
		end := start + uintptr(prog.Memsz)
		perm := pagetable.U
		if prog.Flags&elf.PF_R != 0 {
			perm |= pagetable.R
		}
		if prog.Flags&elf.PF_W != 0 {
			perm |= pagetable.W
		}
		if prog.Flags&elf.PF_X != 0 {
			perm |= pagetable.X
		}
		if err := as.InsertFramedArea(start, end, perm); err != nil {
			return nil, 0, 0, err
		}
		segData := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(segData, 0); err != nil {
			return nil, 0, 0, err
		}
		if err := as.writeBytes(start, segData); err != nil {
			return nil, 0, 0, err
		}
		if end > maxEnd {
			maxEnd = end
		}
	}

	userStackBottom := memlayout.AlignUp(maxEnd) + memlayout.UserStackGuard
	userStackTop := userStackBottom + memlayout.UserStackSize
	if err := as.InsertFramedArea(userStackBottom, userStackTop, pagetable.R|pagetable.W|pagetable.U); err != nil {
		return nil, 0, 0, err
	}

	return as, userStackTop, uintptr(f.Entry), nil
}

// Clone builds a new address space whose Framed areas mirror this one's
// VA ranges and permissions but are backed by freshly allocated frames
// with the bytes copied over — never shared with the original (spec.md
// §8's round-trip property: "fork followed by child exec must result in
// a child whose memory set shares no frames with the parent's"). Areas
// installed with MapOne (trampoline, trap-context) are not part of
// as.areas and are not copied; the caller re-installs those for the new
// address space the same way FromELF's caller does.
func (as *AddressSpace) Clone(frames *frame.Allocator) (*AddressSpace, error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	dst, err := New(as.mem, frames)
	if err != nil {
		return nil, err
	}
	for _, a := range as.areas {
		startVA := a.startVPN << memlayout.PageShift
		endVA := a.endVPN << memlayout.PageShift
		switch a.mapType {
		case Framed:
			if err := dst.InsertFramedArea(startVA, endVA, a.perm); err != nil {
				return nil, err
			}
			for vpn := a.startVPN; vpn < a.endVPN; vpn++ {
				srcPPN, ok := a.frames[vpn]
				if !ok {
					continue
				}
				dstPPN, _, ok := dst.table.Translate(vpn)
				if !ok {
					continue
				}
				copy(dst.mem.Bytes(dstPPN)[:], as.mem.Bytes(srcPPN)[:])
			}
		case Identical:
			if err := dst.InsertIdenticalArea(startVA, endVA, a.perm); err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

// writeBytes copies data into the physical frames already mapped for
// [va, va+len(data)), crossing page boundaries as needed.
func (as *AddressSpace) writeBytes(va uintptr, data []byte) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	cur := va
	remaining := data
	for len(remaining) > 0 {
		ppn, _, ok := as.table.Translate(memlayout.VPN(cur))
		if !ok {
			return ErrNoSuchArea
		}
		offset := memlayout.PageOffset(cur)
		n := memlayout.PageSize - offset
		if uintptr(len(remaining)) < n {
			n = uintptr(len(remaining))
		}
		page := as.mem.Bytes(ppn)
		copy(page[offset:offset+n], remaining[:n])
		cur += n
		remaining = remaining[n:]
	}
	return nil
}
