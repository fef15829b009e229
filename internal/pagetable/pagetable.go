// Package pagetable is the Sv39 page-table engine (spec.md §4.3, C3): map,
// unmap, translate and the satp token encoding. The walk shape — allocate
// an intermediate table lazily, write a leaf PTE only when V ∧ (R∨W∨X),
// never coalesce intermediate tables — is ground on the teacher's
// mapPage/getPhysicalAddress pair in mmu.go, generalized from ARM64's
// 4-level descriptor format to Sv39's 3-level, 10-bit-flags PTE shape from
// original_source/kernel/src/memory/page_table.rs.
package pagetable

import (
	"errors"

	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
)

// Flags are the Sv39 PTE permission bits (spec.md §3): V R W X U G A D.
type Flags uint64

const (
	V Flags = 1 << 0
	R Flags = 1 << 1
	W Flags = 1 << 2
	X Flags = 1 << 3
	U Flags = 1 << 4
	G Flags = 1 << 5
	A Flags = 1 << 6
	D Flags = 1 << 7

	flagsMask = 0x3FF
	ppnShift  = 10
)

// ErrAlreadyMapped is returned by Map when the target VPN is already a
// valid leaf entry; state is left unchanged (spec.md §8 boundary
// behaviour).
var ErrAlreadyMapped = errors.New("pagetable: already mapped")

// ErrNotMapped is returned by Unmap on a non-leaf or invalid entry; state
// is left unchanged.
var ErrNotMapped = errors.New("pagetable: not mapped")

func pte(ppn frame.PPN, flags Flags) uint64 {
	return uint64(ppn)<<ppnShift | (uint64(flags) & flagsMask)
}

func pteFlags(raw uint64) Flags { return Flags(raw & flagsMask) }
func ptePPN(raw uint64) frame.PPN { return frame.PPN(raw >> ppnShift) }

func isValid(raw uint64) bool { return pteFlags(raw)&V != 0 }
func isLeaf(raw uint64) bool  { return isValid(raw) && pteFlags(raw)&(R|W|X) != 0 }

// Memory is the physical-memory view the page-table engine needs: a
// mutable 512-entry table for any frame, addressed by PPN. Real hardware
// backs this with unsafe.Pointer(ppn<<12); the simulator (sim.go)
// backs it with a plain map for host-side testing.
type Memory interface {
	Table(ppn frame.PPN) *[512]uint64
}

// Frames allocates physical frames for new intermediate tables.
type Frames interface {
	Alloc() (frame.PPN, bool)
}

// Table is one Sv39 address space's root page table.
type Table struct {
	mem    Memory
	frames Frames
	root   frame.PPN
}

// New allocates a fresh root table.
func New(mem Memory, frames Frames) (*Table, error) {
	root, ok := frames.Alloc()
	if !ok {
		return nil, errors.New("pagetable: out of frames for root table")
	}
	return &Table{mem: mem, frames: frames, root: root}, nil
}

// Root returns the PPN backing this table's root, for Token().
func (t *Table) Root() frame.PPN { return t.root }

// Token encodes the satp value for this table: Sv39 mode (8) in the top
// four bits, root PPN in the low 44 bits (spec.md §4.3 token()).
func (t *Table) Token() uint64 {
	const modeSv39 = uint64(8) << 60
	return modeSv39 | uint64(t.root)
}

// walk descends from the root to the leaf-level table that would hold
// vpn's entry, allocating intermediate tables as needed when create is
// true. It returns the table holding the final-level entry and the index
// into it, or ok=false if a table was missing and create was false.
func (t *Table) walk(vpn uintptr, create bool) (table *[512]uint64, index int, ok bool) {
	cur := t.root
	for level := 2; level >= 1; level-- {
		tbl := t.mem.Table(cur)
		idx := memlayout.VPNIndex(vpn, level)
		raw := tbl[idx]
		if !isValid(raw) {
			if !create {
				return nil, 0, false
			}
			next, got := t.frames.Alloc()
			if !got {
				return nil, 0, false
			}
			tbl[idx] = pte(next, V)
			cur = next
		} else if isLeaf(raw) {
			// A leaf at an intermediate level is a malformed huge mapping
			// this engine never creates; treat the walk as a miss.
			return nil, 0, false
		} else {
			cur = ptePPN(raw)
		}
	}
	leaf := t.mem.Table(cur)
	return leaf, int(memlayout.VPNIndex(vpn, 0)), true
}

// Map installs vpn -> ppn with the given permission flags (V is implied
// and need not be passed). Returns ErrAlreadyMapped if the target is
// already a valid leaf.
func (t *Table) Map(vpn uintptr, ppn frame.PPN, flags Flags) error {
	tbl, idx, ok := t.walk(vpn, true)
	if !ok {
		return errors.New("pagetable: out of frames for intermediate table")
	}
	if isValid(tbl[idx]) {
		return ErrAlreadyMapped
	}
	tbl[idx] = pte(ppn, flags|V)
	return nil
}

// Unmap clears vpn's leaf entry. Returns ErrNotMapped if the entry is not
// currently a valid leaf (spec.md §4.3: intermediate tables are never
// coalesced, so this never frees an intermediate table).
func (t *Table) Unmap(vpn uintptr) error {
	tbl, idx, ok := t.walk(vpn, false)
	if !ok || !isLeaf(tbl[idx]) {
		return ErrNotMapped
	}
	tbl[idx] = 0
	return nil
}

// Translate returns the PPN and flags of vpn's leaf mapping, or ok=false.
func (t *Table) Translate(vpn uintptr) (ppn frame.PPN, flags Flags, ok bool) {
	tbl, idx, found := t.walk(vpn, false)
	if !found || !isLeaf(tbl[idx]) {
		return 0, 0, false
	}
	raw := tbl[idx]
	return ptePPN(raw), pteFlags(raw), true
}

// TranslateVA adds the page offset to a va's leaf translation.
func (t *Table) TranslateVA(va uintptr) (pa uintptr, ok bool) {
	ppn, _, found := t.Translate(memlayout.VPN(va))
	if !found {
		return 0, false
	}
	return uintptr(ppn)<<memlayout.PageShift | memlayout.PageOffset(va), true
}
