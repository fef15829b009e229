package memset

import (
	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/pagetable"
)

// MapType selects how a MapArea's pages are backed, mirroring
// original_source's MapType::{Identical, Framed} distinction referenced
// from task.rs's insert_framed_area calls.
type MapType int

const (
	// Identical maps VPN n to PPN n directly: used for the kernel's own
	// identity-mapped text/data/stack regions.
	Identical MapType = iota
	// Framed backs each page with a freshly allocated physical frame,
	// owned by the area and freed when the area is removed.
	Framed
)

// area is one contiguous VPN range within an address space, all pages
// sharing one MapType and permission set.
type area struct {
	startVPN, endVPN uintptr // [startVPN, endVPN)
	mapType          MapType
	perm             pagetable.Flags
	frames           map[uintptr]frame.PPN // vpn -> ppn, Framed areas only
}

func newArea(startVA, endVA uintptr, mapType MapType, perm pagetable.Flags) *area {
	return &area{
		startVPN: memlayout.VPN(startVA),
		endVPN:   memlayout.VPN(memlayout.AlignUp(endVA)),
		mapType:  mapType,
		perm:     perm,
		frames:   make(map[uintptr]frame.PPN),
	}
}

func (a *area) mapAll(tbl *pagetable.Table, frames *frame.Allocator) error {
	for vpn := a.startVPN; vpn < a.endVPN; vpn++ {
		if err := a.mapOne(tbl, frames, vpn); err != nil {
			return err
		}
	}
	return nil
}

func (a *area) mapOne(tbl *pagetable.Table, frames *frame.Allocator, vpn uintptr) error {
	var ppn frame.PPN
	switch a.mapType {
	case Identical:
		ppn = frame.PPN(vpn)
	case Framed:
		p, ok := frames.Alloc()
		if !ok {
			return errOutOfFrames
		}
		ppn = p
		a.frames[vpn] = p
	}
	return tbl.Map(vpn, ppn, a.perm)
}

func (a *area) unmapAll(tbl *pagetable.Table, frames *frame.Allocator) {
	for vpn := a.startVPN; vpn < a.endVPN; vpn++ {
		tbl.Unmap(vpn)
		if a.mapType == Framed {
			if ppn, ok := a.frames[vpn]; ok {
				frames.Dealloc(ppn)
				delete(a.frames, vpn)
			}
		}
	}
}

// grow extends a Framed area's end VPN by one page and maps it.
func (a *area) grow(tbl *pagetable.Table, frames *frame.Allocator) error {
	vpn := a.endVPN
	a.endVPN++
	if err := a.mapOne(tbl, frames, vpn); err != nil {
		a.endVPN--
		return err
	}
	return nil
}

// shrink removes the area's last page.
func (a *area) shrink(tbl *pagetable.Table, frames *frame.Allocator) {
	if a.endVPN <= a.startVPN {
		return
	}
	vpn := a.endVPN - 1
	tbl.Unmap(vpn)
	if ppn, ok := a.frames[vpn]; ok {
		frames.Dealloc(ppn)
		delete(a.frames, vpn)
	}
	a.endVPN--
}
