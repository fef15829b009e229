package syscall

import (
	"github.com/gitwillsky/lite-os-sub002/internal/errno"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/pagetable"
	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

// sysBrk services brk(newBrk): sets the program break to an absolute
// address, returning the resulting break (0 queries the current one
// without changing it — the conventional brk(0) idiom).
func (d *Dispatcher) sysBrk(cur *task.Task, newBrk uintptr) int64 {
	if newBrk == 0 {
		cur.ChangeBrk(0)
		return int64(cur.ProgramBrk)
	}
	delta := int64(newBrk) - int64(cur.ProgramBrk)
	if _, ok := cur.ChangeBrk(delta); !ok {
		return errno.ENOMEM.Syscall()
	}
	return int64(cur.ProgramBrk)
}

// sysSbrk services sbrk(delta): grows or shrinks the heap by delta bytes,
// returning the previous break (the conventional sbrk contract), per
// original_source/kernel/src/task/task.rs's change_program_brk.
func (d *Dispatcher) sysSbrk(cur *task.Task, delta int64) int64 {
	old, ok := cur.ChangeBrk(delta)
	if !ok {
		return errno.ENOMEM.Syscall()
	}
	return int64(old)
}

// sysMmap services mmap(addr, length, prot): installs an anonymous
// Framed mapping at the caller-supplied addr (no free-region search — a
// caller must pick an unused VA itself, the simplified scope this core
// implements mmap to, since original_source's filtered index only shows
// mmap used from user-space test programs, never a kernel-side
// implementation to port). prot's low 3 bits are R/W/X same as the ELF
// loader's PF_R/PF_W/PF_X convention.
func (d *Dispatcher) sysMmap(cur *task.Task, addr, length uintptr, prot uint64) int64 {
	if addr == 0 || length == 0 {
		return errno.EINVAL.Syscall()
	}
	perm := pagetable.U
	if prot&1 != 0 {
		perm |= pagetable.R
	}
	if prot&2 != 0 {
		perm |= pagetable.W
	}
	if prot&4 != 0 {
		perm |= pagetable.X
	}
	end := memlayout.AlignUp(addr + length)
	if err := cur.Space.InsertFramedArea(addr, end, perm); err != nil {
		return errno.ENOMEM.Syscall()
	}
	return int64(addr)
}

// sysMunmap services munmap(addr, length): removes the Framed area
// starting at addr, freeing its frames.
func (d *Dispatcher) sysMunmap(cur *task.Task, addr uintptr, length uint64) int64 {
	if err := cur.Space.RemoveArea(addr); err != nil {
		return errno.EINVAL.Syscall()
	}
	return 0
}

// sysMeminfo services sys_meminfo: writes the frame allocator's
// Total/Allocated/Free triple (three uint64s) to the caller's buffer at
// infoVA (spec_full.md C1 expansion: "supplement — no such syscall in
// original_source, but Stats() needs a consumer").
func (d *Dispatcher) sysMeminfo(cur *task.Task, infoVA uintptr) int64 {
	stats := d.Frames.Stats()
	bufs, err := cur.Space.TranslateByteBuffer(infoVA, 24)
	if err != nil {
		return errno.EFAULT.Syscall()
	}
	var raw [24]byte
	putU64(raw[0:8], stats.Total)
	putU64(raw[8:16], stats.Allocated)
	putU64(raw[16:24], stats.Free)
	scatter(bufs, raw[:])
	return 0
}
