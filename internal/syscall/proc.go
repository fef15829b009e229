package syscall

import (
	"github.com/gitwillsky/lite-os-sub002/internal/errno"
	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

// sysExit services syscall 93: exit(code). Never returns to the caller
// (spec.md §4.11); releases user memory immediately and re-parents any
// children onto init (task.Exit), wakes a parent blocked in waitpid on
// this task if there is one, then asks the scheduling loop to pick a
// fresh task.
func (d *Dispatcher) sysExit(cur *task.Task, code int) int64 {
	if parent := cur.Exit(code, d.InitTask); parent != nil {
		d.Sched.Add(parent)
	}
	d.Reschedule = true
	return 0
}

// sysYield services syscall 124: voluntarily return to the scheduler
// (spec.md §4.11). The current task goes back to Ready and onto the
// ready queue at the tail (FIFO.Add appends); the scheduling loop does
// the actual pick.
func (d *Dispatcher) sysYield(cur *task.Task) int64 {
	cur.SetState(task.Ready)
	d.Sched.Add(cur)
	d.Reschedule = true
	return 0
}

// sysFork services fork: duplicates the caller into a new task (no COW,
// spec.md Non-goals), returns the child's pid to the parent and arranges
// for the child's own copy of the trap frame to read 0 in a0 on its first
// return from fork, per the ABI convention spec.md §4.8 describes.
func (d *Dispatcher) sysFork(cur *task.Task) int64 {
	pid := task.AllocPID()
	child, err := cur.Fork(d.KernelSpace, d.Frames, d.Mem, pid, d.KernelSatp, d.TrapReturn)
	if err != nil {
		task.DeallocPID(pid)
		return errno.ENOMEM.Syscall()
	}
	child.TrapFrame(d.Mem).SetReturn(0)
	d.Sched.Add(child)
	d.notifyOtherHarts()
	return int64(child.PID)
}

// sysExec services exec: replaces the caller's address space with a
// fresh one built from the ELF image at [elfVA, elfVA+elfLen) (spec.md
// §4.8 Exec). The image bytes are gathered via the byte-buffer translator
// rather than dereferenced directly, same as every other pointer
// argument.
func (d *Dispatcher) sysExec(cur *task.Task, elfVA uintptr, elfLen int) int64 {
	if elfLen <= 0 {
		return errno.EINVAL.Syscall()
	}
	bufs, err := cur.Space.TranslateByteBuffer(elfVA, elfLen)
	if err != nil {
		return errno.EFAULT.Syscall()
	}
	elfData := gather(bufs)
	if err := cur.Exec(d.Frames, d.Mem, elfData, d.KernelSatp, d.TrapHandler); err != nil {
		return errno.EINVAL.Syscall()
	}
	return 0
}

// sysWaitPID services waitpid(pid, statusVA): pid == -1 waits for any
// child, else for the named one (spec.md §4.8 Wait). Reports -ESRCH
// immediately if the caller has no matching children at all (no
// blocking-forever-on-nothing); otherwise, if no matching child has
// exited yet, blocks the caller (BlockWaitChild) until one does (spec.md
// §4.8: "else block until any child exits").
//
// The pid eventually reaped isn't known until the blocked caller is woken
// (task.Exit wakes it, but the waking child isn't threaded back through
// here), so rather than stash a "fill in later" return value this rewinds
// Sepc by the width of the ecall instruction traphandler.Dispatch already
// advanced past, so the whole waitpid call is re-executed from scratch on
// resume — the caller simply re-finds its now-Zombie child and reaps it,
// same as a fresh invocation. sysSleep does not need this trick because
// its return value (0) does not depend on why it resumed.
func (d *Dispatcher) sysWaitPID(cur *task.Task, pid int, statusVA uintptr) int64 {
	if !cur.HasChildren() {
		return errno.ESRCH.Syscall()
	}
	child := cur.FindZombieChildByPID(pid)
	if child == nil {
		cur.Block(task.BlockWaitChild)
		cur.TrapFrame(d.Mem).Sepc -= 4
		d.Reschedule = true
		return 0
	}
	childPID, exitCode := cur.Reap(d.KernelSpace, d.Frames, child)
	if statusVA != 0 {
		bufs, err := cur.Space.TranslateByteBuffer(statusVA, 4)
		if err == nil {
			var raw [4]byte
			v := uint32(exitCode)
			raw[0], raw[1], raw[2], raw[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
			scatter(bufs, raw[:])
		}
	}
	return int64(childPID)
}
