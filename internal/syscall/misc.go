package syscall

import (
	"github.com/gitwillsky/lite-os-sub002/internal/errno"
	"github.com/gitwillsky/lite-os-sub002/internal/task"
	"github.com/gitwillsky/lite-os-sub002/internal/trapframe"
)

// sysSleep services sleep(durationUS): blocks the caller until at least
// durationUS microseconds have elapsed (spec.md §4.11's "+" list),
// implemented by filing the task in the sleep queue and requesting a
// reschedule — the scheduling loop actually suspends it by not picking it
// back up until SleepQueue.WakeDue reports it (spec.md §5's "a task
// suspends only inside a syscall").
func (d *Dispatcher) sysSleep(cur *task.Task, durationUS uint64) int64 {
	wakeAt := d.Timer.NowUS() + durationUS
	cur.Block(task.BlockSleep)
	d.Sleep.Add(wakeAt, cur)
	d.Reschedule = true
	return 0
}

// sysSetPriority services sys_set_priority: sets the caller's
// priority-bucket value (spec_full.md C11 supplement, consumed by
// internal/sched's priority scheduler). Valid range mirrors the 40
// buckets PriorityScheduler exposes.
func (d *Dispatcher) sysSetPriority(cur *task.Task, priority int) int64 {
	if priority < 0 || priority > 39 {
		return errno.EINVAL.Syscall()
	}
	cur.Sched.Priority = priority
	return 0
}

// sysSigReturn services sigreturn: restores the trap frame a prior
// DeliverPending saved, per original_source/kernel/src/signal/delivery.rs's
// sig_return.
func (d *Dispatcher) sysSigReturn(cur *task.Task) int64 {
	tf := cur.TrapFrame(d.Mem)
	if err := cur.SigReturn(cur.Space, d.Mem, tf); err != nil {
		return errno.EINVAL.Syscall()
	}
	return int64(tf.X[trapframe.RegA0])
}

// sysKill services kill(pid, sig): raises sig against the named task,
// cancelling a sleep or blocked read in progress whenever the target is
// currently Blocked(Sleep/ReadWait). The signal's disposition is not
// checked: a handled or ignored signal cancels the sleep or read the same
// way a fatal-default one does.
func (d *Dispatcher) sysKill(cur *task.Task, pid int, sig int) int64 {
	target := d.Sched.FindByPID(pid)
	if target == nil {
		target = d.Sleep.FindByPID(pid)
	}
	if target == nil {
		target = d.ReadWait.FindByPID(pid)
	}
	if target == nil {
		return errno.ESRCH.Syscall()
	}
	if err := target.Raise(task.Signal(sig)); err != nil {
		return errno.EINVAL.Syscall()
	}
	switch target.BlockReason() {
	case task.BlockSleep:
		if d.Sleep.Cancel(target) {
			target.Cancelled = true
			target.Wake()
			d.Sched.Add(target)
		}
	case task.BlockReadWait:
		if d.ReadWait.Cancel(target) {
			target.Cancelled = true
			target.Wake()
			d.Sched.Add(target)
		}
	}
	return 0
}

// sysRtSigaction services rt_sigaction(sig, handlerVA): registers a
// handler address for sig, or restores the default disposition when
// handlerVA is 0 (SIG_DFL).
func (d *Dispatcher) sysRtSigaction(cur *task.Task, sig int, handlerVA uintptr) int64 {
	disposition := task.DispositionHandler
	if handlerVA == 0 {
		disposition = task.DispositionDefault
	}
	if err := cur.SetHandler(task.Signal(sig), disposition, handlerVA); err != nil {
		return errno.EINVAL.Syscall()
	}
	return 0
}

// sysRtSigprocmask services rt_sigprocmask(how, maskVA): how is ignored
// (the core keeps a single mask word, not SIG_BLOCK/UNBLOCK/SETMASK
// deltas) and maskVA's 8 bytes become the new mask directly. The previous
// mask is written as 8 bytes to oldMaskVA when it is nonzero, for a
// caller that wants to restore it; the return value is 0.
func (d *Dispatcher) sysRtSigprocmask(cur *task.Task, how int, maskVA, oldMaskVA uintptr) int64 {
	bufs, err := cur.Space.TranslateByteBuffer(maskVA, 8)
	if err != nil {
		return errno.EFAULT.Syscall()
	}
	raw := gather(bufs)
	mask := uint64(0)
	for i := 0; i < 8; i++ {
		mask |= uint64(raw[i]) << (8 * uint(i))
	}
	old := cur.SetMask(mask)
	if oldMaskVA != 0 {
		if obufs, err := cur.Space.TranslateByteBuffer(oldMaskVA, 8); err == nil {
			var oraw [8]byte
			putU64(oraw[:], old)
			scatter(obufs, oraw[:])
		}
	}
	return 0
}
