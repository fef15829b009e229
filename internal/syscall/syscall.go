// Package syscall is the syscall dispatch table (spec.md §4.11, C11): a
// table indexed by syscall number, argument marshalling across user
// memory always routed through internal/memset's byte-buffer translator.
// Grounded on the teacher's syscall.go — one SyscallX function per
// syscall number, its own doc comment naming parameters and return
// value — generalized from the teacher's fixed single-address-space
// shape to the multi-task/multi-hart one spec.md §4.11 requires, and
// supplemented per spec_full.md C11 with sys_close/sys_dup/sys_pipe/
// sys_set_priority/sys_meminfo from
// original_source/kernel/src/syscall/{fs,timer,dynamic_linking,watchdog}.rs.
//
// Dispatcher also implements internal/traphandler's Hooks interface:
// nothing else in the module owns a "what does a trap actually do"
// policy, and every non-syscall trap cause (timer, software interrupt,
// page fault, illegal instruction) still bottoms out in task/sched/timer
// state this package already depends on to serve syscalls, so the
// dispatch-table package is where that wiring lives.
package syscall

import (
	"fmt"

	"github.com/gitwillsky/lite-os-sub002/internal/console"
	"github.com/gitwillsky/lite-os-sub002/internal/errno"
	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/hart"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/memset"
	panicpkg "github.com/gitwillsky/lite-os-sub002/internal/panic"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
	"github.com/gitwillsky/lite-os-sub002/internal/sched"
	"github.com/gitwillsky/lite-os-sub002/internal/task"
	"github.com/gitwillsky/lite-os-sub002/internal/timer"
)

// Syscall numbers, spec.md §4.11's required table plus spec_full.md's
// supplements. Numbering follows original_source/kernel/src/syscall/mod.rs
// where it names a constant, and the conventional RISC-V Linux ABI
// numbers elsewhere (fork/exec/waitpid/getpid/brk/mmap/munmap/sleep are
// not in the filtered original_source index under those names, so the
// widely used rCore-tutorial numbers are kept for familiarity).
const (
	SysRead          = 63
	SysWrite         = 64
	SysExit          = 93
	SysYield         = 124
	SysGetTimeMsec   = 169
	SysGetPID        = 172
	SysOpen          = 56
	SysClose         = 57
	SysDup           = 24
	SysPipe          = 59
	SysFork          = 220
	SysExec          = 221
	SysWaitPID       = 260
	SysBrk           = 214
	SysSbrk          = 213
	SysMmap          = 222
	SysMunmap        = 215
	SysSleep         = 101
	SysSetPriority   = 140
	SysMeminfo       = 141
	SysSigReturn     = 139
	SysKill          = 129
	SysRtSigaction   = 134
	SysRtSigprocmask = 135
)

// SBI is the union of the SBI capabilities the trap-hooks side of this
// package needs: timer reprogramming (TimerInterrupt) and shutdown
// (Unknown's fatal path), plus hart bring-up passed straight through to
// internal/hart.
type SBI interface {
	timer.SBI
	hart.SBI
}

// FileSystem is the collaborator a non-console write/read/open routes
// through (spec.md §6: "the core exposes a syscall ABI plus a filesystem
// mount point to the rest"). internal/fs implements this; the dispatcher
// only depends on the interface, never the concrete package, avoiding an
// import cycle and matching spec.md's "filesystem implementations...
// out of scope, consumed as an abstract collaborator" framing.
type FileSystem interface {
	Open(path string, writable bool) (task.File, error)
}

// Dispatcher is one hart's syscall/trap entry point. Harts share the
// scheduler, sleep queue, timer, frame allocator, kernel address space,
// filesystem, and hart table; each hart gets its own Dispatcher bound to
// its own hart.State so Current() always resolves without an explicit
// hart-id parameter (Hooks carries none).
type Dispatcher struct {
	HartState *hart.State

	Frames      *frame.Allocator
	Mem         physmem.Memory
	KernelSpace *memset.AddressSpace
	Sched       sched.Scheduler
	Sleep       *timer.SleepQueue
	ReadWait    *console.ReadWaiters
	Timer       *timer.GlobalTimer
	SBI         SBI
	Harts       *hart.Table
	FS          FileSystem

	// Splash optionally renders Unknown's fatal diagnostic onto a boot
	// framebuffer (internal/bootsplash); nil on boots with none wired.
	Splash panicpkg.Splash

	InitTask *task.Task

	KernelSatp  uint64
	TrapReturn  uintptr
	TrapHandler uintptr

	// Reschedule is set by TimerInterrupt, SoftwareInterrupt, and every
	// syscall that takes the current task off Running (yield, sleep, a
	// blocking read or waitpid, exit), so a fresh pick must be made.
	// internal/kernel's runTaskLoop polls this after every Dispatch call rather than the handler calling back into the switch primitive
	// directly (the handler never invokes taskctx.Switcher itself, since
	// stack-switching away from inside the current goroutine's call frame
	// across the riscv64/host split lives at the boot-sequence level).
	Reschedule bool
}

// current returns the task currently running on this hart, or nil if the
// hart is idle (a trap should never arrive on an idle hart, but nil is
// handled defensively rather than panicking — an internal invariant
// violation is fatal per spec.md §4.12, not a silent crash here).
func (d *Dispatcher) current() *task.Task { return d.HartState.GetCurrent() }

// Syscall implements traphandler.Hooks.
func (d *Dispatcher) Syscall(num, a0, a1, a2 uint64) int64 {
	cur := d.current()
	if cur == nil {
		return errno.ESRCH.Syscall()
	}
	switch num {
	case SysRead:
		return d.sysRead(cur, int(a0), uintptr(a1), int(a2))
	case SysWrite:
		return d.sysWrite(cur, int(a0), uintptr(a1), int(a2))
	case SysExit:
		return d.sysExit(cur, int(int32(a0)))
	case SysYield:
		return d.sysYield(cur)
	case SysGetTimeMsec:
		return int64(d.Timer.NowMS())
	case SysGetPID:
		return int64(cur.PID)
	case SysOpen:
		return d.sysOpen(cur, uintptr(a0), int(a1), a2 != 0)
	case SysClose:
		return d.sysClose(cur, int(a0))
	case SysDup:
		return d.sysDup(cur, int(a0))
	case SysPipe:
		return d.sysPipe(cur, uintptr(a0))
	case SysFork:
		return d.sysFork(cur)
	case SysExec:
		return d.sysExec(cur, uintptr(a0), int(a1))
	case SysWaitPID:
		return d.sysWaitPID(cur, int(int32(a0)), uintptr(a1))
	case SysBrk:
		return d.sysBrk(cur, uintptr(a0))
	case SysSbrk:
		return d.sysSbrk(cur, int64(int32(a0)))
	case SysMmap:
		return d.sysMmap(cur, uintptr(a0), uintptr(a1), uint64(a2))
	case SysMunmap:
		return d.sysMunmap(cur, uintptr(a0), a1)
	case SysSleep:
		return d.sysSleep(cur, a0)
	case SysSetPriority:
		return d.sysSetPriority(cur, int(a0))
	case SysMeminfo:
		return d.sysMeminfo(cur, uintptr(a0))
	case SysSigReturn:
		return d.sysSigReturn(cur)
	case SysKill:
		return d.sysKill(cur, int(int32(a0)), int(a1))
	case SysRtSigaction:
		return d.sysRtSigaction(cur, int(a0), uintptr(a1))
	case SysRtSigprocmask:
		return d.sysRtSigprocmask(cur, int(a0), uintptr(a1), uintptr(a2))
	default:
		return errno.EINVAL.Syscall()
	}
}

// TimerInterrupt implements traphandler.Hooks: wake due sleepers, rearm
// the timer, and request a reschedule (spec.md §4.10 / §4.12).
func (d *Dispatcher) TimerInterrupt() {
	d.Timer.Tick()

	// CFS's vruntime only advances if something accounts elapsed time
	// against it (spec.md §4.9): this tick, at TicksPerSec, is the only
	// reliable elapsed-time signal already flowing through every
	// scheduler variant, so the running task's share of it is credited
	// here rather than requiring callers that pick sched.NewCFS to also
	// remember to wire their own accounting.
	if cur := d.current(); cur != nil {
		if _, ok := d.Sched.(*sched.CFS); ok {
			sched.AccountRuntime(cur, 1_000_000_000/timer.TicksPerSec)
		}
	}

	due := d.Sleep.WakeDue(d.Timer.NowUS())
	for _, t := range due {
		t.Wake()
		d.Sched.Add(t)
	}
	woke := len(due) > 0

	// No real PLIC/external-interrupt path exists in this module
	// (CauseSupervisorExternalInterrupt is defined but never dispatched by
	// internal/traphandler), so a byte becoming available on the console is
	// only noticed by piggybacking on this already-periodic tick.
	if console.Global().HasInput() {
		for _, t := range d.ReadWait.WakeReady() {
			t.Wake()
			d.Sched.Add(t)
			woke = true
		}
	}

	if woke {
		d.notifyOtherHarts()
	}
	d.Timer.ProgramNext(d.SBI)
	d.Reschedule = true
}

// notifyOtherHarts raises ReasonReschedule on every hart but this one, so
// an idle hart elsewhere wakes up and re-examines the now-nonempty ready
// queue (spec.md §4.12: "ask another hart to re-examine its ready queue
// after adding a task on its behalf").
func (d *Dispatcher) notifyOtherHarts() {
	if d.Harts == nil {
		return
	}
	for i := 0; i < hart.MaxHarts; i++ {
		if i == d.HartState.ID {
			continue
		}
		d.Harts.RaiseOn(i, hart.ReasonReschedule)
	}
}

// SoftwareInterrupt implements traphandler.Hooks: acknowledge and process
// this hart's pending inter-hart wake reasons (spec.md §4.12).
func (d *Dispatcher) SoftwareInterrupt() {
	reason := d.HartState.TakePending()
	if reason&hart.ReasonSleepWake != 0 {
		due := d.Sleep.WakeDue(d.Timer.NowUS())
		for _, t := range due {
			t.Wake()
			d.Sched.Add(t)
		}
	}
	if reason != 0 {
		d.Reschedule = true
	}
}

// PageFault implements traphandler.Hooks: grow the stack on a fault just
// below a writable user stack/heap area (spec.md §4.6), otherwise raise
// SIGSEGV against the faulting task.
func (d *Dispatcher) PageFault(cause, stval uint64) {
	cur := d.current()
	if cur == nil {
		return
	}
	candidateStart := memlayout.AlignDown(uintptr(stval)) + memlayout.PageSize
	if _, low, _, ok := cur.Space.AreaContaining(candidateStart); ok && low == candidateStart {
		if err := cur.Space.GrowDown(low); err == nil {
			return
		}
	}
	cur.Raise(task.SIGSEGV)
}

// IllegalInstruction implements traphandler.Hooks: raise a fatal signal
// against the faulting task (spec.md §4.6: illegal instruction terminates
// the faulting task only).
func (d *Dispatcher) IllegalInstruction() {
	if cur := d.current(); cur != nil {
		cur.Raise(task.SIGSEGV)
	}
}

// memWordReader adapts physmem.Memory to internal/panic's WordReader,
// treating addr as a physical address the same way every other
// kernel-space access in this module does under identity mapping.
type memWordReader struct{ mem physmem.Memory }

func (r memWordReader) ReadWord(addr uintptr) (uint64, bool) {
	ppn := frame.PPN(addr >> memlayout.PageShift)
	b := r.mem.Bytes(ppn)
	off := addr & memlayout.PageMask
	if off+8 > memlayout.PageSize {
		return 0, false
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[off+uintptr(i)])
	}
	return v, true
}

// Unknown implements traphandler.Hooks: an unrecognized cause is an
// internal invariant violation, fatal per spec.md §4.12's failure
// semantics — no retry. Routed through internal/panic.Fatal rather than
// printed inline, the same fatal path a real hardware trap with a
// genuine frame pointer would use; no CPU frame pointer is reachable
// from this Go-level Hooks callback, so the trace is a single
// (unsymbolized) frame describing the cause itself rather than a real
// stack walk.
func (d *Dispatcher) Unknown(scause, stval uint64) {
	reason := fmt.Sprintf("unknown trap cause 0x%x stval 0x%x", scause, stval)
	panicpkg.Fatal(console.Global(), reason, 0, 0, memWordReader{d.Mem}, panicpkg.NoSymbols{}, d.Splash, d.SBI)
}
