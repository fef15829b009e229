// Package kernel assembles every C1-C13 collaborator into the boot
// sequence and scheduling loop spec.md §4.12/§6 describes, the way the
// teacher's kernel.go wires uart/mmu/mailbox/timer together into one
// KernelBoot before entering its own scheduling loop. Nothing in this
// package owns policy of its own; it is the composition root, grounded
// on original_source/kernel/src/main.rs's rust_main (clear bss, init
// logger, init heap, init frame allocator, build kernel space, init
// trap, load apps, add init task, run tasks) re-targeted to this
// module's Go collaborator set.
package kernel

import (
	"github.com/gitwillsky/lite-os-sub002/internal/console"
	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/fs"
	"github.com/gitwillsky/lite-os-sub002/internal/hart"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/memset"
	panicpkg "github.com/gitwillsky/lite-os-sub002/internal/panic"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
	"github.com/gitwillsky/lite-os-sub002/internal/sched"
	"github.com/gitwillsky/lite-os-sub002/internal/syscall"
	"github.com/gitwillsky/lite-os-sub002/internal/task"
	"github.com/gitwillsky/lite-os-sub002/internal/taskctx"
	"github.com/gitwillsky/lite-os-sub002/internal/timer"
	"github.com/gitwillsky/lite-os-sub002/internal/trampoline"
	"github.com/gitwillsky/lite-os-sub002/internal/traphandler"
)

// Config is everything a boot sequence has already gathered (from the
// board's device tree, the riscv64 build's own linker-free section
// probing, or a test's fixed constants) before the kernel proper can be
// built. The riscv64 and host (sim) entry points fill this out
// differently; New itself is platform-agnostic.
type Config struct {
	Mem physmem.Memory

	// FrameStart/FrameEnd bound the physical frame pool (spec.md §4.1),
	// normally everything above the kernel image up to the board's
	// reported top of RAM.
	FrameStart, FrameEnd uintptr

	// KernelSections/PhysPool/PhysPoolFrames/MMIO/TrampolinePPN feed
	// memset.NewKernel directly (spec.md §4.4 C4).
	KernelSections []memset.KernelSection
	PhysPool       frame.PPN
	PhysPoolFrames uint64
	MMIO           []memset.MMIORegion
	TrampolinePPN  frame.PPN

	SBI   syscall.SBI
	Clock timer.Clock
	// TimebaseFreq is the device tree's timebase-frequency property
	// (board.Info.TimeBaseFreq), the divisor internal/timer uses to turn
	// raw cycles into microseconds.
	TimebaseFreq uint64

	Switcher taskctx.Switcher
	Runner   trampoline.Runner
	// TrapReturn/TrapHandler are virtual addresses baked into every
	// task's initial trap frame and kernel context (spec.md §5.1/§5.3):
	// TrapReturn is where a freshly created task's kernel context resumes
	// (trapReturn, platform-specific — see sched_riscv64.go/sched_sim.go),
	// TrapHandler is read back out of the trap frame by the trampoline's
	// trapIn half on real hardware.
	TrapReturn, TrapHandler uintptr

	// Sched overrides the default FIFO policy (spec.md §4.9 allows CFS
	// and priority-bucket variants; FIFO is the only one New defaults
	// to without an explicit override).
	Sched sched.Scheduler

	// InitELF is the first task's program image (spec.md §4.12's "load
	// init", generalized from original_source's fixed initproc.rs binary
	// to a caller-supplied image so tests can hand in a synthetic one).
	InitELF []byte

	// Splash optionally renders a fatal trap's diagnostic onto a boot
	// framebuffer (internal/bootsplash); nil on boots with none wired.
	Splash panicpkg.Splash
}

// Kernel is every collaborator a running boot needs, shared across all
// harts except for each hart's own Dispatcher/hart.State.
type Kernel struct {
	Frames      *frame.Allocator
	Mem         physmem.Memory
	KernelSpace *memset.AddressSpace
	KernelSatp  uint64

	Harts    *hart.Table
	Sleep    *timer.SleepQueue
	ReadWait *console.ReadWaiters
	Timer    *timer.GlobalTimer
	FS       *fs.FileSystem
	Sched    sched.Scheduler
	SBI      syscall.SBI

	Switcher   taskctx.Switcher
	Runner     trampoline.Runner
	TrapReturn uintptr
	TrapHandler uintptr
	Splash     panicpkg.Splash

	InitTask *task.Task
}

// New builds the kernel: the physical frame pool, the identity-mapped
// kernel address space (memset.NewKernel), the shared scheduling
// collaborators, and the init task loaded from cfg.InitELF, then puts
// init on the ready queue. Mirrors rust_main's sequence up to (but not
// including) "run_tasks", which is this module's per-hart RunHart.
func New(cfg Config) (*Kernel, error) {
	frames := frame.New(cfg.FrameStart, cfg.FrameEnd, memlayout.PageSize, zeroFrame(cfg.Mem))

	kspace, err := memset.NewKernel(cfg.Mem, frames, cfg.KernelSections, cfg.PhysPool, cfg.PhysPoolFrames, cfg.MMIO, cfg.TrampolinePPN)
	if err != nil {
		return nil, err
	}

	scheduler := cfg.Sched
	if scheduler == nil {
		scheduler = sched.NewFIFO()
	}

	k := &Kernel{
		Frames:      frames,
		Mem:         cfg.Mem,
		KernelSpace: kspace,
		KernelSatp:  kspace.Token(),
		Harts:       hart.NewTable(cfg.SBI),
		Sleep:       timer.NewSleepQueue(),
		ReadWait:    console.NewReadWaiters(),
		Timer:       timer.New(cfg.Clock, cfg.TimebaseFreq),
		FS:          fs.New(),
		Sched:       scheduler,
		SBI:         cfg.SBI,
		Switcher:    cfg.Switcher,
		Runner:      cfg.Runner,
		TrapReturn:  cfg.TrapReturn,
		TrapHandler: cfg.TrapHandler,
		Splash:      cfg.Splash,
	}

	init, err := task.New(k.KernelSpace, k.Frames, k.Mem, cfg.InitELF, task.InitPID, k.KernelSatp, k.TrapReturn, k.TrapHandler)
	if err != nil {
		return nil, err
	}
	k.InitTask = init
	k.Sched.Add(init)

	return k, nil
}

// zeroFrame returns a frame.Allocator zero-page callback that clears a
// freshly handed-out frame's backing bytes through mem, the collaborator
// the allocator itself is deliberately ignorant of (spec.md §4.1 never
// names a memory-access concern for the allocator, only "duplicate
// detection must be exact").
func zeroFrame(mem physmem.Memory) func(frame.PPN) {
	return func(ppn frame.PPN) {
		b := mem.Bytes(ppn)
		for i := range b {
			b[i] = 0
		}
	}
}

// newDispatcher builds the per-hart syscall.Dispatcher bound to hs,
// sharing every collaborator New already built.
func (k *Kernel) newDispatcher(hs *hart.State) *syscall.Dispatcher {
	return &syscall.Dispatcher{
		HartState:   hs,
		Frames:      k.Frames,
		Mem:         k.Mem,
		KernelSpace: k.KernelSpace,
		Sched:       k.Sched,
		Sleep:       k.Sleep,
		ReadWait:    k.ReadWait,
		Timer:       k.Timer,
		SBI:         k.SBI,
		Harts:       k.Harts,
		FS:          k.FS,
		InitTask:    k.InitTask,
		KernelSatp:  k.KernelSatp,
		TrapReturn:  k.TrapReturn,
		TrapHandler: k.TrapHandler,
		Splash:      k.Splash,
	}
}

// runTaskLoop drives cur's user/kernel round trips until it stops being
// Running — either a syscall/trap handler asked for a reschedule
// (TimerInterrupt, yield, sleep, exit) or the task itself reached
// Zombie. This is the body of spec.md §4.12's scheduling loop "enter
// user mode; on trap, dispatch; repeat until the task yields, blocks, or
// exits", shared verbatim by both the host (sched_sim.go) and hardware
// (sched_riscv64.go) run loops: on the host it runs inline, right after
// Switcher.SwitchTo returns immediately (SimSwitcher performs no real
// stack switch); on hardware it runs on cur's own kernel stack, reached
// because SwitchTo's assembly jumped into trapReturn, whose only job is
// to call this function and then switch back to the hart's idle context
// when it returns.
func runTaskLoop(k *Kernel, d *syscall.Dispatcher, cur *task.Task) {
	for cur.State() == task.Running {
		d.Reschedule = false
		scause, stval := k.Runner.RunUser(memlayout.TrapContextVA, k.KernelSatp)
		tf := cur.TrapFrame(k.Mem)
		traphandler.Dispatch(tf, scause, stval, d)

		if cur.HasDeliverablePending() {
			sig, fatal := cur.DeliverPending(cur.Space, k.Mem, tf)
			if fatal {
				if parent := cur.Exit(128+int(sig), k.InitTask); parent != nil {
					k.Sched.Add(parent)
				}
				d.Reschedule = true
			}
		}

		if d.Reschedule {
			break
		}
	}
}
