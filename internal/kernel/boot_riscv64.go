//go:build riscv64

package kernel

import (
	"unsafe"

	"github.com/gitwillsky/lite-os-sub002/internal/board"
	"github.com/gitwillsky/lite-os-sub002/internal/console"
	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/memset"
	"github.com/gitwillsky/lite-os-sub002/internal/pagetable"
	panicpkg "github.com/gitwillsky/lite-os-sub002/internal/panic"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
	"github.com/gitwillsky/lite-os-sub002/internal/sbi"
	"github.com/gitwillsky/lite-os-sub002/internal/taskctx"
	"github.com/gitwillsky/lite-os-sub002/internal/trampoline"
)

// kernelImageReserve bounds how much of RAM past the board's reported
// start address this boot treats as "the running kernel image" for the
// single identity-mapped, RWX KernelSection it builds. A from-scratch
// kernel normally reads exact .text/.rodata/.data/.bss boundaries out of
// its own linker script (original_source's kernel.ld); Go's toolchain
// has no equivalent custom section layout this module can introspect
// (memset.KernelSection's own doc comment notes the same gap), so this
// conservatively reserves a fixed window rather than mapping anything
// per-section. 16 MiB comfortably covers this kernel's own compiled
// size plus bootsplash's font/image assets.
const kernelImageReserve = 16 * 1024 * 1024

// BootHartID, BootDTBAddr and BootInitELF are populated by the external
// bootloader stub before Go's runtime calls main() — the same "whatever
// got us here" handoff boundary Boot's own doc comment describes. Go's
// main() takes no arguments, so cmd/kernel's riscv64 entry point reads
// these package-level vars rather than receiving a0/a1 as parameters;
// a real boot image's assembly sets them (by symbol address, before
// jumping into runtime.rt0_go) the same way it would poke any other
// fixed memory location an external collaborator owns.
var (
	BootHartID  uint64
	BootDTBAddr uintptr
	BootInitELF []byte
)

type hwClock struct{}

func (hwClock) ReadCycles() uint64 { return readCycles() }

// readCycles is implemented in clock_riscv64.s.
//
//go:noescape
func readCycles() uint64

// Boot is hart 0's Go-level entry point (spec.md §6's boot protocol:
// "jumps to the entry symbol with a0 = hart_id, a1 = dtb_phys_addr").
// cmd/kernel's riscv64 main() is the caller; the assembly that parks tp
// = hartID, sets up an initial stack, and gets Go's runtime far enough
// to call main() at all is the same external bootloader boundary
// spec.md §1 places outside this core's scope — identical in kind to
// the SBI shim and the block device, consumed here as "whatever got us
// into Go with these two values in hand." initELF is the init program
// image; where its bytes come from (embedded in the boot image, fetched
// by the bootloader) is that same external concern.
func Boot(hartID uint64, dtbPhysAddr uintptr, initELF []byte) *Kernel {
	raw, err := board.ReadAt(dtbPhysAddr)
	if err != nil {
		panicFatal("board: bad device tree", err)
	}
	info, err := board.Parse(raw)
	if err != nil {
		panicFatal("board: parse failed", err)
	}

	shim := sbi.New()
	console.Init(shim)

	mem := physmem.HW{}
	trampPPN := trampoline.PhysPage()

	kernelLow := memlayout.AlignDown(info.Memory.Low)
	kernelHigh := kernelLow + kernelImageReserve
	frameStart := kernelHigh
	frameEnd := memlayout.AlignDown(info.Memory.High)

	mmio := []memset.MMIORegion{
		{Low: info.UART.Low, High: info.UART.High},
		{Low: info.CLINT.Low, High: info.CLINT.High},
		{Low: info.Test.Low, High: info.Test.High},
	}

	k, err := New(Config{
		Mem:        mem,
		FrameStart: frameStart,
		FrameEnd:   frameEnd,
		KernelSections: []memset.KernelSection{
			{Low: kernelLow, High: kernelHigh, Perm: pagetable.R | pagetable.W | pagetable.X},
		},
		PhysPool:       frame.PPN(frameStart >> memlayout.PageShift),
		PhysPoolFrames: uint64(frameEnd-frameStart) >> memlayout.PageShift,
		MMIO:           mmio,
		TrampolinePPN:  trampPPN,
		SBI:            shim,
		Clock:          hwClock{},
		TimebaseFreq:   info.TimeBaseFreq,
		Switcher:       taskctx.HWSwitcher{},
		Runner:         trampoline.HWRunner{},
		TrapReturn:     TrapReturnAddr(),
		TrapHandler:    0,
		InitELF:        initELF,
	})
	if err != nil {
		panicFatal("kernel: boot failed", err)
	}

	enterSupervisorMode(memlayout.TrampolineVA)
	k.Timer.ProgramNext(shim)

	for i := 1; i < info.HartCount && i < 8; i++ {
		if startErr := k.Harts.StartSecondary(i, uint64(TrapReturnAddr()), uint64(dtbPhysAddr)); startErr != nil {
			console.Global().PutString("warn: hart_start failed\n")
		}
	}

	k.RunHart(0)
	return k
}

// BootSecondary brings up hart i>0 once the shared *Kernel already exists
// (spec.md §4.12's "secondaries wait for later hart_start"): install its
// own trap vector and interrupt enables, then join the same scheduling
// loop every hart shares via k.Sched/k.Harts.
func BootSecondary(k *Kernel, hartID int) {
	enterSupervisorMode(memlayout.TrampolineVA)
	k.RunHart(hartID)
}

// bootWordReader reads physical memory directly, for the rare stack
// walk performed before a Kernel (and its physmem.Memory handle) exists.
type bootWordReader struct{}

func (bootWordReader) ReadWord(addr uintptr) (uint64, bool) {
	return *(*uint64)(unsafe.Pointer(addr)), true
}

// panicFatal is the boot sequence's own fatal path (spec.md §4.12): no
// CPU frame pointer is available this early (there is no running task's
// kernel stack to walk yet), so the trace panicpkg.Fatal prints is a
// single unsymbolized frame describing the failure itself.
func panicFatal(reason string, err error) {
	panicpkg.Fatal(console.Global(), reason+": "+err.Error(), 0, 0, bootWordReader{}, panicpkg.NoSymbols{}, nil, sbi.New())
}
