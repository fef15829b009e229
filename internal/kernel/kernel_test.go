package kernel

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"testing"

	"github.com/gitwillsky/lite-os-sub002/internal/console"
	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
	"github.com/gitwillsky/lite-os-sub002/internal/syscall"
	"github.com/gitwillsky/lite-os-sub002/internal/task"
	"github.com/gitwillsky/lite-os-sub002/internal/taskctx"
	"github.com/gitwillsky/lite-os-sub002/internal/trampoline"
	"github.com/gitwillsky/lite-os-sub002/internal/traphandler"
)

var testSink *console.BufferSink

func TestMain(m *testing.M) {
	testSink = &console.BufferSink{}
	console.Init(testSink)
	os.Exit(m.Run())
}

type fakeSBI struct{ shutdown bool }

func (f *fakeSBI) SetTimer(uint64)                     {}
func (f *fakeSBI) Shutdown()                           { f.shutdown = true }
func (f *fakeSBI) HartStart(int, uint64, uint64) error { return nil }

type fakeClock struct{ cycles uint64 }

func (c *fakeClock) ReadCycles() uint64 { return c.cycles }

// buildMiniELF64 assembles a minimal one-segment ELF64/riscv executable:
// a single PT_LOAD covering code, loaded at vaddr. Never actually
// executed (the sim Runner never fetches an instruction) — only
// debug/elf.NewFile's header/program-header parsing in memset.FromELF
// needs to accept it, and the segment's own bytes need to be readable
// back out at a known user VA for a scripted write() syscall to point at.
func buildMiniELF64(vaddr uint64, code []byte) []byte {
	var buf bytes.Buffer

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     vaddr,
		Phoff:     64,
		Ehsize:    64,
		Phentsize: 56,
		Phnum:     1,
	}
	hdr.Ident[0], hdr.Ident[1], hdr.Ident[2], hdr.Ident[3] = 0x7f, 'E', 'L', 'F'
	hdr.Ident[4] = byte(elf.ELFCLASS64)
	hdr.Ident[5] = byte(elf.ELFDATA2LSB)
	hdr.Ident[6] = byte(elf.EV_CURRENT)
	binary.Write(&buf, binary.LittleEndian, hdr)

	phdr := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_W | elf.PF_X),
		Off:    120,
		Vaddr:  vaddr,
		Paddr:  vaddr,
		Filesz: uint64(len(code)),
		Memsz:  uint64(len(code)),
		Align:  memlayout.PageSize,
	}
	binary.Write(&buf, binary.LittleEndian, phdr)
	buf.Write(code)
	return buf.Bytes()
}

// newTestKernel builds a Kernel over simulated memory with initELF as the
// init task's program image, for exercising the boot-sequence wiring and
// the scheduling loop without a real hart.
func newTestKernel(t *testing.T, initELF []byte) *Kernel {
	t.Helper()
	trampPPN, _ := frame.New(0, memlayout.PageSize, memlayout.PageSize, nil).Alloc()

	k, err := New(Config{
		Mem:           physmem.NewSim(),
		FrameStart:    0x100000,
		FrameEnd:      0x100000 + 256*memlayout.PageSize,
		TrampolinePPN: trampPPN,
		SBI:           &fakeSBI{},
		Clock:         &fakeClock{cycles: 1000},
		TimebaseFreq:  1000,
		Switcher:      &taskctx.SimSwitcher{},
		Runner:        &trampoline.SimRunner{},
		InitELF:       initELF,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k
}

// TestHelloCycleRunsInitToZombie exercises spec.md's S1 scenario end to
// end on the host build: a scripted trap driver stands in for the init
// task executing write(1, "hi\n", 3) followed by exit(0), and the real
// scheduling loop (RunHart/runTaskLoop/traphandler.Dispatch/syscall.
// Dispatcher) carries it from Ready through the write and exit syscalls
// to Zombie, leaving the ready queue empty.
func TestHelloCycleRunsInitToZombie(t *testing.T) {
	const vaddr = 0x1000
	msg := []byte("hi\n")
	code := make([]byte, 16)
	copy(code[8:], msg) // msgVA = vaddr+8, clear of the ELF header/phdr offsets

	k := newTestKernel(t, buildMiniELF64(vaddr, code))
	init := k.InitTask

	step := 0
	k.Runner.(*trampoline.SimRunner).Program = func(uintptr) (scause, stval uint64) {
		tf := init.TrapFrame(k.Mem)
		step++
		switch step {
		case 1:
			tf.X[17] = syscall.SysWrite // a7
			tf.X[10] = uint64(task.FDStdout)
			tf.X[11] = vaddr + 8
			tf.X[12] = uint64(len(msg))
		case 2:
			tf.X[17] = syscall.SysExit
			tf.X[10] = 0
		default:
			t.Fatalf("unexpected extra trap after exit, step=%d", step)
		}
		return 8, 0 // CauseUserEnvCall, no interrupt bit
	}

	k.RunHart(0)

	if got := testSink.String(); got != "hi\n" {
		t.Fatalf("console output = %q, want %q", got, "hi\n")
	}
	if init.State() != task.Zombie {
		t.Fatalf("init state = %v, want Zombie", init.State())
	}
	if step != 2 {
		t.Fatalf("trap count = %d, want 2", step)
	}
}

// TestIllegalInstructionTerminatesFaultingTask exercises spec.md §4.6's
// "illegal instruction terminates the faulting task only": a scripted trap
// driver reports CauseIllegalInstruction once, and runTaskLoop's
// DeliverPending wiring must turn that into an Exit and a reschedule
// rather than looping RunUser forever against the same faulting PC.
func TestIllegalInstructionTerminatesFaultingTask(t *testing.T) {
	k := newTestKernel(t, buildMiniELF64(0x1000, make([]byte, 16)))
	init := k.InitTask

	calls := 0
	k.Runner.(*trampoline.SimRunner).Program = func(uintptr) (scause, stval uint64) {
		calls++
		if calls > 1 {
			t.Fatalf("RunUser re-entered after the faulting task should have exited, call %d", calls)
		}
		return traphandler.CauseIllegalInstruction, 0
	}

	k.RunHart(0)

	if init.State() != task.Zombie {
		t.Fatalf("init state = %v, want Zombie", init.State())
	}
	if want := 128 + int(task.SIGSEGV); init.ExitCode != want {
		t.Fatalf("ExitCode = %d, want %d", init.ExitCode, want)
	}
	if calls != 1 {
		t.Fatalf("RunUser called %d times, want exactly 1", calls)
	}
}
