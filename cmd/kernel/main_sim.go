//go:build !riscv64

package main

import (
	"bufio"
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/gitwillsky/lite-os-sub002/internal/console"
	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/kernel"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
	"github.com/gitwillsky/lite-os-sub002/internal/syscall"
	"github.com/gitwillsky/lite-os-sub002/internal/task"
	"github.com/gitwillsky/lite-os-sub002/internal/taskctx"
	"github.com/gitwillsky/lite-os-sub002/internal/trampoline"
)

// stdioSink routes console output to the host's own stdout, so running
// this binary directly prints what the simulated init task writes.
type stdioSink struct{ w *bufio.Writer }

func (s stdioSink) PutChar(c byte) { s.w.WriteByte(c); s.w.Flush() }

// miniELF builds the same one-segment "write hello, then exit" program
// internal/kernel's own tests script through a fake trap driver, reused
// here as a runnable demonstration since there is no board to boot from.
func miniELF() []byte {
	const vaddr = 0x1000
	msg := []byte("hello from init\n")
	code := make([]byte, 64)
	copy(code[32:], msg)

	var buf bytes.Buffer
	hdr := elf.Header64{
		Type: uint16(elf.ET_EXEC), Machine: uint16(elf.EM_RISCV), Version: uint32(elf.EV_CURRENT),
		Entry: vaddr, Phoff: 64, Ehsize: 64, Phentsize: 56, Phnum: 1,
	}
	hdr.Ident[0], hdr.Ident[1], hdr.Ident[2], hdr.Ident[3] = 0x7f, 'E', 'L', 'F'
	hdr.Ident[4], hdr.Ident[5], hdr.Ident[6] = byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)
	binary.Write(&buf, binary.LittleEndian, hdr)
	binary.Write(&buf, binary.LittleEndian, elf.Prog64{
		Type: uint32(elf.PT_LOAD), Flags: uint32(elf.PF_R | elf.PF_W | elf.PF_X),
		Off: 120, Vaddr: vaddr, Paddr: vaddr, Filesz: uint64(len(code)), Memsz: uint64(len(code)), Align: memlayout.PageSize,
	})
	buf.Write(code)
	return buf.Bytes()
}

type hostClock struct{ ticks uint64 }

func (c *hostClock) ReadCycles() uint64 { c.ticks += 1000; return c.ticks }

type noopSBI struct{}

func (noopSBI) SetTimer(uint64)                     {}
func (noopSBI) Shutdown()                           { os.Exit(0) }
func (noopSBI) HartStart(int, uint64, uint64) error { return nil }

// main drives one hart over simulated memory (no board, no trampoline
// assembly) so the scheduling loop can be exercised by running this
// binary directly, the host-build analogue of a QEMU boot for a module
// with no hardware to target without one.
func main() {
	console.Init(stdioSink{w: bufio.NewWriter(os.Stdout)})

	trampPPN, _ := frame.New(0, memlayout.PageSize, memlayout.PageSize, nil).Alloc()
	runner := &trampoline.SimRunner{}

	k, err := kernel.New(kernel.Config{
		Mem:           physmem.NewSim(),
		FrameStart:    0x100000,
		FrameEnd:      0x100000 + 256*memlayout.PageSize,
		TrampolinePPN: trampPPN,
		SBI:           noopSBI{},
		Clock:         &hostClock{},
		TimebaseFreq:  1000,
		Switcher:      &taskctx.SimSwitcher{},
		Runner:        runner,
		InitELF:       miniELF(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernel: boot failed:", err)
		os.Exit(1)
	}

	step := 0
	init := k.InitTask
	const vaddr = 0x1000
	runner.Program = func(uintptr) (scause, stval uint64) {
		tf := init.TrapFrame(k.Mem)
		step++
		switch step {
		case 1:
			tf.X[17], tf.X[10], tf.X[11], tf.X[12] = syscall.SysWrite, uint64(task.FDStdout), vaddr+32, 16
		default:
			tf.X[17], tf.X[10] = syscall.SysExit, 0
		}
		return 8, 0
	}

	k.RunHart(0)
	fmt.Printf("init exited with code %d, state %v\n", init.ExitCode, init.State())
}
