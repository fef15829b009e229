// Package sbi is the concrete Supervisor Binary Interface shim: the
// thin ecall-based calling convention between S-mode (this kernel) and
// the M-mode firmware, satisfying internal/hart.SBI and
// internal/timer.SBI so the rest of the module depends only on those
// narrow interfaces (spec.md §1: "the bootloader and its SBI shim" are
// an external collaborator consumed as an abstract service; spec.md §6:
// "Programmable timer (SBI): set_timer(deadline), shutdown(),
// hart_start(id, entry, opaque)").
//
// Grounded on original_source/kernel/src/arch/riscv64/sbi.rs: the
// generic (eid, fid, args[6]) -> (error, value) call shape in a0-a7,
// and the extension/function IDs it names (TIME/"set_timer",
// SRST/"shutdown", HSM/"hart_start", sPI/"send_ipi"). The teacher has no
// RISC-V SBI precedent (it targets ARM64 PSCI/mailbox instead), so this
// package's register-level ecall wrapper follows the teacher's own
// habit of keeping the single lowest-level call primitive in hand-written
// assembly (taskctx's switch_riscv64.s, trampoline's trampoline_riscv64.s)
// with everything above it in ordinary Go.
package sbi

import (
	"fmt"

	"github.com/gitwillsky/lite-os-sub002/internal/console"
)

const (
	eidConsolePutChar = 0x01
	eidConsoleGetChar = 0x02
	eidSetTimer       = 0x54494D45 // "TIME"
	eidSRST           = 0x53525354 // "SRST"
	eidHSM            = 0x48534D // "HSM"
	eidIPI            = 0x735049 // "sPI"

	fidHSMHartStart     = 0
	fidHSMHartStop      = 1
	fidHSMHartGetStatus = 2

	fidIPISend = 0

	resetTypeShutdown = 0
	resetReasonNone   = 0
)

// Shim is the real SBI collaborator, wired into internal/hart.Table and
// internal/timer.GlobalTimer on riscv64 boots. It also serves as the
// console.Sink/ReaderSink a boot with no memory-mapped UART installs
// (spec.md §6's legacy console extension fallback).
type Shim struct{}

var (
	_ console.Sink       = Shim{}
	_ console.ReaderSink = Shim{}
)

// New returns the real ecall-backed SBI shim.
func New() Shim { return Shim{} }

// SetTimer implements internal/timer.SBI.
func (Shim) SetTimer(deadline uint64) {
	call(eidSetTimer, 0, deadline, 0, 0)
}

// Shutdown implements internal/hart.SBI: the System Reset extension,
// "shutdown" reset type, no particular reason.
func (Shim) Shutdown() {
	call(eidSRST, 0, resetTypeShutdown, resetReasonNone, 0)
}

// HartStart implements internal/hart.SBI via the HSM extension's
// hart_start function: launch the hart at hartID executing entry, with
// opaque (conventionally the DTB address) passed through to it in a1.
func (Shim) HartStart(hartID int, entry, opaque uint64) error {
	errCode, _ := call(eidHSM, fidHSMHartStart, uint64(hartID), entry, opaque)
	if int64(errCode) != 0 {
		return fmt.Errorf("sbi: hart_start(hart=%d) failed: error %d", hartID, int64(errCode))
	}
	return nil
}

// SendIPI rings the software-interrupt bit on every hart named in
// hartMask (bit i set means hartMaskBase+i), the SBI IPI extension's
// send_ipi function — the real-hardware counterpart to
// internal/hart.Table.RaiseOn's bookkeeping.
func (Shim) SendIPI(hartMask, hartMaskBase uint64) error {
	errCode, _ := call(eidIPI, fidIPISend, hartMask, hartMaskBase, 0)
	if int64(errCode) != 0 {
		return fmt.Errorf("sbi: send_ipi failed: error %d", int64(errCode))
	}
	return nil
}

// PutChar implements console.Sink via the legacy console extension, for
// builds with no memory-mapped UART.
func (Shim) PutChar(c byte) {
	call(eidConsolePutChar, 0, uint64(c), 0, 0)
}

// TryReadByte implements console.ReaderSink by polling the legacy
// console extension for one input byte; ok is false when no byte is
// available (a negative return value, per the legacy extension's
// contract).
func (Shim) TryReadByte() (b byte, ok bool) {
	_, value := call(eidConsoleGetChar, 0, 0, 0, 0)
	if int64(value) < 0 {
		return 0, false
	}
	return byte(value), true
}
