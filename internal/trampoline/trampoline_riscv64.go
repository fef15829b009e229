//go:build riscv64

package trampoline

import (
	"reflect"

	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
)

// HWRunner is the real trampoline. userRet (trampoline_riscv64.s) loads a
// TrapFrame's saved registers, swaps satp to the user token, fences, and
// srets into U-mode. trapIn, the other half of the same identity-mapped
// page, is reached via stvec on the next trap: it swaps satp back to
// kernelSatp (read out of the trap frame userRet just restored from),
// saves the trapped registers, and calls recordTrap before handing off to
// the address in the trap frame's TrapHandler field. RunUser blocks until
// that round trip lands back in recordTrap.
type HWRunner struct{}

//go:noescape
func userRet(trapFrameVA uintptr, userSatp uint64)

// lastCause/lastValue are written by recordTrap, called from trapIn
// immediately after it saves the user context and swaps satp back to the
// kernel token.
var lastCause, lastValue uint64

//go:nosplit
func recordTrap(scause, stval uint64) {
	lastCause, lastValue = scause, stval
}

func (HWRunner) RunUser(trapFrameVA uintptr, kernelSatp uint64) (scause, stval uint64) {
	userRet(trapFrameVA, kernelSatp)
	return lastCause, lastValue
}

// PhysPage locates the physical frame backing this compiled kernel's copy
// of the trampoline code, for the boot sequence to map at the fixed
// memlayout.TrampolineVA in every address space (spec.md §4.4). A
// from-scratch kernel normally gets this address from a linker-script
// section (original_source's trampoline.S is placed by its own ALIGN
// directive in kernel.ld); Go's toolchain gives no equivalent custom
// section, so this resolves the compiled location of userRet through the
// standard library's own function-address machinery instead, the same
// "treat compiled code as data at a known address" trick the teacher
// applies to Go runtime symbols in getLinkerSymbol. The kernel runs
// identity-mapped at boot (spec.md §4.4 "new_kernel() identity-maps
// kernel text"), so the function's virtual address equals its physical
// address at this point in the boot sequence.
func PhysPage() frame.PPN {
	pc := reflect.ValueOf(userRet).Pointer()
	return frame.PPN(memlayout.AlignDown(pc) >> memlayout.PageShift)
}
