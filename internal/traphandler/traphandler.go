// Package traphandler is the trap cause dispatch table (spec.md §5.2,
// C6): it decodes scause and routes to the right collaborator. Grounded
// on the teacher's handleException/ExceptionHandler switch-on-EC shape in
// exceptions.go, re-targeted from ARM64's ESR exception classes to
// RISC-V's scause interrupt/exception-code encoding, and on
// original_source/kernel/src/trap/softirq.rs's dispatch_current_cpu for
// the "timer interrupt wakes sleepers then asks for a reschedule" flow.
package traphandler

import "github.com/gitwillsky/lite-os-sub002/internal/trapframe"

// Cause codes, RISC-V scause encoding: the top bit selects interrupt vs
// exception, the rest is the numeric code (spec.md §5.2).
const (
	interruptBit = uint64(1) << 63

	// Interrupts (scause with the top bit set).
	CauseSupervisorSoftwareInterrupt = 1
	CauseSupervisorTimerInterrupt    = 5
	CauseSupervisorExternalInterrupt = 9

	// Exceptions.
	CauseInstructionPageFault = 12
	CauseLoadPageFault        = 13
	CauseStorePageFault       = 15
	CauseIllegalInstruction   = 2
	CauseUserEnvCall          = 8
)

// IsInterrupt reports whether scause denotes an interrupt rather than an
// exception.
func IsInterrupt(scause uint64) bool { return scause&interruptBit != 0 }

// Code strips the interrupt bit, leaving the numeric cause code.
func Code(scause uint64) uint64 { return scause &^ interruptBit }

// Hooks are the collaborators a trap dispatches into. traphandler itself
// holds no task/timer/syscall state, avoiding an import cycle back into
// those packages — the same role the teacher's package-level
// HandleSyscall/irqHandlerGo functions play for ExceptionHandler.
type Hooks interface {
	// Syscall services an ECALL-from-U-mode trap and returns the value to
	// place in a0 (already negated for errors per spec.md §6).
	Syscall(num, a0, a1, a2 uint64) int64
	// TimerInterrupt handles a supervisor timer interrupt: wake due
	// sleepers, rearm the timer, and request a reschedule.
	TimerInterrupt()
	// SoftwareInterrupt handles a supervisor software interrupt (IPI).
	SoftwareInterrupt()
	// PageFault handles an instruction/load/store page fault at the given
	// faulting address; implementations decide whether to kill the task.
	PageFault(cause, stval uint64)
	// IllegalInstruction handles an illegal-instruction exception.
	IllegalInstruction()
	// Unknown handles any cause this dispatcher has no case for.
	Unknown(scause, stval uint64)
}

// Dispatch decodes scause and routes to the matching Hooks method,
// advancing frame.Sepc past the ecall instruction on a syscall return the
// same way original_source's trap handler does before resuming the
// caller (an ECALL's sepc must skip the 4-byte instruction that trapped).
func Dispatch(frame *trapframe.TrapFrame, scause, stval uint64, hooks Hooks) {
	if IsInterrupt(scause) {
		switch Code(scause) {
		case CauseSupervisorTimerInterrupt:
			hooks.TimerInterrupt()
		case CauseSupervisorSoftwareInterrupt:
			hooks.SoftwareInterrupt()
		default:
			hooks.Unknown(scause, stval)
		}
		return
	}

	switch Code(scause) {
	case CauseUserEnvCall:
		frame.Sepc += 4
		num, a0, a1, a2 := frame.SyscallArgs()
		frame.SetReturn(hooks.Syscall(num, a0, a1, a2))
	case CauseInstructionPageFault, CauseLoadPageFault, CauseStorePageFault:
		hooks.PageFault(Code(scause), stval)
	case CauseIllegalInstruction:
		hooks.IllegalInstruction()
	default:
		hooks.Unknown(scause, stval)
	}
}
