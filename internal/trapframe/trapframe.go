// Package trapframe is the per-task trap context (spec.md §5.1, part of
// C5): the fixed-layout register save area the trampoline reads and
// writes across every user/kernel boundary crossing. The field order and
// set are a direct transcription of
// original_source/kernel/src/trap/context.rs's TrapContext, since the
// trampoline assembly on both sides of this port depends on fixed
// byte offsets into this struct matching what the assembly indexes by.
package trapframe

// TrapFrame is mapped at memlayout.TrapContextVA in every user address
// space, one page, read and written only by the trampoline and the trap
// handler — never directly dereferenced from a VA by syscall argument
// code (spec.md §6: "argument pointers always translated via memory-set
// byte-buffer translation, never direct dereference").
type TrapFrame struct {
	X [32]uint64 // general-purpose registers x0-x31 at the moment of the trap

	Sstatus uint64 // sstatus CSR, SPP bit tells the trampoline which mode to return to
	Sepc    uint64 // sepc CSR: the instruction to resume at on return

	KernelSatp  uint64 // kernel address space token, loaded before entering the trap handler
	KernelSp    uint64 // this task's kernel stack top
	TrapHandler uint64 // address of the Go trap_handler entry point
}

// Reg indices into X, named for the ones the kernel touches directly
// (spec.md's ABI uses a0-a2/a7 for syscalls, sp for the stack pointer).
const (
	RegSP = 2
	RegA0 = 10
	RegA1 = 11
	RegA2 = 12
	RegA7 = 17
)

// SetSP sets the frame's saved stack pointer (x2), mirroring
// TrapContext::set_sp.
func (f *TrapFrame) SetSP(sp uint64) { f.X[RegSP] = sp }

// SyscallArgs returns the syscall number (a7) and its three argument
// registers (a0-a2), the fixed ABI shape spec.md §6 requires.
func (f *TrapFrame) SyscallArgs() (num uint64, a0, a1, a2 uint64) {
	return f.X[RegA7], f.X[RegA0], f.X[RegA1], f.X[RegA2]
}

// SetReturn stores a syscall's return value into a0, where the caller
// resumes after sepc is advanced past the ecall instruction.
func (f *TrapFrame) SetReturn(v int64) { f.X[RegA0] = uint64(v) }

const sppUser = 0 // sstatus.SPP: 0 selects U-mode on sret

// AppInitContext builds the first trap frame for a freshly loaded task,
// mirroring TrapContext::app_init_context: SPP cleared to User so sret
// drops to U-mode, sepc at the program's entry point, sp at the top of
// its user stack.
func AppInitContext(entry, sp, kernelSatp, kernelSp, trapHandler uint64, sstatus uint64) *TrapFrame {
	const sppBit = uint64(1) << 8
	f := &TrapFrame{
		Sstatus:     (sstatus &^ sppBit) | (sppUser << 8),
		Sepc:        entry,
		KernelSatp:  kernelSatp,
		KernelSp:    kernelSp,
		TrapHandler: trapHandler,
	}
	f.SetSP(sp)
	return f
}
