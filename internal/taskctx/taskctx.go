// Package taskctx is the switch primitive (spec.md §5.3, C7): the
// callee-saved register set swapped on every task switch, and the
// function that performs the swap. Field layout is a direct
// transcription of original_source/kernel/src/task/context.rs's
// TaskContext — ra, kernel_sp, s0-s11, tp — since SwitchTo's assembly (on
// the riscv64 build) indexes into this struct by fixed offset.
package taskctx

// Context is one task's saved callee-saved registers. The zero value is
// a context that, if ever switched to, returns immediately (ra == 0) —
// callers must use Idle or GotoTrapReturn rather than the zero value
// directly for a runnable task.
type Context struct {
	RA uint64    // return address: where SwitchTo resumes execution
	SP uint64    // kernel stack pointer
	S  [12]uint64 // callee-saved s0-s11
	TP uint64    // thread pointer, holds the current hart id
}

// Idle returns a zeroed context, used for a hart's bootstrap task before
// it has ever been scheduled (original_source's TaskContext::zero_init).
func Idle() Context { return Context{} }

// GotoTrapReturn builds the context a freshly created task resumes into:
// RA points at trapReturn (the Go function that re-enters user mode via
// the trampoline), SP is the task's kernel stack top, and TP records
// which hart constructed it (original_source's
// TaskContext::goto_trap_return).
func GotoTrapReturn(kernelSP, trapReturn, hartID uint64) Context {
	return Context{RA: trapReturn, SP: kernelSP, TP: hartID}
}

// Switcher performs the actual register swap between two contexts.
// On the riscv64 build (switch_riscv64.s) SwitchTo saves the caller's
// live registers into from and loads them from to, returning only once
// some later SwitchTo(_, from, ...) resumes this context. The host build
// (switch_sim.go) only records to as the current context and returns at
// once, swapping no registers, for logic that is exercised without real
// hardware (the scheduler and task lifecycle state machines), since an
// actual stack switch cannot be expressed in portable Go.
type Switcher interface {
	SwitchTo(from, to *Context)
}
