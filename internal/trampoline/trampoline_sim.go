//go:build !riscv64

package trampoline

// SimRunner stands in for the real trampoline's satp-switching dance when
// there is no hart to run on. It does not execute user code — there is
// none to execute — but it lets everything above this layer (trap
// dispatch, syscalls, the scheduler) exercise the same call shape a real
// boot would: "enter user, come back with a cause", driven instead by a
// caller-supplied Program that stands in for the user task.
type SimRunner struct {
	// Program is invoked once per RunUser call with the trap frame VA that
	// was "entered"; it returns the scause/stval the simulated trap
	// produced, e.g. a synthetic ECALL to exercise syscall dispatch.
	Program func(trapFrameVA uintptr) (scause, stval uint64)
}

func (r *SimRunner) RunUser(trapFrameVA uintptr, kernelSatp uint64) (scause, stval uint64) {
	if r.Program == nil {
		return 0, 0
	}
	return r.Program(trapFrameVA)
}
