//go:build riscv64

package kernel

// enterSupervisorMode is implemented in bringup_riscv64.s.
//
//go:noescape
func enterSupervisorMode(trampolineVA uintptr)
