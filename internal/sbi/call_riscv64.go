//go:build riscv64

package sbi

// sbiCall (call_riscv64.s) places eid in a7, fid in a6, and up to three
// arguments in a0-a2, executes ecall, and returns the firmware's (a0,
// a1) pair as (errCode, value) — the generic shape
// original_source/kernel/src/arch/riscv64/sbi.rs's sbi_call wraps.
func sbiCall(eid, fid, arg0, arg1, arg2 uint64) (errCode, value uint64)

func call(eid, fid, arg0, arg1, arg2 uint64) (uint64, uint64) {
	return sbiCall(eid, fid, arg0, arg1, arg2)
}
