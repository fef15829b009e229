//go:build !riscv64

package sbi

import "sync"

// recordedCall is the last (eid, fid, args) triple passed to call, kept
// so host tests can assert Shim's argument marshalling without a real
// ecall — no RISC-V hardware exists to execute one in this build.
type recordedCall struct {
	eid, fid, arg0, arg1, arg2 uint64
}

var (
	callMu   sync.Mutex
	lastCall recordedCall
	// simErrCode is returned as the simulated firmware error code for
	// the next call; tests can set it via SetSimErrCode to exercise
	// Shim's error-wrapping paths.
	simErrCode uint64
)

func call(eid, fid, arg0, arg1, arg2 uint64) (uint64, uint64) {
	callMu.Lock()
	defer callMu.Unlock()
	lastCall = recordedCall{eid, fid, arg0, arg1, arg2}
	return simErrCode, 0
}

// LastCall returns the most recent simulated SBI call's arguments, for
// use in this package's own tests.
func LastCall() (eid, fid, arg0, arg1, arg2 uint64) {
	callMu.Lock()
	defer callMu.Unlock()
	return lastCall.eid, lastCall.fid, lastCall.arg0, lastCall.arg1, lastCall.arg2
}

// SetSimErrCode controls the error code the simulated firmware reports
// on the next call, letting tests exercise HartStart/SendIPI's error
// path without real hardware.
func SetSimErrCode(code uint64) {
	callMu.Lock()
	defer callMu.Unlock()
	simErrCode = code
}
