package traphandler

import (
	"testing"

	"github.com/gitwillsky/lite-os-sub002/internal/trapframe"
)

type recordingHooks struct {
	syscallNum           uint64
	syscallResult        int64
	timerFired           bool
	softwareFired        bool
	pageFaultCause       uint64
	illegalFired         bool
	unknownCause         uint64
}

func (r *recordingHooks) Syscall(num, a0, a1, a2 uint64) int64 {
	r.syscallNum = num
	return r.syscallResult
}
func (r *recordingHooks) TimerInterrupt()    { r.timerFired = true }
func (r *recordingHooks) SoftwareInterrupt() { r.softwareFired = true }
func (r *recordingHooks) PageFault(cause, stval uint64) { r.pageFaultCause = cause }
func (r *recordingHooks) IllegalInstruction()           { r.illegalFired = true }
func (r *recordingHooks) Unknown(scause, stval uint64)  { r.unknownCause = scause }

func TestDispatchSyscallAdvancesSepcAndSetsA0(t *testing.T) {
	f := &trapframe.TrapFrame{Sepc: 0x1000}
	f.X[trapframe.RegA7] = 64
	h := &recordingHooks{syscallResult: -14}
	Dispatch(f, CauseUserEnvCall, 0, h)

	if f.Sepc != 0x1004 {
		t.Fatalf("sepc = %#x, want 0x1004", f.Sepc)
	}
	if h.syscallNum != 64 {
		t.Fatalf("syscall num = %d, want 64", h.syscallNum)
	}
	if int64(f.X[trapframe.RegA0]) != -14 {
		t.Fatalf("a0 = %d, want -14", int64(f.X[trapframe.RegA0]))
	}
}

func TestDispatchTimerInterrupt(t *testing.T) {
	f := &trapframe.TrapFrame{}
	h := &recordingHooks{}
	scause := interruptBit | CauseSupervisorTimerInterrupt
	Dispatch(f, scause, 0, h)
	if !h.timerFired {
		t.Fatal("expected timer hook to fire")
	}
}

func TestDispatchPageFaultPassesCause(t *testing.T) {
	f := &trapframe.TrapFrame{}
	h := &recordingHooks{}
	Dispatch(f, CauseStorePageFault, 0xdead, h)
	if h.pageFaultCause != CauseStorePageFault {
		t.Fatalf("got %d", h.pageFaultCause)
	}
}

func TestDispatchUnknownCause(t *testing.T) {
	f := &trapframe.TrapFrame{}
	h := &recordingHooks{}
	Dispatch(f, 0x3f, 0, h)
	if h.unknownCause != 0x3f {
		t.Fatalf("got %d", h.unknownCause)
	}
}
