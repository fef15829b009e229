package sbi

import "testing"

func TestSetTimerCallsTimeExtension(t *testing.T) {
	SetSimErrCode(0)
	New().SetTimer(12345)
	eid, _, arg0, _, _ := LastCall()
	if eid != eidSetTimer || arg0 != 12345 {
		t.Fatalf("eid=%#x arg0=%d", eid, arg0)
	}
}

func TestShutdownCallsSRSTExtension(t *testing.T) {
	SetSimErrCode(0)
	New().Shutdown()
	eid, _, arg0, arg1, _ := LastCall()
	if eid != eidSRST || arg0 != resetTypeShutdown || arg1 != resetReasonNone {
		t.Fatalf("eid=%#x arg0=%d arg1=%d", eid, arg0, arg1)
	}
}

func TestHartStartSuccess(t *testing.T) {
	SetSimErrCode(0)
	if err := New().HartStart(2, 0x80200000, 0x82000000); err != nil {
		t.Fatalf("HartStart: %v", err)
	}
	eid, fid, arg0, arg1, arg2 := LastCall()
	if eid != eidHSM || fid != fidHSMHartStart || arg0 != 2 || arg1 != 0x80200000 || arg2 != 0x82000000 {
		t.Fatalf("unexpected call: eid=%#x fid=%d arg0=%d arg1=%#x arg2=%#x", eid, fid, arg0, arg1, arg2)
	}
}

func TestHartStartPropagatesFirmwareError(t *testing.T) {
	SetSimErrCode(^uint64(0)) // -1, a generic SBI_ERR_FAILED
	defer SetSimErrCode(0)
	if err := New().HartStart(1, 0, 0); err == nil {
		t.Fatal("expected error from non-zero firmware error code")
	}
}

func TestSendIPIMarshalsMaskAndBase(t *testing.T) {
	SetSimErrCode(0)
	if err := New().SendIPI(0b110, 1); err != nil {
		t.Fatalf("SendIPI: %v", err)
	}
	eid, fid, arg0, arg1, _ := LastCall()
	if eid != eidIPI || fid != fidIPISend || arg0 != 0b110 || arg1 != 1 {
		t.Fatalf("unexpected call: eid=%#x fid=%d arg0=%d arg1=%d", eid, fid, arg0, arg1)
	}
}

func TestConsoleGetCharZeroValueIsAByte(t *testing.T) {
	SetSimErrCode(0)
	// The simulated call always returns value=0, which is a valid NUL
	// byte, not "no input" (TryReadByte reports no input only for a
	// negative value).
	b, ok := New().TryReadByte()
	if !ok || b != 0 {
		t.Fatalf("TryReadByte = (%d, %v), want (0, true)", b, ok)
	}
}
