package trapframe

import "testing"

func TestAppInitContextClearsSPPForUserMode(t *testing.T) {
	f := AppInitContext(0x1000, 0x2000, 0x3000, 0x4000, 0x5000, 1<<8)
	if f.Sstatus&(1<<8) != 0 {
		t.Fatalf("SPP bit should be cleared for U-mode return, sstatus=%#x", f.Sstatus)
	}
	if f.Sepc != 0x1000 {
		t.Fatalf("sepc = %#x, want 0x1000", f.Sepc)
	}
	if f.X[RegSP] != 0x2000 {
		t.Fatalf("sp = %#x, want 0x2000", f.X[RegSP])
	}
}

func TestSyscallArgsReadsA0ThroughA7(t *testing.T) {
	f := &TrapFrame{}
	f.X[RegA7] = 64
	f.X[RegA0] = 1
	f.X[RegA1] = 2
	f.X[RegA2] = 3
	num, a0, a1, a2 := f.SyscallArgs()
	if num != 64 || a0 != 1 || a1 != 2 || a2 != 3 {
		t.Fatalf("got %d %d %d %d", num, a0, a1, a2)
	}
}

func TestSetReturnWritesA0(t *testing.T) {
	f := &TrapFrame{}
	f.SetReturn(-14)
	if int64(f.X[RegA0]) != -14 {
		t.Fatalf("a0 = %d, want -14", int64(f.X[RegA0]))
	}
}
