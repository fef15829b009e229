package memlayout

import "testing"

func TestAlignment(t *testing.T) {
	if AlignDown(0x1fff) != 0x1000 {
		t.Fatalf("AlignDown(0x1fff) = %#x", AlignDown(0x1fff))
	}
	if AlignUp(0x1001) != 0x2000 {
		t.Fatalf("AlignUp(0x1001) = %#x", AlignUp(0x1001))
	}
	if AlignUp(0x1000) != 0x1000 {
		t.Fatalf("AlignUp of an already-aligned address must be a no-op")
	}
}

func TestTrampolineLayout(t *testing.T) {
	if TrampolineVA%PageSize != 0 {
		t.Fatalf("trampoline VA must be page aligned")
	}
	if TrapContextVA != TrampolineVA-PageSize {
		t.Fatalf("trap context must sit exactly one page below the trampoline")
	}
}

func TestVPNIndexExtractsNineBitFields(t *testing.T) {
	va := uintptr(0x10_0000_0000 | (0x1AB << 12))
	vpn := VPN(va)
	if got := VPNIndex(vpn, 0); got != 0x1AB {
		t.Fatalf("VPNIndex(level0) = %#x, want 0x1ab", got)
	}
}
