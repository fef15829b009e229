package taskctx

import "testing"

func TestGotoTrapReturnSetsFields(t *testing.T) {
	c := GotoTrapReturn(0x1000, 0x2000, 3)
	if c.RA != 0x2000 || c.SP != 0x1000 || c.TP != 3 {
		t.Fatalf("got %+v", c)
	}
}

func TestIdleIsZero(t *testing.T) {
	c := Idle()
	if c.RA != 0 || c.SP != 0 || c.TP != 0 {
		t.Fatalf("expected zero context, got %+v", c)
	}
}

func TestSimSwitcherTracksCurrent(t *testing.T) {
	var sw SimSwitcher
	a := GotoTrapReturn(1, 2, 0)
	b := GotoTrapReturn(3, 4, 1)
	sw.SwitchTo(nil, &a)
	if sw.Current != &a {
		t.Fatal("expected current to be a")
	}
	sw.SwitchTo(&a, &b)
	if sw.Current != &b {
		t.Fatal("expected current to be b")
	}
}
