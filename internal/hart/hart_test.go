package hart

import (
	"errors"
	"testing"

	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

type fakeSBI struct {
	started  map[int][2]uint64
	shutdown bool
	startErr error
}

func (f *fakeSBI) HartStart(hartID int, entry, opaque uint64) error {
	if f.startErr != nil {
		return f.startErr
	}
	if f.started == nil {
		f.started = make(map[int][2]uint64)
	}
	f.started[hartID] = [2]uint64{entry, opaque}
	return nil
}

func (f *fakeSBI) Shutdown() { f.shutdown = true }

func TestHartLazilyCreatesState(t *testing.T) {
	tbl := NewTable(&fakeSBI{})
	h1 := tbl.Hart(1)
	h1again := tbl.Hart(1)
	if h1 != h1again {
		t.Fatal("expected the same State instance for the same hart id")
	}
	if h1.ID != 1 {
		t.Fatalf("ID = %d, want 1", h1.ID)
	}
}

func TestHartOutOfRangeReturnsNil(t *testing.T) {
	tbl := NewTable(&fakeSBI{})
	if tbl.Hart(-1) != nil || tbl.Hart(MaxHarts) != nil {
		t.Fatal("expected nil for out-of-range hart ids")
	}
}

func TestStartSecondaryDelegatesToSBI(t *testing.T) {
	sbi := &fakeSBI{}
	tbl := NewTable(sbi)
	if err := tbl.StartSecondary(2, 0x80200000, 0x82000000); err != nil {
		t.Fatalf("StartSecondary: %v", err)
	}
	got := sbi.started[2]
	if got[0] != 0x80200000 || got[1] != 0x82000000 {
		t.Fatalf("got %v", got)
	}
}

func TestStartSecondaryPropagatesError(t *testing.T) {
	sbi := &fakeSBI{startErr: errors.New("hsm failure")}
	tbl := NewTable(sbi)
	if err := tbl.StartSecondary(1, 0, 0); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestRaiseAndTakePending(t *testing.T) {
	tbl := NewTable(&fakeSBI{})
	tbl.RaiseOn(0, ReasonReschedule)
	tbl.RaiseOn(0, ReasonSleepWake)
	h := tbl.Hart(0)
	got := h.TakePending()
	if got&ReasonReschedule == 0 || got&ReasonSleepWake == 0 {
		t.Fatalf("got %b, want both reasons set", got)
	}
	if got := h.TakePending(); got != 0 {
		t.Fatalf("expected pending to clear after TakePending, got %b", got)
	}
}

func TestCurrentTaskSlot(t *testing.T) {
	h := NewTable(&fakeSBI{}).Hart(0)
	if h.GetCurrent() != nil {
		t.Fatal("expected nil current task on a fresh hart")
	}
	tk := &task.Task{PID: 5}
	h.SetCurrent(tk)
	if h.GetCurrent() != tk {
		t.Fatal("expected GetCurrent to return the task just set")
	}
}
