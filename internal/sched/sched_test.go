package sched

import (
	"testing"

	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

func taskWithPID(pid int) *task.Task {
	t := &task.Task{PID: pid}
	t.Sched = task.SchedInfo{Nice: task.DefaultNice, Weight: task.DefaultWeight, Priority: task.DefaultPriority}
	return t
}

func TestFIFOOrdersByArrival(t *testing.T) {
	f := NewFIFO()
	a, b, c := taskWithPID(1), taskWithPID(2), taskWithPID(3)
	f.Add(a)
	f.Add(b)
	f.Add(c)
	if got := f.Fetch(); got != a {
		t.Fatalf("got pid %d, want 1", got.PID)
	}
	if got := f.Fetch(); got != b {
		t.Fatalf("got pid %d, want 2", got.PID)
	}
	if f.Len() != 1 {
		t.Fatalf("len = %d, want 1", f.Len())
	}
}

func TestFIFOFetchEmptyReturnsNil(t *testing.T) {
	f := NewFIFO()
	if f.Fetch() != nil {
		t.Fatal("expected nil on empty fetch")
	}
}

func TestFIFOFindByPID(t *testing.T) {
	f := NewFIFO()
	a := taskWithPID(7)
	f.Add(a)
	if f.FindByPID(7) != a {
		t.Fatal("expected to find pid 7")
	}
	if f.FindByPID(99) != nil {
		t.Fatal("expected nil for missing pid")
	}
}

func TestCFSFetchesLowestVRuntimeFirst(t *testing.T) {
	c := NewCFS()
	a, b := taskWithPID(1), taskWithPID(2)
	a.Sched.VRuntime = 500
	b.Sched.VRuntime = 100
	c.Add(a)
	c.Add(b)
	if got := c.Fetch(); got != b {
		t.Fatalf("got pid %d, want 2 (lower vruntime)", got.PID)
	}
	if got := c.Fetch(); got != a {
		t.Fatalf("got pid %d, want 1", got.PID)
	}
}

func TestCFSTiesBreakByInsertionOrder(t *testing.T) {
	c := NewCFS()
	a, b := taskWithPID(1), taskWithPID(2)
	c.Add(a)
	c.Add(b)
	if got := c.Fetch(); got != a {
		t.Fatalf("got pid %d, want 1 first on tie", got.PID)
	}
}

func TestAccountRuntimeScalesByWeight(t *testing.T) {
	tk := taskWithPID(1)
	tk.Sched.Weight = task.DefaultWeight * 2 // half the vruntime accrual of a nice-0 task
	AccountRuntime(tk, 1000)
	if tk.Sched.VRuntime != 500 {
		t.Fatalf("got vruntime %d, want 500", tk.Sched.VRuntime)
	}
}

func TestPrioritySchedulerFetchesLowestBucketFirst(t *testing.T) {
	p := NewPriority()
	low, high := taskWithPID(1), taskWithPID(2)
	low.Sched.Priority = 5
	high.Sched.Priority = 30
	p.Add(high)
	p.Add(low)
	if got := p.Fetch(); got != low {
		t.Fatalf("got pid %d, want the lower-numbered-priority task", got.PID)
	}
}

func TestPrioritySchedulerClampsOutOfRange(t *testing.T) {
	p := NewPriority()
	tk := taskWithPID(1)
	tk.Sched.Priority = 1000
	p.Add(tk)
	if p.Len() != 1 {
		t.Fatalf("len = %d, want 1", p.Len())
	}
	if got := p.Fetch(); got != tk {
		t.Fatal("expected clamped-priority task to still be fetchable")
	}
}
