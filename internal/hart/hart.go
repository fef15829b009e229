// Package hart is per-hart bring-up state and the cross-hart soft
// interrupt mailbox (spec.md §4.12, C12): each hart's idle context,
// current-task slot, and pending-wakeup bitmap, plus the SBI HSM
// secondary-entry sequence. Grounded on the teacher's mailbox.go
// request/response MMIO protocol — generalized here from "framebuffer
// property channel" to "per-hart pending-wakeup bitmap write" exactly as
// SPEC_FULL.md describes — and on
// original_source/kernel/src/drivers/hal/interrupt.rs's
// InterruptController/InterruptHandler split plus the smp-prefixed
// identifiers (current_cpu_id, MAX_CPU_NUM) referenced throughout
// original_source.
package hart

import (
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/task"
	"github.com/gitwillsky/lite-os-sub002/internal/taskctx"
)

// MaxHarts bounds SMP support per spec.md §1 Non-goals ("more than 8
// harts").
const MaxHarts = 8

// SBI is the subset of the SBI shim hart bring-up needs (spec.md §6):
// hart_start to launch a secondary hart, shutdown for the fatal path.
type SBI interface {
	HartStart(hartID int, entry, opaque uint64) error
	Shutdown()
}

// State is one hart's bring-up bookkeeping: its idle context (the
// scheduling pivot — spec.md §9 "Idle context"), the task currently
// running on it, and a bitmap of pending soft-interrupt reasons raised by
// other harts (spec.md §4.12's SSIP mailbox).
type State struct {
	mu sync.Mutex

	ID int

	Idle    taskctx.Context
	Current *task.Task

	pending uint32 // bit n set => reason n is pending, written by IPI senders
}

// Reason is a cross-hart wakeup cause delivered over a soft interrupt,
// mirroring the IPC soft-interrupt plumbing
// original_source/kernel/src/trap/softirq.rs performs.
type Reason uint32

const (
	// ReasonReschedule asks the receiving hart to re-examine its ready
	// queue — e.g. another hart just Add()ed a task on its behalf.
	ReasonReschedule Reason = 1 << iota
	// ReasonSleepWake asks the receiving hart to run SleepQueue.WakeDue,
	// since the sleeper it concerns may be pinned there.
	ReasonSleepWake
)

// Table holds every hart's State, indexed by hart ID, plus the shared SBI
// collaborator used for bring-up and shutdown.
type Table struct {
	mu    sync.Mutex
	harts [MaxHarts]*State
	sbi   SBI
}

// NewTable creates an empty hart table. sbi may be nil for tests that do
// not exercise bring-up/IPI delivery.
func NewTable(sbi SBI) *Table {
	return &Table{sbi: sbi}
}

// Hart returns (creating if necessary) the State for hartID, or nil if
// hartID is out of range.
func (t *Table) Hart(hartID int) *State {
	if hartID < 0 || hartID >= MaxHarts {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.harts[hartID]
	if h == nil {
		h = &State{ID: hartID}
		t.harts[hartID] = h
	}
	return h
}

// StartSecondary launches hart hartID at entry with opaque (the DTB
// physical address) via the SBI HSM extension, per spec.md §4.12's
// bring-up sequence for hart i>0: "secondary entry point is called via
// the SBI HSM extension with (hart_id, opaque=dtb_addr)".
func (t *Table) StartSecondary(hartID int, entry, opaque uint64) error {
	return t.sbi.HartStart(hartID, entry, opaque)
}

// RaiseOn sets reason pending on hartID's bitmap, for the sender side of
// an inter-hart wakeup (e.g. Add()ing a task destined for another hart's
// ready queue). The actual SSIP CSR write that delivers the physical
// interrupt is the riscv64 build's concern; this records what the
// receiving hart should act on once it traps.
func (t *Table) RaiseOn(hartID int, reason Reason) {
	h := t.Hart(hartID)
	if h == nil {
		return
	}
	h.mu.Lock()
	h.pending |= uint32(reason)
	h.mu.Unlock()
}

// TakePending atomically reads and clears this hart's pending-reason
// bitmap, called from the software-interrupt trap path (spec.md §4.6:
// "Supervisor software interrupt: acknowledge; process inter-hart wake
// messages").
func (s *State) TakePending() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Reason(s.pending)
	s.pending = 0
	return r
}

// SetCurrent records the task now running on this hart (spec.md §3's
// per-hart "current-task slot").
func (s *State) SetCurrent(t *task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Current = t
}

// GetCurrent returns the task currently running on this hart, nil if the
// hart is idle.
func (s *State) GetCurrent() *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Current
}
