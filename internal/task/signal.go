package task

import (
	"errors"
	"unsafe"

	"github.com/gitwillsky/lite-os-sub002/internal/memset"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
	"github.com/gitwillsky/lite-os-sub002/internal/trapframe"
)

// Signal delivery on return to user (spec.md §9, supplemented from
// original_source/kernel/src/signal/{mod,delivery,multicore}.rs): a task
// carries a pending-signal bitmap, a mask, and per-signal dispositions; on
// trap exit, a deliverable signal gets a frame written onto the user
// stack and the trap context redirected to the handler, with sigreturn
// restoring it.

// Signal numbers, a conventional POSIX-like subset (original_source's
// Signal enum is not in the filtered index; only the numeric range 1..31
// and the KILL/fatal distinction are load-bearing for the core).
type Signal uint32

const (
	SIGHUP  Signal = 1
	SIGINT  Signal = 2
	SIGKILL Signal = 9
	SIGSEGV Signal = 11
	SIGALRM Signal = 14
	SIGTERM Signal = 15

	maxSignal = 31
)

// Disposition is what a task does when a signal arrives: the default
// action, ignore it, or run a registered handler.
type Disposition int

const (
	DispositionDefault Disposition = iota
	DispositionIgnore
	DispositionHandler
)

// ErrInvalidSignal mirrors SignalError::InvalidSignal.
var ErrInvalidSignal = errors.New("task: invalid signal number")

// ErrInvalidAddress mirrors SignalError::InvalidAddress.
var ErrInvalidAddress = errors.New("task: invalid handler address")

type sigEntry struct {
	disposition Disposition
	handler     uintptr
}

// Signals is the per-task signal delivery state: pending bitmap, mask,
// and dispositions (spec.md §3 TCB fields).
type Signals struct {
	pending  uint64 // bit n set => signal n is pending
	mask     uint64 // bit n set => signal n is blocked from delivery
	handlers [maxSignal + 1]sigEntry
}

func validSignal(sig Signal) bool { return sig >= 1 && sig <= maxSignal }

// Raise marks sig pending for delivery on the next trap-exit check.
func (t *Task) Raise(sig Signal) error {
	if !validSignal(sig) {
		return ErrInvalidSignal
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Signals.pending |= 1 << uint(sig)
	return nil
}

// SetHandler registers a disposition/handler address for sig
// (SIG_DFL == DispositionDefault, SIG_IGN == DispositionIgnore), mirroring
// set_signal_handler's address-range validation from delivery.rs.
func (t *Task) SetHandler(sig Signal, disposition Disposition, handler uintptr) error {
	if !validSignal(sig) {
		return ErrInvalidSignal
	}
	if disposition == DispositionHandler && (handler == 0 || handler >= 0x80000000) {
		return ErrInvalidAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Signals.handlers[sig] = sigEntry{disposition: disposition, handler: handler}
	return nil
}

// SetMask replaces the signal mask, returning the previous value (so
// callers can implement SIG_BLOCK/SIG_UNBLOCK/SIG_SETMASK on top).
func (t *Task) SetMask(mask uint64) (old uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old = t.Signals.mask
	t.Signals.mask = mask
	return old
}

// HasDeliverablePending reports whether any pending signal is unmasked,
// matching has_pending_signals' "signal_state.has_deliverable_signals()".
func (t *Task) HasDeliverablePending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Signals.pending&^t.Signals.mask != 0
}

// signalFrameBytes is the size of signalFrame's flattened on-stack
// layout: 32 registers + pc + status + signal + return_addr, all uint64,
// matching delivery.rs's SignalFrame (repr(C), the same field order).
const signalFrameBytes = (32 + 4) * 8

// signalFrame is the on-stack layout written before jumping to a user
// handler, field-for-field with delivery.rs's SignalFrame.
type signalFrame struct {
	Regs       [32]uint64
	PC         uint64
	Status     uint64
	Signal     uint32
	_          uint32 // padding to keep ReturnAddr 8-byte aligned
	ReturnAddr uint64
}

const signalStackReserve = 1024 // room left below the frame for the handler's own stack use, per delivery.rs's handler_sp

// DeliverPending checks for an unmasked pending signal and, if one is
// handler-dispositioned, writes a signal frame onto the user stack and
// redirects the trap frame to the handler; default-dispositioned signals
// are reported back as fatal (the caller kills the task) and
// ignore-dispositioned ones are simply cleared. Returns the signal
// delivered (0 if none) and whether it is fatal.
func (t *Task) DeliverPending(space *memset.AddressSpace, mem physmem.Memory, tf *trapframe.TrapFrame) (sig Signal, fatal bool) {
	t.mu.Lock()
	deliverable := t.Signals.pending &^ t.Signals.mask
	if deliverable == 0 {
		t.mu.Unlock()
		return 0, false
	}
	var chosen Signal
	for n := Signal(1); n <= maxSignal; n++ {
		if deliverable&(1<<uint(n)) != 0 {
			chosen = n
			break
		}
	}
	t.Signals.pending &^= 1 << uint(chosen)
	entry := t.Signals.handlers[chosen]
	t.mu.Unlock()

	switch entry.disposition {
	case DispositionIgnore:
		return chosen, false
	case DispositionDefault:
		return chosen, true
	}

	frame := signalFrame{
		Regs:   tf.X,
		PC:     tf.Sepc,
		Status: tf.Sstatus,
		Signal: uint32(chosen),
	}
	userSP := tf.X[trapframe.RegSP]
	frameAddr := userSP - signalFrameBytes
	if err := writeSignalFrame(space, frameAddr, &frame); err != nil {
		return chosen, true
	}

	handlerSP := frameAddr - signalStackReserve
	tf.Sepc = uint64(entry.handler)
	tf.X[trapframe.RegSP] = handlerSP
	tf.X[trapframe.RegA0] = uint64(chosen)
	tf.X[trapframe.RegA1] = frameAddr
	tf.X[27] = frameAddr // s11: callee-saved, authoritative source for SigReturn
	tf.X[1] = 0          // ra: a sentinel sigreturn trampoline checks for
	return chosen, false
}

// SigReturn restores the trap frame from the signal frame most recently
// written by DeliverPending, preferring the callee-saved s11 copy of the
// frame address over a1 (which user code may have clobbered), mirroring
// sig_return's same preference order.
func (t *Task) SigReturn(space *memset.AddressSpace, mem physmem.Memory, tf *trapframe.TrapFrame) error {
	frameAddr := tf.X[27]
	if frameAddr == 0 {
		frameAddr = tf.X[trapframe.RegA1]
	}
	frame, err := readSignalFrame(space, frameAddr)
	if err != nil {
		return err
	}
	if frame.Signal == 0 || frame.Signal > maxSignal {
		return ErrInvalidSignal
	}
	if frame.ReturnAddr != 0 {
		return ErrInvalidAddress
	}
	tf.X = frame.Regs
	tf.Sepc = frame.PC
	tf.Sstatus = frame.Status
	return nil
}

func writeSignalFrame(space *memset.AddressSpace, addr uint64, frame *signalFrame) error {
	raw := (*[signalFrameBytes]byte)(unsafe.Pointer(frame))[:]
	bufs, err := space.TranslateByteBuffer(uintptr(addr), len(raw))
	if err != nil {
		return err
	}
	offset := 0
	for _, b := range bufs {
		n := copy(b, raw[offset:])
		offset += n
	}
	return nil
}

func readSignalFrame(space *memset.AddressSpace, addr uint64) (*signalFrame, error) {
	bufs, err := space.TranslateByteBuffer(uintptr(addr), signalFrameBytes)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	// Copy into frame's own byte view rather than a plain [N]byte array:
	// a signalFrame value carries the 8-byte alignment its uint64 fields
	// need, which a bare byte array is not guaranteed to have.
	var frame signalFrame
	raw := (*[signalFrameBytes]byte)(unsafe.Pointer(&frame))[:]
	offset := 0
	for _, b := range bufs {
		offset += copy(raw[offset:], b)
	}
	return &frame, nil
}
