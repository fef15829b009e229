// Package task is the task control block and lifecycle state machine
// (spec.md §3, §4.8, C8): creation from ELF, fork, exec, exit, wait, and
// the Ready/Running/Blocked/Zombie state machine, grounded on
// original_source/kernel/src/task/task.rs's TaskControlBlock::new (the
// trap-context page allocation, kernel-stack-area insertion, and
// app_init_context wiring below follow it line for line) generalized with
// the fork/exec/exit/wait shape spec.md §4.8 additionally requires, which
// task.rs's single-app-batch version does not implement itself.
package task

import (
	"sync"
	"unsafe"

	"github.com/gitwillsky/lite-os-sub002/internal/errno"
	"github.com/gitwillsky/lite-os-sub002/internal/frame"
	"github.com/gitwillsky/lite-os-sub002/internal/memlayout"
	"github.com/gitwillsky/lite-os-sub002/internal/memset"
	"github.com/gitwillsky/lite-os-sub002/internal/pagetable"
	"github.com/gitwillsky/lite-os-sub002/internal/physmem"
	"github.com/gitwillsky/lite-os-sub002/internal/taskctx"
	"github.com/gitwillsky/lite-os-sub002/internal/trapframe"
)

// State is one of the four TCB states spec.md §3/§8 invariant 1 requires
// a task to be in exactly one of, at all times.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Zombie
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Zombie:
		return "zombie"
	default:
		return "unknown"
	}
}

// BlockReason distinguishes why a Blocked task is off the ready queue, so
// the right wakeup path (timer, read-availability, child-exit) knows to
// look for it.
type BlockReason int

const (
	BlockNone BlockReason = iota
	BlockSleep
	BlockReadWait
	BlockWaitChild
)

// SchedInfo holds the fields only the non-FIFO scheduler variants use
// (spec.md §3 TCB fields: "vruntime / static priority / nice"). FIFO
// ignores all of it.
type SchedInfo struct {
	VRuntime uint64
	Weight   uint64
	Nice     int
	Priority int // 0-39, used by the priority-bucket scheduler
}

// DefaultWeight and DefaultNice mirror the common nice=0 CFS weight used
// when a task has not had its priority adjusted.
const (
	DefaultNice     = 0
	DefaultWeight   = 1024
	DefaultPriority = 20
)

// Task is one task control block: spec.md §3's full field list.
type Task struct {
	mu sync.Mutex

	PID         int
	state       State
	blockReason BlockReason

	Ctx taskctx.Context

	Space      *memset.AddressSpace
	TrapCtxPPN frame.PPN

	KernelStackLow, KernelStackHigh uintptr

	Parent   *Task
	Children []*Task
	ExitCode int

	HeapBottom uintptr
	ProgramBrk uintptr

	Sched SchedInfo

	Signals Signals

	// Cancelled is set when a Blocked(Sleep/ReadWait) task is woken early
	// by a fatal signal rather than by its normal wake condition (spec.md
	// §5 "Cancellation and timeouts").
	Cancelled bool

	// SleepWakeAtUS is the sleep-queue key this task is currently filed
	// under, valid only while BlockReason() == BlockSleep; it lets a
	// cancellation remove exactly this task's entry without a reverse
	// index in the sleep queue itself.
	SleepWakeAtUS uint64

	// files holds every fd beyond the three reserved console ones
	// (fdtable.go); fd 0/1/2 are handled directly by the syscall layer
	// against the console sink and never appear here.
	files map[int]File
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState transitions the task to a new state. Blocking transitions
// should go through Block, which also records the reason.
func (t *Task) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// Block transitions the task to Blocked with the given reason.
func (t *Task) Block(reason BlockReason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Blocked
	t.blockReason = reason
}

// BlockReason reports why a Blocked task is off the ready queue.
func (t *Task) BlockReason() BlockReason {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blockReason
}

// Wake transitions a Blocked task back to Ready, clearing its reason.
func (t *Task) Wake() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Ready
	t.blockReason = BlockNone
}

// TrapFrame returns the live trap-context page backing this task,
// reinterpreted through the physical-memory view (spec.md §3's "Trap
// context (per-user)" layout). Mirrors get_trap_cx's "*mut TrapContext
// cast over the trap_cx_ppn frame" in task.rs, expressed with
// unsafe.Pointer the way the teacher treats every fixed-shape kernel
// struct (mmu.go).
func (t *Task) TrapFrame(mem physmem.Memory) *trapframe.TrapFrame {
	b := mem.Bytes(t.TrapCtxPPN)
	return (*trapframe.TrapFrame)(unsafe.Pointer(b))
}

// mapTrapContext allocates a fresh physical frame for the trap-context
// page and maps it at the fixed TrapContextVA in space, R|W, not U
// (spec.md §8 invariant 4).
func mapTrapContext(space *memset.AddressSpace, frames *frame.Allocator) (frame.PPN, error) {
	ppn, ok := frames.Alloc()
	if !ok {
		return 0, errno.ENOMEM
	}
	if err := space.MapOne(memlayout.TrapContextVA, ppn, pagetable.R|pagetable.W); err != nil {
		return 0, err
	}
	return ppn, nil
}

// New builds a task from an ELF image and a fresh PID: a fresh user
// address space (FromELF), a kernel-stack area in kernelSpace keyed by
// pid, a trap-context frame mapped into both the user and physical views,
// and an initial task context that resumes into trapReturn. Mirrors
// TaskControlBlock::new, generalized to accept an explicit pid instead of
// an app_id, since pid allocation here is independent of load order.
func New(kernelSpace *memset.AddressSpace, frames *frame.Allocator, mem physmem.Memory,
	elfData []byte, pid int, kernelSatp uint64, trapReturn, trapHandler uintptr) (*Task, error) {

	space, userSP, entry, err := memset.FromELF(mem, frames, elfData)
	if err != nil {
		return nil, err
	}

	low, high := memlayout.KernelStackRange(pid)
	if err := kernelSpace.InsertFramedArea(low, high, pagetable.R|pagetable.W); err != nil {
		return nil, err
	}

	// Anchor a zero-length Framed area at userSP so brk/sbrk has
	// somewhere to AppendTo/ShrinkTo from: the ELF image itself only
	// describes LOAD segments and the stack, never a heap region.
	if err := space.InsertFramedArea(userSP, userSP, pagetable.R|pagetable.W|pagetable.U); err != nil {
		return nil, err
	}

	trapCtxPPN, err := mapTrapContext(space, frames)
	if err != nil {
		return nil, err
	}

	t := &Task{
		PID:             pid,
		state:           Ready,
		Space:           space,
		TrapCtxPPN:      trapCtxPPN,
		KernelStackLow:  low,
		KernelStackHigh: high,
		HeapBottom:      userSP,
		ProgramBrk:      userSP,
		Sched:           SchedInfo{Nice: DefaultNice, Weight: DefaultWeight, Priority: DefaultPriority},
		Ctx:             taskctx.GotoTrapReturn(uint64(high), uint64(trapReturn), 0),
	}

	*t.TrapFrame(mem) = *trapframe.AppInitContext(uint64(entry), uint64(userSP), kernelSatp, uint64(high), uint64(trapHandler), 0)
	return t, nil
}

// Fork duplicates parent's memory set into newly allocated frames (no
// COW, per spec.md Non-goals), a new PID, a new kernel stack, and a
// duplicated trap context whose a0 is overwritten by the caller to 0 for
// the child / left as the parent's return path for the parent, per the
// ABI convention spec.md §4.8 describes ("child's return from fork yields
// 0, the parent's yields the child PID").
func (t *Task) Fork(kernelSpace *memset.AddressSpace, frames *frame.Allocator, mem physmem.Memory,
	pid int, kernelSatp uint64, trapReturn uintptr) (*Task, error) {

	t.mu.Lock()
	parentSpace := t.Space
	t.mu.Unlock()

	childSpace, err := parentSpace.Clone(frames)
	if err != nil {
		return nil, err
	}

	low, high := memlayout.KernelStackRange(pid)
	if err := kernelSpace.InsertFramedArea(low, high, pagetable.R|pagetable.W); err != nil {
		return nil, err
	}

	childTrapPPN, err := mapTrapContext(childSpace, frames)
	if err != nil {
		return nil, err
	}
	*(*trapframe.TrapFrame)(unsafe.Pointer(mem.Bytes(childTrapPPN))) = *t.TrapFrame(mem)

	child := &Task{
		PID:             pid,
		state:           Ready,
		Space:           childSpace,
		TrapCtxPPN:      childTrapPPN,
		KernelStackLow:  low,
		KernelStackHigh: high,
		Parent:          t,
		HeapBottom:      t.HeapBottom,
		ProgramBrk:      t.ProgramBrk,
		Sched:           SchedInfo{Nice: DefaultNice, Weight: DefaultWeight, Priority: DefaultPriority},
		Ctx:             taskctx.GotoTrapReturn(uint64(high), uint64(trapReturn), 0),
	}
	child.TrapFrame(mem).SetSP(uint64(high))
	child.TrapFrame(mem).KernelSp = uint64(high)
	child.TrapFrame(mem).KernelSatp = kernelSatp

	t.mu.Lock()
	t.Children = append(t.Children, child)
	if len(t.files) > 0 {
		child.files = make(map[int]File, len(t.files))
		for fd, f := range t.files {
			child.files[fd] = f
		}
	}
	t.mu.Unlock()

	return child, nil
}

// Exec replaces t's memory set with one built from elfData, keeping PID
// and kernel stack, per spec.md §4.8 Exec.
func (t *Task) Exec(frames *frame.Allocator, mem physmem.Memory, elfData []byte, kernelSatp uint64, trapHandler uintptr) error {
	space, userSP, entry, err := memset.FromELF(mem, frames, elfData)
	if err != nil {
		return err
	}
	if err := space.InsertFramedArea(userSP, userSP, pagetable.R|pagetable.W|pagetable.U); err != nil {
		return err
	}

	t.mu.Lock()
	old := t.Space
	t.Space = space
	t.HeapBottom = userSP
	t.ProgramBrk = userSP
	high := t.KernelStackHigh
	t.mu.Unlock()

	old.Destroy()

	trapCtxPPN, err := mapTrapContext(space, frames)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.TrapCtxPPN = trapCtxPPN
	t.mu.Unlock()

	*t.TrapFrame(mem) = *trapframe.AppInitContext(uint64(entry), uint64(userSP), kernelSatp, uint64(high), uint64(trapHandler), 0)
	return nil
}

// Exit releases the task's user memory frames immediately, transitions it
// to Zombie keeping exitCode, and re-parents its children onto initTask
// (spec.md §4.8 Exit). The kernel stack and trap-context frame are freed
// later, by Reap.
//
// If t's own parent is Blocked(BlockWaitChild), Exit transitions it back to
// Ready under the parent's lock and returns it, so the caller (which holds
// the scheduler this package cannot import, per syscall.go's FileSystem
// pattern) can re-add it to the ready queue. Returns nil if no parent was
// waiting.
func (t *Task) Exit(exitCode int, initTask *Task) (wokenParent *Task) {
	t.mu.Lock()
	t.Space.Destroy()
	t.state = Zombie
	t.ExitCode = exitCode
	children := t.Children
	t.Children = nil
	parent := t.Parent
	t.mu.Unlock()

	if parent != nil {
		parent.mu.Lock()
		if parent.state == Blocked && parent.blockReason == BlockWaitChild {
			parent.state = Ready
			parent.blockReason = BlockNone
			wokenParent = parent
		}
		parent.mu.Unlock()
	}

	if initTask != nil && len(children) > 0 {
		initTask.mu.Lock()
		for _, c := range children {
			c.mu.Lock()
			c.Parent = initTask
			c.mu.Unlock()
			initTask.Children = append(initTask.Children, c)
		}
		initTask.mu.Unlock()
	}

	return wokenParent
}

// FindZombieChild returns a Zombie child, if any: the first Zombie one
// if pid is -1 (spec.md §4.8 Wait: "if the caller has a Zombie child,
// reap it"), or specifically the one matching pid otherwise — a plain
// "take the first zombie, then check its pid" would otherwise keep
// returning an unrelated already-zombie sibling forever when the caller
// named a specific pid that hasn't exited yet.
func (t *Task) FindZombieChild() *Task {
	return t.findZombieChild(-1)
}

// FindZombieChildByPID is FindZombieChild narrowed to a specific pid.
func (t *Task) FindZombieChildByPID(pid int) *Task {
	return t.findZombieChild(pid)
}

func (t *Task) findZombieChild(pid int) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.Children {
		if c.State() == Zombie && (pid == -1 || c.PID == pid) {
			return c
		}
	}
	return nil
}

// HasChildren reports whether t has any children left (zombie or not),
// used to distinguish ESRCH (no children at all) from "block until one
// exits" in the wait syscall.
func (t *Task) HasChildren() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Children) > 0
}

// Reap frees a Zombie child's remaining kernel resources — kernel stack
// area, trap-context frame, PID — and removes it from t's children list,
// returning its pid and exit code (spec.md §4.8 Wait / §3 "reaped by
// parent ... kernel resources released on reap; PID returned to the
// allocator").
func (t *Task) Reap(kernelSpace *memset.AddressSpace, frames *frame.Allocator, child *Task) (pid, exitCode int) {
	t.mu.Lock()
	for i, c := range t.Children {
		if c == child {
			t.Children = append(t.Children[:i], t.Children[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	child.mu.Lock()
	pid, exitCode = child.PID, child.ExitCode
	low, ppn := child.KernelStackLow, child.TrapCtxPPN
	child.mu.Unlock()

	kernelSpace.RemoveArea(low)
	frames.Dealloc(ppn)
	DeallocPID(pid)
	return pid, exitCode
}
