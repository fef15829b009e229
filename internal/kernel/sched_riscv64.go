//go:build riscv64

package kernel

import (
	"reflect"

	"github.com/gitwillsky/lite-os-sub002/internal/hart"
	"github.com/gitwillsky/lite-os-sub002/internal/syscall"
	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

// active holds, per hart, the bookkeeping trapReturn needs once
// taskctx.HWSwitcher's assembly has jumped it onto a task's own kernel
// stack: it has no parameters (a fresh task's Context.RA literally *is*
// its address, loaded straight into the RA register by switchTo), so
// everything it needs to resume scheduling crosses over through this
// table instead, indexed by currentHartID() — the tp register each
// hart's boot code sets once, at bring-up, to its own hart id (spec.md
// §6's boot protocol: "a0 = hart_id"; the external boot stub described in
// Boot's doc comment stashes it into tp before ever touching a Context).
// switchTo also loads Context.TP into tp, so RunHart writes the hart's id
// into a task's Ctx.TP before every switch into it.
var active [hart.MaxHarts]struct {
	k   *Kernel
	d   *syscall.Dispatcher
	hs  *hart.State
	cur *task.Task
}

// RunHart drives hartID's scheduling loop (spec.md §4.12). Unlike the
// host build, taskctx.HWSwitcher really does swap the CPU's stack
// pointer and return address: SwitchTo(&hs.Idle, &cur.Ctx) does not
// return here the first time a fresh task runs — the CPU's RET lands in
// trapReturn instead, on cur's own kernel stack (Context.SP ==
// cur.KernelStackHigh, set by task.New's GotoTrapReturn). SwitchTo only
// returns to this call site once trapReturn calls SwitchTo(&cur.Ctx,
// &hs.Idle) back, handing the hart back to the scheduling loop below.
func (k *Kernel) RunHart(hartID int) {
	hs := k.Harts.Hart(hartID)
	d := k.newDispatcher(hs)

	for {
		cur := k.Sched.Fetch()
		if cur == nil {
			return
		}

		cur.SetState(task.Running)
		hs.SetCurrent(cur)
		active[hartID] = struct {
			k   *Kernel
			d   *syscall.Dispatcher
			hs  *hart.State
			cur *task.Task
		}{k, d, hs, cur}

		cur.Ctx.TP = uint64(hartID)
		k.Switcher.SwitchTo(&hs.Idle, &cur.Ctx)

		hs.SetCurrent(nil)
		if cur.State() == task.Ready {
			k.Sched.Add(cur)
		}
	}
}

// trapReturn is the kernel-context entry point every task's Context.RA
// is set to at creation (task.New/Fork via taskctx.GotoTrapReturn): it
// runs runTaskLoop on the task's own kernel stack until the task leaves
// Running, then switches back to the hart's idle context, resuming
// RunHart's SwitchTo call above.
func trapReturn() {
	a := active[currentHartID()]
	runTaskLoop(a.k, a.d, a.cur)
	a.k.Switcher.SwitchTo(&a.cur.Ctx, &a.hs.Idle)
}

// TrapReturnAddr resolves trapReturn's compiled physical address, for
// the boot sequence to pass as Config.TrapReturn — the same "function
// address as boot-time-known constant" technique trampoline.PhysPage
// uses for the trampoline page, necessary because Go gives this module
// no linker-script equivalent for exposing a fixed symbol address.
func TrapReturnAddr() uintptr {
	return reflect.ValueOf(trapReturn).Pointer()
}
