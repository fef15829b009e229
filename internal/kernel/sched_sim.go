//go:build !riscv64

package kernel

import "github.com/gitwillsky/lite-os-sub002/internal/task"

// RunHart drives hartID's scheduling loop (spec.md §4.12): fetch the next
// ready task, mark it Running, hand the hart to it, run it until it
// yields/blocks/exits, then repeat. Returns once the ready queue is
// empty, the host-side stand-in for a real hart's "no task ready, wfi"
// idle path (spec.md §9's idle context).
//
// taskctx.SimSwitcher performs no real stack switch — its own doc
// comment says callers "drive task switches as ordinary Go function
// returns, not coroutine resumes" — so unlike the riscv64 build
// (sched_riscv64.go), this RunHart calls runTaskLoop itself immediately
// after SwitchTo, rather than relying on SwitchTo's assembly jumping
// into a separate trapReturn entry point.
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
		k.Switcher.SwitchTo(&hs.Idle, &cur.Ctx)

		runTaskLoop(k, d, cur)

		hs.SetCurrent(nil)
		if cur.State() == task.Ready {
			k.Sched.Add(cur)
		}
	}
}
