//go:build riscv64

package kernel

// currentHartID reads the tp register (hartid_riscv64.s), which boot
// code sets once per hart (spec.md §6's "a0 = hart_id" boot protocol)
// and every taskctx.HWSwitcher.SwitchTo round trip preserves as part of
// Context's saved register set. trapReturn (sched_riscv64.go) is the
// only caller: it has no parameters of its own to tell it which hart it
// woke up on.
//
//go:noescape
func currentHartID() uint64
