//go:build riscv64

package taskctx

// HWSwitcher is the real register-level context switch, implemented in
// switch_riscv64.s: it saves ra/sp/s0-s11/tp into from, loads the same
// set from to, then returns — which, because ra now points wherever to's
// ra was saved from, resumes execution in whatever task last switched
// away from to.
type HWSwitcher struct{}

//go:noescape
func switchTo(from, to *Context)

func (HWSwitcher) SwitchTo(from, to *Context) { switchTo(from, to) }
