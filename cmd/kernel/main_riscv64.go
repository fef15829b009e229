//go:build riscv64

package main

import "github.com/gitwillsky/lite-os-sub002/internal/kernel"

// main is hart 0's path into the kernel proper. kernel.BootHartID/
// BootDTBAddr/BootInitELF are the external bootloader's handoff (see
// their doc comment in internal/kernel/boot_riscv64.go); secondary harts
// never reach this function a second time — Boot brings them up directly
// through kernel.BootSecondary, itself reached from the SBI HSM entry
// point each hart_start call configures, not through another call into
// Go's single runtime entry point.
func main() {
	kernel.Boot(kernel.BootHartID, kernel.BootDTBAddr, kernel.BootInitELF)
}
