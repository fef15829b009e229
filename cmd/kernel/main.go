// Command kernel is the boot entry point: it does nothing but hand
// control to internal/kernel, the composition root that wires every
// C1-C13 collaborator together (spec.md §4.12/§6). Split by build tag
// the same way the rest of this module splits hardware from host-sim
// behavior — main_riscv64.go's main() is what a real boot image links
// against, main_sim.go's is a host-runnable stand-in for manual
// exercising without a board.
package main
