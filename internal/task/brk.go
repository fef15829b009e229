package task

// ChangeBrk grows or shrinks the task's heap area by delta bytes (which
// may be negative), mirroring TaskControlBlock::change_program_brk:
// refuses to shrink below HeapBottom, otherwise grows/shrinks the Framed
// heap area one page at a time via the address space's AppendTo/ShrinkTo,
// and returns the previous break so the sbrk syscall can hand it back to
// user code.
func (t *Task) ChangeBrk(delta int64) (oldBrk uintptr, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	newBrk := int64(t.ProgramBrk) + delta
	if newBrk < int64(t.HeapBottom) {
		return 0, false
	}

	var err error
	if delta < 0 {
		err = t.Space.ShrinkTo(t.HeapBottom, uintptr(newBrk))
	} else if delta > 0 {
		err = t.Space.AppendTo(t.HeapBottom, uintptr(newBrk))
	}
	if err != nil {
		return 0, false
	}

	old := t.ProgramBrk
	t.ProgramBrk = uintptr(newBrk)
	return old, true
}
