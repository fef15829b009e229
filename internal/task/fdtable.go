package task

import "github.com/gitwillsky/lite-os-sub002/internal/errno"

// File is the minimal handle a task's descriptor table holds for any fd
// beyond the three reserved console ones. internal/fs's inode handles and
// a pipe's two ends both satisfy this without internal/task importing
// internal/fs (spec_full.md C11's fd-table supplement: "sys_close,
// sys_dup, sys_pipe, supplementing fd-table semantics spec.md leaves
// implicit").
type File interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Close() error
}

// Reserved fd numbers, fixed by convention (spec.md §4.11: "fd=1 and fd=2
// write to the console sink").
const (
	FDStdin  = 0
	FDStdout = 1
	FDStderr = 2
)

// AllocFD installs f at the lowest unused fd at or above 3, mirroring the
// conventional POSIX "lowest available descriptor" rule.
func (t *Task) AllocFD(f File) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.files == nil {
		t.files = make(map[int]File)
	}
	fd := 3
	for {
		if _, taken := t.files[fd]; !taken {
			break
		}
		fd++
	}
	t.files[fd] = f
	return fd
}

// LookupFD returns the File installed at fd, or nil if fd is unused or
// reserved.
func (t *Task) LookupFD(fd int) File {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 3 || t.files == nil {
		return nil
	}
	return t.files[fd]
}

// CloseFD closes and removes fd, ESRCH-free ENOENT-style reporting via
// errno.EINVAL when fd was never open.
func (t *Task) CloseFD(fd int) error {
	t.mu.Lock()
	f, ok := t.files[fd]
	if ok {
		delete(t.files, fd)
	}
	t.mu.Unlock()
	if !ok {
		return errno.EINVAL
	}
	return f.Close()
}

// DupFD installs the same File again at a new lowest-available fd,
// mirroring sys_dup's "duplicate a descriptor onto a fresh slot, sharing
// the underlying file" contract.
func (t *Task) DupFD(fd int) (newFD int, err error) {
	f := t.LookupFD(fd)
	if f == nil {
		return 0, errno.EINVAL
	}
	return t.AllocFD(f), nil
}
