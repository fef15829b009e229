package syscall

import (
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/console"
	"github.com/gitwillsky/lite-os-sub002/internal/errno"
	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

// sysRead services syscall 63: read(fd, buf, len). Only fd 0 (console
// input) is handled directly here; every other fd routes through the
// task's fd table to whatever File it names (spec.md §4.11: "blocks if
// fd=0 until at least one byte is available").
//
// Console.TryReadByte is non-blocking by construction (no real
// interrupt-driven console-input path exists in this module — see
// internal/console.ReadWaiters), so the blocking contract is implemented
// here instead: on no byte available, the caller blocks (BlockReadWait)
// and its Sepc is rewound so the whole read is re-issued from scratch on
// resume, once TimerInterrupt's polling notices a byte and wakes it —
// the same sepc-rewind-and-retry technique sysWaitPID uses, needed
// because the eventual correct return value (the byte actually read)
// isn't known at block time.
func (d *Dispatcher) sysRead(cur *task.Task, fd int, bufVA uintptr, length int) int64 {
	if length < 0 {
		return errno.EINVAL.Syscall()
	}
	if length == 0 {
		return 0
	}
	bufs, err := cur.Space.TranslateByteBuffer(bufVA, length)
	if err != nil {
		return errno.EFAULT.Syscall()
	}

	var n int
	var rerr error
	switch fd {
	case task.FDStdin:
		src, ok := console.Global().TryReadByte()
		if !ok {
			cur.Block(task.BlockReadWait)
			d.ReadWait.Add(cur)
			cur.TrapFrame(d.Mem).Sepc -= 4
			d.Reschedule = true
			return 0
		}
		bufs[0][0] = src
		n, rerr = 1, nil
	default:
		f := cur.LookupFD(fd)
		if f == nil {
			return errno.EINVAL.Syscall()
		}
		// Read into a scratch buffer first: File.Read does not know
		// about the page-crossing chunking TranslateByteBuffer already
		// performed, so we hand it one contiguous slice and scatter the
		// result back across bufs afterward.
		scratch := make([]byte, length)
		n, rerr = f.Read(scratch)
		scatter(bufs, scratch[:n])
	}
	if rerr != nil {
		if e, ok := rerr.(errno.Errno); ok {
			return e.Syscall()
		}
		return errno.EINVAL.Syscall()
	}
	return int64(n)
}

// sysWrite services syscall 64: write(fd, buf, len). fd 1/2 go to the
// console sink; any other fd routes through the task's fd table (spec.md
// §4.11).
func (d *Dispatcher) sysWrite(cur *task.Task, fd int, bufVA uintptr, length int) int64 {
	if length < 0 {
		return errno.EINVAL.Syscall()
	}
	if length == 0 {
		return 0
	}
	bufs, err := cur.Space.TranslateByteBuffer(bufVA, length)
	if err != nil {
		return errno.EFAULT.Syscall()
	}

	switch fd {
	case task.FDStdout, task.FDStderr:
		for _, b := range bufs {
			console.Global().PutString(string(b))
		}
		return int64(length)
	default:
		f := cur.LookupFD(fd)
		if f == nil {
			return errno.EINVAL.Syscall()
		}
		scratch := gather(bufs)
		n, werr := f.Write(scratch)
		if werr != nil {
			return errno.EINVAL.Syscall()
		}
		return int64(n)
	}
}

// sysOpen services sys_open(pathVA, pathLen, writable): resolves the
// NUL-free path string out of user memory via the byte-buffer
// translator and routes it to the filesystem collaborator, installing
// the resulting handle on a fresh fd (spec.md §6: "the core exposes ...
// a filesystem mount point to the rest"). Every error the collaborator
// reports comes back as -ENOENT; its own error value is not passed on.
func (d *Dispatcher) sysOpen(cur *task.Task, pathVA uintptr, pathLen int, writable bool) int64 {
	if d.FS == nil || pathLen <= 0 {
		return errno.EINVAL.Syscall()
	}
	bufs, err := cur.Space.TranslateByteBuffer(pathVA, pathLen)
	if err != nil {
		return errno.EFAULT.Syscall()
	}
	path := string(gather(bufs))
	f, ferr := d.FS.Open(path, writable)
	if ferr != nil {
		return errno.ENOENT.Syscall()
	}
	return int64(cur.AllocFD(f))
}

// sysClose services sys_close: releases fd from the task's descriptor
// table (spec_full.md C11 supplement).
func (d *Dispatcher) sysClose(cur *task.Task, fd int) int64 {
	if err := cur.CloseFD(fd); err != nil {
		return errno.EINVAL.Syscall()
	}
	return 0
}

// sysDup services sys_dup: installs the File at fd onto a fresh
// lowest-available slot (spec_full.md C11 supplement).
func (d *Dispatcher) sysDup(cur *task.Task, fd int) int64 {
	newFD, err := cur.DupFD(fd)
	if err != nil {
		return errno.EINVAL.Syscall()
	}
	return int64(newFD)
}

// sysPipe services sys_pipe: allocates a pipe, writes [readFD, writeFD]
// into the two-word buffer at fdsVA, returning 0 on success (spec_full.md
// C11 supplement, "supplementing fd-table semantics spec.md leaves
// implicit").
func (d *Dispatcher) sysPipe(cur *task.Task, fdsVA uintptr) int64 {
	r, w := newPipe()
	readFD := cur.AllocFD(r)
	writeFD := cur.AllocFD(w)

	bufs, err := cur.Space.TranslateByteBuffer(fdsVA, 16)
	if err != nil {
		cur.CloseFD(readFD)
		cur.CloseFD(writeFD)
		return errno.EFAULT.Syscall()
	}
	var raw [16]byte
	putU64(raw[0:8], uint64(readFD))
	putU64(raw[8:16], uint64(writeFD))
	scatter(bufs, raw[:])
	return 0
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

// scatter copies src across the page-chunked dst slices in order.
func scatter(dst [][]byte, src []byte) {
	off := 0
	for _, d := range dst {
		if off >= len(src) {
			return
		}
		n := copy(d, src[off:])
		off += n
	}
}

// gather concatenates page-chunked src slices into one contiguous buffer.
func gather(src [][]byte) []byte {
	total := 0
	for _, s := range src {
		total += len(s)
	}
	out := make([]byte, 0, total)
	for _, s := range src {
		out = append(out, s...)
	}
	return out
}

// pipe is the minimal unbuffered-to-bounded in-memory pipe backing
// sys_pipe, grounded on the fd-table shape original_source's
// syscall/fs.rs implies but does not itself define (no Pipe type appears
// in the filtered index): a mutex-protected byte ring with a closed flag
// per end, read blocking being approximated as EAGAIN (the caller retries
// via its own loop; unlike sysRead's fd=0 case, the task is not blocked
// in the kernel).
type pipe struct {
	mu     sync.Mutex
	buf    []byte
	closed bool
}

type pipeEnd struct {
	p       *pipe
	reading bool
}

func newPipe() (read, write *pipeEnd) {
	p := &pipe{}
	return &pipeEnd{p: p, reading: true}, &pipeEnd{p: p, reading: false}
}

func (e *pipeEnd) Read(buf []byte) (int, error) {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	if len(e.p.buf) == 0 {
		if e.p.closed {
			return 0, nil
		}
		return 0, errno.EAGAIN
	}
	n := copy(buf, e.p.buf)
	e.p.buf = e.p.buf[n:]
	return n, nil
}

func (e *pipeEnd) Write(buf []byte) (int, error) {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	if e.p.closed {
		return 0, errno.EINVAL
	}
	e.p.buf = append(e.p.buf, buf...)
	return len(buf), nil
}

func (e *pipeEnd) Close() error {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	if !e.reading {
		e.p.closed = true
	}
	return nil
}
