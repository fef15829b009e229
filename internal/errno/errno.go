// Package errno is the kernel's uniform error taxonomy. Every fallible
// kernel operation returns (or wraps) one of these instead of an opaque
// Go error, so the syscall layer can turn it into a negative return value
// without guessing.
package errno

// Errno is a small negative-capable error code. Its numeric value is the
// exact value placed in a0 on syscall return (as -Errno), so the constants
// below follow the Linux/RISC-V numbering the syscall ABI expects.
type Errno int

const (
	OK      Errno = 0
	EPERM   Errno = 1
	ENOENT  Errno = 2
	ESRCH   Errno = 3
	EINTR   Errno = 4
	EAGAIN  Errno = 11
	ENOMEM  Errno = 12
	EFAULT  Errno = 14
	EEXIST  Errno = 17
	ENOTDIR Errno = 20
	EISDIR  Errno = 21
	EINVAL  Errno = 22
)

var names = map[Errno]string{
	EPERM:   "operation not permitted",
	ENOENT:  "no such file or directory",
	ESRCH:   "no such process",
	EINTR:   "interrupted",
	EAGAIN:  "would block",
	ENOMEM:  "out of memory",
	EFAULT:  "bad address",
	EEXIST:  "already exists",
	ENOTDIR: "not a directory",
	EISDIR:  "is a directory",
	EINVAL:  "invalid argument",
}

func (e Errno) Error() string {
	if s, ok := names[e]; ok {
		return s
	}
	return "errno " + itoa(int(e))
}

// Syscall returns the value that belongs in a0 on syscall return: the
// negated errno, per spec.md §4.11 ("negative result = -errno").
func (e Errno) Syscall() int64 {
	if e == OK {
		return 0
	}
	return -int64(e)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
