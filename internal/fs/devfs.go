package fs

// Null and Zero are task.File handles for the two device nodes
// original_source/kernel/src/fs/devfs.rs exposes that have an obvious
// byte-level meaning independent of any host filesystem: /dev/null
// discards writes and reads as EOF, /dev/zero reads as an endless run of
// zero bytes. The richer devfs tree (DevRoot/DevDirInput's pseudo-files)
// is an out-of-scope peer filesystem per spec.md §1; these two nodes are
// kept because the syscall layer's fd table needs something to hand back
// for them without special-casing fd numbers the way the teacher's
// syscall.go does for its own fd==3 /dev/random case.
type nullFile struct{}

func (nullFile) Read(buf []byte) (int, error)  { return 0, nil }
func (nullFile) Write(buf []byte) (int, error) { return len(buf), nil }
func (nullFile) Close() error                  { return nil }

// Null is the shared /dev/null handle.
var Null = nullFile{}

type zeroFile struct{}

func (zeroFile) Read(buf []byte) (int, error) {
	for i := range buf {
		buf[i] = 0
	}
	return len(buf), nil
}
func (zeroFile) Write(buf []byte) (int, error) { return len(buf), nil }
func (zeroFile) Close() error                  { return nil }

// Zero is the shared /dev/zero handle.
var Zero = zeroFile{}
