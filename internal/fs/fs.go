// Package fs is a minimal in-memory filesystem collaborator implementing
// the FileSystem/Inode consumer contract spec.md §6 requires the core to
// expose a mount point for ("filesystem implementations ... out of
// scope... the core exposes ... a filesystem mount point to the rest").
// Grounded on original_source/easy-fs/src/layout.rs's on-disk shape
// (superblock magic 0x79736165, 28 direct + 1 single-indirect + 1
// double-indirect block pointers per inode) and
// original_source/kernel/src/fs/{mod,vfs}.rs's FileSystem/Inode trait
// split — reimplemented over host memory rather than a real block
// device, since the core only depends on the interface
// (internal/syscall.FileSystem) and spec.md explicitly places the block
// device and on-disk format out of the core's scope.
package fs

import (
	"errors"
	"strings"
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

// Magic is the on-disk superblock magic layout.rs's SuperBlock carries,
// kept here even though this implementation has no physical superblock
// to validate, as the fixed identifier a real block-backed revision of
// this package would check first.
const Magic uint32 = 0x79736165

// Inode layout constants from layout.rs, documented for fidelity even
// though this in-memory Inode stores its bytes as one contiguous slice
// rather than direct/indirect block pointers (spec_full.md's retry/
// partial-write semantics operate at the byte-slice level regardless of
// how blocks would be indexed on disk).
const (
	DirectCount       = 28
	BlockSize         = 512
	Indirect1Count    = BlockSize / 4
)

// ErrNotFound mirrors FileSystemError::NotFound.
var ErrNotFound = errors.New("fs: not found")

// ErrExists mirrors FileSystemError::AlreadyExists.
var ErrExists = errors.New("fs: already exists")

// ErrIsDirectory mirrors FileSystemError::IsDirectory.
var ErrIsDirectory = errors.New("fs: is a directory")

// ErrNotDirectory mirrors FileSystemError::NotDirectory.
var ErrNotDirectory = errors.New("fs: not a directory")

// InodeType distinguishes a regular file from a directory, the two this
// core's filesystem supports (devfs-style device/fifo/symlink nodes are
// out of scope here — spec.md's devfs is named only as an out-of-scope
// peer filesystem, not something the core's own mount point must
// reimplement).
type InodeType int

const (
	TypeFile InodeType = iota
	TypeDirectory
)

// inode is one file or directory: directories hold named children,
// files hold their bytes directly. Both are protected by the owning
// FileSystem's single lock (spec.md §5's "each protected by a short
// spinlock" extended to this collaborator's own state, even though the
// filesystem lock sits outside the core's declared lock order since it
// is a consumed collaborator, not core state).
type inode struct {
	typ      InodeType
	data     []byte
	children map[string]*inode
}

func newFile() *inode { return &inode{typ: TypeFile} }
func newDir() *inode  { return &inode{typ: TypeDirectory, children: make(map[string]*inode)} }

// FileSystem is the in-memory collaborator: a single root directory tree,
// mirroring VirtualFileSystem's root_fs slot without the multi-mount
// BTreeMap (this core mounts exactly one filesystem at "/").
type FileSystem struct {
	mu   sync.Mutex
	root *inode
}

// New creates an empty filesystem with just a root directory.
func New() *FileSystem {
	return &FileSystem{root: newDir()}
}

// resolve walks path's components from root and returns the inode the
// full path names; ErrNotFound if any component is missing, and
// ErrNotDirectory if a non-final component is a file. Create/Remove
// split off the final component with splitParent and resolve the parent.
func (f *FileSystem) resolve(path string) (*inode, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return f.root, nil
	}
	cur := f.root
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		if cur.typ != TypeDirectory {
			return nil, ErrNotDirectory
		}
		child, ok := cur.children[part]
		if !ok {
			return nil, ErrNotFound
		}
		cur = child
	}
	return cur, nil
}

func splitParent(path string) (parentPath, name string) {
	path = strings.TrimPrefix(path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// Create makes a new file (or directory, if dir is true) at path, whose
// parent directory must already exist.
func (f *FileSystem) Create(path string, dir bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	parentPath, name := splitParent(path)
	parent, err := f.resolve(parentPath)
	if err != nil {
		return err
	}
	if parent.typ != TypeDirectory {
		return ErrNotDirectory
	}
	if _, exists := parent.children[name]; exists {
		return ErrExists
	}
	if dir {
		parent.children[name] = newDir()
	} else {
		parent.children[name] = newFile()
	}
	return nil
}

// Remove deletes the named entry from its parent directory. A
// non-empty directory cannot be removed.
func (f *FileSystem) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	parentPath, name := splitParent(path)
	parent, err := f.resolve(parentPath)
	if err != nil {
		return err
	}
	target, ok := parent.children[name]
	if !ok {
		return ErrNotFound
	}
	if target.typ == TypeDirectory && len(target.children) > 0 {
		return ErrExists
	}
	delete(parent.children, name)
	return nil
}

// Open resolves path to a task.File handle. If writable and the path
// does not exist, the file is created first (the conventional O_CREAT
// shape sys_open's callers expect), matching
// original_source/kernel/src/syscall/fs.rs's sys_open contract of
// "create-on-write-if-missing".
func (f *FileSystem) Open(path string, writable bool) (task.File, error) {
	f.mu.Lock()
	n, err := f.resolve(path)
	if err == ErrNotFound && writable {
		f.mu.Unlock()
		if cerr := f.Create(path, false); cerr != nil {
			return nil, cerr
		}
		f.mu.Lock()
		n, err = f.resolve(path)
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if n.typ == TypeDirectory {
		return nil, ErrIsDirectory
	}
	return &handle{fs: f, node: n, writable: writable}, nil
}

// handle is a per-open file position over a shared inode, mirroring how
// original_source's OpenFile wraps an Arc<dyn Inode> with its own cursor
// (multiple handles to one inode share bytes, not positions).
type handle struct {
	fs       *FileSystem
	node     *inode
	offset   int
	writable bool
}

// Read implements task.File. Short reads return the count actually
// available, never an error, matching spec_full.md's "short writes
// return the count written, never partial corruption" symmetry for
// reads: reaching end-of-file is success with n < len(buf), not EOF as
// an error the way the io package conventionally signals it, since the
// syscall ABI has no room for a distinct EOF sentinel (spec.md §4.11:
// "non-negative = result").
func (h *handle) Read(buf []byte) (int, error) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()
	if h.offset >= len(h.node.data) {
		return 0, nil
	}
	n := copy(buf, h.node.data[h.offset:])
	h.offset += n
	return n, nil
}

// Write implements task.File, extending the inode's backing slice as
// needed. A write is all-or-nothing against this in-memory store (no
// partial write ever actually occurs here since host memory cannot run
// out mid-append the way a fixed-size block extent can) but the method
// still returns a short count rather than erroring, keeping the same
// contract a future block-backed implementation must honor.
func (h *handle) Write(buf []byte) (int, error) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()
	end := h.offset + len(buf)
	if end > len(h.node.data) {
		grown := make([]byte, end)
		copy(grown, h.node.data)
		h.node.data = grown
	}
	n := copy(h.node.data[h.offset:end], buf)
	h.offset += n
	return n, nil
}

// Close implements task.File. Nothing to release for an in-memory inode.
func (h *handle) Close() error { return nil }
