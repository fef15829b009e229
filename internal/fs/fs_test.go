package fs

import "testing"

func TestCreateAndWriteReadRoundTrip(t *testing.T) {
	f := New()
	if err := f.Create("/greeting.txt", false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	h, err := f.Open("/greeting.txt", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	n, err := h.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	h2, err := f.Open("/greeting.txt", false)
	if err != nil {
		t.Fatalf("Open for read: %v", err)
	}
	buf := make([]byte, 16)
	n, err = h2.Read(buf)
	if err != nil || string(buf[:n]) != "hello" {
		t.Fatalf("Read: got %q err=%v", buf[:n], err)
	}
}

func TestOpenWritableCreatesMissingFile(t *testing.T) {
	f := New()
	h, err := f.Open("/new.txt", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := h.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestOpenMissingReadOnlyFails(t *testing.T) {
	f := New()
	if _, err := f.Open("/missing.txt", false); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestOpenDirectoryFails(t *testing.T) {
	f := New()
	if err := f.Create("/sub", true); err != nil {
		t.Fatalf("Create dir: %v", err)
	}
	if _, err := f.Open("/sub", false); err != ErrIsDirectory {
		t.Fatalf("got %v, want ErrIsDirectory", err)
	}
}

func TestRemoveNonEmptyDirectoryFails(t *testing.T) {
	f := New()
	if err := f.Create("/sub", true); err != nil {
		t.Fatalf("Create dir: %v", err)
	}
	if err := f.Create("/sub/child.txt", false); err != nil {
		t.Fatalf("Create file: %v", err)
	}
	if err := f.Remove("/sub"); err != ErrExists {
		t.Fatalf("got %v, want ErrExists", err)
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	f := New()
	if err := f.Create("/a.txt", false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.Create("/a.txt", false); err != ErrExists {
		t.Fatalf("got %v, want ErrExists", err)
	}
}

func TestDevNullDiscardsWritesAndReadsEOF(t *testing.T) {
	n, err := Null.Write([]byte("discarded"))
	if err != nil || n != len("discarded") {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	buf := make([]byte, 4)
	got, err := Null.Read(buf)
	if err != nil || got != 0 {
		t.Fatalf("Read: n=%d err=%v", got, err)
	}
}

func TestDevZeroFillsBuffer(t *testing.T) {
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = 0xFF
	}
	n, err := Zero.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatalf("expected zero-filled buffer, got %v", buf)
		}
	}
}
