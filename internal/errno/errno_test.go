package errno

import "testing"

func TestSyscallNegates(t *testing.T) {
	cases := []struct {
		e    Errno
		want int64
	}{
		{OK, 0},
		{EFAULT, -14},
		{ENOMEM, -12},
		{EAGAIN, -11},
	}
	for _, c := range cases {
		if got := c.e.Syscall(); got != c.want {
			t.Errorf("%v.Syscall() = %d, want %d", c.e, got, c.want)
		}
	}
}

func TestErrorStringKnown(t *testing.T) {
	if EFAULT.Error() != "bad address" {
		t.Errorf("unexpected message: %q", EFAULT.Error())
	}
}

func TestErrorStringUnknownFallsBackToNumber(t *testing.T) {
	got := Errno(999).Error()
	want := "errno 999"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
