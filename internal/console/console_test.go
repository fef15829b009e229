package console

import "testing"

func TestPutStringWritesEachByte(t *testing.T) {
	sink := &BufferSink{}
	c := New(sink)
	c.PutString("hi\n")
	if sink.String() != "hi\n" {
		t.Fatalf("got %q", sink.String())
	}
}

func TestPutHex64PadsToSixteenDigits(t *testing.T) {
	sink := &BufferSink{}
	c := New(sink)
	c.PutHex64(0xdead)
	want := "000000000000dead"
	if sink.String() != want {
		t.Fatalf("got %q want %q", sink.String(), want)
	}
}

func TestGlobalPanicsBeforeInit(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when Global used before Init")
		}
	}()
	global.mu.Lock()
	global.c = nil
	global.mu.Unlock()
	Global()
}
