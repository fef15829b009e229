// Package console is the kernel's serial byte sink collaborator (spec.md
// §6: "put_char(byte) — used by logging and write(1/2, ...)"). The core
// never talks to UART hardware registers directly from more than this one
// package, the way the teacher confines MMIO UART access to
// uart_qemu.go/uart_stub.go and funnels every debug message through
// uartPuts/uartPutHex64 helpers.
package console

import "sync"

// Sink is the abstract serial byte sink the kernel core consumes. A real
// boot wires a UART-backed Sink in; tests and the simulator wire in a
// buffer-backed one.
type Sink interface {
	PutChar(b byte)
}

// ReaderSink is an optional capability a Sink may also implement, to
// supply console input bytes for fd=0 reads (spec.md §4.11: "blocks if
// fd=0 until at least one byte is available or newline/CR"). A boot that
// wires a UART Sink without buffered input simply does not implement
// this, and TryReadByte reports none available.
type ReaderSink interface {
	TryReadByte() (byte, bool)
}

// Peekable is an optional capability a ReaderSink may also implement, to
// report input availability without consuming a byte — the non-destructive
// check a blocked reader's waker needs (HasInput), as opposed to
// TryReadByte's destructive "take the next byte" (spec.md §4.11 blocking
// read).
type Peekable interface {
	HasInput() bool
}

// Console wraps a Sink with the formatting helpers the rest of the kernel
// uses for diagnostics (PutString, PutHex64), mirroring the teacher's
// uartPutsDirect/uartPutHex64Direct pair but behind an interface instead of
// fixed MMIO addresses.
type Console struct {
	mu   sync.Mutex
	sink Sink
}

// global is the process-wide console singleton (spec.md §9: "Global
// singletons ... logger"). Init is one-shot; reads before Init are a
// configuration bug, exactly as spec.md §9 specifies for every global
// singleton.
var global struct {
	mu sync.Mutex
	c  *Console
}

// New builds a standalone Console over sink, independent of the process
// singleton. Used by the simulator and by tests that want an isolated
// instance rather than fighting over Init's one-shot global.
func New(sink Sink) *Console {
	return &Console{sink: sink}
}

// Init installs the serial sink for the whole kernel. Must be called
// exactly once, during hart-0 boot, before any other package logs.
func Init(sink Sink) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.c != nil {
		panic("console: Init called twice")
	}
	global.c = New(sink)
}

// Global returns the installed console. Panics if Init was never called —
// per spec.md §9, calls before init are a fatal configuration bug, not a
// recoverable error.
func Global() *Console {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.c == nil {
		panic("console: used before Init")
	}
	return global.c
}

func (c *Console) PutChar(b byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink.PutChar(b)
}

func (c *Console) PutString(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < len(s); i++ {
		c.sink.PutChar(s[i])
	}
}

const hexDigits = "0123456789abcdef"

// PutHex64 writes v as sixteen lowercase hex digits, matching the
// teacher's uartPutHex64Direct output shape.
func (c *Console) PutHex64(v uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	for _, b := range buf {
		c.sink.PutChar(b)
	}
}

// TryReadByte reads one input byte from the installed sink if it
// implements ReaderSink and has one immediately available.
func (c *Console) TryReadByte() (byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.sink.(ReaderSink)
	if !ok {
		return 0, false
	}
	return r.TryReadByte()
}

// HasInput reports whether the installed sink has at least one input byte
// ready, without consuming it — used by the timer tick to decide whether a
// BlockReadWait task can be woken (internal/console.ReadWaiters).
func (c *Console) HasInput() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.sink.(Peekable)
	if !ok {
		return false
	}
	return p.HasInput()
}

// BufferSink is an in-memory Sink used by tests and the host simulator.
// It also implements ReaderSink over a separate input queue, so tests can
// feed simulated keyboard/serial input without a real UART.
type BufferSink struct {
	mu    sync.Mutex
	buf   []byte
	input []byte
}

func (b *BufferSink) PutChar(c byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, c)
}

func (b *BufferSink) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// Feed appends bytes to the simulated input queue for TryReadByte to
// drain.
func (b *BufferSink) Feed(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.input = append(b.input, data...)
}

func (b *BufferSink) TryReadByte() (byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.input) == 0 {
		return 0, false
	}
	c := b.input[0]
	b.input = b.input[1:]
	return c, true
}

func (b *BufferSink) HasInput() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.input) > 0
}
