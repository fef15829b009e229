//go:build !riscv64

package bootsplash

// SimFramebuffer is a host-testable Framebuffer backed by a plain byte
// slice, the same simulated-hardware split internal/physmem.Sim and
// internal/sbi's call_sim.go use.
type SimFramebuffer struct {
	info FramebufferInfo
	buf  []byte
}

// NewSimFramebuffer allocates a zeroed XRGB8888 buffer of the given
// pixel dimensions.
func NewSimFramebuffer(width, height uint32) *SimFramebuffer {
	pitch := width * 4
	return &SimFramebuffer{
		info: FramebufferInfo{Width: width, Height: height, Pitch: pitch},
		buf:  make([]byte, int(pitch)*int(height)),
	}
}

func (f *SimFramebuffer) Info() FramebufferInfo { return f.info }

func (f *SimFramebuffer) Row(y uint32) []byte {
	if y >= f.info.Height {
		return nil
	}
	start := int(y) * int(f.info.Pitch)
	return f.buf[start : start+int(f.info.Pitch)]
}

// Pixel reads back the BGRX-packed pixel at (x, y) as (r, g, b), for
// test assertions.
func (f *SimFramebuffer) Pixel(x, y uint32) (r, g, b byte) {
	row := f.Row(y)
	if row == nil || int(x)*4+3 >= len(row) {
		return 0, 0, 0
	}
	off := int(x) * 4
	return row[off+2], row[off+1], row[off+0]
}
