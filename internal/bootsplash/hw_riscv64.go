//go:build riscv64

package bootsplash

import "unsafe"

// HWFramebuffer is a Framebuffer backed by a fixed physical MMIO region,
// as exposed by a ramfb/virtio-gpu device already configured by the
// bootloader (spec.md §1 places the graphics compositor itself out of
// scope; this package only ever draws into a buffer someone else
// negotiated, the same narrow role internal/console plays for the UART).
// Negotiating the device (fw_cfg ramfb handshake, virtio-gpu queues) is
// the teacher's ramfb_qemu.go territory and is deliberately not
// reproduced here: spec.md's core never depends on it, and wiring a
// best-effort cosmetic splash to a full device driver would pull driver
// complexity into a package whose only required behavior is "do nothing
// safely if never constructed."
type HWFramebuffer struct {
	info FramebufferInfo
	base uintptr
}

// NewHWFramebuffer wraps the physical framebuffer at base (already
// mapped R|W into the kernel address space by internal/memset.NewKernel
// as an MMIO region) with the given dimensions.
func NewHWFramebuffer(base uintptr, width, height uint32) *HWFramebuffer {
	return &HWFramebuffer{
		info: FramebufferInfo{Width: width, Height: height, Pitch: width * 4},
		base: base,
	}
}

func (f *HWFramebuffer) Info() FramebufferInfo { return f.info }

func (f *HWFramebuffer) Row(y uint32) []byte {
	if y >= f.info.Height {
		return nil
	}
	off := uintptr(y) * uintptr(f.info.Pitch)
	return unsafe.Slice((*byte)(unsafe.Pointer(f.base+off)), f.info.Pitch)
}
