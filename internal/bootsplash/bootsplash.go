// Package bootsplash renders the best-effort graphical fatal screen
// spec_full.md's ambient-stack supplement adds on top of spec.md §4.12's
// textual diagnostic ("the kernel prints a stack trace ... and halts"):
// internal/panic.Fatal already does the required console printing on its
// own, and hands the same reason/frames to this package's Renderer as an
// optional Splash collaborator, purely cosmetic and never load-bearing.
//
// Grounded on the teacher's gg_circle_qemu.go: a lazily-built
// github.com/fogleman/gg *gg.Context backed by an *image.RGBA backbuffer,
// filled and stroked with gg's vector primitives, then flushed into a
// BGRX/XRGB8888 framebuffer a scanline at a time — the same
// copyFramebufferToGG/flushGGToFramebuffer round trip, generalized from
// "draw one red circle" to "fill a reason banner and one bar per stack
// frame." FramebufferInfo is the teacher's framebuffer_common.go struct
// (Width/Height/Pitch/Buf/BufSize), trimmed to the fields a splash needs
// and without the character-cursor fields that belong to text-mode
// scrolling, not this package's concern.
package bootsplash

import (
	"image"

	"github.com/fogleman/gg"

	"github.com/gitwillsky/lite-os-sub002/internal/panic"
)

// FramebufferInfo describes the pixel buffer a Renderer draws into.
// Width/Height are in pixels, Pitch is bytes per row; the buffer is
// XRGB8888 (4 bytes per pixel), matching the teacher's bochs-display
// framebuffer layout.
type FramebufferInfo struct {
	Width  uint32
	Height uint32
	Pitch  uint32
}

// Framebuffer is the write surface a Renderer flushes pixels onto. The
// riscv64 build backs this with a ramfb/virtio-gpu MMIO region (mirroring
// the teacher's bochs-display BAR0 pointer); the host build (sim.go)
// backs it with a plain byte slice so Renderer is testable without
// hardware, the same split internal/physmem and internal/sbi use.
type Framebuffer interface {
	Info() FramebufferInfo
	// Row returns the pitch-sized byte slice backing scanline y. The
	// slice aliases the real framebuffer memory; writes are visible to
	// the display device immediately.
	Row(y uint32) []byte
}

// Renderer draws internal/panic's fatal screen onto a Framebuffer using
// gg's vector drawing, and implements internal/panic.Splash.
type Renderer struct {
	fb  Framebuffer
	ctx *gg.Context
	w   int
	h   int
}

var _ panic.Splash = (*Renderer)(nil)

// New builds a Renderer targeting fb. The gg context is sized to fb's
// current dimensions; a Framebuffer whose dimensions are not yet known at
// boot (spec.md §9: the fatal path is reached long after normal init)
// should not be wired in until InitFramebufferText-equivalent setup has
// run, mirroring the teacher's own fbinfo.Width == 0 guard in
// initGGContext.
func New(fb Framebuffer) *Renderer {
	info := fb.Info()
	w, h := int(info.Width), int(info.Height)
	if w <= 0 || h <= 0 {
		return &Renderer{fb: fb}
	}
	return &Renderer{fb: fb, ctx: gg.NewContext(w, h), w: w, h: h}
}

// Ready reports whether the framebuffer had usable dimensions at
// construction time; RenderFatal is a no-op otherwise.
func (r *Renderer) Ready() bool { return r.ctx != nil }

// severityColor is the banner fill: dark red, evoking a classic panic
// screen without committing to a text-rendering dependency the example
// pack carries no font for.
var severityColor = struct{ r, g, b float64 }{0.55, 0.08, 0.08}

// RenderFatal fills the screen with the fatal banner color, draws a
// centered circle (the teacher's own startup-circle primitive,
// reappropriated as a simple "something broke" glyph), and stacks one
// horizontal bar per trace frame beneath it so the frame count and
// relative PC spread are visible at a glance even with no font loaded.
// reason is accepted for interface symmetry with internal/panic.Splash;
// the console sink already prints it in full, so the graphical screen
// only needs to signal "here is a fatal screen with N frames."
func (r *Renderer) RenderFatal(reason string, frames []panic.Frame) {
	if r.ctx == nil {
		return
	}
	ctx := r.ctx
	w, h := float64(r.w), float64(r.h)

	ctx.SetRGB(severityColor.r, severityColor.g, severityColor.b)
	ctx.Clear()

	ctx.SetRGB(1, 1, 1)
	ctx.SetLineWidth(4)
	ctx.DrawCircle(w/2, h/3, h/8)
	ctx.Stroke()

	const barHeight = 8
	const barGap = 4
	const barMargin = 0.1
	top := h/3 + h/8 + 24
	left := w * barMargin
	right := w * (1 - barMargin)
	for i := range frames {
		y := top + float64(i)*(barHeight+barGap)
		if y+barHeight > h {
			break
		}
		shade := 1.0 - float64(i%8)*0.08
		ctx.SetRGB(shade, shade, shade)
		ctx.DrawRectangle(left, y, right-left, barHeight)
		ctx.Fill()
	}

	r.flush()
}

// flush copies the gg RGBA backbuffer into fb's XRGB8888 scanlines,
// matching the teacher's flushGGToFramebuffer byte-order conversion
// (gg is R,G,B,A; the framebuffer device wants X,R,G,B little-endian per
// pixel, i.e. B,G,R,X in byte order).
func (r *Renderer) flush() {
	im, ok := r.ctx.Image().(*image.RGBA)
	if !ok {
		return
	}
	info := r.fb.Info()
	width := int(info.Width)
	if width > im.Bounds().Dx() {
		width = im.Bounds().Dx()
	}
	height := int(info.Height)
	if height > im.Bounds().Dy() {
		height = im.Bounds().Dy()
	}
	for y := 0; y < height; y++ {
		row := r.fb.Row(uint32(y))
		if len(row) < width*4 {
			continue
		}
		srcRow := im.Pix[y*im.Stride:]
		for x := 0; x < width; x++ {
			si, di := x*4, x*4
			rr, gg_, bb := srcRow[si+0], srcRow[si+1], srcRow[si+2]
			row[di+0] = bb
			row[di+1] = gg_
			row[di+2] = rr
			row[di+3] = 0x00
		}
	}
}
