package bootsplash

import (
	"testing"

	"github.com/gitwillsky/lite-os-sub002/internal/panic"
)

func TestRenderFatalFillsBannerColor(t *testing.T) {
	fb := NewSimFramebuffer(64, 64)
	r := New(fb)
	if !r.Ready() {
		t.Fatal("expected renderer to be ready with valid dimensions")
	}

	r.RenderFatal("kernel panic", nil)

	// The top-left corner, outside the circle and bar region, should
	// carry the dark-red banner fill.
	red, green, blue := fb.Pixel(0, 0)
	if red < 100 || green > 60 || blue > 60 {
		t.Fatalf("expected dark red banner pixel, got (%d,%d,%d)", red, green, blue)
	}
}

func TestRenderFatalDrawsBarsForFrames(t *testing.T) {
	fb := NewSimFramebuffer(200, 200)
	r := New(fb)

	frames := []panic.Frame{{PC: 0x1000}, {PC: 0x2000}, {PC: 0x3000}}
	r.RenderFatal("oops", frames)

	// A pixel just below the circle, where the first bar is drawn,
	// should no longer carry the plain banner color.
	red, green, blue := fb.Pixel(100, 130)
	if red == 0 && green == 0 && blue == 0 {
		t.Fatal("expected a drawn bar pixel, got black (nothing rendered)")
	}
}

func TestRenderFatalToleratesNilFrames(t *testing.T) {
	fb := NewSimFramebuffer(64, 64)
	r := New(fb)
	r.RenderFatal("oops", nil) // must not panic
}

func TestRendererToleratesZeroSizedFramebuffer(t *testing.T) {
	fb := NewSimFramebuffer(0, 0)
	r := New(fb)
	if r.Ready() {
		t.Fatal("expected renderer to be not-ready with zero dimensions")
	}
	// Must not panic.
	r.RenderFatal("oops", nil)
}
