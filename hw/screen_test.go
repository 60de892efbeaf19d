package hw

import (
	"image"
	"image/color"
	"testing"

	"plus4/hw/ted"
)

func TestScreenDecode(t *testing.T) {
	var frames []*image.RGBA
	s := NewScreen(func(img *image.RGBA) { frames = append(frames, img) })

	const (
		hblank = ted.FlagHBlank
		hsync  = ted.FlagHBlank | ted.FlagHSync
		vsync  = ted.FlagVBlank | ted.FlagVSync
	)
	s.VideoOutput([]byte{
		0, 0x71,
		ted.FlagPixels, 0x00, 0x12, 0x32, 0x42,
		hblank, 0x33, // skipped
		hsync, 0,
		hblank, 0,
		hsync, 0, // no pixels since the last line, y unchanged
	})
	s.VideoOutput([]byte{
		hblank, 0,
		0, 0x55,
		vsync, 0,
	})

	if len(frames) != 1 {
		t.Fatalf("onFrame called %d times, want 1", len(frames))
	}
	if got := s.Frames(); got != 1 {
		t.Errorf("Frames() = %d, want 1", got)
	}
	img := frames[0]
	if s.Frame() != img {
		t.Error("Frame() does not return the last completed frame")
	}

	tests := []struct {
		x, y int
		c    uint8
	}{
		{0, 0, 0x71},
		{3, 0, 0x71},
		{4, 0, 0x00},
		{5, 0, 0x12},
		{6, 0, 0x32},
		{7, 0, 0x42},
		{0, 1, 0x55},
		{3, 1, 0x55},
	}
	for _, tt := range tests {
		if got, want := img.RGBAAt(tt.x, tt.y), ted.Palette(tt.c); got != want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, want)
		}
	}
	if got := img.RGBAAt(8, 0); got != (color.RGBA{}) {
		t.Errorf("pixel (8,0) = %v, want untouched", got)
	}
	if got := img.RGBAAt(0, 2); got != (color.RGBA{}) {
		t.Errorf("pixel (0,2) = %v, want untouched", got)
	}
}

func TestScreenSwapsBuffers(t *testing.T) {
	s := NewScreen(nil)
	vsync := []byte{ted.FlagVBlank | ted.FlagVSync, 0, ted.FlagVBlank, 0}

	s.VideoOutput(vsync)
	first := s.Frame()
	s.VideoOutput(vsync)
	if s.Frame() == first {
		t.Error("Frame() returned the same buffer twice in a row")
	}
	if got := s.Frames(); got != 2 {
		t.Errorf("Frames() = %d, want 2", got)
	}
}

func TestScreenClipsLongLines(t *testing.T) {
	s := NewScreen(nil)
	line := make([]byte, 0, 2*(ScreenWidth/4+8))
	for range ScreenWidth/4 + 8 {
		line = append(line, 0, 0x71)
	}
	s.VideoOutput(line)
	s.VideoOutput([]byte{ted.FlagVBlank | ted.FlagVSync, 0})

	img := s.Frame()
	if got, want := img.RGBAAt(ScreenWidth-1, 0), ted.Palette(0x71); got != want {
		t.Errorf("last pixel = %v, want %v", got, want)
	}
	if got := img.RGBAAt(0, 1); got != (color.RGBA{}) {
		t.Errorf("pixel (0,1) = %v, want untouched", got)
	}
}

func TestScale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(1, 0, color.RGBA{R: 0xFF, A: 0xFF})

	if got := Scale(src, 1, false); got != src {
		t.Error("Scale(1) did not return src")
	}

	dst := Scale(src, 3, false)
	if got, want := dst.Bounds(), image.Rect(0, 0, 6, 3); got != want {
		t.Fatalf("bounds = %v, want %v", got, want)
	}
	if got := dst.RGBAAt(5, 2); got != src.RGBAAt(1, 0) {
		t.Errorf("pixel (5,2) = %v, want %v", got, src.RGBAAt(1, 0))
	}
	if got := dst.RGBAAt(2, 1); got != src.RGBAAt(0, 0) {
		t.Errorf("pixel (2,1) = %v, want %v", got, src.RGBAAt(0, 0))
	}
}
