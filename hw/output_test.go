package hw

import (
	"image"
	"image/color"
	"testing"
)

func TestOutput(t *testing.T) {
	ch := make(chan image.RGBA)
	out := NewOutput(OutputConfig{
		Width:           2,
		Height:          2,
		NumVideoBuffers: 3,
		FrameOutCh:      ch,
	})

	done := make(chan []color.RGBA)
	go func() {
		var got []color.RGBA
		for img := range ch {
			got = append(got, img.RGBAAt(1, 1))
		}
		done <- got
	}()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range 4 {
		img.SetRGBA(1, 1, color.RGBA{R: uint8(i), A: 0xFF})
		out.PushFrame(img)
	}
	out.Close()

	got := <-done
	if len(got) != 4 {
		t.Fatalf("received %d frames, want 4", len(got))
	}
	for i, c := range got {
		if c.R != uint8(i) {
			t.Errorf("frame %d: pixel = %v, want R=%d", i, c, i)
		}
	}
	if out.Frames() != 4 {
		t.Errorf("Frames() = %d, want 4", out.Frames())
	}
}

func TestOutputHeadless(t *testing.T) {
	out := NewOutput(OutputConfig{Width: 2, Height: 2})
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	out.PushFrame(img)
	out.PushFrame(img)
	out.Close()
	if out.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", out.Frames())
	}
}
