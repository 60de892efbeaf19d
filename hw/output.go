package hw

import (
	"image"
)

type OutputConfig struct {
	Width           int
	Height          int
	NumVideoBuffers int

	// Decoded frames are sent on FrameOutCh, which is closed by Close. A
	// frame is only valid until NumVideoBuffers-1 more frames are sent.
	FrameOutCh chan image.RGBA
}

// Output copies the frames produced by the emulation goroutine into a ring
// of buffers and hands them over to a consumer goroutine.
type Output struct {
	framebufidx int
	framebuf    [][]byte

	framecounter int
	framech      chan frame
	done         chan struct{}

	cfg OutputConfig
}

func NewOutput(cfg OutputConfig) *Output {
	cfg.NumVideoBuffers = max(cfg.NumVideoBuffers, 2)
	vb := make([][]byte, cfg.NumVideoBuffers)
	for i := range vb {
		vb[i] = make([]byte, cfg.Width*cfg.Height*4)
	}
	o := &Output{
		framebuf: vb,
		cfg:      cfg,
		framech:  make(chan frame),
		done:     make(chan struct{}),
	}
	go o.render()
	return o
}

type frame struct {
	video []byte
}

func (o *Output) BeginFrame() (video []byte) {
	o.framebufidx++
	if o.framebufidx == o.cfg.NumVideoBuffers {
		o.framebufidx = 0
	}

	return o.framebuf[o.framebufidx]
}

func (o *Output) EndFrame(video []byte) {
	o.framecounter++
	o.framech <- frame{video: video}
}

// PushFrame copies img into the next buffer and sends it. img must have
// the configured size.
func (o *Output) PushFrame(img *image.RGBA) {
	video := o.BeginFrame()
	copy(video, img.Pix)
	o.EndFrame(video)
}

// Frames returns the number of frames sent.
func (o *Output) Frames() int { return o.framecounter }

// Close stops the output, once all sent frames have been consumed.
func (o *Output) Close() {
	close(o.framech)
	<-o.done
}

func (o *Output) render() {
	defer close(o.done)

	if o.cfg.FrameOutCh == nil {
		for range o.framech {
			// We're headless, just discard all frames.
		}
		return
	}

	defer close(o.cfg.FrameOutCh)
	rgba := image.RGBA{
		Stride: 4 * o.cfg.Width,
		Rect: image.Rectangle{
			Max: image.Point{
				X: o.cfg.Width,
				Y: o.cfg.Height,
			},
		},
	}

	for frame := range o.framech {
		rgba.Pix = frame.video
		o.cfg.FrameOutCh <- rgba
	}
}
