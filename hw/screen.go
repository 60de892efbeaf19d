package hw

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"plus4/emu/log"
	"plus4/hw/ted"
)

const (
	// ScreenWidth is the number of visible pixels per raster line, from
	// the end of horizontal blanking (column 106) to its start (column 88).
	ScreenWidth  = 384
	ScreenHeight = 288
)

var palette = func() (p [128]color.RGBA) {
	for i := range p {
		p[i] = ted.Palette(uint8(i))
	}
	return p
}()

// Screen decodes the TED video stream into RGBA frames. Blanked groups are
// skipped, a rising edge of horizontal sync starts a new line and a rising
// edge of vertical sync ends the frame.
//
// Implements ted.VideoSink.
type Screen struct {
	frames [2]*image.RGBA
	cur    int

	x, y     int
	prvFlags uint8
	nframes  int

	onFrame func(*image.RGBA)
}

// NewScreen returns a Screen calling onFrame (if not nil) each time a frame
// is complete. The image passed to onFrame is only valid until the next
// frame completes.
func NewScreen(onFrame func(*image.RGBA)) *Screen {
	s := &Screen{onFrame: onFrame}
	for i := range s.frames {
		s.frames[i] = image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight))
	}
	return s
}

func (s *Screen) VideoOutput(buf []byte) {
	for len(buf) >= 2 {
		flags := buf[0]
		rising := flags &^ s.prvFlags
		s.prvFlags = flags

		if rising&ted.FlagVSync != 0 {
			s.endFrame()
		}
		if rising&ted.FlagHSync != 0 {
			s.endLine()
		}

		if flags&ted.FlagPixels != 0 {
			if len(buf) < 5 {
				log.ModVideo.WarnZ("truncated video group").Int("len", len(buf)).End()
				return
			}
			s.put4(flags, buf[1], buf[2], buf[3], buf[4])
			buf = buf[5:]
			continue
		}
		c := buf[1]
		s.put4(flags, c, c, c, c)
		buf = buf[2:]
	}
}

func (s *Screen) put4(flags, c0, c1, c2, c3 uint8) {
	if flags&(ted.FlagHBlank|ted.FlagVBlank|ted.FlagHSync) != 0 {
		return
	}
	if s.x+4 > ScreenWidth || s.y >= ScreenHeight {
		s.x += 4
		return
	}
	img := s.frames[s.cur]
	off := s.y*img.Stride + s.x*4
	for _, c := range [4]uint8{c0, c1, c2, c3} {
		rgba := palette[c&0x7F]
		img.Pix[off+0] = rgba.R
		img.Pix[off+1] = rgba.G
		img.Pix[off+2] = rgba.B
		img.Pix[off+3] = rgba.A
		off += 4
	}
	s.x += 4
}

func (s *Screen) endLine() {
	if s.x > 0 {
		s.y++
	}
	s.x = 0
}

func (s *Screen) endFrame() {
	s.endLine()
	s.nframes++
	done := s.frames[s.cur]
	s.cur ^= 1
	s.x, s.y = 0, 0

	log.ModVideo.DebugZ("end of frame").Int("frame", s.nframes).End()
	if s.onFrame != nil {
		s.onFrame(done)
	}
}

// Frame returns the last complete frame, or a black image if no frame has
// been completed yet.
func (s *Screen) Frame() *image.RGBA {
	return s.frames[s.cur^1]
}

// Frames returns the number of frames completed.
func (s *Screen) Frames() int { return s.nframes }

// Scale returns src scaled up by an integer factor. Factors of 1 or less
// return src unchanged.
func Scale(src *image.RGBA, scale int, smooth bool) *image.RGBA {
	if scale <= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	var s draw.Scaler = draw.NearestNeighbor
	if smooth {
		s = draw.CatmullRom
	}
	s.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
