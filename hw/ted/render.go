package ted

type renderMode uint8

const (
	renderStdChar renderMode = iota
	renderMCMChar
	renderHiresBitmap
	renderMCBitmap
	renderECMChar
	renderInvalid
)

var renderModeNames = [...]string{
	renderStdChar:     "char",
	renderMCMChar:     "multicolor-char",
	renderHiresBitmap: "bitmap",
	renderMCBitmap:    "multicolor-bitmap",
	renderECMChar:     "ecm-char",
	renderInvalid:     "invalid",
}

func (m renderMode) String() string { return renderModeNames[m] }

// updateVideoMode recomputes the video mode and the fetch parameters
// derived from FF06, FF07 and FF13.
func (t *TED) updateVideoMode() {
	t.videoMode = (t.CTRL1.Value&0x60 | t.CTRL2.Value&0x90) >> 4
	cb := int(t.CHARBASE.Value)
	switch t.videoMode {
	case 0x00, 0x01:
		t.bitmapMode = false
		t.charsetBaseAddr = (cb & 0xFC) << 8
		t.characterMask = 0x7F
	case 0x04, 0x05, 0x0C, 0x0D:
		t.bitmapMode = false
		t.charsetBaseAddr = (cb & 0xF8) << 8
		t.characterMask = 0x3F
	case 0x08, 0x09:
		t.bitmapMode = false
		t.charsetBaseAddr = (cb & 0xF8) << 8
		t.characterMask = 0xFF
	default:
		t.bitmapMode = true
		t.charsetBaseAddr = 0
		t.characterMask = 0
	}
}

func (t *TED) selectRenderer() renderMode {
	switch t.videoMode {
	case 0x00, 0x08:
		return renderStdChar
	case 0x01, 0x09:
		return renderMCMChar
	case 0x02, 0x0A:
		return renderHiresBitmap
	case 0x03, 0x0B:
		return renderMCBitmap
	case 0x04, 0x0C:
		return renderECMChar
	}
	return renderInvalid
}

// render outputs the 4 pixels of the current half-cycle, offs is 0 for the
// first half and 4 for the second one.
func (t *TED) render(offs int) {
	flags := t.videoOutputFlags
	buf := t.videoBuf[t.videoBufPos:]
	switch {
	case flags&(FlagHSync|FlagHBlank|FlagVBlank) != 0:
		buf[0], buf[1] = flags, 0
		t.videoBufPos += 2
		t.skipPixels(offs)
	case !t.displayActive:
		border := t.BORDER.Value
		if t.colorRegisters[4] == border {
			buf[0], buf[1] = flags, border
			t.videoBufPos += 2
		} else {
			buf[0] = flags | FlagPixels
			buf[1] = t.colorRegisters[4]
			buf[2], buf[3], buf[4] = border, border, border
			t.videoBufPos += 5
		}
		t.skipPixels(offs)
	case t.renderer == renderInvalid:
		buf[0], buf[1] = flags, 0
		t.videoBufPos += 2
		t.skipPixels(offs)
	default:
		buf[0] = flags | FlagPixels
		t.shiftPixels(offs, buf[1:5])
		t.videoBufPos += 5
	}
}

// skipPixels clocks 4 pixels out of the shift register without output,
// for the blanking, border and invalid mode paths. The current character is
// loaded as is, and the multicolor bit of the video mode alone decides the
// 2 pixel alignment.
func (t *TED) skipPixels(offs int) {
	n := int(t.horizontalScroll) - offs
	if n < 0 || n >= 4 {
		t.shiftRegister.bitmap <<= 4
		return
	}
	shift := 4 - n
	if t.videoMode&0x01 != 0 {
		shift &= 6
	}
	t.shiftRegister = t.currentCharacter
	t.shiftRegister.bitmap <<= shift
}

// shiftPixels clocks 4 pixels out of the shift register into out, loading
// the current character after horizontalScroll-offs pixels.
func (t *TED) shiftPixels(offs int, out []uint8) {
	load := int(t.horizontalScroll) - offs
	// multicolor pixels are 2 bits wide, aligned on the load position
	phase := t.horizontalScroll & 1
	sr := &t.shiftRegister
	for i := range 4 {
		if i == load {
			t.loadShiftRegister()
			phase = 0
		}
		out[i] = t.pixelColor(i)
		if t.isMulticolor() {
			if phase&1 != 0 {
				sr.bitmap <<= 2
			}
		} else {
			sr.bitmap <<= 1
		}
		phase ^= 1
	}
}

func (t *TED) loadShiftRegister() {
	c := t.currentCharacter
	if t.renderer == renderStdChar {
		// flashing characters, cursor and reverse video
		if c.attr&0x80 != 0 && c.flags&0xF0 == 0 {
			c.bitmap &= t.flashState
		}
		if c.flags&0x08 != 0 && c.char&0x80 != 0 {
			c.bitmap ^= 0xFF
		}
		if c.flags&0xF0 != 0 {
			c.bitmap ^= t.flashState
		}
	}
	t.shiftRegister = c
}

func (t *TED) isMulticolor() bool {
	switch t.renderer {
	case renderMCBitmap:
		return true
	case renderMCMChar:
		return t.shiftRegister.attr&0x08 != 0
	}
	return false
}

// background returns background color n (FF15-FF18). The first pixel of a
// half-cycle still sees the previous value after a register write.
func (t *TED) background(pixel, n int) uint8 {
	if pixel == 0 {
		return t.colorRegisters[n]
	}
	return t.regs[0x15+n].Value
}

func (t *TED) pixelColor(pixel int) uint8 {
	sr := &t.shiftRegister
	a, c, b := sr.attr, sr.char, sr.bitmap
	fg := b&0x80 != 0

	switch t.renderer {
	case renderStdChar:
		if fg {
			return a & 0x7F
		}
		return t.background(pixel, 0)
	case renderECMChar:
		if fg {
			return a & 0x7F
		}
		return t.background(pixel, int(c>>6))
	case renderMCMChar:
		if a&0x08 == 0 {
			if fg {
				return a & 0x77
			}
			return t.background(pixel, 0)
		}
		switch b >> 6 {
		case 0:
			return t.background(pixel, 0)
		case 1:
			return t.background(pixel, 1)
		case 2:
			return t.background(pixel, 2)
		}
		return a & 0x77
	case renderHiresBitmap:
		if fg {
			return (a&0x07)<<4 | c>>4
		}
		return a&0x70 | c&0x0F
	case renderMCBitmap:
		switch b >> 6 {
		case 0:
			return t.background(pixel, 0)
		case 1:
			return (a&0x07)<<4 | c>>4
		case 2:
			return a&0x70 | c&0x0F
		}
		return t.background(pixel, 1)
	}
	return 0
}
