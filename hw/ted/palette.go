package ted

import (
	"image/color"
	"math"
)

var (
	paletteLuma  = [8]float64{0.180, 0.235, 0.261, 0.341, 0.506, 0.661, 0.753, 0.993}
	paletteHue   = [16]float64{0, 0, 103, 283, 53, 241, 347, 167, 124.5, 148, 195, 83, 265, 323, 1.5, 213}
	paletteTable = func() (tbl [128]color.RGBA) {
		for i := range tbl {
			r, g, b := ColorToRGB(uint8(i))
			tbl[i] = color.RGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: 0xFF}
		}
		return tbl
	}()
)

func toByte(v float64) uint8 {
	return uint8(math.Round(min(max(v, 0), 1) * 255))
}

// ColorToRGB converts a TED color (bits 0-3: hue, bits 4-6: luminance) to
// RGB components in the 0-1 range. Bit 7 is ignored.
func ColorToRGB(c uint8) (r, g, b float64) {
	hue := c & 0x0F
	y := paletteLuma[(c&0x70)>>4]
	if hue == 0 {
		y = 0.035
	}
	var u, v float64
	if hue > 1 {
		phase := paletteHue[hue] * math.Pi / 180
		u = math.Cos(phase) * 0.18
		v = math.Sin(phase) * 0.18
	}
	y *= 0.95
	r = v/0.877 + y
	b = u/0.492 + y
	g = (y - (r*0.299 + b*0.114)) / 0.587
	return r, g, b
}

// Palette returns the RGBA value of a TED color.
func Palette(c uint8) color.RGBA {
	return paletteTable[c&0x7F]
}
