package ted

import "testing"

func TestPaletteGrays(t *testing.T) {
	prv := -1
	for lum := uint8(0); lum < 8; lum++ {
		c := Palette(lum<<4 | 0x01)
		if c.R != c.G || c.G != c.B {
			t.Errorf("Palette(%02x) = %v, want a gray", lum<<4|1, c)
		}
		if int(c.R) <= prv {
			t.Errorf("Palette(%02x) = %v, not brighter than the previous luminance", lum<<4|1, c)
		}
		prv = int(c.R)
	}
}

func TestPaletteBlack(t *testing.T) {
	want := Palette(0x00)
	for lum := uint8(0); lum < 8; lum++ {
		if got := Palette(lum << 4); got != want {
			t.Errorf("Palette(%02x) = %v, want %v", lum<<4, got, want)
		}
	}
	if want.R > 10 || want.A != 0xFF {
		t.Errorf("Palette(00) = %v, want near black", want)
	}
}

func TestPaletteIgnoresBit7(t *testing.T) {
	for c := range 0x80 {
		if Palette(uint8(c)) != Palette(uint8(c)|0x80) {
			t.Fatalf("Palette(%02x) != Palette(%02x)", c, c|0x80)
		}
	}
}

func TestPaletteRed(t *testing.T) {
	// color 2 at mid luminance is red
	c := Palette(0x42)
	if c.R <= c.G || c.R <= c.B {
		t.Errorf("Palette(42) = %v, want red dominant", c)
	}
}
