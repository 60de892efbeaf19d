package ted

import "testing"

func TestSoundReload(t *testing.T) {
	tests := []struct {
		freq uint16
		want uint32
	}{
		{0x000, 1023},
		{0x200, 511},
		{0x3F0, 15},
		{0x3FE, 1},
		{0x3FF, 1024},
	}
	for _, tt := range tests {
		ted := newTestTED(t)
		ted.Write8(0xFF0E, uint8(tt.freq))
		ted.Write8(0xFF12, uint8(tt.freq>>8))
		ted.Write8(0xFF0F, uint8(tt.freq))
		ted.Write8(0xFF10, uint8(tt.freq>>8))
		if ted.snd.reload1 != tt.want || ted.snd.reload2 != tt.want {
			t.Errorf("freq %03x: reload = %d/%d, want %d", tt.freq, ted.snd.reload1, ted.snd.reload2, tt.want)
		}
	}
}

func TestSquareWavePeriod(t *testing.T) {
	ted := newTestTED(t)
	ted.Write8(0xFF11, 0x18)
	ted.Write8(0xFF12, 0x03)
	ted.Write8(0xFF0E, 0xF0)

	var toggles []int
	prv := ted.snd.state1
	for i := range 1200 {
		ted.calculateSoundOutput()
		if ted.snd.state1 != prv {
			toggles = append(toggles, i)
			prv = ted.snd.state1
		}
	}
	if len(toggles) < 3 {
		t.Fatalf("got %d toggles, want at least 3", len(toggles))
	}
	for i := 1; i < len(toggles); i++ {
		if d := toggles[i] - toggles[i-1]; d != 15 {
			t.Fatalf("toggle %d: period = %d, want 15 (toggles at %v)", i, d, toggles)
		}
	}
}

func TestSampleRate(t *testing.T) {
	ted := newTestTED(t)
	ted.step(400)
	if got := len(ted.audio.samples); got != 100 {
		t.Errorf("got %d samples, want 100", got)
	}
}

func TestDACMode(t *testing.T) {
	ted := newTestTED(t)
	ted.Write8(0xFF11, 0x98)
	ted.step(8)

	s := ted.audio.samples
	if len(s) != 2 {
		t.Fatalf("got %d samples, want 2", len(s))
	}
	if s[0] != soundDistortion[75] {
		t.Errorf("first sample = %d, want %d", s[0], soundDistortion[75])
	}
	if s[1] != soundDistortion[150] {
		t.Errorf("second sample = %d, want %d", s[1], soundDistortion[150])
	}
}

func TestSilence(t *testing.T) {
	ted := newTestTED(t)
	ted.Write8(0xFF11, 0x30)
	ted.step(400)
	for i, s := range ted.audio.samples {
		if s != 0 {
			t.Fatalf("sample %d = %d, want 0 at volume 0", i, s)
		}
	}
}

func TestSoundDistortionTable(t *testing.T) {
	if soundDistortion[0] != 0 {
		t.Errorf("soundDistortion[0] = %d, want 0", soundDistortion[0])
	}
	if soundDistortion[300] != 16384 {
		t.Errorf("soundDistortion[300] = %d, want 16384", soundDistortion[300])
	}
	for i := 1; i < len(soundDistortion); i++ {
		if soundDistortion[i] < soundDistortion[i-1] {
			t.Fatalf("soundDistortion not monotonic at %d", i)
		}
	}
	// every fifth entry lands on a point of the 241-point curve
	for i := 0; i < len(soundDistortion); i += 5 {
		if want := int16(soundDistortionCurve[i*4/5]); soundDistortion[i] != want {
			t.Errorf("soundDistortion[%d] = %d, want curve[%d] = %d", i, soundDistortion[i], i*4/5, want)
		}
	}
}

func TestNoiseGenerator(t *testing.T) {
	var s tone
	s.reset()

	seen := map[uint8]bool{}
	for range 255 {
		s.clockNoise()
		seen[s.noiseState] = true
	}
	if len(seen) < 32 {
		t.Errorf("noise generator visited %d states, want at least 32", len(seen))
	}
}
