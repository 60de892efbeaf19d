package hw

import "testing"

func TestAudioMixerSampleCount(t *testing.T) {
	tests := []struct {
		name       string
		ntsc       bool
		sampleRate uint32
		inputs     int
		want       int
	}{
		{"PAL 48kHz", false, 48000, palSoundClock / 50, 960},
		{"PAL 44.1kHz", false, 44100, palSoundClock / 50, 882},
		{"NTSC 48kHz", true, 48000, ntscSoundClock / 60, 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			am := NewAudioMixer(tt.sampleRate, 1)
			am.SetNTSC(tt.ntsc)
			for range tt.inputs {
				am.PlaySample(0)
			}
			got := len(am.EndFrame())
			if got < tt.want-2 || got > tt.want+1 {
				t.Errorf("got %d samples, want %d (+-2)", got, tt.want)
			}
		})
	}
}

func TestAudioMixerSilence(t *testing.T) {
	am := NewAudioMixer(48000, 1)
	for range 4000 {
		am.PlaySample(0)
	}
	for i, s := range am.EndFrame() {
		if s != 0 {
			t.Fatalf("sample %d = %d, want 0", i, s)
		}
	}
}

func TestAudioMixerVolume(t *testing.T) {
	peak := func(volume float64) int16 {
		am := NewAudioMixer(48000, volume)
		var p int16
		for range 3 {
			for range 4000 {
				am.PlaySample(16000)
			}
			for _, s := range am.EndFrame() {
				p = max(p, s)
			}
		}
		return p
	}

	full, half := peak(1), peak(0.5)
	if full < 12000 {
		t.Errorf("peak at full volume = %d, want at least 12000", full)
	}
	if half > full*6/10 || half < full*4/10 {
		t.Errorf("peak at half volume = %d, want about %d", half, full/2)
	}
	if got := peak(0); got != 0 {
		t.Errorf("peak at volume 0 = %d, want 0", got)
	}
}

func TestAudioMixerClampsRate(t *testing.T) {
	am := NewAudioMixer(192000, 2)
	if got := am.SampleRate(); got != maxSampleRate {
		t.Errorf("SampleRate() = %d, want %d", got, maxSampleRate)
	}
	if am.volume != 1 {
		t.Errorf("volume = %v, want 1", am.volume)
	}
}
