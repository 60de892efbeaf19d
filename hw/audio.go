package hw

import (
	"github.com/arl/blip"

	"plus4/emu/log"
	"plus4/hw/ted"
)

const (
	// TED sound is clocked every 4 single clock cycles.
	palSoundClock  = ted.SingleClockFrequency / 4
	ntscSoundClock = 894886 / 4

	maxSampleRate      = 96000
	maxSamplesPerFrame = maxSampleRate / 50 * 4 // x4 to allow for CPU overclocking
)

// AudioMixer resamples the sound stream of the machine (TED tone generators
// plus SID card, one sample per 4 TED cycles) to the output sample rate.
type AudioMixer struct {
	buf    *blip.Buffer
	outbuf [maxSamplesPerFrame]int16

	prevOut int16
	time    uint32 // input samples in the current frame

	volume     float64
	ntsc       bool
	clockRate  uint32
	sampleRate uint32
}

// NewAudioMixer returns a mixer producing sampleRate samples per second,
// with volume scaling the input in the 0-1 range.
func NewAudioMixer(sampleRate uint32, volume float64) *AudioMixer {
	am := &AudioMixer{
		buf:        blip.NewBuffer(maxSamplesPerFrame),
		sampleRate: min(sampleRate, maxSampleRate),
		volume:     min(max(volume, 0), 1),
	}
	am.Reset()
	return am
}

func (am *AudioMixer) Reset() {
	am.prevOut = 0
	am.time = 0
	am.buf.Clear()
	am.updateRates(true)
}

// SetNTSC switches the input clock rate between PAL and NTSC.
func (am *AudioMixer) SetNTSC(ntsc bool) {
	am.ntsc = ntsc
	am.updateRates(false)
}

// SampleRate returns the output sample rate.
func (am *AudioMixer) SampleRate() uint32 { return am.sampleRate }

// PlaySample adds one input sample.
//
// Implements ted.AudioSink.
func (am *AudioMixer) PlaySample(s int16) {
	out := int16(float64(s) * am.volume)
	if delta := int32(out) - int32(am.prevOut); delta != 0 {
		am.buf.AddDelta(uint64(am.time), delta)
		am.prevOut = out
	}
	am.time++
}

// EndFrame closes the current frame and returns the output samples
// available. The returned slice is only valid until the next call.
func (am *AudioMixer) EndFrame() []int16 {
	am.buf.EndFrame(int(am.time))
	am.time = 0

	n := am.buf.ReadSamples(am.outbuf[:], maxSamplesPerFrame, blip.Mono)
	am.updateRates(false)
	return am.outbuf[:n]
}

func (am *AudioMixer) updateRates(force bool) {
	clockRate := uint32(palSoundClock)
	if am.ntsc {
		clockRate = ntscSoundClock
	}
	if !force && am.clockRate == clockRate {
		return
	}
	am.clockRate = clockRate
	am.buf.SetRates(float64(am.clockRate), float64(am.sampleRate))

	log.ModSound.DebugZ("audio rates").
		Uint("clock", uint64(am.clockRate)).
		Uint("sample", uint64(am.sampleRate)).
		End()
}
