package sid

import (
	"io"

	"plus4/emu/log"
	"plus4/hw/snapshot"
)

// State returns the persistent state of the SID. Building it has no side
// effect on the chip.
func (s *SID) State() *snapshot.SID {
	var st snapshot.SID
	for i := range s.voices {
		v := &s.voices[i]
		j := i * 7
		st.Registers[j+0] = uint8(v.wave.freq)
		st.Registers[j+1] = uint8(v.wave.freq >> 8)
		st.Registers[j+2] = uint8(v.wave.pw)
		st.Registers[j+3] = uint8(v.wave.pw >> 8)
		st.Registers[j+4] = v.wave.control()
		if v.env.gate {
			st.Registers[j+4] |= 0x01
		}
		st.Registers[j+5] = v.env.attack<<4 | v.env.decay
		st.Registers[j+6] = v.env.sustain<<4 | v.env.release
	}
	st.Registers[0x15] = uint8(s.filter.fc & 0x007)
	st.Registers[0x16] = uint8(s.filter.fc >> 3)
	st.Registers[0x17] = s.filter.res<<4 | s.filter.filt
	st.Registers[0x18] = s.filter.modeVol()
	for off := uint8(0x19); off < 0x1D; off++ {
		st.Registers[off] = s.Peek(off)
	}

	st.BusValue = s.busValue
	st.BusValueTTL = s.busValueTTL

	for i := range s.voices {
		v := &s.voices[i]
		st.Voices[i] = snapshot.SIDVoice{
			Accumulator:     v.wave.acc,
			ShiftRegister:   v.wave.shiftReg,
			RateCounter:     v.env.rateCounter,
			RatePeriod:      v.env.ratePeriod,
			ExpCounter:      v.env.expCounter,
			ExpPeriod:       v.env.expPeriod,
			EnvelopeCounter: v.env.counter,
			EnvelopeState:   uint8(v.env.state),
			HoldZero:        v.env.holdZero,
		}
	}
	return &st
}

// SetState restores a state returned by State. Registers are applied
// immediately, bypassing the 8580 write pipeline.
func (s *SID) SetState(st *snapshot.SID) {
	for off := uint8(0); off <= 0x18; off++ {
		s.writeRegister(off, st.Registers[off])
	}
	s.writePipeline = false
	s.busValue = st.BusValue
	s.busValueTTL = st.BusValueTTL

	for i := range s.voices {
		v := &s.voices[i]
		vs := &st.Voices[i]
		v.wave.acc = vs.Accumulator & 0xFFFFFF
		v.wave.shiftReg = vs.ShiftRegister & 0x7FFFFF
		v.env.rateCounter = vs.RateCounter
		v.env.ratePeriod = vs.RatePeriod
		v.env.expCounter = vs.ExpCounter
		v.env.expPeriod = vs.ExpPeriod
		v.env.counter = vs.EnvelopeCounter
		v.env.state = envState(vs.EnvelopeState)
		v.env.holdZero = vs.HoldZero
	}
}

// SaveState writes a SID snapshot chunk to w.
func (s *SID) SaveState(w io.Writer) error {
	sw := snapshot.NewWriter()
	s.State().Encode(sw)
	_, err := sw.WriteTo(w)
	return err
}

// LoadState restores a snapshot chunk written by SaveState. On error, the
// SID is reset.
func (s *SID) LoadState(r io.Reader) error {
	sr, err := snapshot.ReadFrom("sid", r)
	if err != nil {
		s.Reset()
		return err
	}
	var st snapshot.SID
	if err := st.Decode(sr); err != nil {
		log.ModSID.WarnZ("cannot load snapshot").Error("err", err).End()
		s.Reset()
		return err
	}
	s.SetState(&st)
	return nil
}
