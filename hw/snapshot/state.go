package snapshot

// Chunk versions.
const (
	SIDVersion = 0x01000000

	TEDVersion       = 0x01000001
	TEDLegacyVersion = 0x01000000
)

// TODO: bump SIDVersion and add the filter integrator state (Vhp, Vbp, Vlp)
// and the write pipeline, restoring a snapshot currently resets them.

// SID holds the persistent state of a SID chip.
type SID struct {
	Registers   [0x20]uint8
	BusValue    uint8
	BusValueTTL int32
	Voices      [3]SIDVoice
}

type SIDVoice struct {
	Accumulator   uint32 // 24 bits
	ShiftRegister uint32 // 23 bits
	RateCounter   uint32
	RatePeriod    uint32
	ExpCounter    uint32
	ExpPeriod     uint32

	EnvelopeCounter uint8
	EnvelopeState   uint8 // 0: release, 1: attack, 2: decay/sustain
	HoldZero        bool
}

func (s *SID) Encode(w *Writer) {
	w.Uint32(SIDVersion)
	w.Raw(s.Registers[:])
	w.Byte(s.BusValue)
	w.Int32(s.BusValueTTL)
	for i := range s.Voices {
		v := &s.Voices[i]
		w.Uint32(v.Accumulator)
		w.Uint32(v.ShiftRegister)
		w.Uint32(v.RateCounter)
		w.Uint32(v.RatePeriod)
		w.Uint32(v.ExpCounter)
		w.Uint32(v.ExpPeriod)
		w.Byte(v.EnvelopeCounter)
		w.Byte(v.EnvelopeState)
		w.Bool(v.HoldZero)
	}
}

// Decode fills s from r. The whole chunk must be consumed.
func (s *SID) Decode(r *Reader) error {
	r.Version(SIDVersion)
	r.Raw(s.Registers[:])
	s.BusValue = r.Byte()
	s.BusValueTTL = r.Int32()
	for i := range s.Voices {
		v := &s.Voices[i]
		v.Accumulator = r.Uint32() & 0xFFFFFF
		v.ShiftRegister = r.Uint32() & 0x7FFFFF
		v.RateCounter = r.Uint32() & 0xFFFF
		v.RatePeriod = r.Uint32() & 0xFFFF
		v.ExpCounter = r.Uint32() & 0xFFFF
		v.ExpPeriod = r.Uint32() & 0xFFFF
		v.EnvelopeCounter = r.Byte()
		v.EnvelopeState = r.Byte()
		v.HoldZero = r.Bool()
		if v.EnvelopeState > 2 {
			r.Invalid("voice %d: invalid envelope state %d", i, v.EnvelopeState)
		}
	}
	return r.Finish()
}

// TEDCharacter is one entry of the character pipeline.
type TEDCharacter struct {
	Attr, Char, Bitmap, Flags uint8
}

func (c *TEDCharacter) encode(w *Writer) {
	w.Byte(c.Attr)
	w.Byte(c.Char)
	w.Byte(c.Bitmap)
	w.Byte(c.Flags)
}

func (c *TEDCharacter) decode(r *Reader) {
	c.Attr = r.Byte()
	c.Char = r.Byte()
	c.Bitmap = r.Byte()
	c.Flags = r.Byte()
}

// TEDSound is the state of the TED tone generators.
type TEDSound struct {
	Channel1Counter, Channel2Counter uint32
	Channel1State, Channel2State     bool
	Channel1Overflow                 bool
	Channel2Overflow                 bool
	DecayCounter1, DecayCounter2     uint32
	NoiseState                       uint8
	NoiseOutput                      bool
	PrvOutput                        uint8
}

// TED holds the persistent state of a TED chip, including the memory it
// manages. ROM segments that are not loaded are nil.
type TED struct {
	RAMSegments uint8
	RAM         [][]byte
	ROM         [8][]byte

	IOPort    [2]uint8
	Registers [0x20]uint8

	HannesRegister uint8
	ROMSelect      uint8 // bit 7: ROM enabled, bits 0-3: bank select

	CycleCount     uint8
	VideoColumn    uint8
	VideoLine      uint32
	SavedVideoLine uint32

	CharacterLine           uint8
	PrvCharacterLine        uint8
	CharacterPosition       uint32
	CharacterPositionReload uint32
	PendingPositionReload   uint32
	CharacterColumn         uint8
	DMAPosition             uint32
	DMAPositionReload       uint32
	FlashState              bool

	RenderWindow              bool
	IncrementingCharacterLine bool
	BitmapAddressDisableFlags uint8
	DisplayWindow             bool
	RenderingDisplay          bool
	DisplayActive             bool
	VideoOutputFlags          uint8
	VsyncFlags                uint8

	Timer1Run, Timer2Run, Timer3Run bool
	Timer1State                     uint32
	Timer1ReloadValue               uint32
	Timer2State, Timer3State        uint32

	Sound TEDSound

	ShiftRegister    TEDCharacter
	HorizontalScroll uint8
	VerticalScroll   uint8
	Current, Next    TEDCharacter

	VideoShiftRegisterEnabled bool
	ColorRegisters            [5]uint8

	DMAEnabled              bool
	SingleClockModeFlags    uint8
	DMAFlags                uint8
	IncrementingDMAPosition bool
	CPUHalted               bool
	DMAFetching             bool
	DelayedEvents0          uint32
	DelayedEvents1          uint32
	PrvVideoInterrupt       bool

	DataBus         uint8
	DRAMRefreshAddr uint8

	AttrBuf    [64]uint8
	AttrBufTmp [64]uint8
	CharBuf    [64]uint8

	VideoBuffer []byte

	KeyboardRowSelect uint32
	KeyboardMatrix    [16]uint8
	UserPort          uint8
	TapeInput         bool
}

const segmentSize = 0x4000

// ROMBitmap returns the bitmask of loaded ROM segments.
func (s *TED) ROMBitmap() uint8 {
	var bm uint8
	for i := range s.ROM {
		if s.ROM[i] != nil {
			bm |= 1 << i
		}
	}
	return bm
}

func (s *TED) Encode(w *Writer) {
	w.Uint32(TEDVersion)
	w.Byte(s.ROMBitmap())
	w.Byte(s.RAMSegments)
	for _, seg := range s.RAM {
		w.Raw(seg)
	}
	for _, seg := range s.ROM {
		if seg != nil {
			w.Raw(seg)
		}
	}
	w.Byte(s.IOPort[0])
	w.Byte(s.IOPort[1])
	w.Raw(s.Registers[:])
	w.Byte(s.HannesRegister)
	w.Byte(s.ROMSelect)

	w.Byte(s.CycleCount)
	w.Byte(s.VideoColumn)
	w.Uint32(s.VideoLine)
	w.Uint32(s.SavedVideoLine)
	w.Byte(s.CharacterLine)
	w.Byte(s.PrvCharacterLine)
	w.Uint32(s.CharacterPosition)
	w.Uint32(s.CharacterPositionReload)
	w.Uint32(s.PendingPositionReload)
	w.Byte(s.CharacterColumn)
	w.Uint32(s.DMAPosition)
	w.Uint32(s.DMAPositionReload)
	w.Bool(s.FlashState)

	w.Bool(s.RenderWindow)
	w.Bool(s.IncrementingCharacterLine)
	w.Byte(s.BitmapAddressDisableFlags)
	w.Bool(s.DisplayWindow)
	w.Bool(s.RenderingDisplay)
	w.Bool(s.DisplayActive)
	w.Byte(s.VideoOutputFlags)
	w.Byte(s.VsyncFlags)

	w.Bool(s.Timer1Run)
	w.Bool(s.Timer2Run)
	w.Bool(s.Timer3Run)
	w.Uint32(s.Timer1State)
	w.Uint32(s.Timer1ReloadValue)
	w.Uint32(s.Timer2State)
	w.Uint32(s.Timer3State)

	snd := &s.Sound
	w.Uint32(snd.Channel1Counter)
	w.Uint32(snd.Channel2Counter)
	w.Bool(snd.Channel1State)
	w.Bool(snd.Channel2State)
	w.Bool(snd.Channel1Overflow)
	w.Bool(snd.Channel2Overflow)
	w.Uint32(snd.DecayCounter1)
	w.Uint32(snd.DecayCounter2)
	w.Byte(snd.NoiseState)
	w.Bool(snd.NoiseOutput)
	w.Byte(snd.PrvOutput)

	s.ShiftRegister.encode(w)
	w.Byte(s.HorizontalScroll)
	w.Byte(s.VerticalScroll)
	s.Current.encode(w)
	s.Next.encode(w)
	w.Bool(s.VideoShiftRegisterEnabled)
	w.Raw(s.ColorRegisters[:])

	w.Bool(s.DMAEnabled)
	w.Byte(s.SingleClockModeFlags)
	w.Byte(s.DMAFlags)
	w.Bool(s.IncrementingDMAPosition)
	w.Bool(s.CPUHalted)
	w.Bool(s.DMAFetching)
	w.Uint32(s.DelayedEvents0)
	w.Uint32(s.DelayedEvents1)
	w.Bool(s.PrvVideoInterrupt)
	w.Byte(s.DataBus)
	w.Byte(s.DRAMRefreshAddr)

	w.Raw(s.AttrBuf[:])
	w.Raw(s.AttrBufTmp[:])
	w.Raw(s.CharBuf[:])
	w.Uint32(uint32(len(s.VideoBuffer)))
	w.Raw(s.VideoBuffer)

	w.Uint32(s.KeyboardRowSelect)
	w.Raw(s.KeyboardMatrix[:])
	w.Byte(s.UserPort)
	w.Bool(s.TapeInput)
}

// ValidRAMSegments reports whether n is a supported RAM size, in 16K
// segments.
func ValidRAMSegments(n uint8) bool {
	switch n {
	case 1, 2, 4, 16, 64:
		return true
	}
	return false
}

// maxVideoBuffer is the largest pending video buffer a TED can hold.
const maxVideoBuffer = 464

func (s *TED) Decode(r *Reader) error {
	version := r.Version(TEDVersion, TEDLegacyVersion)
	romBitmap := r.Byte()
	s.RAMSegments = r.Byte()
	if r.Err() != nil {
		return r.Err()
	}
	if !ValidRAMSegments(s.RAMSegments) {
		r.Invalid("invalid RAM size (%d segments)", s.RAMSegments)
		return r.Err()
	}
	s.RAM = make([][]byte, s.RAMSegments)
	for i := range s.RAM {
		s.RAM[i] = make([]byte, segmentSize)
		r.Raw(s.RAM[i])
	}
	for i := range s.ROM {
		s.ROM[i] = nil
		if romBitmap&(1<<i) != 0 {
			s.ROM[i] = make([]byte, segmentSize)
			r.Raw(s.ROM[i])
		}
	}
	s.IOPort[0] = r.Byte()
	s.IOPort[1] = r.Byte()
	r.Raw(s.Registers[:])
	s.HannesRegister = r.Byte()
	s.ROMSelect = r.Byte()

	s.CycleCount = r.Byte() & 3
	s.VideoColumn = r.Byte()
	s.VideoLine = r.Uint32() & 0x1FF
	s.SavedVideoLine = r.Uint32() & 0x1FF
	s.CharacterLine = r.Byte() & 7
	s.PrvCharacterLine = r.Byte() & 7
	s.CharacterPosition = r.Uint32() & 0x3FF
	s.CharacterPositionReload = r.Uint32() & 0x3FF
	s.PendingPositionReload = r.Uint32() & 0x3FF
	s.CharacterColumn = r.Byte() & 0x3F
	s.DMAPosition = r.Uint32() & 0x7FF
	s.DMAPositionReload = r.Uint32() & 0x3FF
	s.FlashState = r.Bool()
	if s.VideoColumn > 113 {
		r.Invalid("invalid video column %d", s.VideoColumn)
	}

	s.RenderWindow = r.Bool()
	s.IncrementingCharacterLine = r.Bool()
	s.BitmapAddressDisableFlags = r.Byte() & 3
	s.DisplayWindow = r.Bool()
	s.RenderingDisplay = r.Bool()
	s.DisplayActive = r.Bool()
	s.VideoOutputFlags = r.Byte()
	s.VsyncFlags = r.Byte()

	s.Timer1Run = r.Bool()
	s.Timer2Run = r.Bool()
	s.Timer3Run = r.Bool()
	s.Timer1State = r.Uint32() & 0xFFFF
	s.Timer1ReloadValue = r.Uint32() & 0xFFFF
	s.Timer2State = r.Uint32() & 0xFFFF
	s.Timer3State = r.Uint32() & 0xFFFF

	snd := &s.Sound
	snd.Channel1Counter = r.Uint32() & 0x3FF
	snd.Channel2Counter = r.Uint32() & 0x3FF
	snd.Channel1State = r.Bool()
	snd.Channel2State = r.Bool()
	snd.Channel1Overflow = r.Bool()
	snd.Channel2Overflow = r.Bool()
	snd.DecayCounter1 = r.Uint32()
	snd.DecayCounter2 = r.Uint32()
	snd.NoiseState = r.Byte()
	snd.NoiseOutput = r.Bool()
	snd.PrvOutput = r.Byte()

	s.ShiftRegister.decode(r)
	if version == TEDLegacyVersion {
		// unused field of the first revision
		r.Uint32()
	}
	s.HorizontalScroll = r.Byte() & 7
	s.VerticalScroll = r.Byte() & 7
	s.Current.decode(r)
	s.Next.decode(r)
	s.VideoShiftRegisterEnabled = r.Bool()
	r.Raw(s.ColorRegisters[:])

	s.DMAEnabled = r.Bool()
	s.SingleClockModeFlags = r.Byte()
	s.DMAFlags = r.Byte() & 3
	s.IncrementingDMAPosition = r.Bool()
	s.CPUHalted = r.Bool()
	s.DMAFetching = r.Bool()
	s.DelayedEvents0 = r.Uint32()
	s.DelayedEvents1 = r.Uint32()
	s.PrvVideoInterrupt = r.Bool()
	s.DataBus = r.Byte()
	s.DRAMRefreshAddr = r.Byte()

	r.Raw(s.AttrBuf[:])
	r.Raw(s.AttrBufTmp[:])
	r.Raw(s.CharBuf[:])
	n := r.Uint32()
	if n > maxVideoBuffer {
		r.Invalid("invalid video buffer length %d", n)
	} else if r.Err() == nil {
		s.VideoBuffer = make([]byte, n)
		r.Raw(s.VideoBuffer)
	}

	s.KeyboardRowSelect = r.Uint32()
	r.Raw(s.KeyboardMatrix[:])
	s.UserPort = r.Byte()
	s.TapeInput = r.Bool()
	return r.Finish()
}
