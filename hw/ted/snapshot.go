package ted

import (
	"io"
	"slices"
	"strings"

	"plus4/emu/log"
	"plus4/hw/snapshot"
)

// State returns the persistent state of the TED and of the memory it
// manages. Building it has no side effects.
func (t *TED) State() *snapshot.TED {
	st := &snapshot.TED{
		RAMSegments: uint8(t.mem.ramSegments),
		IOPort:      [2]uint8{t.PORTDDR.Value, t.PORT.Value},

		HannesRegister: t.mem.hannes,
		ROMSelect:      t.mem.romSelect & 0x0F,

		CycleCount:     t.cycleCount,
		VideoColumn:    t.videoColumn,
		VideoLine:      uint32(t.videoLine),
		SavedVideoLine: uint32(t.savedVideoLine),

		CharacterLine:           t.characterLine,
		PrvCharacterLine:        t.prvCharacterLine,
		CharacterPosition:       uint32(t.characterPosition),
		CharacterPositionReload: uint32(t.characterPositionReload),
		PendingPositionReload:   uint32(t.pendingPositionReload),
		CharacterColumn:         t.characterColumn,
		DMAPosition:             uint32(t.dmaPosition),
		DMAPositionReload:       uint32(t.dmaPositionReload),
		FlashState:              t.flashState != 0,

		RenderWindow:              t.renderWindow,
		IncrementingCharacterLine: t.incrementingCharacterLine,
		BitmapAddressDisableFlags: t.bitmapAddressDisableFlags,
		DisplayWindow:             t.displayWindow,
		RenderingDisplay:          t.renderingDisplay,
		DisplayActive:             t.displayActive,
		VideoOutputFlags:          t.videoOutputFlags,
		VsyncFlags:                t.vsyncFlags,

		Timer1Run:         t.timer1Run,
		Timer2Run:         t.timer2Run,
		Timer3Run:         t.timer3Run,
		Timer1State:       uint32(t.timer1State),
		Timer1ReloadValue: uint32(t.timer1ReloadValue),
		Timer2State:       uint32(t.timer2State),
		Timer3State:       uint32(t.timer3State),

		Sound: snapshot.TEDSound{
			Channel1Counter:  t.snd.cnt1,
			Channel2Counter:  t.snd.cnt2,
			Channel1State:    t.snd.state1,
			Channel2State:    t.snd.state2,
			Channel1Overflow: t.snd.prvOverflow1,
			Channel2Overflow: t.snd.prvOverflow2,
			DecayCounter1:    t.snd.decay1,
			DecayCounter2:    t.snd.decay2,
			NoiseState:       t.snd.noiseState,
			NoiseOutput:      t.snd.noiseOutput,
			PrvOutput:        t.snd.prvOutput,
		},

		ShiftRegister:    encodeCharacter(t.shiftRegister),
		HorizontalScroll: t.horizontalScroll,
		VerticalScroll:   t.verticalScroll,
		Current:          encodeCharacter(t.currentCharacter),
		Next:             encodeCharacter(t.nextCharacter),

		VideoShiftRegisterEnabled: t.videoShiftRegisterEnabled,
		ColorRegisters:            t.colorRegisters,

		DMAEnabled:              t.dmaEnabled,
		SingleClockModeFlags:    t.singleClockModeFlags,
		DMAFlags:                t.dmaFlags,
		IncrementingDMAPosition: t.incrementingDMAPosition,
		CPUHalted:               t.cpuHaltedFlag,
		DMAFetching:             t.dmaFetching,
		DelayedEvents0:          t.delayedEvents[0],
		DelayedEvents1:          t.delayedEvents[1],
		PrvVideoInterrupt:       t.prvVideoInterrupt,

		DataBus:         t.dataBus,
		DRAMRefreshAddr: t.dramRefreshAddr,

		AttrBuf:     t.attrBuf,
		AttrBufTmp:  t.attrBufTmp,
		CharBuf:     t.charBuf,
		VideoBuffer: slices.Clone(t.videoBuf[:t.videoBufPos]),

		KeyboardRowSelect: uint32(t.keyboardRowSelect),
		KeyboardMatrix:    t.keyboardMatrix,
		UserPort:          t.userPort,
		TapeInput:         t.tapeInput,
	}
	if t.mem.romEnabled {
		st.ROMSelect |= 0x80
	}
	for i, r := range t.regs {
		st.Registers[i] = r.Value
	}
	st.RAM = make([][]byte, len(t.mem.ram))
	for i, seg := range t.mem.ram {
		st.RAM[i] = slices.Clone(seg)
	}
	for i := range st.ROM {
		st.ROM[i] = slices.Clone(t.mem.segments[i])
	}
	return st
}

func encodeCharacter(c character) snapshot.TEDCharacter {
	return snapshot.TEDCharacter{Attr: c.attr, Char: c.char, Bitmap: c.bitmap, Flags: c.flags}
}

func decodeCharacter(c snapshot.TEDCharacter) character {
	return character{attr: c.Attr, char: c.Char, bitmap: c.Bitmap, flags: c.Flags}
}

// SetState restores a state returned by State. Registers are restored
// without side effects, derived state (video mode, renderer, memory maps,
// tone generator reload values, interrupt line) is recomputed.
func (t *TED) SetState(st *snapshot.TED) {
	m := &t.mem
	for i := 0x100 - m.ramSegments; i < 0x100; i++ {
		m.segments[i] = nil
	}
	m.ramSegments = int(st.RAMSegments)
	m.ram = make([][]byte, m.ramSegments)
	for i := range m.ram {
		m.ram[i] = make([]byte, segmentSize)
		copy(m.ram[i], st.RAM[i])
		m.segments[0x100-m.ramSegments+i] = m.ram[i]
	}
	for i, seg := range st.ROM {
		m.segments[i] = slices.Clone(seg)
	}
	m.buildMapTable()
	m.hannes = st.HannesRegister
	m.romSelect = st.ROMSelect & 0x0F
	m.romEnabled = st.ROMSelect&0x80 != 0

	for i, r := range t.regs {
		r.Value = st.Registers[i]
	}
	t.PORTDDR.Value = st.IOPort[0]
	t.PORT.Value = st.IOPort[1]

	t.cycleCount = st.CycleCount
	t.videoColumn = st.VideoColumn
	t.videoLine = int(st.VideoLine)
	t.savedVideoLine = int(st.SavedVideoLine)

	t.characterLine = st.CharacterLine
	t.prvCharacterLine = st.PrvCharacterLine
	t.characterPosition = int(st.CharacterPosition)
	t.characterPositionReload = int(st.CharacterPositionReload)
	t.pendingPositionReload = int(st.PendingPositionReload)
	t.characterColumn = st.CharacterColumn
	t.dmaPosition = int(st.DMAPosition)
	t.dmaPositionReload = int(st.DMAPositionReload)
	t.flashState = 0
	if st.FlashState {
		t.flashState = 0xFF
	}

	t.renderWindow = st.RenderWindow
	t.incrementingCharacterLine = st.IncrementingCharacterLine
	t.bitmapAddressDisableFlags = st.BitmapAddressDisableFlags
	t.displayWindow = st.DisplayWindow
	t.renderingDisplay = st.RenderingDisplay
	t.displayActive = st.DisplayActive
	t.videoOutputFlags = st.VideoOutputFlags
	t.vsyncFlags = st.VsyncFlags

	t.timer1Run = st.Timer1Run
	t.timer2Run = st.Timer2Run
	t.timer3Run = st.Timer3Run
	t.timer1State = int(st.Timer1State)
	t.timer1ReloadValue = int(st.Timer1ReloadValue)
	t.timer2State = int(st.Timer2State)
	t.timer3State = int(st.Timer3State)

	snd := &st.Sound
	t.snd.cnt1 = snd.Channel1Counter
	t.snd.cnt2 = snd.Channel2Counter
	t.snd.state1 = snd.Channel1State
	t.snd.state2 = snd.Channel2State
	t.snd.prvOverflow1 = snd.Channel1Overflow
	t.snd.prvOverflow2 = snd.Channel2Overflow
	t.snd.decay1 = snd.DecayCounter1
	t.snd.decay2 = snd.DecayCounter2
	t.snd.noiseState = snd.NoiseState
	t.snd.noiseOutput = snd.NoiseOutput
	t.snd.prvOutput = snd.PrvOutput

	t.shiftRegister = decodeCharacter(st.ShiftRegister)
	t.horizontalScroll = st.HorizontalScroll
	t.verticalScroll = st.VerticalScroll
	t.currentCharacter = decodeCharacter(st.Current)
	t.nextCharacter = decodeCharacter(st.Next)
	t.videoShiftRegisterEnabled = st.VideoShiftRegisterEnabled
	t.colorRegisters = st.ColorRegisters

	t.dmaEnabled = st.DMAEnabled
	t.singleClockModeFlags = st.SingleClockModeFlags
	t.dmaFlags = st.DMAFlags
	t.incrementingDMAPosition = st.IncrementingDMAPosition
	t.cpuHaltedFlag = st.CPUHalted
	t.dmaFetching = st.DMAFetching
	t.delayedEvents = [2]uint32{st.DelayedEvents0, st.DelayedEvents1}
	t.prvVideoInterrupt = st.PrvVideoInterrupt

	t.dataBus = st.DataBus
	t.dramRefreshAddr = st.DRAMRefreshAddr

	t.attrBuf = st.AttrBuf
	t.attrBufTmp = st.AttrBufTmp
	t.charBuf = st.CharBuf
	t.videoBufPos = copy(t.videoBuf[:], st.VideoBuffer)

	t.keyboardRowSelect = int(st.KeyboardRowSelect & 0xFFFF)
	t.keyboardMatrix = st.KeyboardMatrix
	t.userPort = st.UserPort
	t.tapeInput = st.TapeInput

	t.recomputeDerivedState()
}

// recomputeDerivedState rebuilds all state that is a function of the
// registers.
func (t *TED) recomputeDerivedState() {
	t.ioPortWrite()
	t.updateMemoryMaps()

	t.videoInterruptLine = int(t.IRQMASK.Value&0x01)<<8 | int(t.RASTER.Value)
	t.cursorPosition = int(t.CURSORHI.Value&0x03)<<8 | int(t.CURSORLO.Value)
	t.attrBaseAddr = int(t.VIDBASE.Value&0xF8) << 8
	t.bitmapBaseAddr = int(t.BMPBASE.Value&0x38) << 10
	t.tedDisabled = t.CTRL2.Value&0x20 != 0
	t.updateVideoMode()
	if !t.isPending(evSelectRenderer) {
		t.renderer = t.selectRenderer()
	}

	t.snd.volume = soundVolumeTable[t.SNDCTRL.Value&0x0F]
	t.updateSoundReload()
	t.updateSoundOutputs()

	// the CPU is stopped from the second DMA cycle until one half-cycle
	// after the end of the DMA
	stopped := t.dmaFetching || t.isPending(evStopDMADelay1) ||
		(t.cpuHaltedFlag && !t.isPending(evDMACycle2))
	t.cpu.SetIsCPURunning(!stopped)
	t.updateIRQ(true)
}

// SaveState writes a TED snapshot chunk to w.
func (t *TED) SaveState(w io.Writer) error {
	sw := snapshot.NewWriter()
	t.State().Encode(sw)
	_, err := sw.WriteTo(w)
	return err
}

// LoadState restores a snapshot chunk written by SaveState. On error, the
// TED is reset.
func (t *TED) LoadState(r io.Reader) error {
	sr, err := snapshot.ReadFrom("ted", r)
	if err != nil {
		t.Reset(true)
		return err
	}
	var st snapshot.TED
	if err := st.Decode(sr); err != nil {
		log.ModSnapshot.WarnZ("cannot load TED snapshot").Error("err", err).End()
		t.Reset(true)
		return err
	}
	t.SetState(&st)
	log.ModSnapshot.DebugZ("TED snapshot loaded").
		Raster("raster", t.videoLine, int(t.videoColumn)).
		Stringer("renderer", t.renderer).
		String("events", strings.Join(t.pendingEventNames(), ",")).
		End()
	return nil
}

func (t *TED) pendingEventNames() []string {
	var names []string
	pending := t.delayedEvents[0] | t.delayedEvents[1]
	for ev := range 32 {
		if pending&(1<<ev) != 0 {
			names = append(names, eventNames[ev])
		}
	}
	return names
}
