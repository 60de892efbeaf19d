// Package ted emulates the MOS 7360/8360 TED (Text Editing Device), the
// video, sound, timer and keyboard controller of the Commodore 264 series.
//
// The chip is driven by calling StepCycle repeatedly. A cycle is made of two
// half-cycles, each of them drains one delayed event queue, may run the CPU
// and renders 4 pixels into the video stream.
package ted

import (
	"plus4/emu/log"
	"plus4/hw/hwio"
)

// CPU is the processor driven by the TED. It accesses memory through the
// bus returned by TED.Bus.
type CPU interface {
	// Run executes the given number of CPU cycles.
	Run(cycles int)
	SetIsCPURunning(running bool)
	IsCPURunning() bool
	// SetIRQ sets the state of the interrupt request line.
	SetIRQ(asserted bool)
}

// VideoSink receives the encoded video stream.
type VideoSink interface {
	// VideoOutput is called with groups of 2 or 5 bytes: a flags byte,
	// followed by either one color (4 identical pixels) or, if FlagPixels is
	// set, 4 colors. buf is only valid for the duration of the call.
	VideoOutput(buf []byte)
}

// AudioSink receives the tone generator output, at a quarter of the single
// clock frequency.
type AudioSink interface {
	PlaySample(sample int16)
}

// Video output flags.
const (
	FlagNTSC    = 0x01
	FlagPixels  = 0x02
	FlagOddLine = 0x04 // PAL only
	FlagBurst   = 0x08
	FlagVBlank  = 0x10
	FlagHBlank  = 0x20
	FlagVSync   = 0x40
	FlagHSync   = 0x80
)

const (
	// NumColumns is the number of half-cycles per raster line.
	NumColumns = 114
	// CyclesPerLine is the number of StepCycle calls per raster line.
	CyclesPerLine = NumColumns / 2

	PALLines  = 312
	NTSCLines = 262

	// SingleClockFrequency is the PAL single clock frequency in Hz, which
	// is also the StepCycle rate.
	SingleClockFrequency = 886724
)

const (
	videoBufSize   = 464
	flushThreshold = 450
)

// character is an 8 pixel cell in flight through the video pipeline.
type character struct {
	attr   uint8
	char   uint8
	bitmap uint8
	flags  uint8 // 0xF0: cursor, 0x08: reverse video allowed
}

type TED struct {
	// Registers, mapped at $FF00.
	T1LO      hwio.Reg8 `hwio:"offset=0x00,rcb,wcb"`
	T1HI      hwio.Reg8 `hwio:"offset=0x01,rcb,wcb"`
	T2LO      hwio.Reg8 `hwio:"offset=0x02,rcb,wcb"`
	T2HI      hwio.Reg8 `hwio:"offset=0x03,rcb,wcb"`
	T3LO      hwio.Reg8 `hwio:"offset=0x04,rcb,wcb"`
	T3HI      hwio.Reg8 `hwio:"offset=0x05,rcb,wcb"`
	CTRL1     hwio.Reg8 `hwio:"offset=0x06,wcb"`
	CTRL2     hwio.Reg8 `hwio:"offset=0x07,wcb"`
	KEYLATCH  hwio.Reg8 `hwio:"offset=0x08,reset=0xFF,wcb"`
	IRQFLAGS  hwio.Reg8 `hwio:"offset=0x09,reset=0x04,rcb,wcb"`
	IRQMASK   hwio.Reg8 `hwio:"offset=0x0A,rcb,wcb"`
	RASTER    hwio.Reg8 `hwio:"offset=0x0B,wcb"`
	CURSORHI  hwio.Reg8 `hwio:"offset=0x0C,rcb,wcb"`
	CURSORLO  hwio.Reg8 `hwio:"offset=0x0D,wcb"`
	SND1FREQ  hwio.Reg8 `hwio:"offset=0x0E,wcb"`
	SND2FREQ  hwio.Reg8 `hwio:"offset=0x0F,wcb"`
	SND2HI    hwio.Reg8 `hwio:"offset=0x10,rcb,wcb"`
	SNDCTRL   hwio.Reg8 `hwio:"offset=0x11,wcb"`
	BMPBASE   hwio.Reg8 `hwio:"offset=0x12,rcb,wcb"`
	CHARBASE  hwio.Reg8 `hwio:"offset=0x13,rcb,wcb"`
	VIDBASE   hwio.Reg8 `hwio:"offset=0x14,rcb,wcb"`
	BG0       hwio.Reg8 `hwio:"offset=0x15,reset=0x80,wcb"`
	BG1       hwio.Reg8 `hwio:"offset=0x16,reset=0x80,wcb"`
	BG2       hwio.Reg8 `hwio:"offset=0x17,reset=0x80,wcb"`
	BG3       hwio.Reg8 `hwio:"offset=0x18,reset=0x80,wcb"`
	BORDER    hwio.Reg8 `hwio:"offset=0x19,reset=0x80,wcb"`
	CHARPOSHI hwio.Reg8 `hwio:"offset=0x1A,rcb,wcb"`
	CHARPOSLO hwio.Reg8 `hwio:"offset=0x1B,wcb"`
	LINEHI    hwio.Reg8 `hwio:"offset=0x1C,rcb,wcb"`
	LINELO    hwio.Reg8 `hwio:"offset=0x1D,wcb"`
	COLUMN    hwio.Reg8 `hwio:"offset=0x1E,rcb,wcb"`
	CHARLINE  hwio.Reg8 `hwio:"offset=0x1F,rcb,wcb"`

	// CPU I/O port, mapped at $0000.
	PORTDDR hwio.Reg8 `hwio:"bank=1,offset=0x00,wcb"`
	PORT    hwio.Reg8 `hwio:"bank=1,offset=0x01,rcb,wcb"`

	// I/O area, mapped at $FD00.
	USERPORT hwio.Device `hwio:"bank=2,offset=0x10,size=0x10,rcb,pcb,wcb"`
	KEYSEL   hwio.Device `hwio:"bank=2,offset=0x30,size=0x10,rcb,pcb,wcb"`
	ROMBANK  hwio.Device `hwio:"bank=2,offset=0xD0,size=0x10,rcb,pcb,wcb"`

	// ROM/RAM select, mapped at $FF3E.
	ROMSEL hwio.Device `hwio:"bank=3,offset=0x00,size=0x2,rcb,pcb,wcb"`

	regs [0x20]*hwio.Reg8

	cpu   CPU
	video VideoSink
	audio AudioSink
	bus   *hwio.Table

	ntscCallback func(ntsc bool)

	mem memory

	clockMultiplier int

	// raster position
	cycleCount     uint8
	videoColumn    uint8
	videoLine      int
	savedVideoLine int
	characterLine  uint8
	// character line at the start of the current raster line
	prvCharacterLine uint8

	videoInterruptLine int
	prvVideoInterrupt  bool
	irq                bool

	characterPosition       int
	characterPositionReload int
	pendingPositionReload   int // FF1A/FF1B value, applied by an event
	characterColumn         uint8
	dmaPosition             int // bit 10 set for character DMA
	dmaPositionReload       int
	cursorPosition          int
	flashState              uint8 // 0x00 or 0xFF

	// display state flags
	renderWindow              bool
	incrementingCharacterLine bool
	// non-zero disables bitmap address generation, bit 0 is cleared at
	// column 110 and set at column 76, bit 1 is cleared by the first
	// character DMA and set at the end of the display.
	bitmapAddressDisableFlags uint8
	displayWindow             bool
	renderingDisplay          bool
	displayActive             bool
	tedDisabled               bool
	videoOutputFlags          uint8
	// bit 7: vertical sync, bit 6: equalization
	vsyncFlags uint8

	timer1Run, timer2Run, timer3Run bool
	timer1State                     int
	timer1ReloadValue               int
	timer2State, timer3State        int

	snd tone

	// video pipeline
	videoBuf                  [videoBufSize]uint8
	videoBufPos               int
	videoShiftRegisterEnabled bool
	videoMode                 uint8 // (FF06 bits 5,6 | FF07 bits 4,7) >> 4
	renderer                  renderMode
	bitmapMode                bool
	characterMask             uint8
	charsetBaseAddr           int
	bitmapBaseAddr            int
	attrBaseAddr              int
	shiftRegister             character
	currentCharacter          character
	nextCharacter             character
	// latches of FF15-FF19 used for the first pixel of a half-cycle, $FF
	// for one half-cycle after a register write
	colorRegisters   [5]uint8
	horizontalScroll uint8
	verticalScroll   uint8

	attrBuf    [64]uint8
	attrBufTmp [64]uint8
	charBuf    [64]uint8

	// DMA
	dmaEnabled bool
	// bit 0: single clock mode requested by the TED, bit 1: FF13 bit 1,
	// bit 7: DRAM refresh
	singleClockModeFlags uint8
	// 1: attribute DMA, 2: character DMA
	dmaFlags                uint8
	incrementingDMAPosition bool
	cpuHaltedFlag           bool
	dmaFetching             bool

	delayedEvents [2]uint32

	dataBus         uint8
	dramRefreshAddr uint8

	// keyboard and I/O ports
	keyboardRowSelect int
	keyboardMatrix    [16]uint8
	userPort          uint8
	tapeInput         bool
	tapeMotor         bool
	tapeOutput        bool

	lightPen LightPen

	callbacks []callback
}

// New returns a TED driving cpu, with 64K of RAM and no ROM loaded. video
// and audio may be nil.
func New(cpu CPU, video VideoSink, audio AudioSink) *TED {
	t := &TED{
		cpu:             cpu,
		video:           video,
		audio:           audio,
		clockMultiplier: 1,
	}
	hwio.MustInitRegs(t)
	t.regs = [0x20]*hwio.Reg8{
		&t.T1LO, &t.T1HI, &t.T2LO, &t.T2HI, &t.T3LO, &t.T3HI,
		&t.CTRL1, &t.CTRL2, &t.KEYLATCH, &t.IRQFLAGS, &t.IRQMASK, &t.RASTER,
		&t.CURSORHI, &t.CURSORLO, &t.SND1FREQ, &t.SND2FREQ, &t.SND2HI,
		&t.SNDCTRL, &t.BMPBASE, &t.CHARBASE, &t.VIDBASE,
		&t.BG0, &t.BG1, &t.BG2, &t.BG3, &t.BORDER,
		&t.CHARPOSHI, &t.CHARPOSLO, &t.LINEHI, &t.LINELO, &t.COLUMN, &t.CHARLINE,
	}
	t.mem.init()
	t.initBus()
	t.SetRAMSize(64, 0)
	t.Reset(true)
	return t
}

func (t *TED) initBus() {
	t.bus = hwio.NewTable("cpu")
	t.bus.Map(0x0000, 0xFFFF, cpuMemory{t})
	t.bus.Map(0xFD00, 0xFEFF, openBus{t})
	t.bus.MapBank(0x0000, t, 1)
	t.bus.MapBank(0xFD00, t, 2)
	t.bus.MapBank(0xFF00, t, 0)
	t.bus.MapBank(0xFF3E, t, 3)
}

// Bus returns the 64K address space seen by the CPU.
func (t *TED) Bus() hwio.BankIO8 { return t }

// Table returns the dispatch table of the CPU address space, so that
// expansions can be mapped into the I/O area.
func (t *TED) Table() *hwio.Table { return t.bus }

func (t *TED) Read8(addr uint16) uint8 {
	t.dataBus = t.bus.Read8(addr)
	return t.dataBus
}

func (t *TED) Peek8(addr uint16) uint8 {
	return t.bus.Peek8(addr)
}

func (t *TED) Write8(addr uint16, val uint8) {
	t.dataBus = val
	t.bus.Write8(addr, val)
}

// DataBus returns the last value seen on the data bus, returned by reads
// of unconnected addresses.
func (t *TED) DataBus() uint8 { return t.dataBus }

// SetCPU replaces the CPU driven by the TED.
func (t *TED) SetCPU(cpu CPU) { t.cpu = cpu }

// SetNTSCCallback sets the function called when FF07 bit 6 changes.
func (t *TED) SetNTSCCallback(fn func(ntsc bool)) { t.ntscCallback = fn }

// SetCPUClockMultiplier sets the number of CPU cycles run per TED
// half-cycle, clamped to 1..100.
func (t *TED) SetCPUClockMultiplier(n int) {
	t.clockMultiplier = min(max(n, 1), 100)
}

// Reset resets the TED registers and internal state. A cold reset also
// reinitializes RAM with the configured pattern.
func (t *TED) Reset(cold bool) {
	if cold {
		t.mem.clearRAM()
	}

	for i, r := range t.regs {
		r.Value = 0
		if i >= 0x15 && i <= 0x19 {
			r.Value = 0x80
		}
	}
	t.KEYLATCH.Value = 0xFF
	t.IRQFLAGS.Value = 0x04

	t.cycleCount = 0
	t.videoColumn = 100
	t.videoLine = 0
	t.savedVideoLine = 0
	t.characterLine = 0
	t.prvCharacterLine = 0
	t.videoInterruptLine = 0
	t.prvVideoInterrupt = false

	t.characterPosition = 0
	t.characterPositionReload = 0
	t.pendingPositionReload = 0
	t.characterColumn = 0
	t.dmaPosition = 0
	t.dmaPositionReload = 0
	t.cursorPosition = 0
	t.flashState = 0

	t.renderWindow = false
	t.incrementingCharacterLine = false
	t.bitmapAddressDisableFlags = 0x03
	t.displayWindow = false
	t.renderingDisplay = false
	t.displayActive = false
	t.tedDisabled = false
	t.videoOutputFlags = FlagHBlank
	t.vsyncFlags = 0

	t.timer1Run, t.timer2Run, t.timer3Run = false, false, false
	t.timer1State, t.timer1ReloadValue = 0, 0
	t.timer2State, t.timer3State = 0, 0

	t.snd.reset()
	t.updateSoundReload()
	t.updateSoundOutputs()

	t.videoBufPos = 0
	t.videoShiftRegisterEnabled = false
	t.shiftRegister = character{}
	t.currentCharacter = character{}
	t.nextCharacter = character{}
	for i := range t.colorRegisters {
		t.colorRegisters[i] = 0x80
	}
	t.horizontalScroll = 0
	t.verticalScroll = 0
	t.attrBuf = [64]uint8{}
	t.attrBufTmp = [64]uint8{}
	t.charBuf = [64]uint8{}

	t.dmaEnabled = false
	t.singleClockModeFlags = 0
	t.dmaFlags = 0
	t.incrementingDMAPosition = false
	t.cpuHaltedFlag = false
	t.dmaFetching = false
	t.delayedEvents = [2]uint32{}

	t.dataBus = 0xFF
	t.dramRefreshAddr = 0

	t.keyboardRowSelect = 0xFFFF
	for i := range t.keyboardMatrix {
		t.keyboardMatrix[i] = 0xFF
	}
	t.userPort = 0xFF
	t.PORTDDR.Value = 0
	t.PORT.Value = 0
	t.ioPortWrite()

	t.mem.hannes = 0
	t.mem.romSelect = 0
	t.mem.romEnabled = true
	t.updateMemoryMaps()

	t.updateVideoMode()
	t.renderer = t.selectRenderer()

	if t.cpu != nil {
		t.cpu.SetIsCPURunning(true)
	}
	t.irq = false
	t.updateIRQ(true)

	log.ModTED.DebugZ("reset").Bool("cold", cold).End()
}

// VideoLine returns the current raster line.
func (t *TED) VideoLine() int { return t.videoLine }

// VideoColumn returns the current half-cycle within the raster line
// (0-113).
func (t *TED) VideoColumn() int { return int(t.videoColumn) }

// IsNTSC reports whether the TED is in NTSC mode (FF07 bit 6).
func (t *TED) IsNTSC() bool { return t.videoOutputFlags&FlagNTSC != 0 }

// Register returns the raw value of TED register n (0x00-0x1F) without
// side effects.
func (t *TED) Register(n int) uint8 { return t.regs[n].Value }

// flush hands the pending video stream to the sink.
func (t *TED) flush() {
	if t.video != nil {
		t.video.VideoOutput(t.videoBuf[:t.videoBufPos])
	}
	t.videoBufPos = 0
}

func (t *TED) playSample(s int16) {
	if t.audio != nil {
		t.audio.PlaySample(s)
	}
}
