package ted

import "math/bits"

// Delayed events. Each one is a bit in the two event words, the first word
// is drained at the beginning of the first half-cycle, the second one at
// the beginning of the second half-cycle.
const (
	evDRAMRefreshOn = iota
	evSingleClockModeOff
	evIncrementVideoLine
	evUpdateVideoLineRegisters
	evStopIncrementingDMAPosition
	evLatchDMAPosition
	evLatchCharacterPosition
	evInitializeDisplay
	evIncrementVideoLineCycle2
	evIncrementVerticalSub
	evUpdateVerticalSubRegister
	evSetColorRegister0
	evSetColorRegister1
	evSetColorRegister2
	evSetColorRegister3
	evSetColorRegister4
	evSingleClockModeOn
	evDMACycle1
	evDMACycle2
	evDMACycle3
	evDMACycle4
	evDMACycle5
	evDMACycle6
	evStopDMADelay1
	evTimer2Start
	evSetVerticalScroll
	evSetHorizontalScroll
	evSelectRenderer
	evSetForceSingleClockFlag
	evUpdateCharPosReloadRegisters
	evResetVerticalSub
	evIncrementFlashCounter
)

// all DMA cycle events, and the delayed CPU restart.
const dmaEventMask = 0x7F << evDMACycle1

var eventNames = [32]string{
	"DRAMRefreshOn", "SingleClockModeOff", "IncrementVideoLine",
	"UpdateVideoLineRegisters", "StopIncrementingDMAPosition",
	"LatchDMAPosition", "LatchCharacterPosition", "InitializeDisplay",
	"IncrementVideoLineCycle2", "IncrementVerticalSub",
	"UpdateVerticalSubRegister", "SetColorRegister0", "SetColorRegister1",
	"SetColorRegister2", "SetColorRegister3", "SetColorRegister4",
	"SingleClockModeOn", "DMACycle1", "DMACycle2", "DMACycle3", "DMACycle4",
	"DMACycle5", "DMACycle6", "StopDMADelay1", "Timer2Start",
	"SetVerticalScroll", "SetHorizontalScroll", "SelectRenderer",
	"SetForceSingleClockFlag", "UpdateCharPosReloadRegisters",
	"ResetVerticalSub", "IncrementFlashCounter",
}

// secondHalf reports whether the current half-cycle is the second one.
func (t *TED) secondHalf() int { return int(t.videoColumn & 1) }

// scheduleNext schedules ev for the next half-cycle.
func (t *TED) scheduleNext(ev int) {
	t.delayedEvents[t.secondHalf()^1] |= 1 << ev
}

// scheduleLater schedules ev two half-cycles from now, that is at the same
// half of the next cycle.
func (t *TED) scheduleLater(ev int) {
	t.delayedEvents[t.secondHalf()] |= 1 << ev
}

func (t *TED) isPending(ev int) bool {
	return (t.delayedEvents[0]|t.delayedEvents[1])&(1<<ev) != 0
}

func (t *TED) cancel(ev int) {
	t.delayedEvents[0] &^= 1 << ev
	t.delayedEvents[1] &^= 1 << ev
}

// runEvents drains the event queue of the current half-cycle. Events
// scheduled by handlers are never run by the same call.
func (t *TED) runEvents() {
	q := t.secondHalf()
	pending := t.delayedEvents[q]
	t.delayedEvents[q] = 0
	for pending != 0 {
		ev := bits.TrailingZeros32(pending)
		pending &= pending - 1
		t.runEvent(ev)
	}
}

func (t *TED) runEvent(ev int) {
	switch ev {
	case evDRAMRefreshOn:
		t.singleClockModeFlags |= 0x80
	case evSingleClockModeOff:
		t.singleClockModeFlags &= 0x02
	case evIncrementVideoLine:
		t.incrementVideoLine()
	case evUpdateVideoLineRegisters:
		t.LINEHI.Value = uint8(t.videoLine>>8) & 0x01
		t.LINELO.Value = uint8(t.videoLine)
	case evStopIncrementingDMAPosition:
		t.incrementingDMAPosition = false
	case evLatchDMAPosition:
		if t.renderWindow && t.characterLine == 6 {
			pos := t.dmaPosition
			if t.incrementingDMAPosition {
				pos++
			}
			t.dmaPositionReload = pos & 0x3FF
		}
	case evLatchCharacterPosition:
		if t.bitmapAddressDisableFlags == 0 && t.prvCharacterLine == 6 &&
			!t.isPending(evUpdateCharPosReloadRegisters) {
			t.characterPositionReload = (t.characterPosition + 1) & 0x3FF
		}
	case evInitializeDisplay:
		if t.savedVideoLine == 0 && t.renderWindow && t.bitmapAddressDisableFlags&2 != 0 {
			t.scheduleNext(evResetVerticalSub)
		}
	case evIncrementVideoLineCycle2:
		t.videoLine = t.savedVideoLine
		t.checkDMAPositionReset()
		t.checkVideoInterrupt()
		t.scheduleNext(evUpdateVideoLineRegisters)
	case evIncrementVerticalSub:
		t.characterLine = (t.characterLine + 1) & 7
		t.scheduleNext(evUpdateVerticalSubRegister)
	case evUpdateVerticalSubRegister:
		t.CHARLINE.Value = t.CHARLINE.Value&0xF8 | t.characterLine
	case evSetColorRegister0, evSetColorRegister1, evSetColorRegister2,
		evSetColorRegister3, evSetColorRegister4:
		n := ev - evSetColorRegister0
		t.colorRegisters[n] = t.regs[0x15+n].Value
	case evSingleClockModeOn:
		t.singleClockModeFlags |= 0x01
	case evDMACycle1:
		t.singleClockModeFlags |= 0x01
		t.cpuHaltedFlag = true
		t.scheduleNext(evDMACycle2)
	case evDMACycle2:
		t.cpu.SetIsCPURunning(false)
		t.scheduleNext(evDMACycle3)
	case evDMACycle3:
		t.scheduleNext(evDMACycle4)
	case evDMACycle4:
		t.scheduleNext(evDMACycle5)
	case evDMACycle5:
		t.scheduleNext(evDMACycle6)
	case evDMACycle6:
		t.cpuHaltedFlag = false
		t.dmaFetching = true
	case evStopDMADelay1:
		t.cpu.SetIsCPURunning(true)
	case evTimer2Start:
		t.timer2Run = true
	case evSetVerticalScroll:
		t.verticalScroll = t.CTRL1.Value & 0x07
	case evSetHorizontalScroll:
		t.horizontalScroll = t.CTRL2.Value & 0x07
	case evSelectRenderer:
		t.renderer = t.selectRenderer()
	case evSetForceSingleClockFlag:
		t.singleClockModeFlags = t.singleClockModeFlags&0xFD | t.CHARBASE.Value&0x02
	case evUpdateCharPosReloadRegisters:
		t.characterPositionReload = t.pendingPositionReload
	case evResetVerticalSub:
		t.characterLine = 7
		t.prvCharacterLine = 7
		t.CHARLINE.Value |= 0x07
	case evIncrementFlashCounter:
		t.CHARLINE.Value = (t.CHARLINE.Value & 0x7F) + 0x08
		if t.CHARLINE.Value&0x80 != 0 {
			t.flashState ^= 0xFF
		}
	}
}

// startDMA starts the 6 half-cycle sequence that halts the CPU before
// attribute or character fetches.
func (t *TED) startDMA() {
	t.delayedEvents[0] &^= dmaEventMask
	t.delayedEvents[1] &^= dmaEventMask
	t.scheduleNext(evDMACycle1)
}

func (t *TED) stopDMA() {
	t.delayedEvents[0] &^= dmaEventMask
	t.delayedEvents[1] &^= dmaEventMask
}

// dmaActive reports whether a DMA is in progress or pending.
func (t *TED) dmaActive() bool {
	pending := (t.delayedEvents[0] | t.delayedEvents[1]) & dmaEventMask
	return t.cpuHaltedFlag || t.dmaFetching || pending != 0
}

// incrementVideoLine runs at the second half of column 98: it computes the
// next line number and updates the sync and display window flags. The
// visible line counter itself changes one half-cycle later.
func (t *TED) incrementVideoLine() {
	lastLine := PALLines - 1
	if t.IsNTSC() {
		lastLine = NTSCLines - 1
	}
	if t.savedVideoLine != lastLine {
		t.savedVideoLine = (t.videoLine + 1) & 0x1FF
	} else {
		t.savedVideoLine = 0
	}

	// vblank and equalization start, vsync start, vsync end, equalization
	// end, vblank end
	sync := [5]int{251, 254, 257, 260, 269}
	if t.IsNTSC() {
		sync = [5]int{226, 229, 232, 235, 244}
		t.videoOutputFlags &= 0xF9
	} else {
		t.videoOutputFlags = t.videoOutputFlags&0xF9 | uint8(t.savedVideoLine&1)<<2
	}
	switch t.savedVideoLine {
	case sync[0]:
		t.videoOutputFlags |= FlagVBlank
		t.vsyncFlags |= 0x40
	case sync[1]:
		t.videoOutputFlags |= FlagVSync
		t.vsyncFlags |= 0x80
	case sync[2]:
		t.videoOutputFlags &^= FlagVSync | FlagPixels
		t.vsyncFlags &= 0x40
	case sync[3]:
		t.vsyncFlags &= 0x80
	case sync[4]:
		t.videoOutputFlags &^= FlagVBlank | FlagPixels
	}

	if t.savedVideoLine == 0 {
		t.characterPosition = 0
		t.characterPositionReload = 0
	}
	t.prvCharacterLine = t.characterLine

	if t.vsyncFlags == 0 {
		t.videoOutputFlags &= 0x7D // end of horizontal sync
	}
	if t.videoOutputFlags&FlagVBlank == 0 {
		t.videoOutputFlags |= FlagBurst
	}

	if t.CTRL1.Value&0x10 != 0 && t.savedVideoLine == 0 {
		t.renderWindow = true
		t.dmaEnabled = true
	}
	t.updateDisplayWindow(t.CTRL1.Value)

	t.scheduleNext(evIncrementVideoLineCycle2)
}

// updateDisplayWindow opens or closes the display window on its first and
// last line, for 24 or 25 rows.
func (t *TED) updateDisplayWindow(ctrl1 uint8) {
	switch t.savedVideoLine {
	case 4:
		if ctrl1&0x18 == 0x18 {
			t.displayWindow = true
		}
	case 8:
		if ctrl1&0x18 == 0x10 {
			t.displayWindow = true
		}
	case 200:
		if ctrl1&0x08 == 0 {
			t.displayWindow = false
		}
	case 204:
		if ctrl1&0x08 != 0 {
			t.displayWindow = false
		}
	}
}

func (t *TED) checkDMAPositionReset() {
	if t.videoLine == 205 && !t.incrementingDMAPosition {
		t.dmaPositionReload = 0x3FF
	}
}

// checkVideoInterrupt sets the raster interrupt flag on a match of the
// current line with the interrupt line.
func (t *TED) checkVideoInterrupt() {
	if t.videoLine != t.videoInterruptLine {
		t.prvVideoInterrupt = false
		return
	}
	if !t.prvVideoInterrupt {
		t.prvVideoInterrupt = true
		t.IRQFLAGS.Value |= 0x02
		t.updateIRQ(false)
	}
}
