package ted

import "plus4/emu/log"

// Timers. Writing the low byte stops a timer, writing the high byte starts
// it. Timer 1 reloads from the last written value.

func (t *TED) ReadT1LO(uint8) uint8 { return uint8(t.timer1State) }
func (t *TED) ReadT1HI(uint8) uint8 { return uint8(t.timer1State >> 8) }
func (t *TED) ReadT2LO(uint8) uint8 { return uint8(t.timer2State) }
func (t *TED) ReadT2HI(uint8) uint8 { return uint8(t.timer2State >> 8) }
func (t *TED) ReadT3LO(uint8) uint8 { return uint8(t.timer3State) }
func (t *TED) ReadT3HI(uint8) uint8 { return uint8(t.timer3State >> 8) }

func (t *TED) WriteT1LO(_, val uint8) {
	t.timer1Run = false
	t.timer1ReloadValue = t.timer1ReloadValue&0xFF00 | int(val)
	t.timer1State = t.timer1State&0xFF00 | int(val)
}

func (t *TED) WriteT1HI(_, val uint8) {
	t.timer1Run = true
	t.timer1ReloadValue = t.timer1ReloadValue&0x00FF | int(val)<<8
	t.timer1State = t.timer1State&0x00FF | int(val)<<8
}

func (t *TED) WriteT2LO(_, val uint8) {
	t.timer2Run = false
	t.cancel(evTimer2Start)
	t.timer2State = t.timer2State&0xFF00 | int(val)
}

func (t *TED) WriteT2HI(_, val uint8) {
	if !t.timer2Run {
		t.scheduleNext(evTimer2Start)
	}
	t.timer2State = t.timer2State&0x00FF | int(val)<<8
}

func (t *TED) WriteT3LO(_, val uint8) {
	t.timer3Run = false
	t.timer3State = t.timer3State&0xFF00 | int(val)
}

func (t *TED) WriteT3HI(_, val uint8) {
	t.timer3Run = true
	t.timer3State = t.timer3State&0x00FF | int(val)<<8
}

// WriteCTRL1 handles FF06: test mode, extended color mode, bitmap mode,
// display enable, 25 rows and vertical scroll.
func (t *TED) WriteCTRL1(old, val uint8) {
	changed := old ^ val
	t.updateVideoMode()
	t.scheduleNext(evSelectRenderer)
	t.scheduleNext(evSetVerticalScroll)

	dmaCheck := changed&0x07 != 0
	if changed&0x18 != 0 && t.videoColumn&0xFE != 98 {
		switch t.savedVideoLine {
		case 0:
			if val&0x10 != 0 && !t.renderWindow {
				t.renderWindow = true
				t.dmaEnabled = true
				if t.videoColumn >= 100 || t.videoColumn < 72 {
					t.singleClockModeFlags |= 0x01
				}
				if (t.videoColumn < 100 || t.videoColumn > 102) && t.bitmapAddressDisableFlags&2 != 0 {
					t.characterLine = 7
					t.prvCharacterLine = 7
					t.CHARLINE.Value |= 0x07
				}
				dmaCheck = true
			}
		default:
			t.updateDisplayWindow(val)
		}
	}

	if !dmaCheck || !t.renderWindow {
		return
	}
	if (uint8(t.savedVideoLine)^val)&0x07 == 0 && t.dmaEnabled {
		switch t.videoColumn {
		case 96, 97:
			t.incrementingCharacterLine = true
		case 98, 99:
		default:
			t.incrementingCharacterLine = true
			if !t.dmaActive() && (t.videoColumn >= 100 || t.videoColumn < 76) {
				t.startDMA()
			}
			t.dmaFlags |= 1
			t.dmaPosition &= 0x3FF
		}
	} else if t.dmaFlags&1 != 0 {
		t.dmaFlags &= 2
		if t.dmaFlags == 0 {
			t.stopDMA()
			t.cpuHaltedFlag = false
			t.dmaFetching = false
			t.cpu.SetIsCPURunning(true)
		}
	}
}

// WriteCTRL2 handles FF07: reverse video disable, NTSC mode, TED disable,
// multicolor mode, 40 columns and horizontal scroll.
func (t *TED) WriteCTRL2(old, val uint8) {
	changed := old ^ val
	wasDisabled := t.tedDisabled
	t.tedDisabled = val&0x20 != 0
	if wasDisabled && !t.tedDisabled && t.videoColumn&1 == 0 {
		t.singleClockModeFlags |= 0x01
	}
	if changed&0x40 != 0 {
		ntsc := val&0x40 != 0
		if ntsc {
			t.videoOutputFlags |= FlagNTSC
		} else {
			t.videoOutputFlags &= 0xFC
		}
		log.ModVideo.InfoZ("video standard changed").Bool("ntsc", ntsc).End()
		if t.ntscCallback != nil {
			t.ntscCallback(ntsc)
		}
	}
	t.updateVideoMode()
	t.scheduleNext(evSelectRenderer)
	t.scheduleNext(evSetHorizontalScroll)
}

// WriteKEYLATCH latches the state of the keyboard rows selected by FD30
// and of the joystick rows selected by the written value.
func (t *TED) WriteKEYLATCH(_, val uint8) {
	mask := t.keyboardRowSelect & (int(val)<<8 | 0xFF)
	latch := uint8(0xFF)
	for i := range 11 {
		if mask&(1<<i) == 0 {
			latch &= t.keyboardMatrix[i]
		}
	}
	t.KEYLATCH.Value = latch
}

func (t *TED) ReadIRQFLAGS(val uint8) uint8 {
	v := val&0x5E | 0x25
	if t.irq {
		v |= 0x80
	}
	return v
}

// WriteIRQFLAGS acknowledges interrupts: bits set in val are cleared.
func (t *TED) WriteIRQFLAGS(old, val uint8) {
	t.IRQFLAGS.Value = old&^val | 0x04
	t.updateIRQ(false)
}

func (t *TED) ReadIRQMASK(val uint8) uint8 { return val | 0xA0 }

func (t *TED) WriteIRQMASK(_, val uint8) {
	t.videoInterruptLine = t.videoInterruptLine&0xFF | int(val&0x01)<<8
	t.checkVideoInterrupt()
	t.updateIRQ(false)
}

func (t *TED) WriteRASTER(_, val uint8) {
	t.videoInterruptLine = t.videoInterruptLine&0x100 | int(val)
	t.checkVideoInterrupt()
}

func (t *TED) ReadCURSORHI(val uint8) uint8 { return val | 0xFC }

func (t *TED) WriteCURSORHI(_, val uint8) {
	t.cursorPosition = t.cursorPosition&0xFF | int(val&0x03)<<8
}

func (t *TED) WriteCURSORLO(_, val uint8) {
	t.cursorPosition = t.cursorPosition&0x300 | int(val)
}

func (t *TED) WriteSND1FREQ(_, _ uint8) { t.updateSoundReload() }
func (t *TED) WriteSND2FREQ(_, _ uint8) { t.updateSoundReload() }

func (t *TED) ReadSND2HI(val uint8) uint8 { return val | 0xFC }

func (t *TED) WriteSND2HI(_, _ uint8) { t.updateSoundReload() }

// WriteSNDCTRL handles FF11: DAC mode, noise and square wave enable, and
// volume.
func (t *TED) WriteSNDCTRL(_, val uint8) {
	t.snd.volume = soundVolumeTable[val&0x0F]
	if val&0x80 != 0 {
		t.snd.state1 = true
		t.snd.state2 = true
	}
	t.updateSoundOutputs()
}

func (t *TED) ReadBMPBASE(val uint8) uint8 { return val | 0xC0 }

// WriteBMPBASE handles FF12: bitmap base, bitmap ROM select and bits 8-9
// of the channel 1 frequency.
func (t *TED) WriteBMPBASE(_, val uint8) {
	t.bitmapBaseAddr = int(val&0x38) << 10
	t.mem.bitmapMap = t.mem.mapIndex(true, val&0x04 != 0)
	t.updateSoundReload()
}

func (t *TED) ReadCHARBASE(val uint8) uint8 {
	val &= 0xFE
	if t.mem.romEnabled {
		val |= 0x01
	}
	return val
}

// WriteCHARBASE handles FF13: character set base and single clock mode.
func (t *TED) WriteCHARBASE(_, val uint8) {
	t.updateVideoMode()
	t.scheduleNext(evSetForceSingleClockFlag)
	t.scheduleNext(evSelectRenderer)
}

func (t *TED) ReadVIDBASE(val uint8) uint8 { return val | 0x07 }

func (t *TED) WriteVIDBASE(_, val uint8) {
	t.attrBaseAddr = int(val&0xF8) << 8
}

func (t *TED) WriteBG0(_, _ uint8)    { t.writeColor(0) }
func (t *TED) WriteBG1(_, _ uint8)    { t.writeColor(1) }
func (t *TED) WriteBG2(_, _ uint8)    { t.writeColor(2) }
func (t *TED) WriteBG3(_, _ uint8)    { t.writeColor(3) }
func (t *TED) WriteBORDER(_, _ uint8) { t.writeColor(4) }

// writeColor handles writes to FF15-FF19. Bit 7 always reads as 1. For one
// half-cycle, the first pixel of each half-cycle uses an invalid color.
func (t *TED) writeColor(n int) {
	t.regs[0x15+n].Value |= 0x80
	t.colorRegisters[n] = 0xFF
	t.scheduleNext(evSetColorRegister0 + n)
}

func (t *TED) ReadCHARPOSHI(val uint8) uint8 { return val | 0xFC }

func (t *TED) WriteCHARPOSHI(_, val uint8) {
	t.pendingPositionReload = t.pendingPositionReload&0xFF | int(val&0x03)<<8
	t.scheduleNext(evUpdateCharPosReloadRegisters)
}

func (t *TED) WriteCHARPOSLO(_, val uint8) {
	t.pendingPositionReload = t.pendingPositionReload&0x300 | int(val)
	t.scheduleNext(evUpdateCharPosReloadRegisters)
}

func (t *TED) ReadLINEHI(val uint8) uint8 { return val | 0xFE }

func (t *TED) WriteLINEHI(_, val uint8) {
	t.setVideoLine(t.videoLine&0xFF | int(val&0x01)<<8)
}

func (t *TED) WriteLINELO(_, val uint8) {
	t.setVideoLine(t.videoLine&0x100 | int(val))
}

func (t *TED) setVideoLine(line int) {
	t.videoLine = line
	t.LINEHI.Value = uint8(line>>8) & 0x01
	t.LINELO.Value = uint8(line)
	t.cancel(evIncrementVideoLineCycle2)
	t.cancel(evUpdateVideoLineRegisters)
	t.checkDMAPositionReset()
	t.checkVideoInterrupt()
}

func (t *TED) ReadCOLUMN(uint8) uint8 { return t.videoColumn << 1 }

func (t *TED) WriteCOLUMN(_, val uint8) {
	// pending register updates are applied before the jump
	for _, ev := range [...]int{evUpdateVideoLineRegisters, evUpdateVerticalSubRegister} {
		if t.isPending(ev) {
			t.cancel(ev)
			t.runEvent(ev)
		}
	}
	col := ((val ^ 0xFF) & 0xFC) >> 1
	if col >= NumColumns {
		col -= NumColumns & 0xFE
	}
	t.videoColumn = t.videoColumn&1 | col
}

func (t *TED) ReadCHARLINE(val uint8) uint8 { return val | 0x80 }

func (t *TED) WriteCHARLINE(_, val uint8) {
	t.characterLine = val & 0x07
}
