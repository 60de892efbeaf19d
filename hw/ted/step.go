package ted

// StepCycle runs one single clock cycle (two half-cycles) of the TED.
func (t *TED) StepCycle() {
	if t.videoBufPos >= flushThreshold {
		t.flush()
	}
	if t.stepFirstHalf() {
		t.stepSecondHalf()
	}
}

// stepFirstHalf runs the first half-cycle, it returns false if the TED is
// disabled (FF07 bit 5) and the cycle is over.
func (t *TED) stepFirstHalf() bool {
	t.runCallbacks(CallbackFirstHalf)
	t.runEvents()

	if t.tedDisabled {
		t.stepDisabled()
		return false
	}

	t.updateColumn()

	if t.incrementingDMAPosition {
		t.fetchDMA()
	}

	if !t.cpuHaltedFlag {
		t.cpu.Run(t.clockMultiplier)
	}

	t.render(0)
	t.updateTimers1()
	t.videoColumn |= 1
	return true
}

func (t *TED) stepSecondHalf() {
	t.runCallbacks(CallbackSecondHalf)
	t.runEvents()

	if t.singleClockModeFlags == 0 && !t.cpuHaltedFlag {
		t.cpu.Run(t.clockMultiplier)
	}

	t.render(4)

	if t.videoShiftRegisterEnabled {
		t.currentCharacter = t.nextCharacter
		t.nextCharacter.bitmap = 0
	}
	if t.renderingDisplay {
		t.fetchBitmap()
	}
	t.characterColumn = (t.characterColumn + 1) & 0x3F

	t.updateTimers2()
	if t.cycleCount == 0 {
		t.calculateSoundOutput()
	}

	if t.videoColumn == NumColumns-1 {
		t.videoColumn = 0
	} else {
		t.videoColumn++
	}
	t.cycleCount = (t.cycleCount + 1) & 3
}

// stepDisabled runs a cycle with the TED disabled: the CPU runs at full
// speed, and the video output is blanked.
func (t *TED) stepDisabled() {
	if t.cpuHaltedFlag || t.dmaFetching || !t.cpu.IsCPURunning() {
		t.stopDMA()
		t.cpuHaltedFlag = false
		t.dmaFetching = false
		t.cpu.SetIsCPURunning(true)
	}
	t.cpu.Run(t.clockMultiplier)
	t.runCallbacks(CallbackSecondHalf)
	t.cpu.Run(t.clockMultiplier)

	if t.cycleCount == 0 {
		t.playSample(0)
	}
	flags := t.videoOutputFlags&FlagNTSC | FlagHBlank | FlagVBlank
	buf := t.videoBuf[t.videoBufPos:]
	buf[0], buf[1], buf[2], buf[3] = flags, 0, flags, 0
	t.videoBufPos += 4
	t.cycleCount = (t.cycleCount + 1) & 3
}

// updateColumn runs the per-column actions of the video state machine at
// the first half-cycle of even columns.
func (t *TED) updateColumn() {
	switch t.videoColumn {
	case 0:
		if t.displayWindow && t.CTRL2.Value&0x08 != 0 {
			t.displayActive = true
		}
	case 2:
		if t.displayWindow && t.CTRL2.Value&0x08 == 0 {
			t.displayActive = true
		}
	case 38:
		// start of equalization pulse
		if t.vsyncFlags != 0 {
			t.videoOutputFlags = t.videoOutputFlags&0x7F | ^t.vsyncFlags&0x80
		}
	case 42:
		if t.vsyncFlags != 0 {
			t.videoOutputFlags = t.videoOutputFlags&0x7F | t.vsyncFlags&0x80
		}
	case 70:
		t.scheduleNext(evLatchDMAPosition)
	case 72:
		t.scheduleLater(evDRAMRefreshOn)
	case 74:
		t.scheduleLater(evSingleClockModeOn)
		t.scheduleNext(evStopIncrementingDMAPosition)
		t.scheduleNext(evLatchCharacterPosition)
	case 76:
		t.bitmapAddressDisableFlags |= 0x01
		t.renderingDisplay = false
		t.stopDMA()
		t.cpuHaltedFlag = false
		t.dmaFetching = false
		t.scheduleNext(evStopDMADelay1)
	case 78:
		if t.CTRL2.Value&0x08 == 0 {
			t.displayActive = false
		}
	case 80:
		if t.CTRL2.Value&0x08 != 0 {
			t.displayActive = false
		}
		t.videoShiftRegisterEnabled = t.displayActive
	case 84:
		t.scheduleLater(evSingleClockModeOff)
	case 88:
		t.videoOutputFlags |= FlagHBlank
		if t.videoLine == 205 {
			t.scheduleNext(evIncrementFlashCounter)
		}
	case 90:
		if t.vsyncFlags == 0 {
			t.videoOutputFlags |= FlagHSync
		}
	case 94:
		if t.vsyncFlags != 0 {
			t.videoOutputFlags = t.videoOutputFlags&0x7F | ^t.vsyncFlags&0x80
		}
	case 96:
		if t.renderWindow {
			if (uint8(t.savedVideoLine)^t.CTRL1.Value)&0x07 != 0 {
				t.dmaFlags = 0
			} else if t.dmaEnabled {
				t.dmaFlags = 2
			}
		}
	case 98:
		t.scheduleNext(evIncrementVideoLine)
	case 100:
		if t.videoLine == 205 {
			t.dmaPosition = 0x3FF
			t.dmaPositionReload = 0x3FF
			t.dmaFlags = 0
		}
		switch t.savedVideoLine {
		case 203:
			t.dmaEnabled = false
		case 204:
			t.renderWindow = false
			t.incrementingCharacterLine = false
			t.bitmapAddressDisableFlags |= 0x02
		}
		if t.savedVideoLine != 204 && t.renderWindow {
			t.scheduleLater(evSingleClockModeOn)
			if t.dmaFlags&2 != 0 {
				t.bitmapAddressDisableFlags &= 0x01
			}
		}
		if t.incrementingCharacterLine {
			t.scheduleNext(evIncrementVerticalSub)
		}
		if t.vsyncFlags != 0 {
			t.videoOutputFlags = t.videoOutputFlags&0x7F | t.vsyncFlags&0x80
		}
	case 102:
		t.scheduleNext(evInitializeDisplay)
		if t.renderWindow {
			if uint8(t.savedVideoLine)&0x07 == t.verticalScroll && t.dmaEnabled {
				t.incrementingCharacterLine = true
				t.dmaFlags |= 1
				t.dmaPosition &= 0x3FF
				t.startDMA()
			} else if t.dmaFlags&2 != 0 {
				t.dmaPosition |= 0x400
				t.startDMA()
			}
		}
		t.characterColumn = 0x3C
	case 104:
		t.videoOutputFlags &= 0xF5 // end of burst
	case 106:
		t.videoOutputFlags &= 0xDD // end of horizontal blanking
	case 108:
		t.dmaPosition = t.dmaPosition&0x400 | t.dmaPositionReload
		t.incrementingDMAPosition = t.renderWindow
	case 110:
		if t.renderWindow || t.displayWindow || t.displayActive {
			t.bitmapAddressDisableFlags &= 0x02
			t.renderingDisplay = true
		}
		t.characterPosition = t.characterPositionReload
	case 112:
		if t.renderWindow || t.displayWindow || t.displayActive {
			t.renderingDisplay = true
			t.videoShiftRegisterEnabled = true
		}
	}
}

// fetchDMA reads one attribute or character byte while the CPU is halted.
func (t *TED) fetchDMA() {
	col := t.characterColumn
	if (t.cpuHaltedFlag || t.dmaFetching) && col < 40 {
		if t.dmaFetching {
			t.readMemory(uint16(t.attrBaseAddr|t.dmaPosition), t.mem.dmaMap)
		}
		if t.dmaFlags&1 != 0 {
			t.attrBufTmp[col] = t.dataBus
		}
		if t.dmaFlags&2 != 0 {
			t.charBuf[col] = t.dataBus
		}
	}
	if t.videoColumn != 74 {
		t.dmaPosition = t.dmaPosition&0x400 | (t.dmaPosition+1)&0x3FF
	}
}

// fetchBitmap reads the bitmap byte of the next character.
func (t *TED) fetchBitmap() {
	col := t.characterColumn
	next := &t.nextCharacter
	next.attr = t.attrBuf[col]
	next.char = t.charBuf[col]

	if t.bitmapAddressDisableFlags == 0 {
		var addr int
		switch {
		case t.CTRL1.Value&0x80 != 0:
			// test mode
			addr = int(t.attrBufTmp[col])<<3 | 0xF800
		case t.bitmapMode:
			addr = int(t.characterLine) | t.bitmapBaseAddr | t.characterPosition<<3
		default:
			addr = int(t.characterLine) | t.charsetBaseAddr | int(next.char&t.characterMask)<<3
		}
		if addr >= 0x8000 || t.BMPBASE.Value&0x04 == 0 {
			t.readMemory(uint16(addr), t.mem.bitmapMap)
		}
	} else if t.singleClockModeFlags != 0 {
		t.readMemory(0xFFFF, t.mem.dmaMap)
	}
	next.bitmap = t.dataBus

	next.flags = 0
	if t.characterPosition == t.cursorPosition {
		next.flags = 0xF0
	}
	if t.videoMode&0x08 == 0 && !t.bitmapMode {
		next.flags |= 0x08
	}
	t.attrBuf[col] = t.attrBufTmp[col]

	if t.bitmapAddressDisableFlags == 0 {
		t.characterPosition = (t.characterPosition + 1) & 0x3FF
	} else {
		t.characterPosition = 0x3FF
	}
}

func (t *TED) updateTimers1() {
	if t.timer1Run {
		if t.timer1State == 0 {
			t.IRQFLAGS.Value |= 0x08
			t.timer1State = t.timer1ReloadValue
		}
		t.timer1State = (t.timer1State - 1) & 0xFFFF
	}
	if t.timer2State == 0 && t.timer2Run {
		t.IRQFLAGS.Value |= 0x10
	}
	if t.timer3State == 0 && t.timer3Run {
		t.IRQFLAGS.Value |= 0x40
	}
	t.updateIRQ(false)
}

func (t *TED) updateTimers2() {
	if t.timer2Run {
		t.timer2State = (t.timer2State - 1) & 0xFFFF
	}
	if t.timer3Run {
		t.timer3State = (t.timer3State - 1) & 0xFFFF
	}
}

// updateIRQ recomputes the interrupt line and signals changes to the CPU.
func (t *TED) updateIRQ(force bool) {
	irq := t.IRQFLAGS.Value&t.IRQMASK.Value&0x5A != 0
	if irq != t.irq || force {
		t.irq = irq
		if t.cpu != nil {
			t.cpu.SetIRQ(irq)
		}
	}
}
