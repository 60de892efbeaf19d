package sid

type envState uint8

const (
	envRelease envState = iota
	envAttack
	envDecaySustain
)

// Rate counter periods, in cycles, for the 16 ADSR rate settings.
var ratePeriods = [16]uint32{
	9,     //   2ms*1.0MHz/256 =     7.81
	32,    //   8ms*1.0MHz/256 =    31.25
	63,    //  16ms*1.0MHz/256 =    62.50
	95,    //  24ms*1.0MHz/256 =    93.75
	149,   //  38ms*1.0MHz/256 =   148.44
	220,   //  56ms*1.0MHz/256 =   218.75
	267,   //  68ms*1.0MHz/256 =   265.63
	313,   //  80ms*1.0MHz/256 =   312.50
	392,   // 100ms*1.0MHz/256 =   390.63
	977,   // 250ms*1.0MHz/256 =   976.56
	1954,  // 500ms*1.0MHz/256 =  1953.13
	3126,  // 800ms*1.0MHz/256 =  3125.00
	3907,  //   1 s*1.0MHz/256 =  3906.25
	11720, //   3 s*1.0MHz/256 = 11718.75
	19532, //   5 s*1.0MHz/256 = 19531.25
	31251, //   8 s*1.0MHz/256 = 31250.00
}

// sustainLevel returns the envelope level of sustain setting n.
func sustainLevel(n uint8) uint8 { return n * 0x11 }

// envelopeGenerator is the ADSR envelope of a voice. The 15-bit rate counter
// wraps at 0x8000, which models the ADSR delay bug: lowering the rate period
// below the counter value makes the counter run a full cycle first.
type envelopeGenerator struct {
	rateCounter uint32
	ratePeriod  uint32
	expCounter  uint32
	expPeriod   uint32
	counter     uint8
	holdZero    bool
	state       envState

	attack, decay, sustain, release uint8
	gate                            bool
}

func (e *envelopeGenerator) reset() {
	e.counter = 0
	e.attack, e.decay, e.sustain, e.release = 0, 0, 0, 0
	e.gate = false
	e.rateCounter = 0
	e.expCounter = 0
	e.expPeriod = 1
	e.state = envRelease
	e.ratePeriod = ratePeriods[e.release]
	e.holdZero = true
}

func (e *envelopeGenerator) writeControl(v uint8) {
	gate := v&0x01 != 0
	switch {
	case !e.gate && gate:
		e.state = envAttack
		e.ratePeriod = ratePeriods[e.attack]
		// the counter can be incremented from zero again
		e.holdZero = false
	case e.gate && !gate:
		e.state = envRelease
		e.ratePeriod = ratePeriods[e.release]
	}
	e.gate = gate
}

func (e *envelopeGenerator) writeAttackDecay(v uint8) {
	e.attack = v >> 4
	e.decay = v & 0x0F
	switch e.state {
	case envAttack:
		e.ratePeriod = ratePeriods[e.attack]
	case envDecaySustain:
		e.ratePeriod = ratePeriods[e.decay]
	}
}

func (e *envelopeGenerator) writeSustainRelease(v uint8) {
	e.sustain = v >> 4
	e.release = v & 0x0F
	if e.state == envRelease {
		e.ratePeriod = ratePeriods[e.release]
	}
}

func (e *envelopeGenerator) readENV() uint8 { return e.counter }

// step performs one envelope counter step, once the rate counter has
// reached its period.
func (e *envelopeGenerator) step() {
	if e.state != envAttack {
		e.expCounter++
		if e.expCounter != e.expPeriod {
			return
		}
	}
	e.expCounter = 0
	if e.holdZero {
		return
	}

	switch e.state {
	case envAttack:
		e.counter++
		if e.counter == 0xFF {
			e.state = envDecaySustain
			e.ratePeriod = ratePeriods[e.decay]
		}
	case envDecaySustain:
		if e.counter != sustainLevel(e.sustain) {
			e.counter--
		}
	case envRelease:
		e.counter--
	}

	// piece-wise linear approximation of an exponential decay
	switch e.counter {
	case 0xFF:
		e.expPeriod = 1
	case 0x5D:
		e.expPeriod = 2
	case 0x36:
		e.expPeriod = 4
	case 0x1A:
		e.expPeriod = 8
	case 0x0E:
		e.expPeriod = 16
	case 0x06:
		e.expPeriod = 30
	case 0x00:
		e.expPeriod = 1
		e.holdZero = true
	}
}

func (e *envelopeGenerator) clock() {
	e.rateCounter++
	if e.rateCounter&0x8000 != 0 {
		e.rateCounter = (e.rateCounter + 1) & 0x7FFF
	}
	if e.rateCounter != e.ratePeriod {
		return
	}
	e.rateCounter = 0
	e.step()
}

func (e *envelopeGenerator) clockDelta(n int) {
	delta := uint32(n)
	// cycles to the next envelope step, wrapping through 0x8000
	rateStep := int32(e.ratePeriod) - int32(e.rateCounter)
	if rateStep <= 0 {
		rateStep += 0x7FFF
	}
	for delta != 0 {
		if delta < uint32(rateStep) {
			e.rateCounter += delta
			if e.rateCounter&0x8000 != 0 {
				e.rateCounter = (e.rateCounter + 1) & 0x7FFF
			}
			return
		}
		e.rateCounter = 0
		delta -= uint32(rateStep)
		e.step()
		rateStep = int32(e.ratePeriod)
	}
}
