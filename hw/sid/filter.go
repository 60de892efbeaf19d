package sid

import "math"

// cutoff curve control point: filter cutoff register value, frequency in Hz.
type fcPoint struct{ fc, f0 int }

// Control points measured by reSID 0.16. Repeated points are curve end
// points and discontinuities.
var fcPoints6581 = []fcPoint{
	{0, 220}, {0, 220}, {128, 230}, {256, 250}, {384, 300}, {512, 420},
	{640, 780}, {768, 1600}, {832, 2300}, {896, 3200}, {960, 4300},
	{992, 5000}, {1008, 5400}, {1016, 5700}, {1023, 6000}, {1023, 6000},
	{1024, 4600}, {1024, 4600}, {1032, 4800}, {1056, 5300}, {1088, 6000},
	{1120, 6600}, {1152, 7200}, {1280, 9500}, {1408, 12000}, {1536, 14500},
	{1664, 16000}, {1792, 17100}, {1920, 17700}, {2047, 18000}, {2047, 18000},
}

var fcPoints8580 = []fcPoint{
	{0, 0}, {0, 0}, {128, 800}, {256, 1600}, {384, 2500}, {512, 3300},
	{640, 4100}, {768, 4800}, {896, 5600}, {1024, 6500}, {1152, 7500},
	{1280, 8400}, {1408, 9200}, {1536, 9800}, {1664, 10500}, {1792, 11000},
	{1920, 11700}, {2047, 12500}, {2047, 12500},
}

var (
	f0Table6581 = interpolateCurve(fcPoints6581)
	f0Table8580 = interpolateCurve(fcPoints8580)
)

// interpolateCurve builds the 2048-entry cutoff table with a cubic spline
// through the control points. The slope at each point is the one of the
// line joining its neighbours, or is derived from the segment itself at
// repeated points.
func interpolateCurve(pts []fcPoint) *[2048]int {
	var tbl [2048]int
	for i := 0; i+3 < len(pts); i++ {
		p0, p1, p2, p3 := pts[i], pts[i+1], pts[i+2], pts[i+3]
		if p1.fc == p2.fc {
			continue
		}
		x0, x1, x2, x3 := float64(p0.fc), float64(p1.fc), float64(p2.fc), float64(p3.fc)
		y0, y1, y2, y3 := float64(p0.f0), float64(p1.f0), float64(p2.f0), float64(p3.f0)
		slope := (y2 - y1) / (x2 - x1)

		var k1, k2 float64
		switch {
		case x0 == x1 && x2 == x3:
			k1, k2 = slope, slope
		case x0 == x1:
			k2 = (y3 - y1) / (x3 - x1)
			k1 = (3*slope - k2) / 2
		case x2 == x3:
			k1 = (y2 - y0) / (x2 - x0)
			k2 = (3*slope - k1) / 2
		default:
			k1 = (y2 - y0) / (x2 - x0)
			k2 = (y3 - y1) / (x3 - x1)
		}

		a, b, c, d := cubicCoefficients(x1, y1, x2, y2, k1, k2)
		for x := p1.fc; x <= p2.fc; x++ {
			fx := float64(x)
			y := ((a*fx+b)*fx+c)*fx + d
			tbl[x] = int(max(y, 0))
		}
	}
	return &tbl
}

// cubicCoefficients returns the coefficients of the cubic going through
// (x1, y1) and (x2, y2) with slopes k1 and k2.
func cubicCoefficients(x1, y1, x2, y2, k1, k2 float64) (a, b, c, d float64) {
	dx, dy := x2-x1, y2-y1
	a = ((k1 + k2) - 2*dy/dx) / (dx * dx)
	b = ((k2-k1)/dx - 3*(x1+x2)*a) / 2
	c = k1 - (3*x1*a+2*b)*x1
	d = y1 - ((x1*a+b)*x1+c)*x1
	return a, b, c, d
}

// filter is the SID state variable filter, a two integrator loop with
// cutoff frequency w0 and resonance Q.
type filter struct {
	enabled bool

	fc        uint16 // 11 bits
	res       uint8
	filt      uint8
	voice3off bool
	hpBpLp    uint8
	vol       uint8
	voiceMask uint8

	mixerDC int
	f0      *[2048]int
	bias    int // 6581 cutoff table offset

	// state of the filter
	vhp, vbp, vlp, vnf int
	extIn            int

	w0, w0Ceil1, w0CeilDt int
	q1024Div              int // 1024/Q
}

func newFilter() *filter {
	f := &filter{enabled: true, voiceMask: 0x0F}
	f.setChipModel(MOS6581)
	f.reset()
	return f
}

func (f *filter) setChipModel(m ChipModel) {
	if m == MOS6581 {
		// the mixer has a small input DC offset
		f.mixerDC = (-0xFFF * 0xFF / 18) >> 7
		f.f0 = f0Table6581
	} else {
		f.mixerDC = 0
		f.f0 = f0Table8580
	}
	f.setW0()
	f.setQ()
}

func (f *filter) reset() {
	f.fc = 0
	f.res = 0
	f.filt = 0
	f.voice3off = false
	f.hpBpLp = 0
	f.vol = 0
	f.vhp, f.vbp, f.vlp, f.vnf = 0, 0, 0, 0
	f.setW0()
	f.setQ()
}

func (f *filter) writeFCLo(v uint8) {
	f.fc = f.fc&0x7F8 | uint16(v&0x07)
	f.setW0()
}

func (f *filter) writeFCHi(v uint8) {
	f.fc = uint16(v)<<3&0x7F8 | f.fc&0x007
	f.setW0()
}

func (f *filter) writeResFilt(v uint8) {
	f.res = v >> 4
	f.setQ()
	f.filt = v & 0x0F
}

func (f *filter) writeModeVol(v uint8) {
	f.voice3off = v&0x80 != 0
	f.hpBpLp = v >> 4 & 0x07
	f.vol = v & 0x0F
}

func (f *filter) modeVol() uint8 {
	v := f.hpBpLp<<4 | f.vol
	if f.voice3off {
		v |= 0x80
	}
	return v
}

// adjustBias shifts the 6581 cutoff curve by bias (in units of 256 cutoff
// register steps).
func (f *filter) adjustBias(bias float64) {
	f.bias = int(math.Round(bias * 256))
	f.setW0()
}

func (f *filter) setW0() {
	idx := int(f.fc)
	if f.f0 == f0Table6581 {
		idx = min(max(idx+f.bias, 0), 2047)
	}
	// multiply with 1.048576 to facilitate division by 1 000 000 by right-
	// shifting 20 times (2 ^ 20 = 1048576).
	f.w0 = w0(f.f0[idx])

	// limit f0 to 16kHz to keep 1 cycle filter stable.
	f.w0Ceil1 = min(f.w0, w0(16000))

	// limit f0 to 4kHz to keep delta_t cycle filter stable.
	f.w0CeilDt = min(f.w0, w0(4000))
}

func w0(f0 int) int { return int(2 * math.Pi * float64(f0) * 1.048576) }

func (f *filter) setQ() {
	f.q1024Div = int(1024.0 / (0.707 + 1.0*float64(f.res)/0x0F))
}

// input sets the external audio input.
func (f *filter) input(sample int16) {
	f.extIn = (int(sample) << 4) * 3
}

// route scales the voice outputs and splits them between the filter input
// and the bypass path.
func (f *filter) route(v1, v2, v3 int) (vi int) {
	v1 >>= 7
	v2 >>= 7
	// voice 3 is only silenced if it is not routed through the filter
	if f.voice3off && f.filt&0x04 == 0 {
		v3 = 0
	} else {
		v3 >>= 7
	}
	ext := f.extIn >> 7

	in := [4]int{v1, v2, v3, ext}
	filt := f.filt & f.voiceMask
	f.vnf = 0
	for i, v := range in {
		if f.voiceMask&(1<<i) == 0 {
			continue
		}
		if f.enabled && filt&(1<<i) != 0 {
			vi += v
		} else {
			f.vnf += v
		}
	}
	return vi
}

func (f *filter) clock(v1, v2, v3 int) {
	vi := f.route(v1, v2, v3)
	if !f.enabled {
		f.vhp, f.vbp, f.vlp = 0, 0, 0
		return
	}

	dVbp := f.w0Ceil1 * f.vhp >> 20
	dVlp := f.w0Ceil1 * f.vbp >> 20
	f.vbp -= dVbp
	f.vlp -= dVlp
	f.vhp = (f.vbp * f.q1024Div >> 10) - f.vlp - vi
}

func (f *filter) clockDelta(n int, v1, v2, v3 int) {
	vi := f.route(v1, v2, v3)
	if !f.enabled {
		f.vhp, f.vbp, f.vlp = 0, 0, 0
		return
	}

	// maximum delta cycles for the filter to work satisfactorily under
	// current cutoff frequency and resonance constraints is approximately 8.
	step := 8
	for n > 0 {
		if n < step {
			step = n
		}
		w0Dt := f.w0CeilDt * step >> 6
		dVbp := w0Dt * f.vhp >> 14
		dVlp := w0Dt * f.vbp >> 14
		f.vbp -= dVbp
		f.vlp -= dVlp
		f.vhp = (f.vbp * f.q1024Div >> 10) - f.vlp - vi
		n -= step
	}
}

func (f *filter) output() int {
	if !f.enabled {
		return (f.vnf + f.mixerDC) * int(f.vol)
	}
	var vf int
	if f.hpBpLp&0x1 != 0 {
		vf += f.vlp
	}
	if f.hpBpLp&0x2 != 0 {
		vf += f.vbp
	}
	if f.hpBpLp&0x4 != 0 {
		vf += f.vhp
	}
	return (f.vnf + vf + f.mixerDC) * int(f.vol)
}
