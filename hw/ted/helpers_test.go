package ted

import (
	"slices"
	"testing"
)

type mockCPU struct {
	running bool
	irq     bool
	cycles  int
	onRun   func()
}

func (c *mockCPU) Run(n int) {
	c.cycles += n
	if c.onRun != nil {
		c.onRun()
	}
}

func (c *mockCPU) SetIsCPURunning(r bool) { c.running = r }
func (c *mockCPU) IsCPURunning() bool     { return c.running }
func (c *mockCPU) SetIRQ(irq bool)        { c.irq = irq }

type videoRecorder struct {
	flushes [][]byte
}

func (v *videoRecorder) VideoOutput(buf []byte) {
	v.flushes = append(v.flushes, slices.Clone(buf))
}

// stream returns all flushed bytes.
func (v *videoRecorder) stream() []byte {
	return slices.Concat(v.flushes...)
}

type audioRecorder struct {
	samples []int16
}

func (a *audioRecorder) PlaySample(s int16) { a.samples = append(a.samples, s) }

type testTED struct {
	*TED
	cpu   *mockCPU
	video *videoRecorder
	audio *audioRecorder
}

func newTestTED(t *testing.T) *testTED {
	t.Helper()
	cpu := &mockCPU{}
	video := &videoRecorder{}
	audio := &audioRecorder{}
	return &testTED{
		TED:   New(cpu, video, audio),
		cpu:   cpu,
		video: video,
		audio: audio,
	}
}

func (tt *testTED) step(n int) {
	for range n {
		tt.StepCycle()
	}
}

// stepTo steps until the next cycle starts at the given raster position.
func (tt *testTED) stepTo(t *testing.T, line, column int) {
	t.Helper()
	for range PALLines * CyclesPerLine * 2 {
		if tt.videoLine == line && int(tt.videoColumn) == column {
			return
		}
		tt.StepCycle()
	}
	t.Fatalf("raster position %d/%d never reached", line, column)
}
