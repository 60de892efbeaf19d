package ted

import "testing"

type counter struct{ n int }

func (c *counter) OnCycle() { c.n++ }

func TestCallbacks(t *testing.T) {
	ted := newTestTED(t)
	first, both := &counter{}, &counter{}
	ted.SetCallback(first, CallbackFirstHalf)
	ted.SetCallback(both, CallbackBothHalves)
	ted.step(10)

	if first.n != 10 {
		t.Errorf("first half callback ran %d times, want 10", first.n)
	}
	if both.n != 20 {
		t.Errorf("both halves callback ran %d times, want 20", both.n)
	}

	ted.SetCallback(first, CallbackSecondHalf)
	ted.SetCallback(both, 0)
	ted.step(10)
	if first.n != 20 {
		t.Errorf("callback ran %d times, want 20", first.n)
	}
	if both.n != 20 {
		t.Errorf("removed callback ran %d times, want 20", both.n)
	}
	if len(ted.callbacks) != 1 {
		t.Errorf("got %d callbacks, want 1", len(ted.callbacks))
	}
}

func TestCallbacksWhileDisabled(t *testing.T) {
	ted := newTestTED(t)
	c := &counter{}
	ted.SetCallback(c, CallbackBothHalves)
	ted.Write8(0xFF07, 0x28)
	ted.step(5)
	if c.n != 10 {
		t.Errorf("callback ran %d times, want 10", c.n)
	}
}

func TestTooManyCallbacks(t *testing.T) {
	ted := newTestTED(t)
	for range maxCallbacks {
		ted.SetCallback(&counter{}, CallbackFirstHalf)
	}
	defer func() {
		if recover() == nil {
			t.Error("SetCallback did not panic")
		}
	}()
	ted.SetCallback(&counter{}, CallbackFirstHalf)
}
