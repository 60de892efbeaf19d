package ted

import "fmt"

// Callback is a device clocked by the TED, such as a sound expansion or a
// disk drive.
type Callback interface {
	OnCycle()
}

// Callback flags, a callback can be run at either or both half-cycles.
const (
	CallbackFirstHalf  = 1
	CallbackSecondHalf = 2
	CallbackBothHalves = CallbackFirstHalf | CallbackSecondHalf
)

const maxCallbacks = 16

type callback struct {
	cb    Callback
	flags uint8
}

// SetCallback registers cb to be called at the half-cycles selected by
// flags, a callback already registered has its flags replaced. A zero flags
// value removes the callback.
func (t *TED) SetCallback(cb Callback, flags uint8) {
	flags &= CallbackBothHalves
	for i := range t.callbacks {
		if t.callbacks[i].cb != cb {
			continue
		}
		if flags == 0 {
			t.callbacks = append(t.callbacks[:i], t.callbacks[i+1:]...)
		} else {
			t.callbacks[i].flags = flags
		}
		return
	}
	if flags == 0 {
		return
	}
	if len(t.callbacks) >= maxCallbacks {
		panic(fmt.Sprintf("ted: too many callbacks (max %d)", maxCallbacks))
	}
	t.callbacks = append(t.callbacks, callback{cb: cb, flags: flags})
}

func (t *TED) runCallbacks(half uint8) {
	for _, c := range t.callbacks {
		if c.flags&half != 0 {
			c.cb.OnCycle()
		}
	}
}
