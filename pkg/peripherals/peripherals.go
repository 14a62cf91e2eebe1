// Package peripherals holds the renderers a run can draw on: recorders for
// tests and batch runs, a text matrix, a trace log, and the message sender
// used by the browser host.
package peripherals

import "blackbox/pkg/devices"

// Fanout forwards every notification to each renderer in order.
type Fanout []devices.Renderer

func (f Fanout) DrawMatrix(on []int) {
	for _, r := range f {
		r.DrawMatrix(on)
	}
}

func (f Fanout) Tone(freq int) {
	for _, r := range f {
		r.Tone(freq)
	}
}

func (f Fanout) NoTone() {
	for _, r := range f {
		r.NoTone()
	}
}
