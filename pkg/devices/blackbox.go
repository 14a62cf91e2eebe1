// Package devices models the simulated Black Box hardware: the LED matrix,
// the piezo, the buttons and the callback slots of the device root.
package devices

import (
	"encoding/json"
	"fmt"
	"time"

	"blackbox/pkg/grid"
)

const BlackBoxType = "BlackBox"

// Renderer receives one-way notifications about device output.
type Renderer interface {
	// DrawMatrix is called after every matrix change with all lit pixels.
	DrawMatrix(on []int)
	Tone(freq int)
	NoTone()
}

// Callback is a user function stored in a device slot. The device never
// calls it; dispatch belongs to the runtime.
type Callback interface {
	Name() string
}

// Slot indexes the callback slots of the device root.
type Slot int

const (
	SlotUp Slot = iota
	SlotDown
	SlotLeft
	SlotRight
	SlotSelect
	SlotTimeout1
	SlotTimeout2
)

const NumSlots = 7

var slotNames = [NumSlots]string{
	"on_up", "on_down", "on_left", "on_right", "on_select",
	"on_timeout_1", "on_timeout_2",
}

func (s Slot) String() string {
	if s < 0 || int(s) >= NumSlots {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return slotNames[s]
}

// SlotByName maps a callback name such as "on_left" to its slot.
func SlotByName(name string) (Slot, bool) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), true
		}
	}
	return 0, false
}

// SlotForButton returns the slot dispatched when b changes state.
func SlotForButton(b Button) Slot {
	return Slot(b)
}

// BlackBox is the device root.
type BlackBox struct {
	Matrix  *Matrix
	Piezo   *Piezo
	Buttons Buttons

	callbacks [NumSlots]Callback
}

// New wires a device to r. after schedules the piezo auto-stop and must not
// block; it may be nil, in which case timed tones play until stopped.
func New(r Renderer, after func(d time.Duration, fn func())) *BlackBox {
	if r == nil {
		r = nopRenderer{}
	}
	return &BlackBox{
		Matrix: NewMatrix(r.DrawMatrix),
		Piezo:  NewPiezo(r.Tone, r.NoTone, after),
	}
}

// Type returns the device root type name.
func (b *BlackBox) Type() string {
	return BlackBoxType
}

func (b *BlackBox) Callback(s Slot) Callback {
	if s < 0 || int(s) >= NumSlots {
		return nil
	}
	return b.callbacks[s]
}

func (b *BlackBox) SetCallback(s Slot, cb Callback) {
	if s < 0 || int(s) >= NumSlots {
		return
	}
	b.callbacks[s] = cb
}

// State is the serialisable part of the device.
type State struct {
	Rows      [grid.Rows]uint8 `json:"rows"`
	Frequency int              `json:"frequency"`
	Buttons   [NumButtons]bool `json:"buttons"`
}

// SaveState serializes the device state.
func (b *BlackBox) SaveState() []byte {
	st := State{Rows: b.Matrix.Rows(), Frequency: b.Piezo.Frequency(), Buttons: b.Buttons.pressed}
	data, _ := json.Marshal(st)
	return data
}

// LoadState restores the device state. The matrix is redrawn once.
func (b *BlackBox) LoadState(data []byte) error {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	b.Matrix.SetRows(st.Rows)
	b.Buttons.pressed = st.Buttons
	b.Piezo.Tone(st.Frequency, 0)
	return nil
}

type nopRenderer struct{}

func (nopRenderer) DrawMatrix([]int) {}
func (nopRenderer) Tone(int)         {}
func (nopRenderer) NoTone()          {}
