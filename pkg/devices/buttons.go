package devices

import "fmt"

// Button identifies one of the five device buttons. The values match the
// BUTTON_* constants of the device header.
type Button int

const (
	Up Button = iota
	Down
	Left
	Right
	Select
)

// NumButtons is the number of device buttons.
const NumButtons = 5

var buttonNames = [NumButtons]string{"up", "down", "left", "right", "select"}

func (b Button) String() string {
	if b < 0 || int(b) >= NumButtons {
		return fmt.Sprintf("Button(%d)", int(b))
	}
	return buttonNames[b]
}

// ParseButton maps "up", "down", "left", "right" or "select" to a Button.
func ParseButton(name string) (Button, error) {
	for i, n := range buttonNames {
		if n == name {
			return Button(i), nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", name)
}

// Buttons holds the pressed state of every button.
type Buttons struct {
	pressed [NumButtons]bool
}

// Set records a transition and reports whether the state changed.
func (b *Buttons) Set(btn Button, pressed bool) bool {
	if btn < 0 || int(btn) >= NumButtons {
		return false
	}
	changed := b.pressed[btn] != pressed
	b.pressed[btn] = pressed
	return changed
}

// Pressed reports whether btn is held. Unknown buttons read as released.
func (b *Buttons) Pressed(btn Button) bool {
	if btn < 0 || int(btn) >= NumButtons {
		return false
	}
	return b.pressed[btn]
}
