package peripherals

import (
	"slices"

	"blackbox/pkg/devices"
)

type DispatchFunc func(msg Outbound)

// MessageSender turns device output and console text into outbound
// messages. It is a devices.Renderer and an io.Writer.
type MessageSender struct {
	dispatch DispatchFunc
}

var _ devices.Renderer = (*MessageSender)(nil)

func NewMessageSender(dispatch DispatchFunc) *MessageSender {
	return &MessageSender{dispatch: dispatch}
}

func (m *MessageSender) send(msg Outbound) {
	if m.dispatch != nil {
		m.dispatch(msg)
	}
}

func (m *MessageSender) DrawMatrix(on []int) {
	m.send(Outbound{Message: MsgDraw, OnPixels: slices.Clone(on)})
}

func (m *MessageSender) Tone(freq int) { m.send(Outbound{Message: MsgTone, Frequency: freq}) }
func (m *MessageSender) NoTone()       { m.send(Outbound{Message: MsgNoTone}) }

// Write forwards program output as one console message per call.
func (m *MessageSender) Write(p []byte) (int, error) {
	m.send(Outbound{Message: MsgConsole, Text: string(p)})
	return len(p), nil
}

// Panic reports an error that ended the run on the console.
func (m *MessageSender) Panic(text string) {
	m.send(Outbound{Message: MsgConsole, Text: text, Panic: true})
}

func (m *MessageSender) Status(state string) {
	m.send(Outbound{Message: MsgStatus, State: state})
}

// Error reports a compile or bind error at line, 0 when unknown.
func (m *MessageSender) Error(text string, line int) {
	m.send(Outbound{Message: MsgError, Text: text, Line: line})
}

func (m *MessageSender) Send(msg Outbound) { m.send(msg) }
