package peripherals

import "log"

// ConsoleLog writes one trace line per notification.
type ConsoleLog struct {
	L *log.Logger
}

func (c ConsoleLog) logger() *log.Logger {
	if c.L == nil {
		return log.Default()
	}
	return c.L
}

func (c ConsoleLog) DrawMatrix(on []int) { c.logger().Printf("draw %v", on) }
func (c ConsoleLog) Tone(freq int)       { c.logger().Printf("tone %d", freq) }
func (c ConsoleLog) NoTone()             { c.logger().Printf("no_tone") }
