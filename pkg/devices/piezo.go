package devices

import "time"

// Piezo is the buzzer. A tone with a duration stops itself through the
// after hook; a later tone or NoTone cancels the pending stop.
type Piezo struct {
	freq  int
	gen   int
	tone  func(freq int)
	off   func()
	after func(d time.Duration, fn func())
}

func NewPiezo(tone func(freq int), off func(), after func(d time.Duration, fn func())) *Piezo {
	return &Piezo{tone: tone, off: off, after: after}
}

// Frequency returns the sounding frequency, or 0 when silent.
func (p *Piezo) Frequency() int { return p.freq }

// Tone starts a tone. A positive d stops it after d.
func (p *Piezo) Tone(freq int, d time.Duration) {
	if freq <= 0 {
		p.NoTone()
		return
	}
	p.gen++
	p.freq = freq
	if p.tone != nil {
		p.tone(freq)
	}
	if d > 0 && p.after != nil {
		gen := p.gen
		p.after(d, func() {
			if p.gen == gen {
				p.NoTone()
			}
		})
	}
}

// NoTone silences the piezo. It is a no-op when already silent.
func (p *Piezo) NoTone() {
	p.gen++
	if p.freq == 0 {
		return
	}
	p.freq = 0
	if p.off != nil {
		p.off()
	}
}
