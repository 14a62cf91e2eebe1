package peripherals

import (
	"io"
	"strings"
	"sync"

	"blackbox/pkg/grid"
)

// Glyphs used for lit and dark pixels.
const (
	GlyphOn  = '#'
	GlyphOff = '.'
)

// RenderText draws an on-set as Rows lines of Cols glyphs.
func RenderText(on []int) string {
	var frame [grid.Size]bool
	for _, i := range on {
		if i >= 0 && i < grid.Size {
			frame[i] = true
		}
	}
	var b strings.Builder
	for y := 0; y < grid.Rows; y++ {
		for x := 0; x < grid.Cols; x++ {
			if frame[grid.GetGridIndex(x, y, grid.Cols)] {
				b.WriteByte(GlyphOn)
			} else {
				b.WriteByte(GlyphOff)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// TextDisplay keeps the latest frame as text. When Live is set, every
// frame is also written to the display's writer.
type TextDisplay struct {
	Live bool

	mu    sync.Mutex
	w     io.Writer
	frame []int
	freq  int
}

func NewTextDisplay(w io.Writer) *TextDisplay {
	if w == nil {
		w = io.Discard
	}
	return &TextDisplay{w: w}
}

func (d *TextDisplay) DrawMatrix(on []int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = append(d.frame[:0], on...)
	if d.Live {
		io.WriteString(d.w, RenderText(d.frame)+"\n")
	}
}

func (d *TextDisplay) Tone(freq int) {
	d.mu.Lock()
	d.freq = freq
	d.mu.Unlock()
}

func (d *TextDisplay) NoTone() {
	d.mu.Lock()
	d.freq = 0
	d.mu.Unlock()
}

// Frequency returns the tone the piezo is playing, 0 when silent.
func (d *TextDisplay) Frequency() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freq
}

func (d *TextDisplay) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return RenderText(d.frame)
}
