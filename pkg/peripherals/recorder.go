package peripherals

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

type EventKind int

const (
	EventDraw EventKind = iota
	EventTone
	EventNoTone
)

func (k EventKind) String() string {
	switch k {
	case EventDraw:
		return "draw"
	case EventTone:
		return "tone"
	case EventNoTone:
		return "no_tone"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one renderer notification.
type Event struct {
	At        time.Duration
	Kind      EventKind
	OnPixels  []int
	Frequency int
}

func (e Event) String() string {
	switch e.Kind {
	case EventDraw:
		return fmt.Sprintf("%8dms draw %v", e.At.Milliseconds(), e.OnPixels)
	case EventTone:
		return fmt.Sprintf("%8dms tone %d", e.At.Milliseconds(), e.Frequency)
	}
	return fmt.Sprintf("%8dms %s", e.At.Milliseconds(), e.Kind)
}

// Recorder keeps every notification it receives. Clock, when set, stamps
// each event.
type Recorder struct {
	Clock func() time.Duration

	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(e Event) {
	if r.Clock != nil {
		e.At = r.Clock()
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) DrawMatrix(on []int) {
	r.add(Event{Kind: EventDraw, OnPixels: slices.Clone(on)})
}

func (r *Recorder) Tone(freq int) { r.add(Event{Kind: EventTone, Frequency: freq}) }
func (r *Recorder) NoTone()       { r.add(Event{Kind: EventNoTone}) }

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Frames returns the on-sets of all draw notifications.
func (r *Recorder) Frames() [][]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var frames [][]int
	for _, e := range r.events {
		if e.Kind == EventDraw {
			frames = append(frames, e.OnPixels)
		}
	}
	return frames
}

// Last returns the most recent on-set, or nil before the first draw.
func (r *Recorder) Last() []int {
	frames := r.Frames()
	if len(frames) == 0 {
		return nil
	}
	return frames[len(frames)-1]
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
