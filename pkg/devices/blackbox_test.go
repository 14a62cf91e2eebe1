package devices

import (
	"reflect"
	"testing"
	"time"
)

type recordingRenderer struct {
	draws [][]int
	tones []int
	stops int
}

func (r *recordingRenderer) DrawMatrix(on []int) { r.draws = append(r.draws, on) }
func (r *recordingRenderer) Tone(freq int)       { r.tones = append(r.tones, freq) }
func (r *recordingRenderer) NoTone()             { r.stops++ }

// fakeAfter collects scheduled functions so tests can fire them.
type fakeAfter struct {
	pending []func()
	delays  []time.Duration
}

func (f *fakeAfter) after(d time.Duration, fn func()) {
	f.delays = append(f.delays, d)
	f.pending = append(f.pending, fn)
}

func (f *fakeAfter) fire(i int) { f.pending[i]() }

func TestPiezoTimedTone(t *testing.T) {
	r := &recordingRenderer{}
	sched := &fakeAfter{}
	bb := New(r, sched.after)

	bb.Piezo.Tone(440, 100*time.Millisecond)
	if !reflect.DeepEqual(r.tones, []int{440}) || bb.Piezo.Frequency() != 440 {
		t.Fatalf("expected tone 440, got %v", r.tones)
	}
	if len(sched.delays) != 1 || sched.delays[0] != 100*time.Millisecond {
		t.Fatalf("expected one 100ms auto-stop, got %v", sched.delays)
	}
	sched.fire(0)
	if r.stops != 1 || bb.Piezo.Frequency() != 0 {
		t.Errorf("expected tone stopped, stops=%d freq=%d", r.stops, bb.Piezo.Frequency())
	}
}

func TestPiezoLaterToneCancelsAutoStop(t *testing.T) {
	r := &recordingRenderer{}
	sched := &fakeAfter{}
	bb := New(r, sched.after)

	bb.Piezo.Tone(440, 100*time.Millisecond)
	bb.Piezo.Tone(880, 0)
	sched.fire(0)
	if r.stops != 0 || bb.Piezo.Frequency() != 880 {
		t.Errorf("stale auto-stop silenced the new tone: stops=%d freq=%d", r.stops, bb.Piezo.Frequency())
	}
	bb.Piezo.NoTone()
	bb.Piezo.NoTone()
	if r.stops != 1 {
		t.Errorf("expected a single stop notification, got %d", r.stops)
	}
}

func TestSlots(t *testing.T) {
	for i, name := range []string{"on_up", "on_down", "on_left", "on_right", "on_select", "on_timeout_1", "on_timeout_2"} {
		s, ok := SlotByName(name)
		if !ok || int(s) != i || s.String() != name {
			t.Errorf("SlotByName(%q) = %v, %v", name, s, ok)
		}
	}
	if SlotForButton(Select) != SlotSelect {
		t.Errorf("select button should map to on_select")
	}
	if _, ok := SlotByName("on_middle"); ok {
		t.Errorf("unexpected slot for on_middle")
	}
}

type namedCallback string

func (n namedCallback) Name() string { return string(n) }

func TestCallbacks(t *testing.T) {
	bb := New(nil, nil)
	bb.SetCallback(SlotLeft, namedCallback("go_left"))
	if cb := bb.Callback(SlotLeft); cb == nil || cb.Name() != "go_left" {
		t.Errorf("expected go_left in slot, got %v", cb)
	}
	if bb.Callback(Slot(99)) != nil {
		t.Errorf("expected nil for an unknown slot")
	}
}

func TestButtons(t *testing.T) {
	var b Buttons
	if !b.Set(Up, true) || !b.Pressed(Up) {
		t.Errorf("expected up pressed")
	}
	if b.Set(Up, true) {
		t.Errorf("repeated press should not report a change")
	}
	if b.Pressed(Button(7)) || b.Set(Button(7), true) {
		t.Errorf("unknown buttons are never pressed")
	}
	btn, err := ParseButton("select")
	if err != nil || btn != Select {
		t.Errorf("ParseButton(select) = %v, %v", btn, err)
	}
	if _, err := ParseButton("start"); err == nil {
		t.Errorf("expected error for unknown button")
	}
}

func TestBlackBoxState(t *testing.T) {
	r := &recordingRenderer{}
	bb1 := New(r, nil)
	_ = bb1.Matrix.Set(9, true)
	bb1.Piezo.Tone(262, 0)
	bb1.Buttons.Set(Right, true)

	data := bb1.SaveState()

	r2 := &recordingRenderer{}
	bb2 := New(r2, nil)
	if err := bb2.LoadState(data); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if !reflect.DeepEqual(bb2.Matrix.OnPixels(), []int{9}) {
		t.Errorf("expected pixel 9 restored, got %v", bb2.Matrix.OnPixels())
	}
	if len(r2.draws) != 1 {
		t.Errorf("expected one redraw on restore, got %d", len(r2.draws))
	}
	if bb2.Piezo.Frequency() != 262 || !bb2.Buttons.Pressed(Right) {
		t.Errorf("piezo or buttons not restored")
	}
	if bb2.Type() != BlackBoxType {
		t.Errorf("unexpected type %q", bb2.Type())
	}
}
