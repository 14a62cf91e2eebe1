package main

import (
	"encoding/binary"
	"testing"

	"blackbox/pkg/devices"
)

func samples(t *testing.T, tr *triangle, n int) []int16 {
	t.Helper()
	buf := make([]byte, n*4+3)
	got, err := tr.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != n*4 {
		t.Fatalf("Read returned %d bytes, want %d", got, n*4)
	}
	out := make([]int16, n)
	for i := range out {
		l := int16(binary.LittleEndian.Uint16(buf[i*4:]))
		r := int16(binary.LittleEndian.Uint16(buf[i*4+2:]))
		if l != r {
			t.Fatalf("sample %d: left %d != right %d", i, l, r)
		}
		out[i] = l
	}
	return out
}

func TestTriangleSilentWithoutTone(t *testing.T) {
	tr := &triangle{}
	for i, s := range samples(t, tr, 64) {
		if s != 0 {
			t.Fatalf("sample %d = %d, want silence", i, s)
		}
	}
}

func TestTriangleStaysInRange(t *testing.T) {
	tr := &triangle{}
	tr.freq.Store(440)
	var lo, hi int16
	for _, s := range samples(t, tr, sampleRate/100) {
		lo = min(lo, s)
		hi = max(hi, s)
	}
	if hi <= 0 || lo >= 0 {
		t.Errorf("range [%d, %d] should cross zero", lo, hi)
	}
	if float64(hi) > amplitude || float64(lo) < -amplitude {
		t.Errorf("range [%d, %d] exceeds amplitude %.0f", lo, hi, float64(amplitude))
	}
}

func TestGameRenderer(t *testing.T) {
	g := &Game{tone: &triangle{}}
	g.DrawMatrix([]int{0, 9, 63})
	for i, lit := range g.frame {
		want := i == 0 || i == 9 || i == 63
		if lit != want {
			t.Errorf("frame[%d] = %v, want %v", i, lit, want)
		}
	}
	g.DrawMatrix(nil)
	for i, lit := range g.frame {
		if lit {
			t.Errorf("frame[%d] still lit", i)
		}
	}

	g.Tone(880)
	if f := g.tone.freq.Load(); f != 880 {
		t.Errorf("freq = %d, want 880", f)
	}
	g.NoTone()
	if f := g.tone.freq.Load(); f != 0 {
		t.Errorf("freq = %d after NoTone, want 0", f)
	}
}

func TestKeyMapCoversButtons(t *testing.T) {
	seen := map[devices.Button]bool{}
	for _, m := range keyMap {
		if len(m.keys) == 0 {
			t.Errorf("%v has no keys", m.button)
		}
		seen[m.button] = true
	}
	for _, b := range []devices.Button{devices.Up, devices.Down, devices.Left, devices.Right, devices.Select} {
		if !seen[b] {
			t.Errorf("%v is not mapped", b)
		}
	}
}
