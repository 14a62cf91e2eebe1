package devices

import (
	"reflect"
	"testing"
)

// drawLog records every notification the matrix sends.
type drawLog struct {
	calls [][]int
}

func (d *drawLog) draw(on []int) { d.calls = append(d.calls, on) }

func TestMatrixNotifiesOncePerMutation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Matrix)
		want   []int
	}{
		{"Set", func(m *Matrix) { _ = m.Set(3, true) }, []int{3}},
		{"Pixel turn on", func(m *Matrix) { p, _ := m.Pixel(10); p.TurnOn() }, []int{10}},
		{"PixelXY", func(m *Matrix) { p, _ := m.PixelXY(1, 2); p.TurnOn() }, []int{17}},
		{"Toggle", func(m *Matrix) { _ = m.Toggle(63) }, []int{63}},
		{"Row from integer", func(m *Matrix) { r, _ := m.Row(1); r.SetFromInteger(0b10000001) }, []int{8, 15}},
		{"Set from integers", func(m *Matrix) { _ = m.SetFromIntegers([]int64{0x80, 0x01}) }, []int{0, 15}},
		{"Set rows", func(m *Matrix) { m.SetRows([8]uint8{7: 0xC0}) }, []int{56, 57}},
		{"Set from bits", func(m *Matrix) { _ = m.SetFromBits([]bool{false, true, true}) }, []int{1, 2}},
		{"All on then off counts as one each", func(m *Matrix) { m.TurnAllOff() }, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &drawLog{}
			m := NewMatrix(log.draw)
			tt.mutate(m)
			if len(log.calls) != 1 {
				t.Fatalf("expected exactly 1 notification, got %d", len(log.calls))
			}
			if !reflect.DeepEqual(log.calls[0], tt.want) {
				t.Errorf("expected on-set %v, got %v", tt.want, log.calls[0])
			}
		})
	}
}

func TestMatrixNotificationIsFullSet(t *testing.T) {
	log := &drawLog{}
	m := NewMatrix(log.draw)
	_ = m.Set(0, true)
	_ = m.Set(5, true)
	_ = m.Set(0, false)
	want := [][]int{{0}, {0, 5}, {5}}
	if !reflect.DeepEqual(log.calls, want) {
		t.Errorf("expected %v, got %v", want, log.calls)
	}
}

func TestMatrixRangeErrors(t *testing.T) {
	m := NewMatrix(nil)
	if err := m.Set(64, true); err == nil {
		t.Error("expected error for index 64")
	}
	if _, err := m.PixelXY(8, 0); err == nil {
		t.Error("expected error for x 8")
	}
	if _, err := m.Row(8); err == nil {
		t.Error("expected error for row 8")
	}
	if _, err := m.Slice(10, 4); err == nil {
		t.Error("expected error for reversed slice")
	}
	if err := m.SetFromIntegers(make([]int64, 9)); err == nil {
		t.Error("expected error for 9 rows")
	}
}

func TestSliceViews(t *testing.T) {
	m := NewMatrix(nil)
	s, err := m.Slice(8, 15)
	if err != nil {
		t.Fatal(err)
	}
	if s.Length() != 8 {
		t.Errorf("expected length 8, got %d", s.Length())
	}
	sub, err := s.Slice(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Start() != 10 || sub.Length() != 3 {
		t.Errorf("expected sub-slice 10..12, got %s", sub)
	}
	sub.SetFromInteger(0b101)
	if !reflect.DeepEqual(m.OnPixels(), []int{10, 12}) {
		t.Errorf("expected pixels 10 and 12, got %v", m.OnPixels())
	}
	// Too-wide values keep their low bits.
	sub.SetFromInteger(0b11010)
	if !reflect.DeepEqual(m.OnPixels(), []int{11}) {
		t.Errorf("expected pixel 11, got %v", m.OnPixels())
	}
	p, err := s.Pixel(7)
	if err != nil || p.Index() != 15 {
		t.Errorf("expected pixel 15, got %v (%v)", p, err)
	}
	if _, err := s.Pixel(8); err == nil {
		t.Error("expected error past the end of the slice")
	}
}

func TestMatrixRows(t *testing.T) {
	m := NewMatrix(nil)
	rows := [8]uint8{0b11000000, 0b11000000, 0, 0, 0, 0b00000010, 0b00000110, 0b00000101}
	m.SetRows(rows)
	if got := m.Rows(); got != rows {
		t.Errorf("Rows() = %v, want %v", got, rows)
	}
	p, _ := m.PixelXY(0, 0)
	if !p.IsOn() {
		t.Error("expected bit 7 of row 0 to light column 0")
	}
}

func TestPixelSetFromInteger(t *testing.T) {
	m := NewMatrix(nil)
	p, _ := m.Pixel(4)
	p.SetFromInteger(7)
	if p.IsOff() {
		t.Error("expected pixel on for non-zero")
	}
	p.SetFromInteger(0)
	if p.IsOn() {
		t.Error("expected pixel off for zero")
	}
}
