package devices

import (
	"fmt"
	"strconv"

	"blackbox/pkg/grid"
)

// Matrix is the 8x8 LED matrix. Every exported mutating method performs its
// whole change and then calls the notify hook exactly once with the full set
// of lit pixel indices.
type Matrix struct {
	pixels [grid.Size]bool
	notify func(on []int)
}

// NewMatrix returns a dark matrix. notify may be nil.
func NewMatrix(notify func(on []int)) *Matrix {
	return &Matrix{notify: notify}
}

// SetNotify replaces the change hook.
func (m *Matrix) SetNotify(notify func(on []int)) {
	m.notify = notify
}

func (m *Matrix) changed() {
	if m.notify != nil {
		m.notify(m.OnPixels())
	}
}

// OnPixels returns the indices of lit pixels in ascending order.
func (m *Matrix) OnPixels() []int {
	on := []int{}
	for i, lit := range m.pixels {
		if lit {
			on = append(on, i)
		}
	}
	return on
}

func checkIndex(i int) error {
	if i < 0 || i >= grid.Size {
		return fmt.Errorf("pixel index %d out of range 0-%d", i, grid.Size-1)
	}
	return nil
}

// IsOn reports whether pixel i is lit.
func (m *Matrix) IsOn(i int) (bool, error) {
	if err := checkIndex(i); err != nil {
		return false, err
	}
	return m.pixels[i], nil
}

// Set lights or clears pixel i.
func (m *Matrix) Set(i int, on bool) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	m.pixels[i] = on
	m.changed()
	return nil
}

// Toggle flips pixel i.
func (m *Matrix) Toggle(i int) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	m.pixels[i] = !m.pixels[i]
	m.changed()
	return nil
}

// Pixel returns a view of pixel n.
func (m *Matrix) Pixel(n int) (Pixel, error) {
	if err := checkIndex(n); err != nil {
		return Pixel{}, err
	}
	return Pixel{m: m, index: n}, nil
}

// PixelXY returns a view of the pixel at column x, row y.
func (m *Matrix) PixelXY(x, y int) (Pixel, error) {
	if !grid.InBounds(x, y) {
		return Pixel{}, fmt.Errorf("pixel (%d, %d) out of range", x, y)
	}
	return m.Pixel(grid.GetGridIndex(x, y, grid.Cols))
}

// Row returns a view of row n.
func (m *Matrix) Row(n int) (Slice, error) {
	if n < 0 || n >= grid.Rows {
		return Slice{}, fmt.Errorf("row %d out of range 0-%d", n, grid.Rows-1)
	}
	return m.Slice(n*grid.Cols, n*grid.Cols+grid.Cols-1)
}

// Slice returns a view of pixels start through end inclusive.
func (m *Matrix) Slice(start, end int) (Slice, error) {
	if err := checkIndex(start); err != nil {
		return Slice{}, err
	}
	if err := checkIndex(end); err != nil {
		return Slice{}, err
	}
	if end < start {
		return Slice{}, fmt.Errorf("slice end %d before start %d", end, start)
	}
	return Slice{m: m, start: start, end: end}, nil
}

func (m *Matrix) TurnAllOn() {
	m.fill(0, grid.Size-1, true)
	m.changed()
}

func (m *Matrix) TurnAllOff() {
	m.fill(0, grid.Size-1, false)
	m.changed()
}

func (m *Matrix) fill(start, end int, on bool) {
	for i := start; i <= end; i++ {
		m.pixels[i] = on
	}
}

// SetFromBits sets pixel i from bits[i]. Pixels past the end of bits are
// turned off.
func (m *Matrix) SetFromBits(bits []bool) error {
	if len(bits) > grid.Size {
		return fmt.Errorf("bit array has %d entries, matrix has %d pixels", len(bits), grid.Size)
	}
	for i := range m.pixels {
		m.pixels[i] = i < len(bits) && bits[i]
	}
	m.changed()
	return nil
}

// SetFromIntegers sets row i from the low 8 bits of ns[i], most significant
// bit leftmost. Rows past the end of ns are left alone.
func (m *Matrix) SetFromIntegers(ns []int64) error {
	if len(ns) > grid.Rows {
		return fmt.Errorf("got %d rows, matrix has %d", len(ns), grid.Rows)
	}
	for row, n := range ns {
		m.setBits(row*grid.Cols, row*grid.Cols+grid.Cols-1, n)
	}
	m.changed()
	return nil
}

// SetRows replaces the whole matrix from one byte per row.
func (m *Matrix) SetRows(rows [grid.Rows]uint8) {
	for row, b := range rows {
		m.setBits(row*grid.Cols, row*grid.Cols+grid.Cols-1, int64(b))
	}
	m.changed()
}

// Rows returns the matrix as one byte per row, bit 7 being column 0.
func (m *Matrix) Rows() [grid.Rows]uint8 {
	var rows [grid.Rows]uint8
	for i, lit := range m.pixels {
		if lit {
			x, y := grid.GetGridCoords(i, grid.Cols)
			rows[y] |= 1 << (7 - x)
		}
	}
	return rows
}

// setBits writes n in binary across start..end, most significant bit first.
func (m *Matrix) setBits(start, end int, n int64) {
	width := end - start + 1
	bits := strconv.FormatUint(uint64(n), 2)
	if len(bits) > width {
		bits = bits[len(bits)-width:]
	}
	pad := width - len(bits)
	for i := 0; i < width; i++ {
		m.pixels[start+i] = i >= pad && bits[i-pad] == '1'
	}
}

// Pixel is a view of one matrix pixel.
type Pixel struct {
	m     *Matrix
	index int
}

func (p Pixel) Index() int     { return p.index }
func (p Pixel) IsOn() bool     { return p.m.pixels[p.index] }
func (p Pixel) IsOff() bool    { return !p.m.pixels[p.index] }
func (p Pixel) TurnOn()        { _ = p.m.Set(p.index, true) }
func (p Pixel) TurnOff()       { _ = p.m.Set(p.index, false) }
func (p Pixel) Toggle()        { _ = p.m.Toggle(p.index) }
func (p Pixel) Valid() bool    { return p.m != nil }
func (p Pixel) String() string { return fmt.Sprintf("Pixel(%d)", p.index) }

// SetFromInteger lights the pixel for any non-zero n.
func (p Pixel) SetFromInteger(n int64) { _ = p.m.Set(p.index, n != 0) }

// Slice is a view of a contiguous inclusive range of pixels.
type Slice struct {
	m          *Matrix
	start, end int
}

func (s Slice) Start() int     { return s.start }
func (s Slice) Length() int    { return s.end - s.start + 1 }
func (s Slice) String() string { return fmt.Sprintf("Slice(%d..%d)", s.start, s.end) }

// Pixel returns pixel n of the slice.
func (s Slice) Pixel(n int) (Pixel, error) {
	if n < 0 || n >= s.Length() {
		return Pixel{}, fmt.Errorf("slice pixel %d out of range 0-%d", n, s.Length()-1)
	}
	return s.m.Pixel(s.start + n)
}

// Slice returns a sub-slice with bounds relative to this one.
func (s Slice) Slice(start, end int) (Slice, error) {
	if start < 0 || end >= s.Length() {
		return Slice{}, fmt.Errorf("sub-slice %d..%d out of range 0-%d", start, end, s.Length()-1)
	}
	return s.m.Slice(s.start+start, s.start+end)
}

func (s Slice) TurnAllOn() {
	s.m.fill(s.start, s.end, true)
	s.m.changed()
}

func (s Slice) TurnAllOff() {
	s.m.fill(s.start, s.end, false)
	s.m.changed()
}

// SetFromInteger writes n in binary across the slice, most significant bit
// first, padded with zeros to the slice length.
func (s Slice) SetFromInteger(n int64) {
	s.m.setBits(s.start, s.end, n)
	s.m.changed()
}

// SetFromBits sets pixel i of the slice from bits[i]; missing entries are off.
func (s Slice) SetFromBits(bits []bool) {
	for i := 0; i < s.Length(); i++ {
		s.m.pixels[s.start+i] = i < len(bits) && bits[i]
	}
	s.m.changed()
}
