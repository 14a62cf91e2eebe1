// Package grid converts between row-major pixel indices and coordinates.
package grid

// Cols and Rows are the dimensions of the device matrix.
const (
	Cols = 8
	Rows = 8
	Size = Cols * Rows
)

// GetGridCoords returns the column and row of index in a grid cols wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// GetGridIndex returns the row-major index of (x, y) in a grid cols wide.
func GetGridIndex(x, y, cols int) int {
	return y*cols + x
}

// InBounds reports whether (x, y) lies on the device matrix.
func InBounds(x, y int) bool {
	return x >= 0 && x < Cols && y >= 0 && y < Rows
}
