package grid

import "testing"

func TestGetGridCoords(t *testing.T) {
	tests := []struct {
		index int
		cols  int
		wantX int
		wantY int
	}{
		// 8 cols (device matrix)
		{0, 8, 0, 0},
		{1, 8, 1, 0},
		{7, 8, 7, 0},
		{8, 8, 0, 1},
		{9, 8, 1, 1},
		{63, 8, 7, 7},

		// 4 cols
		{0, 4, 0, 0},
		{5, 4, 1, 1},
		{15, 4, 3, 3},
	}

	for _, tc := range tests {
		gotX, gotY := GetGridCoords(tc.index, tc.cols)
		if gotX != tc.wantX || gotY != tc.wantY {
			t.Errorf("GetGridCoords(%d, %d) = (%d, %d); want (%d, %d)", tc.index, tc.cols, gotX, gotY, tc.wantX, tc.wantY)
		}
		if got := GetGridIndex(tc.wantX, tc.wantY, tc.cols); got != tc.index {
			t.Errorf("GetGridIndex(%d, %d, %d) = %d; want %d", tc.wantX, tc.wantY, tc.cols, got, tc.index)
		}
	}
}

func TestInBounds(t *testing.T) {
	tests := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{7, 7, true},
		{8, 0, false},
		{0, 8, false},
		{-1, 3, false},
	}
	for _, tc := range tests {
		if got := InBounds(tc.x, tc.y); got != tc.want {
			t.Errorf("InBounds(%d, %d) = %v; want %v", tc.x, tc.y, got, tc.want)
		}
	}
}
