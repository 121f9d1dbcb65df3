package tiles

// Map clients address tiles with row 0 at the top of the map (XYZ), while
// MBTiles stores them with row 0 at the bottom (TMS). FlipRow converts
// between the two conventions; it is its own inverse.
func FlipRow(zoom, row int) int {
	return (1 << uint(zoom)) - 1 - row
}

// ValidCoordinate reports whether (column, row) addresses a tile that exists
// on the zoom level grid, in either row convention.
func ValidCoordinate(zoom, column, row int) bool {
	if zoom < 0 {
		return false
	}
	n := 1 << uint(zoom)
	return column >= 0 && column < n && row >= 0 && row < n
}
