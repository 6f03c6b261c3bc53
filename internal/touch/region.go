package touch

import "fmt"

// Region is an axis-aligned rectangle in screen pixels, the target of a touch.
// Regions are plain values; copy them freely.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect builds a Region from its origin and size.
func Rect(x, y, width, height int) Region {
	return Region{X: x, Y: y, Width: width, Height: height}
}

// Contains reports whether the point (px, py) lies inside r.
// A region with a non-positive dimension contains only its origin.
func (r Region) Contains(px, py int) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return px == r.X && py == r.Y
	}
	return px >= r.X && px < r.X+r.Width && py >= r.Y && py < r.Y+r.Height
}

// Center returns the middle point of r.
func (r Region) Center() (int, int) {
	if r.Width <= 0 || r.Height <= 0 {
		return r.X, r.Y
	}
	return r.X + r.Width/2, r.Y + r.Height/2
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}
