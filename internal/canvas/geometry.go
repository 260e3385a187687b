package canvas

import "fmt"

// Point is a position in page-intrinsic pixel space.
type Point struct {
	X float64
	Y float64
}

// Size is the intrinsic raster size of a page.
type Size struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Rect is the on-screen bounding box of the overlay, in screen pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Rect) valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Contains reports whether the screen position lies inside the box.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && y >= r.Y && x <= r.X+r.Width && y <= r.Y+r.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("%gx%g+%g+%g", r.Width, r.Height, r.X, r.Y)
}

// scale holds the per-axis intrinsic/displayed factors.
type scale struct {
	x float64
	y float64
}

func newScale(intrinsic Size, displayed Rect) scale {
	return scale{
		x: float64(intrinsic.Width) / displayed.Width,
		y: float64(intrinsic.Height) / displayed.Height,
	}
}

// toIntrinsic maps a screen position relative to the displayed box into page
// space, each axis scaled independently.
func (s scale) toIntrinsic(displayed Rect, screenX, screenY float64) Point {
	return Point{
		X: (screenX - displayed.X) * s.x,
		Y: (screenY - displayed.Y) * s.y,
	}
}

// mean is used for stroke width, which has no axis.
func (s scale) mean() float64 {
	return (s.x + s.y) / 2
}
