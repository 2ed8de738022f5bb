package detection

import (
	"image"
	"math"
)

// Rect is an upright bounding box. Width and Height count pixels, so a box around
// a single pixel has Width == Height == 1.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Max returns the corner just outside the box: (X+Width, Y+Height).
func (r Rect) Max() Point {
	return Point{X: r.X + r.Width, Y: r.Y + r.Height}
}

// BoundingRect returns the smallest upright rectangle containing every point.
// An empty slice yields the zero Rect.
func BoundingRect(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}

// ContourArea returns the absolute area enclosed by the closed polygon through
// points, using the shoelace formula. Fewer than three points enclose nothing.
func ContourArea(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}
	var sum int64
	prev := points[len(points)-1]
	for _, p := range points {
		sum += int64(prev.X)*int64(p.Y) - int64(p.X)*int64(prev.Y)
		prev = p
	}
	return math.Abs(float64(sum)) / 2
}

// AspectRatio returns min(w, h) / max(w, h), a value in (0, 1]. Degenerate
// boxes return 0.
func AspectRatio(w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	return float64(min(w, h)) / float64(max(w, h))
}

// ArcLength returns the perimeter of the closed polygon through points.
func ArcLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	var total float64
	prev := points[len(points)-1]
	for _, p := range points {
		total += math.Hypot(float64(p.X-prev.X), float64(p.Y-prev.Y))
		prev = p
	}
	return total
}

// Image converts p to an image.Point.
func (p Point) Image() image.Point {
	return image.Pt(p.X, p.Y)
}
