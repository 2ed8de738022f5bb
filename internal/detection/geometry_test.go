package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingRect(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   Rect
	}{
		{"empty", nil, Rect{}},
		{"single pixel", []Point{{4, 7}}, Rect{X: 4, Y: 7, Width: 1, Height: 1}},
		{"rectangle corners", []Point{{5, 5}, {5, 44}, {14, 44}, {14, 5}}, Rect{X: 5, Y: 5, Width: 10, Height: 40}},
		{"unordered", []Point{{3, 9}, {1, 2}, {6, 4}}, Rect{X: 1, Y: 2, Width: 6, Height: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BoundingRect(tt.points))
		})
	}
}

func TestRect_Max(t *testing.T) {
	r := Rect{X: 14, Y: 9, Width: 11, Height: 41}
	assert.Equal(t, Point{25, 50}, r.Max())
}

func TestContourArea(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   float64
	}{
		{"too few points", []Point{{0, 0}, {5, 5}}, 0},
		{"counterclockwise square", []Point{{0, 0}, {0, 4}, {4, 4}, {4, 0}}, 16},
		{"clockwise square", []Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}, 16},
		{"traced 10x40 block", []Point{{5, 5}, {5, 44}, {14, 44}, {14, 5}}, 351},
		{"triangle", []Point{{0, 0}, {4, 0}, {0, 3}}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ContourArea(tt.points), 1e-9)
		})
	}
}

func TestContourArea_FromTracedBorder(t *testing.T) {
	p := createPlane(20, 50, block(5, 5, 10, 40)...)
	contours := FindContours(p, RetrieveExternal, ChainApproxSimple)
	require.Len(t, contours, 1)

	assert.InDelta(t, 351.0, ContourArea(contours[0].Points), 1e-9)
	assert.Equal(t, Rect{X: 5, Y: 5, Width: 10, Height: 40}, BoundingRect(contours[0].Points))
}

func TestAspectRatio(t *testing.T) {
	assert.InDelta(t, 0.25, AspectRatio(10, 40), 1e-9)
	assert.InDelta(t, 0.25, AspectRatio(40, 10), 1e-9)
	assert.InDelta(t, 1.0, AspectRatio(21, 21), 1e-9)
	assert.InDelta(t, 0.75, AspectRatio(15, 20), 1e-9)
	assert.Zero(t, AspectRatio(0, 10))
	assert.Zero(t, AspectRatio(10, -1))
}

func TestArcLength(t *testing.T) {
	assert.Zero(t, ArcLength([]Point{{1, 1}}))
	assert.InDelta(t, 16.0, ArcLength([]Point{{0, 0}, {0, 4}, {4, 4}, {4, 0}}), 1e-9)
	assert.InDelta(t, 12.0, ArcLength([]Point{{0, 0}, {4, 0}, {0, 3}}), 1e-9)
}
