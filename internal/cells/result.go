package cells

import (
	"errors"
	"image"
	"time"

	"github.com/ironsheep/cellmorph-mcp/internal/detection"
)

// Class is the label assigned to a measured cell.
type Class string

const (
	ClassSickle Class = "sickle"
	ClassNormal Class = "normal"

	// ClassBoundary marks an aspect ratio exactly on the threshold. Such cells
	// are measured but counted in neither class.
	ClassBoundary Class = "boundary"
)

// Status summarizes whether a Result has a defined ratio.
type Status string

const (
	StatusOK            Status = "ok"
	StatusNoContours    Status = "no_contours"
	StatusNoNormalCells Status = "no_normal_cells"
)

// Cell is the measurement of one outer contour that passed the area filter.
type Cell struct {
	Index       int            `json:"index"`
	Contour     int            `json:"contour"` // index into the backend's contour list
	Bounds      detection.Rect `json:"bounds"`
	Area        float64        `json:"area"`
	Perimeter   float64        `json:"perimeter"`
	AspectRatio float64        `json:"aspect_ratio"`
	Class       Class          `json:"class"`
}

// Result is the outcome of one classification run.
type Result struct {
	RunID   string `json:"run_id"`
	Backend string `json:"backend"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`

	Cells    []Cell `json:"cells"`
	Sickle   int    `json:"sickle"`
	Normal   int    `json:"normal"`
	Boundary int    `json:"boundary"`

	Contours int `json:"contours"` // contours returned by the backend
	Nested   int `json:"nested"`   // skipped because they have a parent
	Noise    int `json:"noise"`    // skipped because area <= MinArea

	Elapsed time.Duration `json:"elapsed"`

	// Annotated is a copy of the input with every sickle cell outlined.
	Annotated *image.NRGBA `json:"-"`
}

// Ratio returns sickle / normal.
func (r *Result) Ratio() (float64, error) {
	if len(r.Cells) == 0 {
		return 0, ErrNoContoursFound
	}
	if r.Normal == 0 {
		return 0, ErrNoNormalCells
	}
	return float64(r.Sickle) / float64(r.Normal), nil
}

// Status reports which of the Ratio outcomes applies.
func (r *Result) Status() Status {
	_, err := r.Ratio()
	switch {
	case errors.Is(err, ErrNoContoursFound):
		return StatusNoContours
	case errors.Is(err, ErrNoNormalCells):
		return StatusNoNormalCells
	}
	return StatusOK
}

// Annotations returns the rectangles drawn on the annotated image, in drawing order.
func (r *Result) Annotations() []detection.Rect {
	var rects []detection.Rect
	for _, c := range r.Cells {
		if c.Class == ClassSickle {
			rects = append(rects, c.Bounds)
		}
	}
	return rects
}

// AspectRatios returns the aspect ratio of every measured cell.
func (r *Result) AspectRatios() []float64 {
	out := make([]float64, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.AspectRatio
	}
	return out
}

// classify labels an aspect ratio against the threshold.
func classify(aspect, threshold float64) Class {
	switch {
	case aspect < threshold:
		return ClassSickle
	case aspect > threshold:
		return ClassNormal
	}
	return ClassBoundary
}
