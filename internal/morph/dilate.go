package morph

import (
	"fmt"
	"image"
	"math"
)

// StructuringElement is a binary kernel for morphological operations.
// Anchor is the kernel cell aligned with the pixel being computed.
type StructuringElement struct {
	Width  int
	Height int
	Anchor image.Point
	mask   []bool
}

// Contains reports whether kernel cell (x, y) is part of the element.
func (se StructuringElement) Contains(x, y int) bool {
	if x < 0 || y < 0 || x >= se.Width || y >= se.Height {
		return false
	}
	return se.mask[y*se.Width+x]
}

// Size returns the number of cells set in the element.
func (se StructuringElement) Size() int {
	n := 0
	for _, v := range se.mask {
		if v {
			n++
		}
	}
	return n
}

// Rect returns a fully set width×height element.
func Rect(width, height int) (StructuringElement, error) {
	se, err := newElement(width, height)
	if err != nil {
		return se, err
	}
	for i := range se.mask {
		se.mask[i] = true
	}
	return se, nil
}

// Cross returns an element with only the anchor row and anchor column set.
func Cross(width, height int) (StructuringElement, error) {
	se, err := newElement(width, height)
	if err != nil {
		return se, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			se.mask[y*width+x] = x == se.Anchor.X || y == se.Anchor.Y
		}
	}
	return se, nil
}

// Ellipse returns the filled ellipse inscribed in a width×height box.
//
// Row i spans the columns c-dx .. c+dx where r = height/2, c = width/2,
// dy = i-r and dx = round(c*sqrt((r²-dy²)/r²)). A 1×1 ellipse is a single cell,
// which makes dilation an identity.
func Ellipse(width, height int) (StructuringElement, error) {
	se, err := newElement(width, height)
	if err != nil {
		return se, err
	}
	r := height / 2
	c := width / 2
	invR2 := 0.0
	if r > 0 {
		invR2 = 1.0 / float64(r*r)
	}
	for i := 0; i < height; i++ {
		dy := i - r
		if abs(dy) > r {
			continue
		}
		dx := int(math.RoundToEven(float64(c) * math.Sqrt(float64(r*r-dy*dy)*invR2)))
		j1 := max(c-dx, 0)
		j2 := min(c+dx+1, width)
		for j := j1; j < j2; j++ {
			se.mask[i*width+j] = true
		}
	}
	return se, nil
}

func newElement(width, height int) (StructuringElement, error) {
	if width < 1 || height < 1 {
		return StructuringElement{}, fmt.Errorf("structuring element must be at least 1x1, got %dx%d", width, height)
	}
	return StructuringElement{
		Width:  width,
		Height: height,
		Anchor: image.Pt(width/2, height/2),
		mask:   make([]bool, width*height),
	}, nil
}

// Dilate replaces every pixel with the maximum over the structuring element
// placed at that pixel, repeated iterations times. Element cells that fall outside
// the plane are ignored.
func Dilate(src *Plane, se StructuringElement, iterations int) *Plane {
	cur := src.Clone()
	if iterations <= 0 || se.Size() == 0 {
		return cur
	}
	if se.Size() == 1 && se.Contains(se.Anchor.X, se.Anchor.Y) {
		return cur
	}

	type offset struct{ dx, dy int }
	offsets := make([]offset, 0, se.Size())
	for y := 0; y < se.Height; y++ {
		for x := 0; x < se.Width; x++ {
			if se.Contains(x, y) {
				offsets = append(offsets, offset{x - se.Anchor.X, y - se.Anchor.Y})
			}
		}
	}

	for iter := 0; iter < iterations; iter++ {
		next := NewPlane(cur.Width, cur.Height)
		for y := 0; y < cur.Height; y++ {
			for x := 0; x < cur.Width; x++ {
				var m uint8
				for _, o := range offsets {
					px, py := x+o.dx, y+o.dy
					if px < 0 || py < 0 || px >= cur.Width || py >= cur.Height {
						continue
					}
					if v := cur.Pix[py*cur.Width+px]; v > m {
						m = v
					}
				}
				next.Pix[y*cur.Width+x] = m
			}
		}
		cur = next
	}
	return cur
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
