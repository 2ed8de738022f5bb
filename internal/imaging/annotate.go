package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Clone returns a mutable NRGBA copy of img with its origin moved to (0,0).
// Annotations are always drawn on a clone so cached source images stay pristine.
func Clone(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// DrawRectangle strokes the outline of the rectangle whose corners are p1 and p2
// (both inclusive) onto dst.
//
// The stroke is thickness pixels wide and centred on the outline: every outline
// coordinate c is widened to c-t/2 .. c+(t-1)/2, so a thickness of 2 covers c-1 and c.
// Pixels that fall outside dst are clipped. A thickness below 1 draws nothing.
func DrawRectangle(dst draw.Image, p1, p2 image.Point, c color.Color, thickness int) {
	if thickness < 1 {
		return
	}
	if p2.X < p1.X {
		p1.X, p2.X = p2.X, p1.X
	}
	if p2.Y < p1.Y {
		p1.Y, p2.Y = p2.Y, p1.Y
	}

	lo := thickness / 2
	hi := (thickness - 1) / 2
	src := image.NewUniform(c)
	bounds := dst.Bounds()

	bands := []image.Rectangle{
		image.Rect(p1.X-lo, p1.Y-lo, p2.X+hi+1, p1.Y+hi+1), // top
		image.Rect(p1.X-lo, p2.Y-lo, p2.X+hi+1, p2.Y+hi+1), // bottom
		image.Rect(p1.X-lo, p1.Y-lo, p1.X+hi+1, p2.Y+hi+1), // left
		image.Rect(p2.X-lo, p1.Y-lo, p2.X+hi+1, p2.Y+hi+1), // right
	}
	for _, band := range bands {
		band = band.Intersect(bounds)
		if band.Empty() {
			continue
		}
		draw.Draw(dst, band, src, image.Point{}, draw.Src)
	}
}
