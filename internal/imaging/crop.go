package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Crop extracts the region (x1,y1)-(x2,y2) from an image, optionally rescaling it.
//
// Coordinates are absolute image coordinates; (x1,y1) is inclusive and (x2,y2)
// exclusive. A scale other than 1.0 resizes the crop with a Lanczos filter.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*ImageResult, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %.3f collapses crop to zero size", scale)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	return EncodeResult(cropped)
}

// CropPadded crops r grown by padding pixels on every side, clipped to the image.
// It is used to cut a single cell out of a smear with some surrounding context.
func CropPadded(img image.Image, r image.Rectangle, padding int, scale float64) (*ImageResult, error) {
	if padding < 0 {
		return nil, fmt.Errorf("padding must be non-negative, got %d", padding)
	}
	grown := r.Inset(-padding).Intersect(img.Bounds())
	if grown.Empty() {
		return nil, fmt.Errorf("region %v does not overlap image bounds %v", r, img.Bounds())
	}
	return Crop(img, grown.Min.X, grown.Min.Y, grown.Max.X, grown.Max.Y, scale)
}
