package cells

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/cellmorph-mcp/internal/imaging"
)

// createSmear builds a white w x h image with a black filled rectangle per entry.
func createSmear(w, h int, cells ...image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for _, r := range cells {
		draw.Draw(img, r, image.NewUniform(color.Black), image.Point{}, draw.Src)
	}
	return img
}

// cell returns the rectangle of a w x h cell with its top-left corner at (x, y).
func cell(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h)
}

// saveSmear writes img as PNG into a temp dir and returns its path.
func saveSmear(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smear.png")
	require.NoError(t, imaging.SavePNG(img, path))
	return path
}
