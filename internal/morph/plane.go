package morph

import (
	"image"

	"github.com/disintegration/imaging"
)

// Plane is a single-channel 8-bit raster stored row-major.
type Plane struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPlane allocates a zeroed plane of the given size.
func NewPlane(width, height int) *Plane {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Plane{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Empty reports whether the plane has zero area.
func (p *Plane) Empty() bool {
	return p == nil || p.Width == 0 || p.Height == 0
}

// At returns the value at (x, y). The point must lie inside the plane.
func (p *Plane) At(x, y int) uint8 {
	return p.Pix[y*p.Width+x]
}

// Set stores v at (x, y). The point must lie inside the plane.
func (p *Plane) Set(x, y int, v uint8) {
	p.Pix[y*p.Width+x] = v
}

// Replicated returns the value at (x, y), clamping the coordinates to the plane.
func (p *Plane) Replicated(x, y int) uint8 {
	return p.Pix[clamp(y, 0, p.Height-1)*p.Width+clamp(x, 0, p.Width-1)]
}

// Clone returns a deep copy of the plane.
func (p *Plane) Clone() *Plane {
	out := &Plane{Width: p.Width, Height: p.Height, Pix: make([]uint8, len(p.Pix))}
	copy(out.Pix, p.Pix)
	return out
}

// CountNonZero returns how many pixels are not zero.
func (p *Plane) CountNonZero() int {
	n := 0
	for _, v := range p.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Gray converts the plane into an *image.Gray for encoding or display.
func (p *Plane) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		copy(g.Pix[y*g.Stride:y*g.Stride+p.Width], p.Pix[y*p.Width:(y+1)*p.Width])
	}
	return g
}

// FromGray copies an *image.Gray into a plane, dropping any origin offset.
func FromGray(g *image.Gray) *Plane {
	b := g.Bounds()
	p := NewPlane(b.Dx(), b.Dy())
	for y := 0; y < p.Height; y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(p.Pix[y*p.Width:(y+1)*p.Width], g.Pix[off:off+p.Width])
	}
	return p
}

// Luma converts img to intensity using the ITU-R BT.601 weights
// Y = 0.299*R + 0.587*G + 0.114*B, rounded to the nearest integer.
func Luma(img image.Image) *Plane {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	p := NewPlane(b.Dx(), b.Dy())
	for y := 0; y < p.Height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < p.Width; x++ {
			p.Pix[y*p.Width+x] = row[x*4]
		}
	}
	return p
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
