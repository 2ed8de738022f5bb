package morph

import "fmt"

// tan(22.5°) in 15-bit fixed point, used to bucket gradient directions.
const (
	cannyShift = 15
	tg22       = 13573
)

// Canny performs Canny edge detection on src and returns a 0/255 edge plane.
//
// Unlike a textbook Canny there is no Gaussian pre-blur: the detector is run
// directly on the input, which in the cell pipeline is an already binary mask.
//
// # Algorithm
//
//  1. Gradients: 3×3 Sobel derivatives with replicated borders.
//  2. Magnitude: L1 norm |Gx| + |Gy|.
//  3. Non-maximum suppression: the gradient direction is bucketed into
//     horizontal, vertical or one of two diagonals, and a pixel survives only if
//     its magnitude beats both neighbours along that direction. Ties are broken
//     towards the earlier pixel in raster order so a step edge stays one pixel wide.
//  4. Hysteresis: surviving pixels above high are edges; surviving pixels above
//     low are edges only when 8-connected to another edge.
//
// Both thresholds are floored to integers before use, so (0.5, 1) behaves like
// (0, 1): any non-zero gradient that survives suppression is an edge.
func Canny(src *Plane, low, high float64) (*Plane, error) {
	if low < 0 || high < 0 {
		return nil, fmt.Errorf("canny thresholds must be non-negative, got (%g, %g)", low, high)
	}
	if low > high {
		low, high = high, low
	}
	w, h := src.Width, src.Height
	dst := NewPlane(w, h)
	if src.Empty() {
		return dst, nil
	}

	lo := int(low)
	hi := int(high)

	dx, dy := Sobel(src)

	// Magnitude with a one-pixel zero frame so neighbours never need bounds checks.
	mw := w + 2
	mag := make([]int, mw*(h+2))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			mag[(y+1)*mw+x+1] = abs(dx[i]) + abs(dy[i])
		}
	}
	m := func(x, y int) int { return mag[(y+1)*mw+x+1] }

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	stack := make([]int, 0, 256)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := m(x, y)
			if v <= lo {
				continue
			}
			i := y*w + x
			xs, ys := dx[i], dy[i]
			ax := abs(xs)
			ay := abs(ys) << cannyShift
			tg22x := ax * tg22

			var isMax bool
			if ay < tg22x {
				isMax = v > m(x-1, y) && v >= m(x+1, y)
			} else {
				tg67x := tg22x + (ax << (cannyShift + 1))
				if ay > tg67x {
					isMax = v > m(x, y-1) && v >= m(x, y+1)
				} else {
					s := 1
					if (xs < 0) != (ys < 0) {
						s = -1
					}
					isMax = v > m(x-s, y-1) && v > m(x+s, y+1)
				}
			}
			if !isMax {
				continue
			}
			if v > hi {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	for i, s := range state {
		if s == strong {
			dst.Pix[i] = 255
		}
	}
	return dst, nil
}

// Sobel returns the 3×3 Sobel derivatives of src in x and y, computed with
// replicated borders. Both slices are row-major with one entry per pixel.
func Sobel(src *Plane) (dx, dy []int) {
	w, h := src.Width, src.Height
	dx = make([]int, w*h)
	dy = make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := func(ox, oy int) int { return int(src.Replicated(x+ox, y+oy)) }
			dx[y*w+x] = (p(1, -1) + 2*p(1, 0) + p(1, 1)) - (p(-1, -1) + 2*p(-1, 0) + p(-1, 1))
			dy[y*w+x] = (p(-1, 1) + 2*p(0, 1) + p(1, 1)) - (p(-1, -1) + 2*p(0, -1) + p(1, -1))
		}
	}
	return dx, dy
}
