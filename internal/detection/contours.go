package detection

import (
	"github.com/ironsheep/cellmorph-mcp/internal/morph"
)

// NoParent marks a contour that is not enclosed by any other shape.
const NoParent = -1

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Contour is the outer border of one 8-connected foreground region.
type Contour struct {
	// Points lists the border pixels in tracing order (counterclockwise on screen,
	// starting at the region's top-left pixel). With ChainApproxSimple only the
	// pixels where the tracing direction changes are kept.
	Points []Point `json:"points"`

	// Parent is the index of the contour whose hole encloses this one, or NoParent.
	Parent int `json:"parent"`
}

// RetrievalMode selects which contours FindContours returns.
type RetrievalMode int

const (
	// RetrieveExternal returns only outer borders of regions that are not inside
	// a hole of another region. Every returned contour has Parent == NoParent.
	RetrieveExternal RetrievalMode = iota

	// RetrieveAll returns the outer border of every region, with Parent pointing
	// at the region whose hole contains it.
	RetrieveAll
)

// ChainApprox selects how border points are stored.
type ChainApprox int

const (
	// ChainApproxNone keeps every border pixel.
	ChainApproxNone ChainApprox = iota

	// ChainApproxSimple keeps only the pixels where the border changes direction,
	// so a straight run is stored as its two end points.
	ChainApproxSimple
)

// Chain directions, counterclockwise on screen starting at "right".
var directions = [8]Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1},
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// FindContours extracts region borders from a binary plane (any non-zero pixel is
// foreground).
//
// # Algorithm
//
//  1. Regions: foreground pixels are grouped into 8-connected components, numbered
//     in raster order of their top-left pixel.
//  2. Nesting: background pixels are grouped into 4-connected components on a grid
//     padded with one background pixel on every side, so the padding forms the
//     "outside" region. A component is top level when the background left of its
//     first pixel is the outside; otherwise that background is a hole, and the
//     component owning the pixel directly above the hole's first pixel encloses it.
//  3. Tracing: each returned region's outer border is followed from its top-left
//     pixel with the Suzuki-Abe border following procedure.
//
// Contours are returned in raster order of their starting pixel, so an enclosing
// contour always precedes the contours it encloses.
func FindContours(src *morph.Plane, mode RetrievalMode, approx ChainApprox) []Contour {
	if src.Empty() {
		return nil
	}
	w, h := src.Width, src.Height
	fg := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && src.Pix[y*w+x] != 0
	}

	comp, starts := labelForeground(fg, w, h)
	if len(starts) == 0 {
		return nil
	}
	parents := enclosingRegions(fg, comp, starts, w, h)

	index := make([]int, len(starts))
	contours := make([]Contour, 0, len(starts))
	for i, start := range starts {
		index[i] = NoParent
		if mode == RetrieveExternal && parents[i] != NoParent {
			continue
		}
		parent := NoParent
		if parents[i] != NoParent {
			parent = index[parents[i]]
		}
		index[i] = len(contours)
		contours = append(contours, Contour{
			Points: traceBorder(fg, start, approx),
			Parent: parent,
		})
	}
	return contours
}

// labelForeground assigns every foreground pixel the index of its 8-connected
// component and returns the first (top-left) pixel of each component.
func labelForeground(fg func(x, y int) bool, w, h int) ([]int, []Point) {
	comp := make([]int, w*h)
	for i := range comp {
		comp[i] = -1
	}

	var starts []Point
	stack := make([]Point, 0, 64)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !fg(x, y) || comp[y*w+x] >= 0 {
				continue
			}
			label := len(starts)
			starts = append(starts, Point{X: x, Y: y})
			comp[y*w+x] = label
			stack = append(stack[:0], Point{X: x, Y: y})

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, d := range directions {
					nx, ny := p.X+d.X, p.Y+d.Y
					if fg(nx, ny) && comp[ny*w+nx] < 0 {
						comp[ny*w+nx] = label
						stack = append(stack, Point{X: nx, Y: ny})
					}
				}
			}
		}
	}
	return comp, starts
}

// enclosingRegions returns, for each foreground component, the index of the
// component whose hole contains it, or NoParent.
func enclosingRegions(fg func(x, y int) bool, comp []int, starts []Point, w, h int) []int {
	// Background labelling happens on a padded grid; padded (x, y) is image (x-1, y-1).
	pw, ph := w+2, h+2
	isBg := func(px, py int) bool {
		return px >= 0 && py >= 0 && px < pw && py < ph && !fg(px-1, py-1)
	}

	region := make([]int, pw*ph)
	for i := range region {
		region[i] = -1
	}

	var firsts []Point
	stack := make([]Point, 0, 64)
	neighbours := [4]Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for py := 0; py < ph; py++ {
		for px := 0; px < pw; px++ {
			if !isBg(px, py) || region[py*pw+px] >= 0 {
				continue
			}
			label := len(firsts)
			firsts = append(firsts, Point{X: px, Y: py})
			region[py*pw+px] = label
			stack = append(stack[:0], Point{X: px, Y: py})

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, d := range neighbours {
					nx, ny := p.X+d.X, p.Y+d.Y
					if isBg(nx, ny) && region[ny*pw+nx] < 0 {
						region[ny*pw+nx] = label
						stack = append(stack, Point{X: nx, Y: ny})
					}
				}
			}
		}
	}

	// Region 0 contains the padded corner and is therefore the outside.
	parents := make([]int, len(starts))
	for i, s := range starts {
		// Left neighbour of the start pixel: image (s.X-1, s.Y) is padded (s.X, s.Y+1).
		r := region[(s.Y+1)*pw+s.X]
		if r == 0 {
			parents[i] = NoParent
			continue
		}
		// The pixel above a hole's first pixel belongs to the enclosing component.
		top := firsts[r]
		parents[i] = comp[(top.Y-2)*w+top.X-1]
	}
	return parents
}

// traceBorder follows the outer border of the region whose top-left pixel is start.
func traceBorder(fg func(x, y int) bool, start Point, approx ChainApprox) []Point {
	at := func(p Point, s int) Point {
		d := directions[s&7]
		return Point{X: p.X + d.X, Y: p.Y + d.Y}
	}

	// Search clockwise from the left neighbour for the first foreground pixel.
	s := 4
	found := false
	for i := 0; i < 8; i++ {
		s = (s - 1) & 7
		if p := at(start, s); fg(p.X, p.Y) {
			found = true
			break
		}
	}
	if !found {
		return []Point{start}
	}

	second := at(start, s)
	cur := start
	prev := s ^ 4
	var points []Point
	for {
		// Search counterclockwise, starting just after the direction we came from.
		end := s
		var next Point
		for {
			s++
			next = at(cur, s)
			if fg(next.X, next.Y) {
				break
			}
			if s-end >= 8 {
				// Unreachable for a non-isolated pixel; guards against a bad predicate.
				return append(points, cur)
			}
		}
		s &= 7

		if approx == ChainApproxNone || s != prev {
			points = append(points, cur)
			prev = s
		}

		if next == start && cur == second {
			break
		}
		cur = next
		s = (s + 4) & 7
	}
	return points
}
