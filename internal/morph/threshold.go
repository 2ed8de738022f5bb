package morph

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ThresholdOptions configures AdaptiveMeanThreshold.
type ThresholdOptions struct {
	// BlockSize is the side of the square averaging window. Must be odd and >= 3.
	BlockSize int

	// Offset is subtracted from the local mean before comparing.
	Offset int

	// Workers bounds how many row stripes are processed concurrently.
	// Zero or negative means runtime.NumCPU().
	Workers int
}

// AdaptiveMeanThreshold binarizes src against a locally computed baseline.
//
// For every pixel the mean of the BlockSize×BlockSize window centred on it is
// computed (edge pixels replicated, mean rounded to the nearest integer). The
// output is 255 where src < mean - Offset and 0 elsewhere, so pixels noticeably
// darker than their surroundings become foreground regardless of uneven
// illumination across the slide.
//
// Rows are processed in parallel stripes; the result does not depend on Workers.
func AdaptiveMeanThreshold(ctx context.Context, src *Plane, opts ThresholdOptions) (*Plane, error) {
	if opts.BlockSize < 3 || opts.BlockSize%2 == 0 {
		return nil, fmt.Errorf("block size must be odd and >= 3, got %d", opts.BlockSize)
	}
	if src.Empty() {
		return NewPlane(src.Width, src.Height), nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	w, h := src.Width, src.Height
	r := opts.BlockSize / 2
	area := opts.BlockSize * opts.BlockSize

	// Horizontal window sums, one int per pixel.
	rowSums := make([]int, w*h)
	err := forEachStripe(ctx, h, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			out := rowSums[y*w : (y+1)*w]
			sum := 0
			for dx := -r; dx <= r; dx++ {
				sum += int(src.Replicated(dx, y))
			}
			out[0] = sum
			for x := 1; x < w; x++ {
				sum += int(src.Replicated(x+r, y)) - int(src.Replicated(x-r-1, y))
				out[x] = sum
			}
		}
	})
	if err != nil {
		return nil, err
	}

	dst := NewPlane(w, h)
	err = forEachStripe(ctx, h, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				sum := 0
				for dy := -r; dy <= r; dy++ {
					sum += rowSums[clamp(y+dy, 0, h-1)*w+x]
				}
				mean := (2*sum + area) / (2 * area)
				if int(src.Pix[y*w+x]) < mean-opts.Offset {
					dst.Pix[y*w+x] = 255
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// forEachStripe splits [0, rows) into contiguous stripes and runs fn on each,
// at most workers at a time. It stops scheduling new stripes once ctx is done.
func forEachStripe(ctx context.Context, rows, workers int, fn func(y0, y1 int)) error {
	stripes := workers * 4
	if stripes > rows {
		stripes = rows
	}
	step := (rows + stripes - 1) / stripes

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y0 := 0; y0 < rows; y0 += step {
		y0 := y0
		y1 := min(y0+step, rows)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(y0, y1)
			return nil
		})
	}
	return g.Wait()
}
