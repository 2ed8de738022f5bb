package cells

import "image/color"

// Params holds the fixed constants of the classification pipeline.
type Params struct {
	BlockSize       int // adaptive threshold window side
	ThresholdOffset int // subtracted from the local mean

	KernelSize       int // elliptical structuring element side
	DilateIterations int // iterations per dilation pass
	DilatePasses     int // number of dilation passes

	CannyLow  float64
	CannyHigh float64

	MinArea         float64 // contours at or below this area are noise
	AspectThreshold float64 // sickle below, normal above

	BoxColor     color.Color
	BoxThickness int

	Workers int // threshold stripes processed concurrently; <= 0 means NumCPU
}

// DefaultParams returns the pipeline constants used for every classification.
func DefaultParams() Params {
	return Params{
		BlockSize:        13,
		ThresholdOffset:  8,
		KernelSize:       1,
		DilateIterations: 2,
		DilatePasses:     2,
		CannyLow:         0.5,
		CannyHigh:        1,
		MinArea:          32.5,
		AspectThreshold:  0.75,
		BoxColor:         color.Black,
		BoxThickness:     2,
	}
}
