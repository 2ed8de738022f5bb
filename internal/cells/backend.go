package cells

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/cellmorph-mcp/internal/detection"
	"github.com/ironsheep/cellmorph-mcp/internal/morph"
)

// Backend turns an image into the outer contours the classifier measures.
type Backend interface {
	// Name identifies the backend in logs and results.
	Name() string

	// Stages runs the pipeline up to edge detection and returns every
	// intermediate plane.
	Stages(ctx context.Context, img image.Image, p Params) (*Stages, error)

	// Contours returns the external contours of img with hierarchy, compressed
	// to direction changes.
	Contours(ctx context.Context, img image.Image, p Params) ([]detection.Contour, error)
}

// Stages holds the intermediate rasters of one pipeline run.
type Stages struct {
	Gray    *morph.Plane
	Mask    *morph.Plane
	Dilated *morph.Plane
	Edges   *morph.Plane
}

// StageNames lists the stages in pipeline order.
var StageNames = []string{"gray", "mask", "dilated", "edges"}

// Plane returns the stage with the given name.
func (s *Stages) Plane(name string) (*morph.Plane, error) {
	switch name {
	case "gray":
		return s.Gray, nil
	case "mask":
		return s.Mask, nil
	case "dilated":
		return s.Dilated, nil
	case "edges":
		return s.Edges, nil
	}
	return nil, fmt.Errorf("unknown stage %q (want one of %v)", name, StageNames)
}

// NewBackend returns the backend registered under name. An empty name selects
// the native backend.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "native", "":
		return NativeBackend{}, nil
	case "opencv":
		return OpenCVBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
}

// NativeBackend implements the pipeline in pure Go.
type NativeBackend struct{}

func (NativeBackend) Name() string { return "native" }

func (NativeBackend) Stages(ctx context.Context, img image.Image, p Params) (*Stages, error) {
	gray := morph.Luma(img)

	mask, err := morph.AdaptiveMeanThreshold(ctx, gray, morph.ThresholdOptions{
		BlockSize: p.BlockSize,
		Offset:    p.ThresholdOffset,
		Workers:   p.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("threshold: %w", err)
	}

	se, err := morph.Ellipse(p.KernelSize, p.KernelSize)
	if err != nil {
		return nil, fmt.Errorf("structuring element: %w", err)
	}
	dilated := mask
	for i := 0; i < p.DilatePasses; i++ {
		dilated = morph.Dilate(dilated, se, p.DilateIterations)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	edges, err := morph.Canny(dilated, p.CannyLow, p.CannyHigh)
	if err != nil {
		return nil, fmt.Errorf("canny: %w", err)
	}

	return &Stages{Gray: gray, Mask: mask, Dilated: dilated, Edges: edges}, nil
}

func (b NativeBackend) Contours(ctx context.Context, img image.Image, p Params) ([]detection.Contour, error) {
	s, err := b.Stages(ctx, img, p)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return detection.FindContours(s.Edges, detection.RetrieveExternal, detection.ChainApproxSimple), nil
}
