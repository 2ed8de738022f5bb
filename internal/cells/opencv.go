//go:build gocv
// +build gocv

package cells

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ironsheep/cellmorph-mcp/internal/detection"
	"github.com/ironsheep/cellmorph-mcp/internal/morph"
)

// OpenCVBackend runs the pipeline through OpenCV via gocv.
//
// The grayscale plane is computed in Go so both backends start from identical
// luma; everything after that is OpenCV. The threshold uses THRESH_BINARY_INV so
// the mask marks cells, as the native mask does. OpenCV keeps a pixel exactly at
// mean-offset while the native backend drops it.
type OpenCVBackend struct{}

func (OpenCVBackend) Name() string { return "opencv" }

func (b OpenCVBackend) Stages(ctx context.Context, img image.Image, p Params) (*Stages, error) {
	gray := morph.Luma(img)
	if gray.Empty() {
		return nil, ErrEmptyImage
	}

	mats, err := b.run(ctx, gray, p)
	if err != nil {
		return nil, err
	}
	defer mats.Close()

	s := &Stages{Gray: gray}
	if s.Mask, err = matToPlane(mats.mask); err != nil {
		return nil, err
	}
	if s.Dilated, err = matToPlane(mats.dilated); err != nil {
		return nil, err
	}
	if s.Edges, err = matToPlane(mats.edges); err != nil {
		return nil, err
	}
	return s, nil
}

func (b OpenCVBackend) Contours(ctx context.Context, img image.Image, p Params) ([]detection.Contour, error) {
	gray := morph.Luma(img)
	if gray.Empty() {
		return nil, ErrEmptyImage
	}

	mats, err := b.run(ctx, gray, p)
	if err != nil {
		return nil, err
	}
	defer mats.Close()

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()

	found := gocv.FindContoursWithParams(mats.edges, &hierarchy, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]detection.Contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		pts := found.At(i).ToPoints()
		c := detection.Contour{
			Points: make([]detection.Point, len(pts)),
			Parent: detection.NoParent,
		}
		for j, pt := range pts {
			c.Points[j] = detection.Point{X: pt.X, Y: pt.Y}
		}
		if !hierarchy.Empty() {
			// Each hierarchy entry is (next, previous, first child, parent).
			c.Parent = int(hierarchy.GetVeciAt(0, i)[3])
		}
		contours = append(contours, c)
	}
	return contours, nil
}

type stageMats struct {
	gray, mask, dilated, edges gocv.Mat
}

func (m *stageMats) Close() {
	m.gray.Close()
	m.mask.Close()
	m.dilated.Close()
	m.edges.Close()
}

func (OpenCVBackend) run(ctx context.Context, gray *morph.Plane, p Params) (*stageMats, error) {
	src, err := gocv.NewMatFromBytes(gray.Height, gray.Width, gocv.MatTypeCV8U, gray.Pix)
	if err != nil {
		return nil, fmt.Errorf("opencv: load gray plane: %w", err)
	}

	m := &stageMats{
		gray:    src,
		mask:    gocv.NewMat(),
		dilated: gocv.NewMat(),
		edges:   gocv.NewMat(),
	}

	gocv.AdaptiveThreshold(m.gray, &m.mask, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinaryInv,
		p.BlockSize, float32(p.ThresholdOffset))

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(p.KernelSize, p.KernelSize))
	defer kernel.Close()

	m.mask.CopyTo(&m.dilated)
	for pass := 0; pass < p.DilatePasses; pass++ {
		for i := 0; i < p.DilateIterations; i++ {
			gocv.Dilate(m.dilated, &m.dilated, kernel)
		}
	}
	if err := ctx.Err(); err != nil {
		m.Close()
		return nil, err
	}

	gocv.Canny(m.dilated, &m.edges, float32(p.CannyLow), float32(p.CannyHigh))
	return m, nil
}

func matToPlane(m gocv.Mat) (*morph.Plane, error) {
	data, err := m.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("opencv: read mat: %w", err)
	}
	p := morph.NewPlane(m.Cols(), m.Rows())
	copy(p.Pix, data)
	return p, nil
}
