//go:build !gocv
// +build !gocv

package cells

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/cellmorph-mcp/internal/detection"
)

// OpenCVBackend is a placeholder in binaries built without the gocv tag.
type OpenCVBackend struct{}

func (OpenCVBackend) Name() string { return "opencv" }

func (OpenCVBackend) Stages(context.Context, image.Image, Params) (*Stages, error) {
	return nil, fmt.Errorf("opencv: %w (rebuild with -tags gocv)", ErrBackendUnavailable)
}

func (OpenCVBackend) Contours(context.Context, image.Image, Params) ([]detection.Contour, error) {
	return nil, fmt.Errorf("opencv: %w (rebuild with -tags gocv)", ErrBackendUnavailable)
}
