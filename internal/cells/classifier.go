package cells

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ironsheep/cellmorph-mcp/internal/detection"
	"github.com/ironsheep/cellmorph-mcp/internal/imaging"
)

// Options configures a Classifier. The zero value is usable.
type Options struct {
	// Backend extracts contours. Nil selects NativeBackend.
	Backend Backend

	// Workers bounds threshold concurrency. Zero or negative means NumCPU.
	Workers int

	// BoxColor outlines sickle cells. Nil means black.
	BoxColor color.Color

	// BoxThickness is the outline width in pixels. Zero means 2.
	BoxThickness int

	// Logger receives per-run diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// Classifier runs the sickle cell pipeline. It holds no per-run state and is safe
// for concurrent use.
type Classifier struct {
	params  Params
	backend Backend
	logger  zerolog.Logger
}

// New creates a Classifier from opts.
func New(opts Options) *Classifier {
	params := DefaultParams()
	params.Workers = opts.Workers
	if opts.BoxColor != nil {
		params.BoxColor = opts.BoxColor
	}
	if opts.BoxThickness > 0 {
		params.BoxThickness = opts.BoxThickness
	}

	backend := opts.Backend
	if backend == nil {
		backend = NativeBackend{}
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "classifier").Logger()
	}

	return &Classifier{params: params, backend: backend, logger: logger}
}

// Params returns the constants this classifier runs with.
func (c *Classifier) Params() Params {
	return c.params
}

// Backend returns the contour backend in use.
func (c *Classifier) Backend() Backend {
	return c.backend
}

// ClassifyFile loads the image at path and classifies it. Load failures are
// returned as *InputError.
func (c *Classifier) ClassifyFile(ctx context.Context, path string) (*Result, error) {
	img, err := imaging.LoadFile(path)
	if err != nil {
		return nil, &InputError{Source: path, Err: err}
	}
	res, err := c.Classify(ctx, img)
	var inErr *InputError
	if errors.As(err, &inErr) && inErr.Source == "" {
		inErr.Source = path
	}
	return res, err
}

// ClassifyBytes decodes an encoded image and classifies it.
func (c *Classifier) ClassifyBytes(ctx context.Context, data []byte) (*Result, error) {
	img, err := imaging.LoadBytes(data)
	if err != nil {
		return nil, &InputError{Err: err}
	}
	return c.Classify(ctx, img)
}

// Classify runs the full pipeline on img.
//
// img is never modified: annotations go onto a copy returned in Result.Annotated,
// so classifying the same image twice yields identical results. All coordinates
// in the Result are relative to img.Bounds().Min.
//
// A missing ratio is not an error here; see Result.Ratio.
func (c *Classifier) Classify(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil {
		return nil, &InputError{Err: errors.New("no image")}
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, &InputError{Err: ErrEmptyImage}
	}

	start := time.Now()
	res := &Result{
		RunID:   uuid.NewString(),
		Backend: c.backend.Name(),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}
	logger := c.logger.With().Str("run_id", res.RunID).Str("backend", res.Backend).Logger()
	logger.Debug().Int("width", res.Width).Int("height", res.Height).Msg("classification started")

	contours, err := c.backend.Contours(ctx, img, c.params)
	if err != nil {
		logger.Error().Err(err).Msg("contour extraction failed")
		return nil, fmt.Errorf("extract contours: %w", err)
	}
	res.Contours = len(contours)

	res.Annotated = imaging.Clone(img)
	for i, contour := range contours {
		if contour.Parent != detection.NoParent {
			res.Nested++
			continue
		}

		rect := detection.BoundingRect(contour.Points)
		area := detection.ContourArea(contour.Points)
		if area <= c.params.MinArea {
			res.Noise++
			continue
		}

		aspect := detection.AspectRatio(rect.Width, rect.Height)
		cell := Cell{
			Index:       len(res.Cells),
			Contour:     i,
			Bounds:      rect,
			Area:        area,
			Perimeter:   detection.ArcLength(contour.Points),
			AspectRatio: aspect,
			Class:       classify(aspect, c.params.AspectThreshold),
		}
		res.Cells = append(res.Cells, cell)

		switch cell.Class {
		case ClassSickle:
			res.Sickle++
			imaging.DrawRectangle(res.Annotated,
				image.Pt(rect.X, rect.Y), rect.Max().Image(),
				c.params.BoxColor, c.params.BoxThickness)
		case ClassNormal:
			res.Normal++
		case ClassBoundary:
			res.Boundary++
			logger.Debug().Int("cell", cell.Index).Msg("aspect ratio on threshold, counted in neither class")
		}
	}
	res.Elapsed = time.Since(start)

	logger.Info().
		Int("contours", res.Contours).
		Int("nested", res.Nested).
		Int("noise", res.Noise).
		Int("sickle", res.Sickle).
		Int("normal", res.Normal).
		Int("boundary", res.Boundary).
		Str("status", string(res.Status())).
		Dur("elapsed", res.Elapsed).
		Msg("classification finished")

	return res, nil
}

// Stages runs the backend up to edge detection for inspection.
func (c *Classifier) Stages(ctx context.Context, img image.Image) (*Stages, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, &InputError{Err: ErrEmptyImage}
	}
	return c.backend.Stages(ctx, img, c.params)
}
