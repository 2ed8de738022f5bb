package cells

import (
	"errors"
	"fmt"
)

var (
	// ErrNoContoursFound means no outer contour survived the area filter, so
	// there is nothing to take a ratio of.
	ErrNoContoursFound = errors.New("no contours found above the area threshold")

	// ErrNoNormalCells means cells were measured but none was normal, leaving
	// the sickle/normal ratio undefined.
	ErrNoNormalCells = errors.New("no normal cells found: sickle/normal ratio undefined")

	// ErrBackendUnavailable is returned by backends that were not compiled in.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrEmptyImage is wrapped in an InputError for images with zero area.
	ErrEmptyImage = errors.New("image has zero area")
)

// InputError reports an image that could not be loaded, decoded or used.
type InputError struct {
	Source string // file path, or empty for in-memory input
	Err    error
}

func (e *InputError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid input image: %v", e.Err)
	}
	return fmt.Sprintf("invalid input image %s: %v", e.Source, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}
