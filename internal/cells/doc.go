// Package cells classifies blood cells in a microscope image as sickle-shaped or
// normal from the geometry of their outlines.
//
// # Pipeline
//
// A Backend turns the image into outer contours:
//
//  1. Grayscale: BT.601 luma.
//  2. Binarize: adaptive mean threshold over a 13x13 window, offset 8.
//  3. Dilate: 1x1 ellipse, two iterations, applied twice.
//  4. Edges: Canny with thresholds (0.5, 1) on the binary mask.
//  5. Contours: outer borders with hierarchy, compressed to direction changes.
//
// The Classifier then measures every contour that has no parent:
//
//  6. Bounding box, shoelace area and aspect ratio min(w, h) / max(w, h).
//     Contours with area <= 32.5 are noise and skipped.
//  7. Aspect ratio below 0.75 is sickle, above is normal. Exactly 0.75 is
//     recorded as boundary and counted in neither class.
//  8. Sickle cells are outlined on a copy of the input.
//
// Result.Ratio reports sickle / normal, or ErrNoContoursFound when nothing was
// measured and ErrNoNormalCells when the denominator is zero.
//
// # Backends
//
// NativeBackend runs entirely in Go on top of the morph and detection packages.
// OpenCVBackend runs the same stages through gocv and is only functional in
// binaries built with the gocv tag; otherwise it reports ErrBackendUnavailable.
//
// # Example Usage
//
//	c := cells.New(cells.Options{})
//	res, err := c.ClassifyFile(ctx, "smear.png")
//	if err != nil {
//	    return err // *cells.InputError for unreadable files
//	}
//	ratio, err := res.Ratio()
//	switch {
//	case errors.Is(err, cells.ErrNoNormalCells):
//	    // only sickle cells found
//	case err != nil:
//	    // nothing measured
//	}
package cells
