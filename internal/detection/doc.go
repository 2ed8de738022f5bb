// Package detection extracts region borders from binary planes and measures them.
//
// FindContours labels 8-connected foreground regions, resolves which regions sit
// inside holes of others, and traces each region's outer border. Borders can be
// stored pixel by pixel or compressed to the points where direction changes.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Rect counts pixels: a region spanning columns 3..7 has X == 3 and Width == 5.
//
// # Measurements
//
//   - BoundingRect: smallest upright box around a contour
//   - ContourArea: polygon area by the shoelace formula (border pixel centres as
//     vertices, so a traced 10x40 block measures 9*39 = 351)
//   - AspectRatio: min(w, h) / max(w, h)
//   - ArcLength: polygon perimeter
package detection
