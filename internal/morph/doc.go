// Package morph implements the single-channel raster operations of the cell
// segmentation pipeline: luma conversion, adaptive mean thresholding, binary
// dilation with a structuring element, and Canny edge detection.
//
// All operations work on Plane, a row-major 8-bit raster with its origin at (0,0).
// Operations never modify their input; each returns a freshly allocated Plane.
//
// # Border Handling
//
// The three neighbourhood operations treat the image border differently, and the
// difference is observable on small images:
//   - AdaptiveMeanThreshold replicates edge pixels when the window leaves the image
//   - Dilate ignores structuring-element positions that fall outside the image
//   - Canny replicates edge pixels for the Sobel derivatives and treats the
//     gradient magnitude outside the image as zero during non-maximum suppression
package morph
