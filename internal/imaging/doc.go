// Package imaging provides image I/O and raster helpers for the cell classifier.
//
// It covers the parts of the pipeline that deal with full-color images rather than
// single-channel planes: decoding files and buffers, caching decoded micrographs,
// encoding results as PNG (raw or base64 for MCP clients), cropping a cell out of a
// smear, parsing annotation colors and stroking bounding rectangles.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based with the origin at the top-left:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//   - DrawRectangle is the exception: both corners are inclusive, matching how
//     annotation boxes are specified as (x, y)-(x+width, y+height)
//
// # Supported Formats
//
// PNG, JPEG and GIF through the standard library, TIFF, BMP and WebP through
// golang.org/x/image. Decoding goes through disintegration/imaging so EXIF
// orientation is honoured.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The remaining functions are stateless;
// DrawRectangle mutates its destination and must not race with readers of it.
package imaging
