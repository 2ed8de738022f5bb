package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses a "#RRGGBB" or "#RGB" hex string into an opaque color.
// The leading '#' is optional.
func ParseColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	if len(hex) != 4 && len(hex) != 7 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: want #RGB or #RRGGBB", hex)
	}
	for _, r := range hex[1:] {
		if !isHexDigit(r) {
			return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %q is not a hex digit", hex, r)
		}
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

func isHexDigit(r rune) bool {
	return ('0' <= r && r <= '9') || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}

// SampleHex returns the "#rrggbb" color of the pixel at (x, y), or an empty
// string when the point is outside the image or fully transparent.
func SampleHex(img image.Image, x, y int) string {
	if !image.Pt(x, y).In(img.Bounds()) {
		return ""
	}
	c, ok := colorful.MakeColor(img.At(x, y))
	if !ok {
		return ""
	}
	return c.Hex()
}
