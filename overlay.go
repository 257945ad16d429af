package wydecoder

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/colornames"
)

// The debug overlay is a rectangle outline drawn at a fixed position on
// every RGB frame. It is only drawn when Config.DebugOverlay is set.
var debugOverlayRect = image.Rect(100, 100, 300, 250)

// lookupOverlayColor resolves an SVG color keyword. An empty name means
// cyan.
func lookupOverlayColor(name string) (color.RGBA, bool) {
	if name == "" {
		return colornames.Cyan, true
	}
	c, ok := colornames.Map[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// drawRectOutline draws a 1 pixel outline of r into the BGR buffer,
// clipped to the buffer bounds.
func drawRectOutline(dst *rgbBuffer, r image.Rectangle, b, g, rd byte) {
	bounds := image.Rect(0, 0, dst.width, dst.height)
	clipped := r.Intersect(bounds)
	if clipped.Empty() {
		return
	}

	set := func(x, y int) {
		i := y*dst.stride + x*3
		dst.pix[i], dst.pix[i+1], dst.pix[i+2] = b, g, rd
	}
	for x := clipped.Min.X; x < clipped.Max.X; x++ {
		if r.Min.Y >= bounds.Min.Y && r.Min.Y < bounds.Max.Y {
			set(x, r.Min.Y)
		}
		if r.Max.Y-1 >= bounds.Min.Y && r.Max.Y-1 < bounds.Max.Y {
			set(x, r.Max.Y-1)
		}
	}
	for y := clipped.Min.Y; y < clipped.Max.Y; y++ {
		if r.Min.X >= bounds.Min.X && r.Min.X < bounds.Max.X {
			set(r.Min.X, y)
		}
		if r.Max.X-1 >= bounds.Min.X && r.Max.X-1 < bounds.Max.X {
			set(r.Max.X-1, y)
		}
	}
}

func drawDebugOverlay(dst *rgbBuffer, c color.RGBA) {
	drawRectOutline(dst, debugOverlayRect, c.B, c.G, c.R)
}
