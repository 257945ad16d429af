package wydecoder

import "fmt"

type conversionKey struct {
	width  int
	height int
	format PixelFormat
}

// conversionContext converts frames of one (width, height, format) into
// packed BGR. Building it precomputes per-column chroma offsets so that
// converting same-shaped frames afterwards allocates nothing.
type conversionContext struct {
	key     conversionKey
	chromaX []int // chroma plane byte offset for each column, 4:2:0 formats only
	convert func(c *conversionContext, src *Frame, dst *rgbBuffer) error
}

// getCachedContext returns ctx if it already matches the given parameters,
// and a new context otherwise. It returns nil if no conversion exists for
// them, in which case ctx should be considered invalid anyway.
func getCachedContext(ctx *conversionContext, width, height int, format PixelFormat) *conversionContext {
	key := conversionKey{width: width, height: height, format: format}
	if ctx != nil && ctx.key == key {
		return ctx
	}
	if width <= 0 || height <= 0 {
		return nil
	}

	ctx = &conversionContext{key: key}
	switch format {
	case PixelFormatYUV420P:
		ctx.convert = convertYUV420P
		ctx.chromaX = make([]int, width)
		for x := range ctx.chromaX {
			ctx.chromaX[x] = x / 2
		}
	case PixelFormatNV12:
		ctx.convert = convertNV12
		ctx.chromaX = make([]int, width)
		for x := range ctx.chromaX {
			ctx.chromaX[x] = (x / 2) * 2
		}
	case PixelFormatRGBA:
		ctx.convert = convertRGBA
	case PixelFormatBGR24:
		ctx.convert = convertBGR24
	default:
		return nil
	}
	ConversionContextBuilds.Inc()
	return ctx
}

// Convert writes src into dst, which must already have the context's
// dimensions.
func (c *conversionContext) Convert(src *Frame, dst *rgbBuffer) error {
	if src.Width != c.key.width || src.Height != c.key.height || src.Format != c.key.format {
		return fmt.Errorf("%w: frame %s %dx%d doesn't match context %s %dx%d", ErrUnsupportedFormat,
			src.Format, src.Width, src.Height, c.key.format, c.key.width, c.key.height)
	}
	if dst.width != c.key.width || dst.height != c.key.height {
		return fmt.Errorf("output buffer %dx%d doesn't match context %dx%d",
			dst.width, dst.height, c.key.width, c.key.height)
	}
	for n := 0; n < src.Format.PlaneCount(); n++ {
		if src.plane(n) == nil {
			return fmt.Errorf("%w: plane %d is truncated", ErrUnsupportedFormat, n)
		}
		if minStride := src.Format.MinStride(n, src.Width); src.Strides[n] < minStride {
			return fmt.Errorf("%w: plane %d stride %d is shorter than a %d byte row",
				ErrUnsupportedFormat, n, src.Strides[n], minStride)
		}
	}
	return c.convert(c, src, dst)
}

func convertYUV420P(c *conversionContext, src *Frame, dst *rgbBuffer) error {
	yPlane, uPlane, vPlane := src.Planes[0], src.Planes[1], src.Planes[2]
	yStride, uStride, vStride := src.Strides[0], src.Strides[1], src.Strides[2]

	for y := 0; y < src.Height; y++ {
		yRow := yPlane[y*yStride:]
		uRow := uPlane[(y/2)*uStride:]
		vRow := vPlane[(y/2)*vStride:]
		out := dst.pix[y*dst.stride:]
		for x := 0; x < src.Width; x++ {
			cx := c.chromaX[x]
			writeBGR(out[x*3:], yRow[x], uRow[cx], vRow[cx])
		}
	}
	return nil
}

func convertNV12(c *conversionContext, src *Frame, dst *rgbBuffer) error {
	yPlane, uvPlane := src.Planes[0], src.Planes[1]
	yStride, uvStride := src.Strides[0], src.Strides[1]

	for y := 0; y < src.Height; y++ {
		yRow := yPlane[y*yStride:]
		uvRow := uvPlane[(y/2)*uvStride:]
		out := dst.pix[y*dst.stride:]
		for x := 0; x < src.Width; x++ {
			cx := c.chromaX[x]
			writeBGR(out[x*3:], yRow[x], uvRow[cx], uvRow[cx+1])
		}
	}
	return nil
}

func convertRGBA(_ *conversionContext, src *Frame, dst *rgbBuffer) error {
	plane, stride := src.Planes[0], src.Strides[0]
	for y := 0; y < src.Height; y++ {
		in := plane[y*stride:]
		out := dst.pix[y*dst.stride:]
		for x := 0; x < src.Width; x++ {
			out[x*3] = in[x*4+2]
			out[x*3+1] = in[x*4+1]
			out[x*3+2] = in[x*4]
		}
	}
	return nil
}

func convertBGR24(_ *conversionContext, src *Frame, dst *rgbBuffer) error {
	plane, stride := src.Planes[0], src.Strides[0]
	rowBytes := src.Width * 3
	for y := 0; y < src.Height; y++ {
		copy(dst.pix[y*dst.stride:y*dst.stride+rowBytes], plane[y*stride:])
	}
	return nil
}

// writeBGR converts one BT.601 limited range sample into out[0:3].
func writeBGR(out []byte, yVal, uVal, vVal byte) {
	c := int(yVal) - 16
	d := int(uVal) - 128
	e := int(vVal) - 128

	out[0] = clamp8((298*c + 516*d + 128) >> 8)
	out[1] = clamp8((298*c - 100*d - 208*e + 128) >> 8)
	out[2] = clamp8((298*c + 409*e + 128) >> 8)
}

func clamp8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
