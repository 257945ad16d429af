package wydecoder

import "time"

// PixelFormat identifies the native memory layout of a decoded [Frame].
type PixelFormat uint8

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatYUV420P             // planar Y, U, V with 2x2 subsampled chroma
	PixelFormatNV12                // planar Y + interleaved UV, 2x2 subsampled
	PixelFormatRGBA                // packed, 4 bytes per pixel
	PixelFormatBGR24               // packed, 3 bytes per pixel
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatYUV420P:
		return "yuv420p"
	case PixelFormatNV12:
		return "nv12"
	case PixelFormatRGBA:
		return "rgba"
	case PixelFormatBGR24:
		return "bgr24"
	default:
		return "unknown"
	}
}

// PlaneCount returns the number of planes used by the format.
func (p PixelFormat) PlaneCount() int {
	switch p {
	case PixelFormatYUV420P:
		return 3
	case PixelFormatNV12:
		return 2
	case PixelFormatRGBA, PixelFormatBGR24:
		return 1
	default:
		return 0
	}
}

// PlaneRows returns how many rows the given plane holds for a frame of the
// given height. Chroma planes of 4:2:0 layouts round up on odd heights.
func (p PixelFormat) PlaneRows(plane, height int) int {
	if plane < 0 || plane >= p.PlaneCount() {
		return 0
	}
	if plane > 0 && (p == PixelFormatYUV420P || p == PixelFormatNV12) {
		return (height + 1) / 2
	}
	return height
}

// MinStride returns how many bytes a row of the given plane needs for a
// frame of the given width.
func (p PixelFormat) MinStride(plane, width int) int {
	if plane < 0 || plane >= p.PlaneCount() {
		return 0
	}
	chromaWidth := (width + 1) / 2
	switch p {
	case PixelFormatYUV420P:
		if plane == 0 {
			return width
		}
		return chromaWidth
	case PixelFormatNV12:
		if plane == 0 {
			return width
		}
		return 2 * chromaWidth
	case PixelFormatRGBA:
		return 4 * width
	case PixelFormatBGR24:
		return 3 * width
	default:
		return 0
	}
}

// A Frame is a decoded picture as produced by a [Source]. The frame
// owns its plane memory: sources must not reuse it after handing the
// frame out, since frames wait in the queue while newer ones are decoded.
type Frame struct {
	Width  int
	Height int
	Format PixelFormat
	PTS    int64 // presentation timestamp in source time base ticks

	Planes  [][]byte
	Strides []int
}

// plane returns the bytes of plane n limited to stride × rows, or nil if
// the plane is missing or shorter than its declared geometry.
func (f *Frame) plane(n int) []byte {
	if n >= len(f.Planes) || n >= len(f.Strides) {
		return nil
	}
	size := f.Strides[n] * f.Format.PlaneRows(n, f.Height)
	if size <= 0 || len(f.Planes[n]) < size {
		return nil
	}
	return f.Planes[n][:size]
}

// RawFrame is the result of [Session.Frame]: the native planes of the
// decoded frame, without any conversion. The slices alias the frame and
// stay valid until the session dequeues or discards another frame.
//
// For YUV420P, Luma, U and V hold one plane each. NV12 places its
// interleaved chroma plane in U. Packed formats only fill Luma.
type RawFrame struct {
	Width   int
	Height  int
	Format  PixelFormat
	PTS     time.Duration
	Luma    []byte
	U       []byte
	V       []byte
	Strides []int
}

// RGBFrame is the result of [Session.RGBFrame]. Data holds Width*Height*3
// bytes in B, G, R order and is reused by the next call, so it must be
// copied if it needs to outlive it.
type RGBFrame struct {
	Width  int
	Height int
	PTS    time.Duration
	Data   []byte
}
