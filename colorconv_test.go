package wydecoder

import (
	"image"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCachedContext(t *testing.T) {
	builds := testutil.ToFloat64(ConversionContextBuilds)

	ctx := getCachedContext(nil, 4, 2, PixelFormatYUV420P)
	require.NotNil(t, ctx)
	assert.Same(t, ctx, getCachedContext(ctx, 4, 2, PixelFormatYUV420P))
	assert.Equal(t, builds+1, testutil.ToFloat64(ConversionContextBuilds))

	resized := getCachedContext(ctx, 8, 2, PixelFormatYUV420P)
	require.NotNil(t, resized)
	assert.NotSame(t, ctx, resized)

	reformatted := getCachedContext(resized, 8, 2, PixelFormatNV12)
	require.NotNil(t, reformatted)
	assert.NotSame(t, resized, reformatted)
	assert.Equal(t, builds+3, testutil.ToFloat64(ConversionContextBuilds))

	assert.Nil(t, getCachedContext(nil, 4, 2, PixelFormatUnknown))
	assert.Nil(t, getCachedContext(nil, 0, 2, PixelFormatYUV420P))
	assert.Nil(t, getCachedContext(nil, 4, -1, PixelFormatRGBA))
}

func convertOne(t *testing.T, frame *Frame) []byte {
	t.Helper()
	ctx := getCachedContext(nil, frame.Width, frame.Height, frame.Format)
	require.NotNil(t, ctx)
	var out rgbBuffer
	out.ensure(frame.Width, frame.Height)
	require.NoError(t, ctx.Convert(frame, &out))
	return out.bytes()
}

func TestConvertYUV420P(t *testing.T) {
	tests := []struct {
		message string
		y, u, v byte
		bgr     []byte
	}{
		{message: "video black", y: 16, u: 128, v: 128, bgr: []byte{0, 0, 0}},
		{message: "video white", y: 235, u: 128, v: 128, bgr: []byte{255, 255, 255}},
		{message: "red", y: 81, u: 90, v: 240, bgr: []byte{0, 0, 255}},
		{message: "below black clamps", y: 0, u: 128, v: 128, bgr: []byte{0, 0, 0}},
	}

	for _, test := range tests {
		frame := &Frame{
			Width:   2,
			Height:  2,
			Format:  PixelFormatYUV420P,
			Planes:  [][]byte{{test.y, test.y, test.y, test.y}, {test.u}, {test.v}},
			Strides: []int{2, 1, 1},
		}
		out := convertOne(t, frame)
		require.Len(t, out, 12, test.message)
		for px := 0; px < 4; px++ {
			assert.Equal(t, test.bgr, out[px*3:px*3+3], test.message)
		}
	}
}

func TestConvertYUV420PWithPadding(t *testing.T) {
	// 3x3 frame, luma stride 4 and chroma stride 3, padding bytes are 0xff
	frame := &Frame{
		Width:  3,
		Height: 3,
		Format: PixelFormatYUV420P,
		Planes: [][]byte{
			{16, 16, 16, 0xff, 16, 16, 16, 0xff, 235, 235, 235, 0xff},
			{128, 128, 0xff, 128, 128, 0xff},
			{128, 128, 0xff, 128, 128, 0xff},
		},
		Strides: []int{4, 3, 3},
	}
	out := convertOne(t, frame)
	require.Len(t, out, 27)
	assert.Equal(t, make([]byte, 18), out[:18], "first two rows are black")
	for i := 18; i < 27; i++ {
		assert.Equal(t, byte(255), out[i], "last row is white")
	}
}

func TestConvertNV12(t *testing.T) {
	frame := &Frame{
		Width:   2,
		Height:  2,
		Format:  PixelFormatNV12,
		Planes:  [][]byte{{81, 81, 81, 81}, {90, 240}},
		Strides: []int{2, 2},
	}
	out := convertOne(t, frame)
	for px := 0; px < 4; px++ {
		assert.Equal(t, []byte{0, 0, 255}, out[px*3:px*3+3])
	}
}

func TestConvertPacked(t *testing.T) {
	rgba := &Frame{
		Width:   2,
		Height:  1,
		Format:  PixelFormatRGBA,
		Planes:  [][]byte{{10, 20, 30, 255, 40, 50, 60, 255}},
		Strides: []int{8},
	}
	assert.Equal(t, []byte{30, 20, 10, 60, 50, 40}, convertOne(t, rgba))

	bgr := &Frame{
		Width:   1,
		Height:  2,
		Format:  PixelFormatBGR24,
		Planes:  [][]byte{{1, 2, 3, 0, 4, 5, 6, 0}},
		Strides: []int{4},
	}
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, convertOne(t, bgr))
}

func TestConvertRejectsMismatches(t *testing.T) {
	ctx := getCachedContext(nil, 2, 2, PixelFormatYUV420P)
	require.NotNil(t, ctx)
	var out rgbBuffer
	out.ensure(2, 2)

	other := &Frame{Width: 4, Height: 2, Format: PixelFormatYUV420P}
	assert.ErrorIs(t, ctx.Convert(other, &out), ErrUnsupportedFormat)

	truncated := &Frame{
		Width:   2,
		Height:  2,
		Format:  PixelFormatYUV420P,
		Planes:  [][]byte{{16, 16}, {128}, {128}},
		Strides: []int{2, 1, 1},
	}
	assert.ErrorIs(t, ctx.Convert(truncated, &out), ErrUnsupportedFormat)

	var small rgbBuffer
	small.ensure(1, 1)
	valid := &Frame{
		Width:   2,
		Height:  2,
		Format:  PixelFormatYUV420P,
		Planes:  [][]byte{{16, 16, 16, 16}, {128}, {128}},
		Strides: []int{2, 1, 1},
	}
	assert.Error(t, ctx.Convert(valid, &small))
}

func TestConvertRejectsShortStrides(t *testing.T) {
	tests := []struct {
		message string
		frame   *Frame
	}{
		{
			message: "yuv420p chroma stride below half the width",
			frame: &Frame{Width: 4, Height: 2, Format: PixelFormatYUV420P,
				Planes: [][]byte{make([]byte, 8), make([]byte, 1), make([]byte, 1)}, Strides: []int{4, 1, 1}},
		},
		{
			message: "yuv420p luma stride below the width",
			frame: &Frame{Width: 4, Height: 2, Format: PixelFormatYUV420P,
				Planes: [][]byte{make([]byte, 4), make([]byte, 2), make([]byte, 2)}, Strides: []int{2, 2, 2}},
		},
		{
			message: "nv12 interleaved chroma needs two bytes per chroma sample",
			frame: &Frame{Width: 3, Height: 2, Format: PixelFormatNV12,
				Planes: [][]byte{make([]byte, 6), make([]byte, 2)}, Strides: []int{3, 2}},
		},
		{
			message: "rgba stride below four bytes per pixel",
			frame: &Frame{Width: 2, Height: 1, Format: PixelFormatRGBA,
				Planes: [][]byte{make([]byte, 6)}, Strides: []int{6}},
		},
		{
			message: "bgr24 stride below three bytes per pixel",
			frame: &Frame{Width: 2, Height: 1, Format: PixelFormatBGR24,
				Planes: [][]byte{make([]byte, 4)}, Strides: []int{4}},
		},
	}

	for _, test := range tests {
		f := test.frame
		ctx := getCachedContext(nil, f.Width, f.Height, f.Format)
		require.NotNil(t, ctx, test.message)
		var out rgbBuffer
		out.ensure(f.Width, f.Height)
		assert.NotPanics(t, func() {
			assert.ErrorIs(t, ctx.Convert(f, &out), ErrUnsupportedFormat, test.message)
		}, test.message)
	}
}

func TestMinStride(t *testing.T) {
	assert.Equal(t, 5, PixelFormatYUV420P.MinStride(0, 5))
	assert.Equal(t, 3, PixelFormatYUV420P.MinStride(2, 5))
	assert.Equal(t, 4, PixelFormatNV12.MinStride(1, 3))
	assert.Equal(t, 20, PixelFormatRGBA.MinStride(0, 5))
	assert.Equal(t, 15, PixelFormatBGR24.MinStride(0, 5))
	assert.Equal(t, 0, PixelFormatBGR24.MinStride(1, 5))
	assert.Equal(t, 0, PixelFormatUnknown.MinStride(0, 5))
}

func TestSessionRGBFrameShortStride(t *testing.T) {
	open := func(string) (Source, error) {
		return &shortStrideSource{memSource: newMemSource(3)}, nil
	}
	s := NewSession(testConfig(), open)
	defer s.Close()
	require.True(t, s.Load("clip"))
	require.True(t, s.Start())

	assert.NotPanics(t, func() {
		_, ok := s.RGBFrame(time.Second)
		assert.False(t, ok)
	})
}

// shortStrideSource declares chroma strides narrower than a chroma row.
type shortStrideSource struct {
	*memSource
}

func (s *shortStrideSource) ReadFrame() (*Frame, error) {
	frame, err := s.memSource.ReadFrame()
	if err != nil {
		return nil, err
	}
	frame.Strides = []int{frame.Strides[0], 1, 1}
	return frame, nil
}

func TestRGBBufferEnsure(t *testing.T) {
	var b rgbBuffer
	assert.True(t, b.ensure(4, 2))
	first := &b.bytes()[0]
	assert.Len(t, b.bytes(), 24)

	assert.False(t, b.ensure(4, 2))
	assert.Same(t, first, &b.bytes()[0])

	assert.True(t, b.ensure(2, 2))
	assert.Len(t, b.bytes(), 12)
}

func TestDrawRectOutline(t *testing.T) {
	var b rgbBuffer
	b.ensure(6, 6)
	drawRectOutline(&b, image.Rect(1, 1, 5, 4), 1, 2, 3)

	at := func(x, y int) []byte {
		i := y*b.stride + x*3
		return b.pix[i : i+3]
	}
	set := []byte{1, 2, 3}
	assert.Equal(t, set, at(1, 1))
	assert.Equal(t, set, at(4, 1))
	assert.Equal(t, set, at(1, 3))
	assert.Equal(t, set, at(4, 3))
	assert.Equal(t, set, at(2, 3))
	assert.Equal(t, []byte{0, 0, 0}, at(2, 2), "inside stays untouched")
	assert.Equal(t, []byte{0, 0, 0}, at(0, 0))
	assert.Equal(t, []byte{0, 0, 0}, at(5, 4))

	// partially and fully outside rectangles are clipped
	assert.NotPanics(t, func() {
		drawRectOutline(&b, image.Rect(4, 4, 20, 20), 9, 9, 9)
		drawRectOutline(&b, image.Rect(100, 100, 300, 250), 9, 9, 9)
	})
	assert.Equal(t, []byte{9, 9, 9}, at(4, 5))
	assert.Equal(t, []byte{9, 9, 9}, at(5, 4))
}
