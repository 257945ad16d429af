package ffsource

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wydecoder "github.com/erparts/go-wydecoder"
	"github.com/erparts/go-wydecoder/y4m"
)

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}

func TestDecodeY4M(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.y4m")
	file, err := os.Create(path)
	require.NoError(t, err)
	writer, err := y4m.NewWriter(file, 16, 8, 25, 1)
	require.NoError(t, err)
	for n := range 5 {
		luma := bytes.Repeat([]byte{byte(16 + n*40)}, 16*8)
		chroma := bytes.Repeat([]byte{128}, 8*4)
		require.NoError(t, writer.WriteFrame(luma, chroma, chroma))
	}
	require.NoError(t, writer.Flush())
	require.NoError(t, file.Close())

	source, err := Open(path)
	if err != nil {
		t.Skipf("FFmpeg can't demux y4m here: %v", err)
	}
	defer source.Close()

	var frames []*wydecoder.Frame
	for {
		frame, err := source.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		frames = append(frames, frame)
	}
	require.NotEmpty(t, frames)

	first := frames[0]
	assert.Equal(t, wydecoder.PixelFormatRGBA, first.Format)
	assert.Equal(t, 16, first.Width)
	assert.Equal(t, 8, first.Height)
	assert.Equal(t, []int{64}, first.Strides)
	assert.GreaterOrEqual(t, len(first.Planes[0]), 16*8*4)
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].PTS, frames[i-1].PTS)
	}

	require.NoError(t, source.Seek(0))
	frame, err := source.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, first.PTS, frame.PTS)
}
