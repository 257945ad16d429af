// Package ffsource provides a [wydecoder.Source] backed by FFmpeg through
// [reisen], able to open any container and codec FFmpeg supports.
//
// [reisen]: https://github.com/erparts/reisen
package ffsource

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	wydecoder "github.com/erparts/go-wydecoder"
	"github.com/erparts/reisen"
)

var _ wydecoder.Source = (*Source)(nil)

// Source decodes the first video stream of a media file into RGBA frames.
type Source struct {
	media  *reisen.Media
	stream *reisen.VideoStream

	// static data
	width, height int
	tbNum, tbDen  int
	duration      time.Duration
	frameDuration time.Duration
}

// Open opens the media at path and prepares its first video stream for
// decoding.
func Open(path string) (wydecoder.Source, error) {
	media, err := reisen.NewMedia(path)
	if err != nil {
		return nil, err
	}

	videoStreams := media.VideoStreams()
	if len(videoStreams) == 0 {
		media.Close()
		return nil, wydecoder.ErrNoVideo
	}
	if len(videoStreams) > 1 {
		wydecoder.Warnf("'%s' has multiple video streams; defaulting to the first", filepath.Base(path))
	}
	stream := videoStreams[0]

	frNum, frDenom := stream.FrameRate()
	if frNum <= 0 || frDenom <= 0 {
		media.Close()
		return nil, fmt.Errorf("invalid frame rate %d/%d", frNum, frDenom)
	}
	duration, err := stream.Duration()
	if err != nil {
		media.Close()
		return nil, err
	}
	tbNum, tbDen := stream.TimeBase()

	if err := media.OpenDecode(); err != nil {
		media.Close()
		return nil, err
	}
	if err := stream.Open(); err != nil {
		_ = media.CloseDecode()
		media.Close()
		return nil, err
	}

	return &Source{
		media:         media,
		stream:        stream,
		width:         stream.Width(),
		height:        stream.Height(),
		tbNum:         tbNum,
		tbDen:         tbDen,
		duration:      duration,
		frameDuration: (time.Second * time.Duration(frDenom)) / time.Duration(frNum),
	}, nil
}

func (s *Source) ReadFrame() (*wydecoder.Frame, error) {
	// read packets until we come across the next video frame packet
	for {
		packet, packetFound, err := s.media.ReadPacket()
		if err != nil {
			return nil, err
		}
		if !packetFound {
			return nil, io.EOF
		}
		if packet.Type() != reisen.StreamVideo || packet.StreamIndex() != s.stream.Index() {
			continue
		}

		frame, _, err := s.stream.ReadVideoFrame()
		if err != nil {
			return nil, err
		}
		if frame == nil {
			// frameFound can be true while frame is nil: that's a frame skip
			continue
		}

		offset, err := frame.PresentationOffset()
		if err != nil {
			return nil, err
		}
		return &wydecoder.Frame{
			Width:   s.width,
			Height:  s.height,
			Format:  wydecoder.PixelFormatRGBA,
			PTS:     wydecoder.PTSFromTime(offset, s.tbNum, s.tbDen),
			Planes:  [][]byte{frame.Data()},
			Strides: []int{s.width * 4},
		}, nil
	}
}

func (s *Source) Seek(position time.Duration) error {
	return s.stream.Rewind(max(position, 0))
}

func (s *Source) Duration() time.Duration      { return s.duration }
func (s *Source) FrameDuration() time.Duration { return s.frameDuration }
func (s *Source) TimeBase() (num, den int)     { return s.tbNum, s.tbDen }

func (s *Source) Close() error {
	err := s.stream.Close()
	if decodeErr := s.media.CloseDecode(); err == nil {
		err = decodeErr
	}
	s.media.Close()
	return err
}
