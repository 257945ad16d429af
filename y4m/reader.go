package y4m

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	wydecoder "github.com/erparts/go-wydecoder"
)

const (
	streamMagic = "YUV4MPEG2"
	frameMagic  = "FRAME"

	// longest header line we accept, parameters included
	maxHeaderLine = 4096
)

var (
	ErrBadHeader = errors.New("y4m: malformed header")
	ErrBadFrame  = errors.New("y4m: malformed frame")
)

var _ wydecoder.Source = (*Reader)(nil)

// Reader is a [wydecoder.Source] over a y4m file. Frame offsets are
// indexed when opening, so seeking is exact and cheap.
type Reader struct {
	file   io.ReaderAt
	closer io.Closer

	header  Header
	offsets []int64 // data offset of each frame
	next    int     // index of the next frame to read
}

// Header holds the stream parameters of a y4m file.
type Header struct {
	Width  int
	Height int
	FPSNum int
	FPSDen int
}

func (h Header) lumaSize() int   { return h.Width * h.Height }
func (h Header) chromaSize() int { return ((h.Width + 1) / 2) * ((h.Height + 1) / 2) }
func (h Header) frameSize() int  { return h.lumaSize() + 2*h.chromaSize() }

// Open opens and indexes the y4m file at path.
func Open(path string) (wydecoder.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader indexes a y4m stream. The reader doesn't take ownership of
// r: closing the Reader won't close it.
func NewReader(r io.ReaderAt) (*Reader, error) {
	buffered := bufio.NewReader(io.NewSectionReader(r, 0, 1<<62))

	line, err := readLine(buffered)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	header, err := parseHeader(line)
	if err != nil {
		return nil, err
	}

	reader := &Reader{file: r, header: header}
	offset := int64(len(line) + 1)
	frameSize := header.frameSize()
	for {
		line, err := readLine(buffered)
		if errors.Is(err, io.EOF) && line == "" {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", ErrBadFrame, len(reader.offsets), err)
		}
		if !strings.HasPrefix(line, frameMagic) {
			return nil, fmt.Errorf("%w: frame %d: unexpected %q", ErrBadFrame, len(reader.offsets), line)
		}
		offset += int64(len(line) + 1)
		discarded, err := buffered.Discard(frameSize)
		if discarded < frameSize {
			// truncated trailing frame, ignore it
			break
		}
		if err != nil {
			return nil, err
		}
		reader.offsets = append(reader.offsets, offset)
		offset += int64(frameSize)
	}
	return reader, nil
}

// Header returns the stream parameters.
func (r *Reader) Header() Header { return r.header }

// FrameCount returns the number of complete frames in the stream.
func (r *Reader) FrameCount() int { return len(r.offsets) }

func (r *Reader) ReadFrame() (*wydecoder.Frame, error) {
	if r.next >= len(r.offsets) {
		return nil, io.EOF
	}

	h := r.header
	data := make([]byte, h.frameSize())
	if _, err := r.file.ReadAt(data, r.offsets[r.next]); err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", ErrBadFrame, r.next, err)
	}
	luma, chroma := h.lumaSize(), h.chromaSize()
	chromaStride := (h.Width + 1) / 2

	frame := &wydecoder.Frame{
		Width:  h.Width,
		Height: h.Height,
		Format: wydecoder.PixelFormatYUV420P,
		PTS:    int64(r.next),
		Planes: [][]byte{
			data[:luma:luma],
			data[luma : luma+chroma : luma+chroma],
			data[luma+chroma:],
		},
		Strides: []int{h.Width, chromaStride, chromaStride},
	}
	r.next++
	return frame, nil
}

// Seek positions the reader on the frame displayed at the given position.
func (r *Reader) Seek(position time.Duration) error {
	index := int(position * time.Duration(r.header.FPSNum) / (time.Duration(r.header.FPSDen) * time.Second))
	r.next = min(max(index, 0), len(r.offsets))
	return nil
}

func (r *Reader) Duration() time.Duration {
	return wydecoder.FrameTime(int64(len(r.offsets)), r.header.FPSDen, r.header.FPSNum)
}

func (r *Reader) FrameDuration() time.Duration {
	return wydecoder.FrameTime(1, r.header.FPSDen, r.header.FPSNum)
}

// TimeBase is one frame: Frame.PTS is the frame index.
func (r *Reader) TimeBase() (num, den int) {
	return r.header.FPSDen, r.header.FPSNum
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for sb.Len() < maxHeaderLine {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				return sb.String(), io.ErrUnexpectedEOF
			}
			return sb.String(), err
		}
		if b == '\n' {
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
	return sb.String(), fmt.Errorf("line longer than %d bytes", maxHeaderLine)
}

func parseHeader(line string) (Header, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != streamMagic {
		return Header{}, fmt.Errorf("%w: missing %s signature", ErrBadHeader, streamMagic)
	}

	h := Header{FPSNum: 25, FPSDen: 1}
	for _, field := range fields[1:] {
		key, value := field[0], field[1:]
		var err error
		switch key {
		case 'W':
			h.Width, err = strconv.Atoi(value)
		case 'H':
			h.Height, err = strconv.Atoi(value)
		case 'F':
			h.FPSNum, h.FPSDen, err = parseRatio(value)
		case 'C':
			switch value {
			case "420", "420jpeg", "420paldv", "420mpeg2":
			default:
				return Header{}, fmt.Errorf("%w: colorspace %s", wydecoder.ErrUnsupportedFormat, value)
			}
		}
		if err != nil {
			return Header{}, fmt.Errorf("%w: %s: %v", ErrBadHeader, field, err)
		}
	}
	if h.Width <= 0 || h.Height <= 0 {
		return Header{}, fmt.Errorf("%w: invalid size %dx%d", ErrBadHeader, h.Width, h.Height)
	}
	if h.FPSNum <= 0 || h.FPSDen <= 0 {
		return Header{}, fmt.Errorf("%w: invalid frame rate %d:%d", ErrBadHeader, h.FPSNum, h.FPSDen)
	}
	return h, nil
}

func parseRatio(s string) (int, int, error) {
	num, den, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, fmt.Errorf("expected num:den")
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, 0, err
	}
	d, err := strconv.Atoi(den)
	if err != nil {
		return 0, 0, err
	}
	return n, d, nil
}
