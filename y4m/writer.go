package y4m

import (
	"bufio"
	"fmt"
	"io"
)

// Writer produces a 4:2:0 y4m stream.
type Writer struct {
	w      *bufio.Writer
	header Header
}

// NewWriter writes the stream header and returns a Writer for its frames.
func NewWriter(w io.Writer, width, height, fpsNum, fpsDen int) (*Writer, error) {
	if width <= 0 || height <= 0 || fpsNum <= 0 || fpsDen <= 0 {
		return nil, fmt.Errorf("%w: %dx%d at %d:%d", ErrBadHeader, width, height, fpsNum, fpsDen)
	}
	h := Header{Width: width, Height: height, FPSNum: fpsNum, FPSDen: fpsDen}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s W%d H%d F%d:%d Ip A1:1 C420jpeg\n", streamMagic, width, height, fpsNum, fpsDen); err != nil {
		return nil, err
	}
	return &Writer{w: bw, header: h}, nil
}

// WriteFrame writes one frame. Planes must be tightly packed: y holds
// width*height bytes and u, v hold ceil(width/2)*ceil(height/2) bytes each.
func (w *Writer) WriteFrame(y, u, v []byte) error {
	if len(y) != w.header.lumaSize() || len(u) != w.header.chromaSize() || len(v) != w.header.chromaSize() {
		return fmt.Errorf("%w: plane sizes %d/%d/%d", ErrBadFrame, len(y), len(u), len(v))
	}
	if _, err := w.w.WriteString(frameMagic + "\n"); err != nil {
		return err
	}
	for _, plane := range [][]byte{y, u, v} {
		if _, err := w.w.Write(plane); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
