package wydecoder

// rgbBuffer is the single output allocation shared by every RGB frame of a
// session. Pixels are packed B, G, R with stride bytes per row.
type rgbBuffer struct {
	width  int
	height int
	stride int
	pix    []byte
}

// ensure makes the buffer match the given dimensions, reallocating only
// when they changed. Returns whether a new allocation was made.
func (b *rgbBuffer) ensure(width, height int) bool {
	if b.pix != nil && b.width == width && b.height == height {
		return false
	}
	b.width = width
	b.height = height
	b.stride = width * 3
	b.pix = make([]byte, b.stride*height)
	OutputBufferAllocations.Inc()
	return true
}

// bytes returns the width*height*3 bytes holding the image.
func (b *rgbBuffer) bytes() []byte {
	return b.pix[:b.width*b.height*3]
}
