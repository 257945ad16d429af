package wydecoder

import (
	"math"
	"path/filepath"
	"strings"
	"time"
)

// A Source is the demuxing and decoding backend behind a decode engine.
// Engines only ever drive a source from a single goroutine at a time.
type Source interface {
	// Returns the next decoded frame in decode order, or io.EOF once the
	// stream is exhausted.
	ReadFrame() (*Frame, error)

	// Repositions the source so the next ReadFrame returns a frame at or
	// before the given position (typically the closest preceding keyframe).
	Seek(position time.Duration) error

	// Returns the total stream duration.
	Duration() time.Duration

	// Returns the nominal duration of a single frame.
	FrameDuration() time.Duration

	// Returns the time base of Frame.PTS values as a rational number of seconds.
	TimeBase() (num, den int)

	Close() error
}

// SourceOpener opens a [Source] for the given path.
type SourceOpener func(path string) (Source, error)

// OpenerByExtension dispatches to byExt using the lowercased file extension
// (including the dot, e.g. ".y4m"), falling back to fallback otherwise.
func OpenerByExtension(byExt map[string]SourceOpener, fallback SourceOpener) SourceOpener {
	return func(path string) (Source, error) {
		ext := strings.ToLower(filepath.Ext(path))
		if open, found := byExt[ext]; found {
			return open(path)
		}
		if fallback == nil {
			return nil, ErrUnsupportedSource
		}
		return fallback(path)
	}
}

// FrameTime converts a pts in num/den ticks to a position.
func FrameTime(pts int64, num, den int) time.Duration {
	if den == 0 {
		return 0
	}
	seconds := float64(pts) * float64(num) / float64(den)
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

// PTSFromTime converts a position to the nearest pts in num/den ticks.
func PTSFromTime(position time.Duration, num, den int) int64 {
	if num == 0 {
		return 0
	}
	ticks := position.Seconds() * float64(den) / float64(num)
	return int64(math.Round(ticks))
}
