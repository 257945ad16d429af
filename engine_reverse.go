package wydecoder

import (
	"context"
	"errors"
	"io"
	"slices"
	"time"
)

// reverseProducer walks the stream backwards one window at a time: it
// seeks to the start of the window, decodes forward up to the end of the
// window and emits the collected frames in descending pts order. The end
// of the next window is the start of the current one.
//
// Frames strictly before the seeded position are emitted, so seeding at
// the total length plays the whole stream backwards.
type reverseProducer struct {
	window time.Duration
	end    time.Duration // exclusive upper bound of the next window
}

func (p *reverseProducer) seed(core *engineCore, position time.Duration) error {
	p.end = position
	core.queue.SetNext(max(position-core.frameDuration, 0))
	return nil
}

func (p *reverseProducer) run(ctx context.Context, core *engineCore) error {
	window := p.window
	for p.end > 0 {
		start := max(p.end-window, 0)
		frames, err := p.collect(ctx, core, start, p.end)
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			if start == 0 {
				// nothing left before p.end
				return nil
			}
			// sparse stream or very long frames, widen the window
			window *= 2
			continue
		}

		for i := len(frames) - 1; i >= 0; i-- {
			next := max(core.FrameTime(frames[i].PTS)-core.frameDuration, 0)
			if err := core.emit(ctx, frames[i], next); err != nil {
				return err
			}
		}
		p.end = start
		window = p.window
	}
	return nil
}

// collect decodes the frames with start <= pts < end, sorted by pts.
func (p *reverseProducer) collect(ctx context.Context, core *engineCore, start, end time.Duration) ([]*Frame, error) {
	if err := core.source.Seek(start); err != nil {
		return nil, err
	}
	startPTS := core.firstPTSAtOrAfter(start)
	endPTS := core.firstPTSAtOrAfter(end)

	var frames []*Frame
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := core.source.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if frame.PTS >= endPTS {
			break
		}
		if frame.PTS >= startPTS {
			frames = append(frames, frame)
		}
	}

	slices.SortFunc(frames, func(a, b *Frame) int {
		switch {
		case a.PTS < b.PTS:
			return -1
		case a.PTS > b.PTS:
			return 1
		default:
			return 0
		}
	})
	return frames, nil
}
