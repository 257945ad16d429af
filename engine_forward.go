package wydecoder

import (
	"context"
	"errors"
	"io"
	"time"
)

// forwardProducer emits frames in decode order, starting at the seeded
// position. Sources seek to the closest preceding keyframe, so frames
// before the seeded position are decoded and dropped.
type forwardProducer struct {
	skipBefore int64 // pts of the first frame to emit
}

func (p *forwardProducer) seed(core *engineCore, position time.Duration) error {
	if err := core.source.Seek(position); err != nil {
		return err
	}
	p.skipBefore = core.firstPTSAtOrAfter(position)
	core.queue.SetNext(position)
	return nil
}

func (p *forwardProducer) run(ctx context.Context, core *engineCore) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := core.source.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if frame.PTS < p.skipBefore {
			continue
		}

		next := core.FrameTime(frame.PTS) + core.frameDuration
		if err := core.emit(ctx, frame, next); err != nil {
			return err
		}
	}
}
