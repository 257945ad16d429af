package wydecoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// NoPosition is returned by position queries when there's nothing to report,
// like when no source is loaded or the engine has exhausted its direction.
const NoPosition time.Duration = -1

// The common interface of the forward and backward decode strategies.
type decodeEngine interface {
	// Returns the direction in which this engine produces frames.
	Kind() DecodeDirectionKind

	// Starts producing frames asynchronously into Frames(). Starting an
	// already started engine does nothing.
	Start() bool

	// Drops queued frames and continues from the given position. The
	// started/stopped state is unaffected.
	Seek(time.Duration)

	// Returns the total stream length.
	TotalLength() time.Duration

	// Returns the position of the next frame the consumer will receive,
	// or NoPosition once the engine has exhausted its direction.
	NextPTS() time.Duration

	// Converts a Frame.PTS into a position.
	FrameTime(pts int64) time.Duration

	// Returns the queue the engine produces into.
	Frames() *frameQueue

	// Returns whether the engine exhausted its direction and all frames
	// have been consumed.
	EOF() bool

	// Stops production, releases queued frames and closes the source.
	// Close blocks until the producer goroutine has returned.
	Close() error
}

// OpenError is returned when a decode engine can't be constructed.
type OpenError struct {
	Path      string
	Direction DecodeDirectionKind
	Err       error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open '%s' for %s playback: %v", e.Path, e.Direction, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// openEngine opens a new source for path and wraps it in the strategy
// matching kind, positioned at start.
func openEngine(kind DecodeDirectionKind, path string, start time.Duration, open SourceOpener, cfg Config) (decodeEngine, error) {
	if open == nil {
		return nil, &OpenError{Path: path, Direction: kind, Err: ErrUnsupportedSource}
	}

	var strategy producer
	switch kind {
	case DirectionForward:
		strategy = &forwardProducer{}
	case DirectionBackward:
		strategy = &reverseProducer{window: cfg.ReverseWindow}
	default:
		return nil, &OpenError{Path: path, Direction: kind, Err: errors.New("invalid direction")}
	}

	source, err := open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Direction: kind, Err: err}
	}

	engine := newEngineCore(kind, source, strategy, cfg.QueueCapacity)
	if err := engine.seed(start); err != nil {
		_ = source.Close()
		return nil, &OpenError{Path: path, Direction: kind, Err: err}
	}
	return engine, nil
}

// A producer is the direction specific half of an engine: it decides
// which frames to read from the source and in which order to emit them.
type producer interface {
	// Repositions the strategy at the given position. Only called while
	// the producer goroutine is not running.
	seed(core *engineCore, position time.Duration) error

	// Emits frames through core.emit until the direction is exhausted
	// (returning nil), the context is canceled or the source fails.
	run(ctx context.Context, core *engineCore) error
}

var _ decodeEngine = (*engineCore)(nil)

// engineCore implements decodeEngine around a Source, a frameQueue and
// a producer strategy. The strategy runs on its own goroutine; the queue
// is the only state it shares with the consumer.
type engineCore struct {
	// mutex guards the producer lifecycle, not the queue
	mutex    sync.Mutex
	kind     DecodeDirectionKind
	source   Source
	strategy producer
	queue    *frameQueue

	// static data
	duration      time.Duration
	frameDuration time.Duration
	tbNum, tbDen  int

	// producer lifecycle
	started bool
	closed  bool
	cancel  context.CancelFunc
	group   *errgroup.Group

	// written by the producer goroutine
	exhausted atomic.Bool
}

func newEngineCore(kind DecodeDirectionKind, source Source, strategy producer, capacity int) *engineCore {
	num, den := source.TimeBase()
	return &engineCore{
		kind:          kind,
		source:        source,
		strategy:      strategy,
		queue:         newFrameQueue(capacity),
		duration:      source.Duration(),
		frameDuration: source.FrameDuration(),
		tbNum:         num,
		tbDen:         den,
	}
}

func (e *engineCore) Kind() DecodeDirectionKind  { return e.kind }
func (e *engineCore) Frames() *frameQueue        { return e.queue }
func (e *engineCore) TotalLength() time.Duration { return e.duration }

func (e *engineCore) FrameTime(pts int64) time.Duration {
	return FrameTime(pts, e.tbNum, e.tbDen)
}

// firstPTSAtOrAfter returns the smallest pts whose time is >= position.
func (e *engineCore) firstPTSAtOrAfter(position time.Duration) int64 {
	if e.tbNum == 0 {
		return 0
	}
	ticks := position.Seconds() * float64(e.tbDen) / float64(e.tbNum)
	return int64(math.Ceil(ticks - 1e-6))
}

func (e *engineCore) Start() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.closed {
		return false
	}
	if !e.started {
		e.started = true
		e.noLockLaunch()
	}
	return true
}

func (e *engineCore) Seek(position time.Duration) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.closed {
		return
	}

	e.noLockHalt()
	e.queue.Clear()
	if err := e.seed(position); err != nil {
		logError("seek to %v failed: %v", position, err)
		e.exhausted.Store(true)
		return
	}
	if e.started {
		e.noLockLaunch()
	}
}

func (e *engineCore) NextPTS() time.Duration {
	frame, next, found := e.queue.Head()
	if found {
		return e.FrameTime(frame.PTS)
	}
	if e.exhausted.Load() {
		return NoPosition
	}
	return next
}

func (e *engineCore) EOF() bool {
	return e.exhausted.Load() && e.queue.Len() == 0
}

func (e *engineCore) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.noLockHalt()
	e.queue.Close()
	return e.source.Close()
}

// seed clamps position into the stream and hands it to the strategy.
// The producer goroutine must not be running.
func (e *engineCore) seed(position time.Duration) error {
	position = min(max(position, 0), e.duration)
	e.exhausted.Store(false)
	return e.strategy.seed(e, position)
}

// emit publishes a frame to the consumer, blocking while the queue is full.
// next is the position of the frame the producer will emit after it.
func (e *engineCore) emit(ctx context.Context, frame *Frame, next time.Duration) error {
	return e.queue.Enqueue(ctx, frame, next)
}

// must be called with the mutex held
func (e *engineCore) noLockLaunch() {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	e.cancel = cancel
	e.group = group
	group.Go(func() error {
		err := e.strategy.run(ctx, e)
		switch {
		case err == nil:
			e.exhausted.Store(true)
		case ctx.Err() != nil:
			// stopped by Seek() or Close()
		default:
			logError("decoding stopped: %v", err)
			e.exhausted.Store(true)
		}
		return err
	})
}

// must be called with the mutex held. Blocks until the producer goroutine
// has returned, so no frame from the previous run can reach the queue.
func (e *engineCore) noLockHalt() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	_ = e.group.Wait()
	e.cancel = nil
	e.group = nil
}
