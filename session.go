package wydecoder

import (
	"errors"
	"image/color"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// A collection of errors defined by this package. Source backends may
// return their own errors too.
var (
	ErrQueueClosed       = errors.New("frame queue closed")
	ErrNoVideo           = errors.New("source doesn't include any video stream")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrUnsupportedSource = errors.New("no source backend for path")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// A [Session] controls the playback of a single media source in either
// direction.
//
// The session owns at most one decode engine at a time. Loading a source
// or switching the direction always closes the current engine first, so
// frames from two engines never mix. Usage:
//   - Create a session with [NewSession]().
//   - Call [Session.Load]() and then [Session.Start]().
//   - Pull frames at your own pace with [Session.Frame]() or [Session.RGBFrame]().
//   - Use [Session.SetDirection]() to play backwards and forwards. The new
//     engine must be started again with [Session.Start]().
//
// Operations never return errors: failures are logged and reported as false,
// [NoPosition] or an empty frame. A false result from [Session.Load] or
// [Session.SetDirection] means playback is stopped and the session has no
// source until the next successful Load.
type Session struct {
	id           string
	config       Config
	open         SourceOpener
	overlayColor color.RGBA

	// mutex guards engine, direction, path and lastFrame. Frame requests
	// don't hold it while waiting, so a slow request can't block Load or
	// SetDirection.
	mutex     sync.Mutex
	engine    decodeEngine
	direction DecodeDirectionKind
	path      string
	lastFrame *Frame // most recently dequeued frame

	// consumer side state, only touched by the goroutine pulling frames
	conversion *conversionContext
	rgb        rgbBuffer
}

// Creates a new [Session] that opens sources with the given opener.
// Invalid configuration values are replaced by their defaults. The
// configured log level applies to the whole package.
func NewSession(config Config, open SourceOpener) *Session {
	if err := config.Validate(); err != nil {
		logWarn("%v; using defaults", err)
		config = DefaultConfig()
	}
	if level, err := ParseLogLevel(config.LogLevel); err == nil {
		SetLogLevel(level)
	}
	overlayColor, _ := lookupOverlayColor(config.DebugOverlayColor)
	return &Session{
		id:           uuid.NewString()[:8],
		config:       config,
		open:         open,
		overlayColor: overlayColor,
	}
}

// Returns the identifier used for this session in log messages.
func (s *Session) ID() string { return s.id }

// --- source and direction ---

// Loads the given path for forward playback from the start. Any previous
// engine is closed first, even if opening the new source fails.
func (s *Session) Load(path string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.noLockCloseEngine()
	s.path = path
	logInfo("[%s] loading '%s'", s.id, path)
	s.logProbe(path)

	engine, err := openEngine(DirectionForward, path, 0, s.open, s.config)
	if err != nil {
		EngineOpenFailures.WithLabelValues(DirectionForward.String()).Inc()
		logError("[%s] unable to open '%s': %v", s.id, path, err)
		return false
	}
	EngineOpens.WithLabelValues(DirectionForward.String()).Inc()
	s.engine = engine
	s.direction = DirectionForward
	return true
}

// Switches the playback direction, continuing from the position of the
// next frame the current engine would have returned. Requesting the
// current direction does nothing and returns true.
//
// When switching to forward without a known position, playback restarts
// from 0. When switching to backward without a known position (e.g., the
// forward engine reached the end), playback starts from the end.
func (s *Session) SetDirection(wanted DecodeDirectionKind) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.engine == nil || wanted == DirectionNone {
		return false
	}
	if s.engine.Kind() == wanted {
		return true
	}

	position := s.engine.NextPTS()
	if position < 0 {
		if wanted == DirectionForward {
			position = 0
		} else {
			position = s.engine.TotalLength()
		}
	}
	s.noLockCloseEngine()
	logInfo("[%s] switching to %s playback at %v", s.id, wanted, position)

	engine, err := openEngine(wanted, s.path, position, s.open, s.config)
	if err != nil {
		EngineOpenFailures.WithLabelValues(wanted.String()).Inc()
		logError("[%s] unable to open '%s' for %s playback: %v", s.id, s.path, wanted, err)
		return false
	}
	EngineOpens.WithLabelValues(wanted.String()).Inc()
	s.engine = engine
	s.direction = wanted
	return true
}

// Returns the current playback direction, or [DirectionNone] if no
// source is loaded.
func (s *Session) Direction() DecodeDirectionKind {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.direction
}

// Starts decoding in the background. Returns false if no source is loaded.
func (s *Session) Start() bool {
	engine := s.currentEngine()
	if engine == nil {
		return false
	}
	return engine.Start()
}

// Moves the playback position. Queued frames are dropped. Positions outside
// the stream are clamped by the engine. Returns false if no source is loaded.
func (s *Session) Seek(position time.Duration) bool {
	engine := s.currentEngine()
	if engine == nil {
		return false
	}
	logInfo("[%s] seeking to %v", s.id, position)
	engine.Seek(position)
	return true
}

// --- timing ---

// Returns the total length of the loaded source, or [NoPosition].
func (s *Session) Length() time.Duration {
	engine := s.currentEngine()
	if engine == nil {
		return NoPosition
	}
	return engine.TotalLength()
}

// Returns the position of the next frame to be returned, or [NoPosition]
// if no source is loaded. Once the current direction is exhausted, the
// boundary that was reached is returned: the total length when playing
// forward and 0 when playing backward.
func (s *Session) Next() time.Duration {
	engine := s.currentEngine()
	if engine == nil {
		return NoPosition
	}
	next := engine.NextPTS()
	if next >= 0 {
		return next
	}
	if engine.Kind() == DirectionBackward {
		return 0
	}
	return engine.TotalLength()
}

// Returns whether the current direction has been played to its end.
// Without a loaded source, EOF is false.
func (s *Session) EOF() bool {
	engine := s.currentEngine()
	if engine == nil {
		return false
	}
	return engine.EOF()
}

// Returns how many decoded frames are waiting in the queue of the current
// engine, or 0 if no source is loaded.
func (s *Session) Buffered() int {
	engine := s.currentEngine()
	if engine == nil {
		return 0
	}
	return engine.Frames().Len()
}

// Returns the session configuration after validation.
func (s *Session) Config() Config { return s.config }

// --- frames ---

// Drops the next queued frame, if any, without converting it. Returns
// false if no source is loaded.
func (s *Session) Discard() bool {
	engine := s.currentEngine()
	if engine == nil {
		return false
	}
	engine.Frames().Pop()
	FramesDiscarded.Inc()

	s.mutex.Lock()
	s.lastFrame = nil
	s.mutex.Unlock()
	return true
}

// Returns the next frame in its native layout. A negative timeout waits
// until a frame is available, a zero timeout never waits. The returned
// slices alias the frame and remain valid until the next frame request
// or discard.
func (s *Session) Frame(timeout time.Duration) (RawFrame, bool) {
	engine, frame, ok := s.dequeue(timeout, "raw")
	if !ok {
		return RawFrame{}, false
	}

	raw := RawFrame{
		Width:   frame.Width,
		Height:  frame.Height,
		Format:  frame.Format,
		PTS:     engine.FrameTime(frame.PTS),
		Strides: frame.Strides,
	}
	switch frame.Format {
	case PixelFormatNV12:
		raw.Luma, raw.U = frame.plane(0), frame.plane(1)
	default:
		raw.Luma, raw.U, raw.V = frame.plane(0), frame.plane(1), frame.plane(2)
	}
	return raw, true
}

// Returns the next frame converted to packed BGR, 3 bytes per pixel. The
// timeout behaves like in [Session.Frame]().
//
// The returned data is reused, so calling this method again will overwrite
// its contents. This means you can use the data between calls, but you
// should not store it for later use expecting it to remain the same.
func (s *Session) RGBFrame(timeout time.Duration) (RGBFrame, bool) {
	engine, frame, ok := s.dequeue(timeout, "rgb")
	if !ok {
		return RGBFrame{}, false
	}

	s.conversion = getCachedContext(s.conversion, frame.Width, frame.Height, frame.Format)
	if s.conversion == nil {
		logWarn("[%s] no conversion from %s %dx%d", s.id, frame.Format, frame.Width, frame.Height)
		return RGBFrame{}, false
	}
	s.rgb.ensure(frame.Width, frame.Height)
	if err := s.conversion.Convert(frame, &s.rgb); err != nil {
		logWarn("[%s] %v", s.id, err)
		return RGBFrame{}, false
	}
	if s.config.DebugOverlay {
		drawDebugOverlay(&s.rgb, s.overlayColor)
	}

	return RGBFrame{
		Width:  frame.Width,
		Height: frame.Height,
		PTS:    engine.FrameTime(frame.PTS),
		Data:   s.rgb.bytes(),
	}, true
}

// --- advanced operations ---

// Closes the current engine, if any. The session can load another
// source afterwards.
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.engine == nil {
		return nil
	}
	err := s.engine.Close()
	s.engine = nil
	s.direction = DirectionNone
	s.lastFrame = nil
	return err
}

// --- internal ---

func (s *Session) currentEngine() decodeEngine {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.engine
}

// dequeue waits for the next frame without holding the mutex. If the
// engine is replaced meanwhile its queue gets closed, which ends the wait.
func (s *Session) dequeue(timeout time.Duration, kind string) (decodeEngine, *Frame, bool) {
	engine := s.currentEngine()
	if engine == nil {
		return nil, nil, false
	}
	frame, ok := engine.Frames().Dequeue(timeout)
	if !ok {
		DequeueTimeouts.Inc()
		return nil, nil, false
	}
	s.mutex.Lock()
	s.lastFrame = frame
	s.mutex.Unlock()
	FramesDequeued.WithLabelValues(kind).Inc()
	return engine, frame, true
}

// must be called with the mutex held. Leaves the session without engine
// and with DirectionNone.
func (s *Session) noLockCloseEngine() {
	if s.engine == nil {
		return
	}
	if err := s.engine.Close(); err != nil {
		logWarn("[%s] closing decoder: %v", s.id, err)
	}
	s.engine = nil
	s.direction = DirectionNone
	s.lastFrame = nil
}

func (s *Session) logProbe(path string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
	default:
		return
	}
	info, err := ProbeFile(path)
	if err != nil {
		logDebug("[%s] probe '%s': %v", s.id, path, err)
		return
	}
	logDebug("[%s] %s", s.id, info)
}
