package wydecoder

import (
	"context"
	"sync"
	"time"
)

// frameQueue is the bounded FIFO between an engine's producer goroutine
// and the session. Waiters sleep on the signal channel, which is closed
// and replaced every time the queue contents or its closed state change.
type frameQueue struct {
	mutex  sync.Mutex
	frames []*Frame // ring buffer
	head   int
	count  int
	closed bool
	signal chan struct{}

	// position following the last enqueued frame, or the seek position
	// if nothing was enqueued since
	next time.Duration
}

func newFrameQueue(capacity int) *frameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &frameQueue{
		frames: make([]*Frame, capacity),
		signal: make(chan struct{}),
	}
}

// must be called with the mutex held
func (q *frameQueue) noLockBroadcast() {
	close(q.signal)
	q.signal = make(chan struct{})
}

// Enqueue appends a frame, blocking while the queue is full, and records
// next as the position following it. It returns ErrQueueClosed if the
// queue is closed before there's room, or the context error if ctx is
// done first.
func (q *frameQueue) Enqueue(ctx context.Context, frame *Frame, next time.Duration) error {
	for {
		q.mutex.Lock()
		if q.closed {
			q.mutex.Unlock()
			return ErrQueueClosed
		}
		if q.count < len(q.frames) {
			q.frames[(q.head+q.count)%len(q.frames)] = frame
			q.count++
			q.next = next
			q.noLockBroadcast()
			q.mutex.Unlock()
			return nil
		}
		signal := q.signal
		q.mutex.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-signal:
		}
	}
}

// Dequeue removes and returns the head frame. A negative timeout waits
// indefinitely, a zero timeout only checks the current contents. The bool
// is false on timeout or when the queue is closed and empty.
func (q *frameQueue) Dequeue(timeout time.Duration) (*Frame, bool) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		q.mutex.Lock()
		if q.count > 0 {
			frame := q.noLockRemoveHead()
			q.mutex.Unlock()
			return frame, true
		}
		if q.closed || timeout == 0 {
			q.mutex.Unlock()
			return nil, false
		}
		signal := q.signal
		q.mutex.Unlock()

		select {
		case <-signal:
		case <-expired:
			return nil, false
		}
	}
}

// Pop drops the head frame, if any. It never blocks.
func (q *frameQueue) Pop() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.count > 0 {
		q.noLockRemoveHead()
	}
}

// Head returns the head frame, if any, together with the position
// following the last enqueued frame, as a single snapshot.
func (q *frameQueue) Head() (*Frame, time.Duration, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.count == 0 {
		return nil, q.next, false
	}
	return q.frames[q.head], q.next, true
}

// SetNext overrides the position reported by Head while nothing new is
// enqueued.
func (q *frameQueue) SetNext(position time.Duration) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.next = position
}

func (q *frameQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.count
}

func (q *frameQueue) Cap() int {
	return len(q.frames)
}

// Clear drops every queued frame. Blocked producers are woken up.
func (q *frameQueue) Clear() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for q.count > 0 {
		q.noLockRemoveHead()
	}
}

// Close drops queued frames and makes every pending and future Enqueue
// fail. Pending Dequeue calls return immediately. Closing twice is fine.
func (q *frameQueue) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.closed {
		return
	}
	for q.count > 0 {
		q.frames[q.head] = nil
		q.head = (q.head + 1) % len(q.frames)
		q.count--
	}
	q.closed = true
	q.noLockBroadcast()
}

// must be called with the mutex held and count > 0
func (q *frameQueue) noLockRemoveHead() *Frame {
	frame := q.frames[q.head]
	q.frames[q.head] = nil
	q.head = (q.head + 1) % len(q.frames)
	q.count--
	q.noLockBroadcast()
	return frame
}
