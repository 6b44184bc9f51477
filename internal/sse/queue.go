package sse

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of serialized frames feeding one stream.
// Pushing never blocks; after Close the remaining frames can still be drained.
type Queue struct {
	mu     sync.Mutex
	frames []string
	closed bool
	signal chan struct{}
}

// NewQueue creates an empty open queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Push appends a frame. It returns false if the queue is closed.
func (q *Queue) Push(frame string) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.frames = append(q.frames, frame)
	q.mu.Unlock()

	q.notify()
	return true
}

// Close marks the queue closed. Already queued frames remain readable.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.notify()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of undrained frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Next blocks until a frame is available, the queue is closed and drained, or
// ctx ends. ok is false once no more frames will arrive.
func (q *Queue) Next(ctx context.Context) (frame string, ok bool) {
	for {
		q.mu.Lock()
		if len(q.frames) > 0 {
			frame = q.frames[0]
			q.frames[0] = ""
			q.frames = q.frames[1:]
			q.mu.Unlock()
			return frame, true
		}
		if q.closed {
			q.mu.Unlock()
			return "", false
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-ctx.Done():
			return "", false
		}
	}
}

func (q *Queue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
