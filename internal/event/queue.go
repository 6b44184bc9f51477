package event

import (
	"context"
	"sync"
	"time"
)

// DefaultBufferDepth is the queue depth used until SetEventBufferDepth is called.
const DefaultBufferDepth = 128

// Notification is one event delivered to the host.
type Notification struct {
	Source string    `json:"source"`
	Name   string    `json:"name"`
	Data   string    `json:"data"`
	Time   time.Time `json:"time"`
}

// Queue is a bounded in-process host Connection. Network tasks push without
// blocking; the host drains at its own pace.
type Queue struct {
	mu     sync.Mutex
	items  []Notification
	depth  int
	signal chan struct{}
}

// NewQueue creates a queue with DefaultBufferDepth.
func NewQueue() *Queue {
	return &Queue{
		depth:  DefaultBufferDepth,
		signal: make(chan struct{}, 1),
	}
}

// ExternalEvent implements Connection.
func (q *Queue) ExternalEvent(source, name, data string) bool {
	q.mu.Lock()
	if len(q.items) >= q.depth {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, Notification{
		Source: source,
		Name:   name,
		Data:   data,
		Time:   time.Now(),
	})
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// SetEventBufferDepth implements Connection. Already queued events are kept
// even if the new depth is smaller.
func (q *Queue) SetEventBufferDepth(depth int) {
	if depth <= 0 {
		return
	}
	q.mu.Lock()
	q.depth = depth
	q.mu.Unlock()
}

// Depth returns the current bound.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depth
}

// Len returns the number of undelivered notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// TryNext pops the oldest notification without waiting.
func (q *Queue) TryNext() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Notification{}, false
	}
	n := q.items[0]
	q.items[0] = Notification{}
	q.items = q.items[1:]
	return n, true
}

// Next waits for the oldest notification or for ctx to end.
func (q *Queue) Next(ctx context.Context) (Notification, error) {
	for {
		if n, ok := q.TryNext(); ok {
			return n, nil
		}
		select {
		case <-q.signal:
		case <-ctx.Done():
			return Notification{}, ctx.Err()
		}
	}
}
