// Package pending correlates deferred HTTP responses with the network tasks
// waiting for them.
//
// A network task registers a slot under a request id and waits; the host later
// fulfils the id from an unrelated call. Removal from the registry is the single
// point of arbitration: whichever side removes the entry (fulfil, timeout or
// CancelAll) owns the slot, so a slot is completed at most once. A slot whose
// network task went away stays registered as abandoned until the host answers
// it or the original timeout passes.
package pending

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alkoleft/web-transport-addin/pkg/types"
)

// ErrDuplicateID is returned by Register when the id is already pending.
var ErrDuplicateID = errors.New("request id is already pending")

// slot is a single-use completion cell. Only the side that removed it from the
// registry may send on or close ch.
type slot struct {
	ch chan types.HTTPResponse
	// abandoned is guarded by Registry.mu.
	abandoned bool
}

// Registry maps request ids to pending response slots.
type Registry struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		slots: make(map[string]*slot),
	}
}

// Register inserts a fresh slot under id and returns the handle the network
// task waits on.
func (r *Registry) Register(id string) (*Waiter, error) {
	s := &slot{ch: make(chan types.HTTPResponse, 1)}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.slots[id]; ok {
		return nil, ErrDuplicateID
	}
	r.slots[id] = s

	return &Waiter{id: id, registry: r, slot: s}, nil
}

// take atomically removes and returns the slot for id.
func (r *Registry) take(id string) (*slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if ok {
		delete(r.slots, id)
	}
	return s, ok
}

// abandon marks s as no longer awaited. It fails if s was already removed.
func (r *Registry) abandon(id string, s *slot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.slots[id]; !ok || cur != s {
		return false
	}
	s.abandoned = true
	return true
}

// expire removes id if it still holds the abandoned slot s.
func (r *Registry) expire(id string, s *slot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.slots[id]; ok && cur == s {
		delete(r.slots, id)
	}
}

// Fulfill completes the slot for id with resp.
// It returns types.ErrRequestNotFound if id is not pending (never registered,
// already answered, timed out or cancelled) and types.ErrResponseChannelClosed
// if the network task stopped waiting before the answer arrived.
func (r *Registry) Fulfill(id string, resp types.HTTPResponse) error {
	r.mu.Lock()
	s, ok := r.slots[id]
	if ok {
		delete(r.slots, id)
	}
	abandoned := ok && s.abandoned
	r.mu.Unlock()

	if !ok {
		return types.ErrRequestNotFound
	}
	if abandoned {
		return types.ErrResponseChannelClosed
	}

	select {
	case s.ch <- resp:
		return nil
	default:
		return types.ErrResponseChannelClosed
	}
}

// Remove drops id without completing it. It reports whether id was pending.
func (r *Registry) Remove(id string) bool {
	_, ok := r.take(id)
	return ok
}

// CancelAll drains the registry, waking every waiter with
// types.ErrResponseChannelClosed. It returns the number of cancelled slots.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	slots := r.slots
	r.slots = make(map[string]*slot)
	r.mu.Unlock()

	for _, s := range slots {
		close(s.ch)
	}
	return len(slots)
}

// Has reports whether id is pending.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slots[id]
	return ok
}

// Len returns the number of pending slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Waiter is the network-side handle of a pending slot.
type Waiter struct {
	id       string
	registry *Registry
	slot     *slot
}

// ID returns the request id the waiter is registered under.
func (w *Waiter) ID() string {
	return w.id
}

// Wait blocks until the slot is fulfilled, the timeout fires, or ctx ends.
//
// On timeout it removes the entry and returns types.ErrHandlerTimeout. On ctx
// end it returns ctx.Err() and leaves the entry abandoned, so a late Fulfill
// reports types.ErrResponseChannelClosed; the entry is dropped once the
// remaining timeout elapses. If the host won the race, its response is
// returned instead.
func (w *Waiter) Wait(ctx context.Context, timeout time.Duration) (types.HTTPResponse, error) {
	deadline := time.Now().Add(timeout)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-w.slot.ch:
		return w.result(resp, ok)

	case <-timer.C:
		if w.registry.Remove(w.id) {
			return types.HTTPResponse{}, types.ErrHandlerTimeout
		}

	case <-ctx.Done():
		if w.registry.abandon(w.id, w.slot) {
			time.AfterFunc(time.Until(deadline), func() { w.registry.expire(w.id, w.slot) })
			return types.HTTPResponse{}, ctx.Err()
		}
	}

	// Lost the race: the side that removed the entry completes the slot promptly.
	resp, ok := <-w.slot.ch
	return w.result(resp, ok)
}

func (w *Waiter) result(resp types.HTTPResponse, ok bool) (types.HTTPResponse, error) {
	if !ok {
		return types.HTTPResponse{}, types.ErrResponseChannelClosed
	}
	return resp, nil
}
