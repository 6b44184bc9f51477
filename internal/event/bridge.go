package event

import (
	"fmt"
	"sync"

	"github.com/alkoleft/web-transport-addin/pkg/types"
)

// Connection is the host's narrow "deliver one event" channel.
type Connection interface {
	// ExternalEvent hands one notification to the host without waiting for it
	// to be processed. It returns false when the host's queue is saturated.
	ExternalEvent(source, name, data string) bool
	// SetEventBufferDepth bounds the host's pending notification queue.
	SetEventBufferDepth(depth int)
}

// Bridge is the one-way notification path from network tasks to the host.
// Delivery is fire-and-forget: correlation back to the host's answer happens
// through the request and session registries.
type Bridge struct {
	mu     sync.RWMutex
	conn   Connection
	source string
}

// NewBridge creates a bridge that tags every notification with source.
// It is unavailable until Attach is called.
func NewBridge(source string) *Bridge {
	return &Bridge{source: source}
}

// Attach binds the host connection and sets its buffer depth.
func (b *Bridge) Attach(conn Connection, depth int) {
	if conn != nil && depth > 0 {
		conn.SetEventBufferDepth(depth)
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
}

// Available reports whether a host connection is attached.
func (b *Bridge) Available() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil
}

// Deliver pushes one notification to the host.
// It returns types.ErrDeliveryUnavailable when no host connection is attached
// and types.ErrDeliveryQueueFull when the host queue rejects the event.
func (b *Bridge) Deliver(name, payload string) error {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()

	if conn == nil {
		return types.ErrDeliveryUnavailable
	}
	if !conn.ExternalEvent(b.source, name, payload) {
		return fmt.Errorf("deliver %s: %w", name, types.ErrDeliveryQueueFull)
	}
	return nil
}
