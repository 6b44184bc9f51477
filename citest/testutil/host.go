// Package testutil provides helpers for the end-to-end suites: a fake host
// that owns an add-in instance and its delivery queue, and an SSE client.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alkoleft/web-transport-addin/internal/config"
	"github.com/alkoleft/web-transport-addin/internal/event"
	"github.com/alkoleft/web-transport-addin/pkg/addin"
	"github.com/alkoleft/web-transport-addin/pkg/types"
)

// Host is a test stand-in for the host application.
type Host struct {
	AddIn *addin.HTTP
	Queue *event.Queue
}

// NewHost creates an initialized add-in of class (http or mcp).
func NewHost(class string, cfg *config.Config) (*Host, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	h := &Host{
		AddIn: addin.NewHTTP(class, cfg),
		Queue: event.NewQueue(),
	}
	if !h.AddIn.Init(h.Queue) {
		return nil, fmt.Errorf("init: %s", h.AddIn.LastError())
	}
	return h, nil
}

// BaseURL is the listener's URL; empty when stopped.
func (h *Host) BaseURL() string {
	if addr := h.AddIn.Addr(); addr != "" {
		return "http://" + addr
	}
	return ""
}

// Next waits for the next delivered notification.
func (h *Host) Next(timeout time.Duration) (event.Notification, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return h.Queue.Next(ctx)
}

// NextRequest waits for the next notification and decodes it as a request.
func (h *Host) NextRequest(timeout time.Duration) (event.Notification, types.IncomingRequest, error) {
	var req types.IncomingRequest
	n, err := h.Next(timeout)
	if err != nil {
		return n, req, err
	}
	err = json.Unmarshal([]byte(n.Data), &req)
	return n, req, err
}

// Close stops the listener and releases the add-in.
func (h *Host) Close() error {
	return h.AddIn.Close()
}
