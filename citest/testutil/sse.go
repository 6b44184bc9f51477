package testutil

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SSEEvent represents one Server-Sent Event frame.
type SSEEvent struct {
	Type string
	Data string
}

// SSEClient subscribes to an SSE endpoint and collects frames.
type SSEClient struct {
	BaseURL    string
	HTTPClient *http.Client

	mu       sync.Mutex
	events   []SSEEvent
	eventsCh chan SSEEvent
	cancel   context.CancelFunc
	body     io.ReadCloser
}

// NewSSEClient creates a new SSE test client
func NewSSEClient(baseURL string) *SSEClient {
	return &SSEClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 0, // No timeout for SSE
		},
		eventsCh: make(chan SSEEvent, 100),
	}
}

// Connect opens the stream at path and starts reading it in the background.
func (c *SSEClient) Connect(ctx context.Context, path string) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to connect: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("unexpected content type: %s", ct)
	}

	c.body = resp.Body
	go c.readEvents(resp.Body)
	return nil
}

// readEvents parses frames until the stream ends. Multi-line data is joined
// with newlines.
func (c *SSEClient) readEvents(body io.Reader) {
	defer close(c.eventsCh)

	reader := bufio.NewReader(body)
	var eventType string
	var data []string
	inFrame := false

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if inFrame {
				evt := SSEEvent{Type: eventType, Data: strings.Join(data, "\n")}
				c.mu.Lock()
				c.events = append(c.events, evt)
				c.mu.Unlock()
				c.eventsCh <- evt
			}
			eventType, data, inFrame = "", nil, false
			continue
		}

		inFrame = true
		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}

// Next waits for the next frame. ok is false on timeout or end of stream.
func (c *SSEClient) Next(timeout time.Duration) (evt SSEEvent, ok bool) {
	select {
	case evt, ok = <-c.eventsCh:
		return evt, ok
	case <-time.After(timeout):
		return SSEEvent{}, false
	}
}

// Done drains remaining frames and reports whether the stream ended within
// timeout.
func (c *SSEClient) Done(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case _, ok := <-c.eventsCh:
			if !ok {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

// Events returns every frame received so far.
func (c *SSEClient) Events() []SSEEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SSEEvent(nil), c.events...)
}

// Close closes the SSE connection
func (c *SSEClient) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.body != nil {
		return c.body.Close()
	}
	return nil
}
