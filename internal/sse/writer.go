package sse

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// SetHeaders sets the streaming response headers, including the one that
// disables proxy buffering.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering
}

// Writer writes pre-formatted frames to a streaming response.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
	rc      *http.ResponseController
}

// NewWriter wraps w for streaming. It fails if w cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &Writer{w: w, flusher: flusher, rc: rc}, nil
}

// WriteFrame writes one frame and flushes it.
func (s *Writer) WriteFrame(frame string) error {
	if _, err := io.WriteString(s.w, frame); err != nil {
		return err
	}
	s.Flush()
	return nil
}

// Flush pushes buffered bytes to the client.
func (s *Writer) Flush() {
	// ResponseController reaches through middleware wrappers
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
}

// Stream copies frames from q to the writer until q is closed and drained,
// ctx ends, or a write fails.
func (s *Writer) Stream(ctx context.Context, q *Queue) error {
	for {
		frame, ok := q.Next(ctx)
		if !ok {
			return ctx.Err()
		}
		if err := s.WriteFrame(frame); err != nil {
			return err
		}
	}
}
