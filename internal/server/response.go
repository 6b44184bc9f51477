package server

import (
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/alkoleft/web-transport-addin/internal/logging"
	"github.com/alkoleft/web-transport-addin/pkg/types"
)

// Bodies of responses synthesized by the listener itself.
const (
	msgBadBody          = "Failed to read request body"
	msgUnavailable      = "Event connection is unavailable"
	msgQueueFull        = "Event queue is full"
	msgChannelClosed    = "Response channel closed"
	msgHandlerTimeout   = "Handler timeout"
	defaultTextMIMEType = "text/plain; charset=utf-8"
)

// writeText writes a plain-text response.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", defaultTextMIMEType)
	w.WriteHeader(status)
	if body != "" {
		_, _ = w.Write([]byte(body))
	}
}

// writeHostResponse writes the answer the host supplied for a pending request.
// Headers that are not valid HTTP field names or values are skipped.
func (s *Server) writeHostResponse(w http.ResponseWriter, resp types.HTTPResponse) {
	h := w.Header()
	hasContentType := false
	for name, value := range resp.Headers {
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			logging.Debug().Str("header", name).Msg("Skipping invalid response header")
			continue
		}
		if strings.EqualFold(name, "Content-Type") {
			hasContentType = true
		}
		h.Set(name, value)
	}
	if !hasContentType {
		h.Set("Content-Type", s.config.DefaultContentType)
	}

	w.WriteHeader(resp.Status)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}
