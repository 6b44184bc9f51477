package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/alkoleft/web-transport-addin/internal/event"
	"github.com/alkoleft/web-transport-addin/internal/logging"
	"github.com/alkoleft/web-transport-addin/internal/sse"
	"github.com/alkoleft/web-transport-addin/pkg/types"
)

// defaultEndpointHost is used in the endpoint URL when the request has no Host.
const defaultEndpointHost = "127.0.0.1"

// subscribeSSE opens a session and streams its queue until the session is
// closed or the client disconnects.
func (s *Server) subscribeSSE(w http.ResponseWriter, r *http.Request) {
	writer, err := sse.NewWriter(w)
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	id, ok := rawQueryParam(r.URL.RawQuery, "sessionId")
	if !ok {
		id = s.sessionIDs.Next()
	}

	session := s.sessions.Open(id)
	session.Queue.Push(sse.FormatEvent(sse.EventEndpoint, endpointURL(r.Host, id)))

	// The stream stays usable without the host; it can still be fed later.
	open := types.SSEOpen{ID: id, Path: "/sse"}
	if err := s.bridge.Deliver(types.EventSSEOpen, open.JSON()); err != nil {
		logging.Warn().Err(err).Str("sessionID", id).Msg("SSE open not delivered to host")
	}

	logging.Debug().Str("sessionID", id).Msg("SSE session opened")
	s.bus.Publish(event.Event{Type: event.SSEOpened, Data: event.SessionData{ID: id}})

	sse.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	writer.Flush()

	if err := writer.Stream(r.Context(), session.Queue); err != nil {
		logging.Debug().Err(err).Str("sessionID", id).Msg("SSE stream ended")
	}

	s.sessions.Detach(session)
	s.bus.Publish(event.Event{Type: event.SSEClosed, Data: event.SessionData{ID: id}})
}

// endpointURL is the address the client posts protocol messages to.
func endpointURL(host, sessionID string) string {
	if host == "" {
		host = defaultEndpointHost
	}
	return fmt.Sprintf("http://%s/message?sessionId=%s", host, sessionID)
}

// rawQueryParam returns the first value of key without percent-decoding it.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, pair := range strings.Split(rawQuery, "&") {
		name, value, _ := strings.Cut(pair, "=")
		if name == key {
			return value, true
		}
	}
	return "", false
}
