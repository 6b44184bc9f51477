package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/alkoleft/web-transport-addin/internal/event"
	"github.com/alkoleft/web-transport-addin/internal/logging"
	"github.com/alkoleft/web-transport-addin/pkg/types"
)

// preflight answers OPTIONS on any path.
func (s *Server) preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// probe answers GET / with a fixed body.
func (s *Server) probe(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.config.ProbeBody)
}

// forwardRequest parks a request in the pending registry, notifies the host
// and writes whatever the host answers, or 504 once the timeout passes.
func (s *Server) forwardRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logging.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to read request body")
		writeText(w, http.StatusBadRequest, msgBadBody)
		return
	}

	req := normalizeRequest(s.requestIDs.Next(), r, body)

	waiter, err := s.pending.Register(req.ID)
	if err != nil {
		logging.Error().Err(err).Str("requestID", req.ID).Msg("Failed to register request")
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.bridge.Deliver(types.EventHTTP, req.JSON()); err != nil {
		s.pending.Remove(req.ID)
		logging.Warn().Err(err).Str("requestID", req.ID).Msg("Request not delivered to host")
		writeDeliveryError(w, err)
		return
	}

	logging.Debug().Str("requestID", req.ID).Str("method", req.Method).Str("path", req.Path).Msg("Request delivered")
	s.bus.Publish(event.Event{Type: event.RequestReceived, Data: event.RequestData{
		ID: req.ID, Method: req.Method, Path: req.Path,
	}})

	resp, err := waiter.Wait(r.Context(), s.config.ResponseTimeout)
	switch {
	case err == nil:
		s.writeHostResponse(w, resp)
	case errors.Is(err, types.ErrHandlerTimeout):
		logging.Warn().Str("requestID", req.ID).Dur("timeout", s.config.ResponseTimeout).Msg("Host did not answer in time")
		s.bus.Publish(event.Event{Type: event.RequestTimeout, Data: event.RequestData{ID: req.ID, Method: req.Method, Path: req.Path}})
		writeText(w, http.StatusGatewayTimeout, msgHandlerTimeout)
	case errors.Is(err, types.ErrResponseChannelClosed):
		writeText(w, http.StatusInternalServerError, msgChannelClosed)
	default:
		// Peer went away; a late answer from the host fails with ResponseChannelClosed.
		logging.Debug().Err(err).Str("requestID", req.ID).Msg("Request abandoned by client")
		s.bus.Publish(event.Event{Type: event.RequestAbandoned, Data: event.RequestData{ID: req.ID, Method: req.Method, Path: req.Path}})
	}
}

// postMessage forwards a message-protocol POST to the host under a fixed id.
// The answer, if any, travels back over the SSE stream.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, msgBadBody)
		return
	}

	req := normalizeRequest(types.MCPMessageID, r, body)
	if err := s.bridge.Deliver(types.EventMCPMessage, req.JSON()); err != nil {
		logging.Warn().Err(err).Str("query", req.Query).Msg("Message not delivered to host")
		writeDeliveryError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// writeDeliveryError maps a bridge failure to 503.
func writeDeliveryError(w http.ResponseWriter, err error) {
	if errors.Is(err, types.ErrDeliveryQueueFull) {
		writeText(w, http.StatusServiceUnavailable, msgQueueFull)
		return
	}
	writeText(w, http.StatusServiceUnavailable, msgUnavailable)
}

// normalizeRequest builds the notification payload for r.
// Repeated headers keep their last value; Host is restored from the request line.
func normalizeRequest(id string, r *http.Request, body []byte) types.IncomingRequest {
	hdrs := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		if len(values) > 0 {
			hdrs[name] = values[len(values)-1]
		}
	}
	if r.Host != "" {
		hdrs["Host"] = r.Host
	}

	return types.IncomingRequest{
		ID:      id,
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: hdrs,
		Body:    strings.ToValidUTF8(string(body), "\uFFFD"),
	}
}
