package types

import "encoding/json"

// Event source and names used for every notification handed to the host.
const (
	EventSource = "WebTransport"

	EventHTTP       = "HTTP"
	EventSSEOpen    = "SSE_OPEN"
	EventMCPMessage = "MCP_MESSAGE"
)

// MCPMessageID is the fixed correlation id carried by POST /message notifications.
const MCPMessageID = "mcp"

// IncomingRequest is the normalized HTTP request delivered to the host.
// Header keys are as the HTTP stack reports them; when a header repeats, the last value wins.
type IncomingRequest struct {
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   string            `json:"query"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// JSON returns the notification payload for the request.
func (r *IncomingRequest) JSON() string {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	data, _ := json.Marshal(r)
	return string(data)
}

// SSEOpen is the notification payload for a newly opened SSE session.
type SSEOpen struct {
	ID      string            `json:"id"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
}

// JSON returns the notification payload for the session.
func (s *SSEOpen) JSON() string {
	if s.Headers == nil {
		s.Headers = map[string]string{}
	}
	data, _ := json.Marshal(s)
	return string(data)
}

// HTTPResponse is the host's answer to a pending request.
type HTTPResponse struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// ValidStatus reports whether code is an HTTP status the host may send.
func ValidStatus(code int) bool {
	return code >= 100 && code <= 599
}
