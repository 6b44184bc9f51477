package types

import "errors"

// Error kinds surfaced through the add-in last-error property.
var (
	ErrAlreadyRunning        = errors.New("HTTP server is already running")
	ErrNotRunning            = errors.New("HTTP server is not running")
	ErrInvalidAddress        = errors.New("invalid address")
	ErrInvalidStatusCode     = errors.New("invalid HTTP status code")
	ErrInvalidHeadersPayload = errors.New("headers must be a JSON object")
	ErrRequestNotFound       = errors.New("no pending request with this id")
	ErrSessionNotFound       = errors.New("SSE session not found")
	ErrDeliveryUnavailable   = errors.New("event connection is unavailable")
	ErrDeliveryQueueFull     = errors.New("event queue is full")
	ErrResponseChannelClosed = errors.New("response channel closed")
	ErrHandlerTimeout        = errors.New("handler timeout")
	ErrNoConnection          = errors.New("no WebSocket connection established")
	ErrConnectFailed         = errors.New("WebSocket connect failed")
	ErrProtocol              = errors.New("WebSocket protocol error")
)
