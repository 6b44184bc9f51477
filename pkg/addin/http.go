package addin

import (
	"errors"

	"github.com/alkoleft/web-transport-addin/internal/config"
	"github.com/alkoleft/web-transport-addin/internal/event"
	"github.com/alkoleft/web-transport-addin/internal/server"
)

// HTTP is the http class. The mcp class is the same object under another name.
type HTTP struct {
	base

	depth  int
	bridge *event.Bridge
	server *server.Server
}

// NewHTTP creates an http (or mcp) instance.
func NewHTTP(className string, cfg *config.Config) *HTTP {
	h := &HTTP{depth: cfg.HTTP.EventBufferDepth}
	h.setup(className)
	h.bridge = event.NewBridge(cfg.HTTP.EventSource)
	h.server = server.New(server.FromHTTPConfig(cfg.HTTP), h.runtime, h.bridge, h.bus)
	return h
}

// Init binds the host's delivery channel and bounds its queue.
func (h *HTTP) Init(conn event.Connection) bool {
	if conn == nil {
		return h.record("Init", errors.New("nil connection"))
	}
	h.bridge.Attach(conn, h.depth)
	return h.record("Init", nil)
}

// StartHTTP binds address ("ip:port") and starts serving.
func (h *HTTP) StartHTTP(address string) bool {
	h.log.Debug().Str("addr", address).Msg("Start HTTP")
	return h.record("StartHTTP", h.server.Start(address))
}

// StopHTTP stops the listener and drops every pending request and session.
func (h *HTTP) StopHTTP() bool {
	return h.record("StopHTTP", h.server.Stop())
}

// SendHTTPResponse answers the pending request id.
func (h *HTTP) SendHTTPResponse(id string, status int, headersJSON, body string) bool {
	return h.record("SendHTTPResponse", h.server.SendResponse(id, status, headersJSON, body))
}

// SendSSE queues data as a message event on session id.
func (h *HTTP) SendSSE(sessionID, data string) bool {
	return h.record("SendSSE", h.server.SSESend(sessionID, data))
}

// CloseSSE ends session id. Closing an unknown session succeeds.
func (h *HTTP) CloseSSE(sessionID string) bool {
	return h.record("CloseSSE", h.server.SSEClose(sessionID))
}

// Addr returns the bound listener address, or "" when stopped.
func (h *HTTP) Addr() string {
	return h.server.Addr()
}

// Methods lists the callable methods.
func (h *HTTP) Methods() []Method {
	return []Method{
		{Name: "StartHTTP", Localized: "ЗапуститьHTTP", Params: 1, call: func(a []any) (any, error) {
			addr, err := argString(a, 0)
			if err != nil {
				return nil, err
			}
			return nil, h.server.Start(addr)
		}},
		{Name: "StopHTTP", Localized: "ОстановитьHTTP", call: func([]any) (any, error) {
			return nil, h.server.Stop()
		}},
		{Name: "SendHTTPResponse", Localized: "ОтправитьHTTPОтвет", Params: 4, call: func(a []any) (any, error) {
			id, err := argString(a, 0)
			if err != nil {
				return nil, err
			}
			status, err := argInt(a, 1)
			if err != nil {
				return nil, err
			}
			hdrs, err := argString(a, 2)
			if err != nil {
				return nil, err
			}
			body, err := argString(a, 3)
			if err != nil {
				return nil, err
			}
			return nil, h.server.SendResponse(id, status, hdrs, body)
		}},
		{Name: "SendSSE", Localized: "ОтправитьSSE", Params: 2, call: func(a []any) (any, error) {
			id, err := argString(a, 0)
			if err != nil {
				return nil, err
			}
			data, err := argString(a, 1)
			if err != nil {
				return nil, err
			}
			return nil, h.server.SSESend(id, data)
		}},
		{Name: "CloseSSE", Localized: "ЗакрытьSSE", Params: 1, call: func(a []any) (any, error) {
			id, err := argString(a, 0)
			if err != nil {
				return nil, err
			}
			return nil, h.server.SSEClose(id)
		}},
		{Name: "Version", Localized: "Версия", HasResult: true, call: func([]any) (any, error) {
			return Version, nil
		}},
	}
}

// Call dispatches a method by English or localized name.
func (h *HTTP) Call(name string, args ...any) (any, bool) {
	return h.dispatch(h.Methods(), name, args)
}

// Close stops a running listener and releases the runtime.
func (h *HTTP) Close() error {
	if h.server.Running() {
		_ = h.server.Stop()
	}
	return h.closeBase()
}
