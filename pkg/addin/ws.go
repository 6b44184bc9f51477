package addin

import (
	"time"

	"github.com/alkoleft/web-transport-addin/internal/config"
	"github.com/alkoleft/web-transport-addin/internal/event"
	"github.com/alkoleft/web-transport-addin/internal/wsclient"
)

// WS is the ws class: one WebSocket client connection at a time.
type WS struct {
	base

	client *wsclient.Client
}

// NewWS creates a ws instance.
func NewWS(cfg *config.Config) *WS {
	w := &WS{}
	w.setup(ClassWS)
	w.client = wsclient.New(wsclient.OptionsFrom(cfg.WebSocket), w.runtime, w.bus)
	return w
}

// Init accepts the host connection. The ws class delivers no events.
func (w *WS) Init(event.Connection) bool {
	return w.record("Init", nil)
}

// Connect opens a connection to address with the extra headers in headersJSON.
func (w *WS) Connect(address, headersJSON string) bool {
	return w.record("Connect", w.client.Connect(address, headersJSON))
}

// SendMessage sends one text frame.
func (w *WS) SendMessage(text string) bool {
	return w.record("SendMessage", w.client.Send(text))
}

// ReceiveMessage waits up to timeoutMs for the next message. An empty
// message with ok set means nothing arrived.
func (w *WS) ReceiveMessage(timeoutMs int) (string, bool) {
	msg, err := w.client.Receive(time.Duration(timeoutMs) * time.Millisecond)
	return msg, w.record("ReceiveMessage", err)
}

// Disconnect drops the connection. It always succeeds.
func (w *WS) Disconnect() bool {
	w.client.Disconnect()
	return w.record("Disconnect", nil)
}

// State returns the connection state.
func (w *WS) State() wsclient.ConnectionState {
	return w.client.State()
}

// Methods lists the callable methods.
func (w *WS) Methods() []Method {
	return []Method{
		{Name: "Connect", Localized: "Подключиться", Params: 2, call: func(a []any) (any, error) {
			addr, err := argString(a, 0)
			if err != nil {
				return nil, err
			}
			hdrs, err := argString(a, 1)
			if err != nil {
				return nil, err
			}
			return nil, w.client.Connect(addr, hdrs)
		}},
		{Name: "SendMessage", Localized: "ОтправитьСообщение", Params: 1, call: func(a []any) (any, error) {
			text, err := argString(a, 0)
			if err != nil {
				return nil, err
			}
			return nil, w.client.Send(text)
		}},
		{Name: "ReceiveMessage", Localized: "ПолучитьСообщение", Params: 1, HasResult: true, call: func(a []any) (any, error) {
			ms, err := argInt(a, 0)
			if err != nil {
				return nil, err
			}
			return w.client.Receive(time.Duration(ms) * time.Millisecond)
		}},
		{Name: "Disconnect", Localized: "Отключиться", call: func([]any) (any, error) {
			w.client.Disconnect()
			return nil, nil
		}},
		{Name: "Version", Localized: "Версия", HasResult: true, call: func([]any) (any, error) {
			return Version, nil
		}},
	}
}

// Call dispatches a method by English or localized name.
func (w *WS) Call(name string, args ...any) (any, bool) {
	return w.dispatch(w.Methods(), name, args)
}

// Close drops the connection and releases the runtime.
func (w *WS) Close() error {
	w.client.Disconnect()
	return w.closeBase()
}
