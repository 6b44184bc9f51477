// Package wsclient is a synchronous WebSocket client: the socket lives on a
// background reader task, while Connect, Send, Receive and Disconnect are
// called one at a time by the host and block until their step completes.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/alkoleft/web-transport-addin/internal/config"
	"github.com/alkoleft/web-transport-addin/internal/event"
	"github.com/alkoleft/web-transport-addin/internal/headers"
	"github.com/alkoleft/web-transport-addin/internal/logging"
	"github.com/alkoleft/web-transport-addin/internal/substrate"
	"github.com/alkoleft/web-transport-addin/pkg/types"
)

// ConnectionState represents the WebSocket connection state.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnected    ConnectionState = "connected"
)

// closeGrace bounds the close frame written by Disconnect.
const closeGrace = time.Second

// Options configures the client.
type Options struct {
	// HandshakeTimeout bounds the opening handshake. Zero waits indefinitely.
	HandshakeTimeout time.Duration
	ReadBufferSize   int
	WriteBufferSize  int
	// InboundQueue is how many frames the reader buffers ahead of Receive.
	InboundQueue int
}

// OptionsFrom converts the loaded WebSocket section into client options.
func OptionsFrom(c config.WebSocketConfig) Options {
	return Options{
		HandshakeTimeout: c.HandshakeTimeout.Std(),
		ReadBufferSize:   c.ReadBufferSize,
		WriteBufferSize:  c.WriteBufferSize,
		InboundQueue:     c.InboundQueue,
	}
}

// frame is one inbound message or the error that ended reading it.
type frame struct {
	text string
	err  error
}

// connection is one established socket and its reader.
type connection struct {
	ws      *websocket.Conn
	url     string
	inbound chan frame
	done    chan struct{}
	writeMu sync.Mutex
	once    sync.Once
}

// close stops the reader and drops the socket.
func (c *connection) close() {
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace),
		)
		c.writeMu.Unlock()
		c.ws.Close()
	})
}

// Client holds at most one connection at a time.
type Client struct {
	options Options
	runtime *substrate.Runtime
	bus     *event.Bus

	mu   sync.Mutex
	conn *connection
}

// New creates a disconnected client whose socket tasks run on rt.
func New(opts Options, rt *substrate.Runtime, bus *event.Bus) *Client {
	if opts.InboundQueue <= 0 {
		opts.InboundQueue = 1
	}
	if bus == nil {
		bus = event.NewBus()
	}
	return &Client{
		options: opts,
		runtime: rt,
		bus:     bus,
	}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return StateDisconnected
	}
	return StateConnected
}

// Connect performs the opening handshake with the extra headers in
// headersJSON merged in. A previous connection is dropped on success.
func (c *Client) Connect(address, headersJSON string) error {
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", types.ErrInvalidAddress, address)
	}

	extra, err := headers.Parse(headersJSON)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.options.HandshakeTimeout,
		ReadBufferSize:   c.options.ReadBufferSize,
		WriteBufferSize:  c.options.WriteBufferSize,
	}

	var ws *websocket.Conn
	err = c.runtime.Block(context.Background(), func(ctx context.Context) error {
		conn, resp, err := dialer.DialContext(ctx, address, requestHeader(extra))
		if err != nil {
			if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
				return fmt.Errorf("%w: %w: status %d", types.ErrConnectFailed, types.ErrProtocol, resp.StatusCode)
			}
			return fmt.Errorf("%w: %w", types.ErrConnectFailed, err)
		}
		ws = conn
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Str("url", address).Msg("WebSocket connect failed")
		return err
	}

	conn := &connection{
		ws:      ws,
		url:     address,
		inbound: make(chan frame, c.options.InboundQueue),
		done:    make(chan struct{}),
	}
	if err := c.runtime.Go(func(ctx context.Context) error {
		c.read(ctx, conn)
		return nil
	}); err != nil {
		ws.Close()
		return err
	}

	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.mu.Unlock()

	if old != nil {
		old.close()
		c.bus.Publish(event.Event{Type: event.WSDisconnected, Data: event.WSData{URL: old.url}})
	}

	logging.Info().Str("url", address).Msg("WebSocket connected")
	c.bus.Publish(event.Event{Type: event.WSConnected, Data: event.WSData{URL: address}})
	return nil
}

// read pumps frames into conn.inbound until the stream ends or the
// connection is dropped. A closed inbound channel means end of stream.
func (c *Client) read(ctx context.Context, conn *connection) {
	defer close(conn.inbound)

	stop := context.AfterFunc(ctx, conn.close)
	defer stop()

	for {
		kind, data, err := conn.ws.ReadMessage()
		if err != nil {
			select {
			case <-conn.done:
			default:
				logging.Debug().Err(err).Str("url", conn.url).Msg("WebSocket stream ended")
			}
			return
		}

		var f frame
		switch {
		case kind == websocket.TextMessage:
			f.text = string(data)
		case utf8.Valid(data):
			f.text = string(data)
		default:
			f.err = fmt.Errorf("%w: binary frame is not valid UTF-8", types.ErrProtocol)
		}

		select {
		case conn.inbound <- f:
		case <-conn.done:
			return
		}
	}
}

// current returns the live connection or types.ErrNoConnection.
func (c *Client) current() (*connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, types.ErrNoConnection
	}
	return c.conn, nil
}

// Send writes one text frame.
func (c *Client) Send(text string) error {
	conn, err := c.current()
	if err != nil {
		return err
	}

	return c.runtime.Block(context.Background(), func(ctx context.Context) error {
		conn.writeMu.Lock()
		defer conn.writeMu.Unlock()
		if err := conn.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	})
}

// Receive waits up to timeout for the next inbound message.
// It returns "" with a nil error on timeout or when the stream has ended.
func (c *Client) Receive(timeout time.Duration) (string, error) {
	conn, err := c.current()
	if err != nil {
		return "", err
	}

	timer := time.NewTimer(max(timeout, 0))
	defer timer.Stop()

	select {
	case f, ok := <-conn.inbound:
		if !ok {
			return "", nil
		}
		return f.text, f.err
	case <-timer.C:
		return "", nil
	}
}

// Disconnect drops the connection, if any. It always succeeds.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}
	conn.close()

	logging.Info().Str("url", conn.url).Msg("WebSocket disconnected")
	c.bus.Publish(event.Event{Type: event.WSDisconnected, Data: event.WSData{URL: conn.url}})
}

// requestHeader converts the host's extra headers into a handshake header.
// Headers the dialer manages itself are dropped.
func requestHeader(extra map[string]string) http.Header {
	h := make(http.Header, len(extra))
	for name, value := range extra {
		key := http.CanonicalHeaderKey(name)
		switch key {
		case "Upgrade", "Connection", "Sec-Websocket-Key", "Sec-Websocket-Version", "Sec-Websocket-Extensions":
			continue
		}
		h.Set(key, value)
	}
	return h
}
