package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alkoleft/web-transport-addin/internal/config"
	"github.com/alkoleft/web-transport-addin/internal/event"
	"github.com/alkoleft/web-transport-addin/internal/headers"
	"github.com/alkoleft/web-transport-addin/internal/logging"
	"github.com/alkoleft/web-transport-addin/internal/pending"
	"github.com/alkoleft/web-transport-addin/internal/sse"
	"github.com/alkoleft/web-transport-addin/internal/substrate"
	"github.com/alkoleft/web-transport-addin/pkg/types"
)

// Config holds server configuration.
type Config struct {
	ResponseTimeout    time.Duration
	ShutdownTimeout    time.Duration
	DefaultContentType string
	ProbeBody          string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return FromHTTPConfig(config.Default().HTTP)
}

// FromHTTPConfig converts the loaded HTTP section into server settings.
func FromHTTPConfig(c config.HTTPConfig) *Config {
	return &Config{
		ResponseTimeout:    c.ResponseTimeout.Std(),
		ShutdownTimeout:    c.ShutdownTimeout.Std(),
		DefaultContentType: c.DefaultContentType,
		ProbeBody:          c.ProbeBody,
	}
}

// listener is the state of one started server.
type listener struct {
	httpSrv *http.Server
	addr    string
}

// Server is the HTTP listener of one add-in instance.
// Generic requests are parked in the pending registry until the host answers
// them with SendResponse; SSE sessions are fed by SSESend.
type Server struct {
	config  *Config
	router  *chi.Mux
	runtime *substrate.Runtime
	bridge  *event.Bridge
	bus     *event.Bus

	pending  *pending.Registry
	sessions *sse.Registry

	requestIDs substrate.Counter
	sessionIDs substrate.Counter

	mu      sync.Mutex
	running *listener
}

// New creates a new Server instance. Network tasks run on rt; notifications
// leave through bridge. A nil bus gets a private one.
func New(cfg *Config, rt *substrate.Runtime, bridge *event.Bridge, bus *event.Bus) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if bus == nil {
		bus = event.NewBus()
	}

	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		runtime:  rt,
		bridge:   bridge,
		bus:      bus,
		pending:  pending.NewRegistry(),
		sessions: sse.NewRegistry(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Start binds address (ip:port) and serves on a runtime task.
// Bind errors are reported synchronously.
func (s *Server) Start(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running != nil {
		return types.ErrAlreadyRunning
	}

	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %q", types.ErrInvalidAddress, address)
	}

	ln, err := net.Listen("tcp", ap.String())
	if err != nil {
		return fmt.Errorf("listen %s: %w", ap, err)
	}

	httpSrv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 30 * time.Second,

		// "OPTIONS *" goes to the router like any other preflight.
		DisableGeneralOptionsHandler: true,
	}
	if err := s.runtime.Go(func(ctx context.Context) error {
		// Closing the runtime tears the listener down even without Stop.
		stop := context.AfterFunc(ctx, func() { httpSrv.Close() })
		defer stop()

		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Str("addr", ln.Addr().String()).Msg("HTTP server stopped unexpectedly")
			return err
		}
		return nil
	}); err != nil {
		ln.Close()
		return err
	}

	s.running = &listener{httpSrv: httpSrv, addr: ln.Addr().String()}

	logging.Info().Str("addr", s.running.addr).Msg("HTTP server started")
	s.bus.Publish(event.Event{Type: event.ServerStarted, Data: event.ServerData{Addr: s.running.addr}})
	return nil
}

// Stop empties both registries, then shuts the listener down gracefully.
// It never waits longer than the configured shutdown timeout.
func (s *Server) Stop() error {
	s.mu.Lock()
	running := s.running
	s.running = nil
	s.mu.Unlock()

	if running == nil {
		return types.ErrNotRunning
	}

	requests := s.pending.CancelAll()
	sessions := s.sessions.CloseAll()

	err := s.runtime.Block(context.Background(), func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
		if err := running.httpSrv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("Graceful shutdown incomplete, closing connections")
			return running.httpSrv.Close()
		}
		return nil
	})
	if errors.Is(err, substrate.ErrClosed) {
		err = running.httpSrv.Close()
	}

	logging.Info().
		Str("addr", running.addr).
		Int("cancelledRequests", requests).
		Int("closedSessions", sessions).
		Msg("HTTP server stopped")
	s.bus.Publish(event.Event{Type: event.ServerStopped, Data: event.ServerData{Addr: running.addr}})
	return err
}

// SendResponse answers the pending request id.
// Arguments are validated before the registry is touched.
func (s *Server) SendResponse(id string, status int, headersJSON, body string) error {
	if !types.ValidStatus(status) {
		return fmt.Errorf("%w: %d", types.ErrInvalidStatusCode, status)
	}
	hdrs, err := headers.Parse(headersJSON)
	if err != nil {
		return err
	}
	if !s.Running() {
		return types.ErrNotRunning
	}

	logging.Debug().Str("requestID", id).Int("status", status).Msg("HTTP response")

	if err := s.pending.Fulfill(id, types.HTTPResponse{Status: status, Headers: hdrs, Body: body}); err != nil {
		return fmt.Errorf("request %s: %w", id, err)
	}
	s.bus.Publish(event.Event{Type: event.RequestAnswered, Data: event.RequestData{ID: id, Status: status}})
	return nil
}

// SSESend queues data as a message event on session id.
func (s *Server) SSESend(id, data string) error {
	if !s.Running() {
		return types.ErrNotRunning
	}
	logging.Debug().Str("sessionID", id).Int("bytes", len(data)).Msg("SSE send")
	if err := s.sessions.Send(id, data); err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	return nil
}

// SSEClose ends session id after its queued frames drain. Unknown ids are not an error.
func (s *Server) SSEClose(id string) error {
	if s.sessions.Close(id) {
		logging.Debug().Str("sessionID", id).Msg("SSE session closed")
	}
	return nil
}

// Running reports whether a listener is bound.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running != nil
}

// Addr returns the bound address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		return ""
	}
	return s.running.addr
}

// Bus returns the lifecycle bus.
func (s *Server) Bus() *event.Bus {
	return s.bus
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
