// Package addin exposes the host-facing objects: the http and mcp listener
// classes and the ws client class.
//
// Every operation is a short synchronous call. Failures never escape as
// panics or errors; the call reports false (or an empty result) and the
// failure text is kept in LastError until the next successful call.
package addin

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/alkoleft/web-transport-addin/internal/config"
	"github.com/alkoleft/web-transport-addin/internal/event"
	"github.com/alkoleft/web-transport-addin/internal/logging"
	"github.com/alkoleft/web-transport-addin/internal/substrate"
)

// Version is reported by every class.
const Version = "0.1.0"

// Class names accepted by New.
const (
	ClassWS   = "ws"
	ClassHTTP = "http"
	ClassMCP  = "mcp"
)

// ClassNames returns the class list in the host's "a|b|c" form.
func ClassNames() string {
	return strings.Join([]string{ClassWS, ClassHTTP, ClassMCP}, "|")
}

// Object is one add-in instance as seen by the host.
type Object interface {
	// ClassName is the name the object was created under.
	ClassName() string
	// ID uniquely identifies the instance in logs.
	ID() string
	// Init binds the host's event delivery channel.
	Init(conn event.Connection) bool
	// Methods lists the callable methods.
	Methods() []Method
	// Call dispatches a method by English or localized name.
	Call(name string, args ...any) (any, bool)
	// Property reads a property by English or localized name.
	Property(name string) (any, bool)
	LastError() string
	// Err is the failure behind LastError, for errors.Is.
	Err() error
	Version() string
	// Bus is the instance's lifecycle feed.
	Bus() *event.Bus
	// Close releases the instance's network resources.
	Close() error
}

// New creates an instance of className. A nil cfg uses config.Default().
func New(className string, cfg *config.Config) (Object, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	switch className {
	case ClassHTTP, ClassMCP:
		return NewHTTP(className, cfg), nil
	case ClassWS:
		return NewWS(cfg), nil
	default:
		return nil, fmt.Errorf("unknown class %q (want %s)", className, ClassNames())
	}
}

// base carries what every class shares.
type base struct {
	id      string
	class   string
	runtime *substrate.Runtime
	bus     *event.Bus
	log     zerolog.Logger

	mu      sync.Mutex
	lastErr error
}

func (b *base) setup(class string) {
	b.id = ulid.Make().String()
	b.class = class
	b.runtime = substrate.New()
	b.bus = event.NewBus()
	b.log = logging.ForInstance(class, b.id)
}

func (b *base) ClassName() string { return b.class }
func (b *base) ID() string        { return b.id }
func (b *base) Version() string   { return Version }
func (b *base) Bus() *event.Bus   { return b.bus }

// LastError returns the text of the most recent failure, or "".
func (b *base) LastError() string {
	if err := b.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// Err returns the most recent failure as an error, so callers in Go can
// classify it with errors.Is. It is nil after a successful call.
func (b *base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// record stores the outcome of op and reports whether it succeeded.
func (b *base) record(op string, err error) bool {
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()

	if err != nil {
		b.log.Warn().Err(err).Str("op", op).Msg("Add-in call failed")
		return false
	}
	return true
}

// closeBase stops the runtime and the bus.
func (b *base) closeBase() error {
	err := b.runtime.Close()
	if busErr := b.bus.Close(); err == nil {
		err = busErr
	}
	return err
}
