// Package ingress decodes JSON envelopes into typed messages and dispatches
// them through a mediator.
//
// An envelope names its message type and carries a payload:
//
//	{"type": "ping", "payload": {"text": "hi"}}
//
// Register the type names the ingress understands, then feed it raw bytes:
//
//	in := ingress.New(m)
//	ingress.Request[Ping, string](in, "ping")
//	ingress.Notification[UserCreated](in, "user.created")
//
//	out := in.Dispatch(ctx, raw)
//	if out.Err != nil {
//	    // decode, resolution, interceptor or handler failure
//	}
//
// Other envelope shapes are described with a Format. Formats are tried in
// order using their Discriminator; the last format that matched is tried
// first on the next message.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bjaus/mediator"
)

var (
	// ErrNoFormat is returned when no Format matches the envelope.
	ErrNoFormat = errors.New("no format matched envelope")

	// ErrMissingType is returned when the matched format's type field is
	// absent or not a string.
	ErrMissingType = errors.New("envelope has no type")

	// ErrUnknownType is returned when no message is registered under the
	// envelope's type name.
	ErrUnknownType = errors.New("unknown message type")
)

// DecodeError reports a payload that could not be unmarshaled.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Name, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError reports a payload whose Validate method failed.
type ValidationError struct {
	Name string
	Err  error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validate %s: %v", e.Name, e.Err) }
func (e *ValidationError) Unwrap() error { return e.Err }

// validatable is the interface for payload validation.
// Compatible with github.com/go-ozzo/ozzo-validation/v4.
type validatable interface {
	Validate() error
}

// Format describes one envelope shape.
type Format struct {
	// Name identifies the format in logs.
	Name string

	// Discriminator selects envelopes in this format.
	Discriminator Discriminator

	// TypePath is the path of the message type name.
	TypePath string

	// PayloadPath is the path of the message payload.
	PayloadPath string
}

// DefaultFormat matches {"type": "...", "payload": {...}}.
var DefaultFormat = Format{
	Name:          "envelope",
	Discriminator: HasFields("type", "payload"),
	TypePath:      "type",
	PayloadPath:   "payload",
}

// Outcome is the result of dispatching one envelope.
type Outcome struct {
	// Name is the envelope's message type name, when it could be read.
	Name string

	// Data is the response of a request. It is nil for notifications and
	// whenever Err is set.
	Data any

	Err error
}

// decoder unmarshals a payload and dispatches it.
type decoder func(ctx context.Context, name string, payload []byte) Outcome

// Ingress turns raw envelopes into mediator dispatches.
//
// Ingress is safe for concurrent use. Registration may happen at any time.
type Ingress struct {
	mediator  *mediator.Mediator
	inspector Inspector
	formats   []Format
	logger    *slog.Logger

	mu       sync.RWMutex
	decoders map[string]decoder

	// Adaptive ordering: try last matching format first
	lastMatch atomic.Int64
}

// Option configures an Ingress.
type Option func(*Ingress)

// WithInspector sets the inspector. The default is JSONInspector.
func WithInspector(i Inspector) Option {
	return func(in *Ingress) {
		in.inspector = i
	}
}

// WithFormats replaces the default format list.
func WithFormats(formats ...Format) Option {
	return func(in *Ingress) {
		in.formats = formats
	}
}

// WithLogger sets the logger. By default the ingress logs to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingress) {
		in.logger = logger
	}
}

// New creates an Ingress dispatching through m.
func New(m *mediator.Mediator, opts ...Option) *Ingress {
	in := &Ingress{
		mediator:  m,
		inspector: JSONInspector(),
		formats:   []Format{DefaultFormat},
		logger:    slog.Default(),
		decoders:  make(map[string]decoder),
	}
	in.lastMatch.Store(-1)
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Request registers name as a request of type M answered with R. The
// payload is unmarshaled into M and sent with mediator.Request, so M must
// also be bound on the mediator.
//
// Example:
//
//	ingress.Request[Ping, string](in, "ping")
func Request[M, R any](in *Ingress, name string) {
	in.register(name, func(ctx context.Context, name string, payload []byte) Outcome {
		msg, err := decode[M](name, payload)
		if err != nil {
			return Outcome{Name: name, Err: err}
		}
		res := mediator.Request[R](ctx, in.mediator, msg)
		if res.Err != nil {
			return Outcome{Name: name, Err: res.Err}
		}
		return Outcome{Name: name, Data: res.Data}
	})
}

// Notification registers name as a notification of type N, delivered with
// mediator.Notify.
func Notification[N any](in *Ingress, name string) {
	in.register(name, func(ctx context.Context, name string, payload []byte) Outcome {
		msg, err := decode[N](name, payload)
		if err != nil {
			return Outcome{Name: name, Err: err}
		}
		res := mediator.Notify(ctx, in.mediator, msg)
		if res.Err != nil {
			return Outcome{Name: name, Err: res.Err}
		}
		return Outcome{Name: name}
	})
}

func (in *Ingress) register(name string, d decoder) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.decoders[name] = d
}

func decode[T any](name string, payload []byte) (T, error) {
	var msg T
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, &DecodeError{Name: name, Err: err}
	}

	if v, ok := any(msg).(validatable); ok {
		if err := v.Validate(); err != nil {
			return msg, &ValidationError{Name: name, Err: err}
		}
	} else if v, ok := any(&msg).(validatable); ok {
		if err := v.Validate(); err != nil {
			return msg, &ValidationError{Name: name, Err: err}
		}
	}

	return msg, nil
}

// Dispatch decodes raw and dispatches the message it carries.
//
// The processing flow:
//  1. Inspect raw and pick the first format whose discriminator matches
//  2. Read the type name and payload from the format's paths
//  3. Look up the decoder registered under the type name
//  4. Unmarshal and validate the payload
//  5. Dispatch through the mediator
//
// Dispatch never panics; every failure is reported in Outcome.Err.
func (in *Ingress) Dispatch(ctx context.Context, raw []byte) Outcome {
	view, err := in.inspector.Inspect(raw)
	if err != nil {
		return Outcome{Err: err}
	}

	f, ok := in.match(view)
	if !ok {
		in.logger.WarnContext(ctx, "no format matched envelope")
		return Outcome{Err: ErrNoFormat}
	}

	name, ok := view.GetString(f.TypePath)
	if !ok || name == "" {
		return Outcome{Err: fmt.Errorf("%w at %q (format %s)", ErrMissingType, f.TypePath, f.Name)}
	}

	in.mu.RLock()
	d, found := in.decoders[name]
	in.mu.RUnlock()
	if !found {
		in.logger.WarnContext(ctx, "unknown message type", "format", f.Name, "type", name)
		return Outcome{Name: name, Err: fmt.Errorf("%w: %s", ErrUnknownType, name)}
	}

	payload, ok := view.GetBytes(f.PayloadPath)
	if !ok {
		payload = []byte("null")
	}

	return d(ctx, name, payload)
}

// match finds the format for view, trying the last match first.
func (in *Ingress) match(view View) (Format, bool) {
	if i := int(in.lastMatch.Load()); i >= 0 && i < len(in.formats) {
		if in.formats[i].Discriminator.Match(view) {
			return in.formats[i], true
		}
	}

	for i, f := range in.formats {
		if f.Discriminator.Match(view) {
			in.lastMatch.Store(int64(i))
			return f, true
		}
	}
	return Format{}, false
}
