package mediator

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// Kind identifies the dispatch operation.
type Kind string

const (
	KindRequest           Kind = "request"
	KindAsyncRequest      Kind = "async_request"
	KindNotification      Kind = "notification"
	KindAsyncNotification Kind = "async_notification"
)

// invoker wraps a typed handler call so bindings of different types can be
// stored in a single map. It is built once, at bind time.
type invoker func(ctx context.Context, handler, msg any) (any, error)

type bindingKey struct {
	kind Kind
	msg  reflect.Type
	resp reflect.Type
}

type binding struct {
	contract reflect.Type
	method   string
	invoke   invoker
	markers  []Marker
}

type bindConfig struct {
	markers []Marker
}

// BindOption configures a binding.
type BindOption func(*bindConfig)

// WithMarkers attaches markers to a binding. Interceptors are resolved per
// marker, then per interceptor type within the marker, in exactly the order
// given here.
//
// Example:
//
//	mediator.Bind[Ping, string](m, mediator.WithMarkers(
//	    interceptors.Validated{},
//	    interceptors.Timed{Label: "ping"},
//	))
func WithMarkers(markers ...Marker) BindOption {
	return func(c *bindConfig) {
		c.markers = append(c.markers, markers...)
	}
}

// Bind routes requests of type M expecting a response of type R to the
// RequestHandler[M, R] the resolver supplies. The handler instance is
// resolved on every call, so resolver registrations may change at any time.
//
// M must be the concrete type of the messages that will be dispatched;
// lookup uses the message's runtime type. Binding the same (M, R) pair
// again replaces the previous binding.
//
// This is a package-level function (not a method) because methods cannot
// have type parameters independent of the receiver.
func Bind[M, R any](m *Mediator, opts ...BindOption) {
	m.bind(KindRequest, TypeOf[M](), TypeOf[R](), TypeOf[RequestHandler[M, R]](), "Handle",
		func(ctx context.Context, handler, msg any) (any, error) {
			return handler.(RequestHandler[M, R]).Handle(ctx, msg.(M))
		}, opts)
}

// BindAsync routes asynchronous requests of type M expecting a response of
// type R to the AsyncRequestHandler[M, R] the resolver supplies.
func BindAsync[M, R any](m *Mediator, opts ...BindOption) {
	m.bind(KindAsyncRequest, TypeOf[M](), TypeOf[R](), TypeOf[AsyncRequestHandler[M, R]](), "HandleAsync",
		func(ctx context.Context, handler, msg any) (any, error) {
			return handler.(AsyncRequestHandler[M, R]).HandleAsync(ctx, msg.(M))
		}, opts)
}

func (m *Mediator) bind(kind Kind, msg, resp, contract reflect.Type, method string, invoke invoker, opts []BindOption) {
	var cfg bindConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[bindingKey{kind: kind, msg: msg, resp: resp}] = binding{
		contract: contract,
		method:   method,
		invoke:   invoke,
		markers:  cfg.markers,
	}
}

func (m *Mediator) binding(key bindingKey) (binding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bindings[key]
	return b, ok
}

// plan is the per-call resolution result. It is never cached.
type plan struct {
	call         Call
	handler      any
	invoke       invoker
	interceptors []Interceptor
}

// resolve builds a plan for msg. Every failure is returned as a
// *ResolutionError.
func (m *Mediator) resolve(kind Kind, msg any, resp reflect.Type) (*plan, error) {
	if msg == nil {
		return nil, &ResolutionError{Err: ErrNilMessage}
	}

	msgType := reflect.TypeOf(msg)
	b, ok := m.binding(bindingKey{kind: kind, msg: msgType, resp: resp})
	if !ok {
		return nil, &ResolutionError{Type: msgType, Err: fmt.Errorf("%w (response %s)", ErrNoHandler, typeName(resp))}
	}

	handler, err := m.instance(b.contract)
	if err != nil {
		return nil, err
	}

	p := &plan{
		call: Call{
			ID: uuid.NewString(),
			Method: Method{
				Name:     b.method,
				Receiver: reflect.TypeOf(handler),
				Contract: b.contract,
			},
			Message:     msg,
			MessageType: msgType,
		},
		handler: handler,
		invoke:  b.invoke,
	}

	markers := b.markers
	if mk, ok := handler.(Marked); ok {
		markers = append(markers[:len(markers):len(markers)], mk.Markers()...)
	}

	for _, marker := range markers {
		if marker == nil {
			continue
		}
		for _, t := range marker.InterceptorTypes() {
			ic, err := m.interceptor(t, marker)
			if err != nil {
				return nil, err
			}
			p.interceptors = append(p.interceptors, ic)
		}
	}

	return p, nil
}

// instance resolves exactly one value of type contract. contract may be an
// interface or a concrete type.
func (m *Mediator) instance(contract reflect.Type) (any, error) {
	var v any
	err := protect(func() error {
		var err error
		v, err = m.resolver.GetInstance(contract)
		return err
	})
	if err != nil {
		var rerr *ResolutionError
		if errors.As(err, &rerr) {
			return nil, rerr
		}
		return nil, &ResolutionError{Type: contract, Err: err}
	}

	if !satisfies(v, contract) {
		return nil, &ResolutionError{Type: contract, Err: errContract(v)}
	}
	return v, nil
}

func (m *Mediator) interceptor(t reflect.Type, marker Marker) (Interceptor, error) {
	v, err := m.instance(t)
	if err != nil {
		return nil, err
	}

	ic, ok := v.(Interceptor)
	if !ok {
		return nil, &ResolutionError{Type: t, Err: fmt.Errorf("%w: %T is not an Interceptor", ErrContractMismatch, v)}
	}
	if mr, ok := v.(MarkerReceiver); ok {
		mr.SetMarker(marker)
	}
	return ic, nil
}

func satisfies(v any, t reflect.Type) bool {
	vt := reflect.TypeOf(v)
	if vt == nil {
		return false
	}
	if t.Kind() == reflect.Interface {
		return vt.Implements(t)
	}
	return vt.AssignableTo(t)
}
