package mediator

import (
	"context"
	"reflect"
)

// Method describes the dispatch method an interceptor wraps.
type Method struct {
	// Name is "Handle" for RequestHandler and "HandleAsync" for
	// AsyncRequestHandler.
	Name string

	// Receiver is the concrete type of the resolved handler instance.
	Receiver reflect.Type

	// Contract is the handler interface the instance was resolved for.
	Contract reflect.Type
}

// Call describes one dispatch as seen by interceptors.
type Call struct {
	// ID is unique per dispatch.
	ID string

	Method      Method
	Message     any
	MessageType reflect.Type
}

// Interceptor wraps a single-handler dispatch with before and after hooks.
//
// BeforeInvoke runs for every interceptor, in order, before the handler.
// If any returns an error the handler and all AfterInvoke hooks are
// skipped. AfterInvoke runs, in the same order, only after the handler
// succeeded; the first error skips the remaining ones.
//
// An interceptor instance serves exactly one dispatch. The mediator
// resolves a fresh one per call, so per-call state (a stopwatch, say) can
// live in fields.
type Interceptor interface {
	BeforeInvoke(ctx context.Context, call Call) error
	AfterInvoke(ctx context.Context, call Call, response any) error
}

// AsyncInterceptor is an optional interface used by RequestAsync. When an
// interceptor does not implement it, RequestAsync falls back to the
// synchronous hooks.
type AsyncInterceptor interface {
	BeforeInvokeAsync(ctx context.Context, call Call) error
	AfterInvokeAsync(ctx context.Context, call Call, response any) error
}

// Marker declares which interceptors wrap a handler and carries whatever
// configuration those interceptors read during their hooks.
//
// Example:
//
//	type Timed struct{ Label string }
//
//	func (Timed) InterceptorTypes() []reflect.Type {
//	    return []reflect.Type{mediator.InterceptorType[*Timing]()}
//	}
type Marker interface {
	InterceptorTypes() []reflect.Type
}

// InterceptorType returns the type token used to resolve interceptor T.
func InterceptorType[T Interceptor]() reflect.Type {
	return TypeOf[T]()
}

// Marked is an optional interface for handler implementations that declare
// their own markers. Markers returned here are applied after the ones given
// to Bind.
type Marked interface {
	Markers() []Marker
}

// MarkerReceiver is implemented by interceptors that want a reference to
// the marker that attached them.
type MarkerReceiver interface {
	SetMarker(m Marker)
}

// MarkerBase can be embedded in an interceptor to implement MarkerReceiver.
type MarkerBase struct {
	marker Marker
}

// SetMarker implements MarkerReceiver.
func (b *MarkerBase) SetMarker(m Marker) { b.marker = m }

// Marker returns the marker that attached the interceptor.
func (b *MarkerBase) Marker() Marker { return b.marker }
