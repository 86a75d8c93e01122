package mediator

import (
	"context"
	"log/slog"
	"reflect"
	"time"
)

// OnDispatchFunc is called before resolution starts for a dispatch.
type OnDispatchFunc func(ctx context.Context, kind Kind, msgType reflect.Type)

// OnSuccessFunc is called after a dispatch completes without error.
type OnSuccessFunc func(ctx context.Context, kind Kind, msgType reflect.Type, duration time.Duration)

// OnFailureFunc is called after a dispatch fails. For notifications err is
// the *MultiError.
type OnFailureFunc func(ctx context.Context, kind Kind, msgType reflect.Type, err error, duration time.Duration)

// OnNoHandlerFunc is called when a request has no binding or a notification
// has no registered handlers. A request without a binding still fails with
// ErrNoHandler; a notification without handlers still succeeds.
type OnNoHandlerFunc func(ctx context.Context, kind Kind, msgType reflect.Type)

// hooks holds all configured hook functions.
type hooks struct {
	onDispatch  []OnDispatchFunc
	onSuccess   []OnSuccessFunc
	onFailure   []OnFailureFunc
	onNoHandler []OnNoHandlerFunc
}

// Option configures a Mediator.
type Option func(*Mediator)

// WithLogger sets the logger. By default the mediator logs to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mediator) {
		m.logger = logger
	}
}

// WithOnDispatch adds a hook called before each dispatch.
// Multiple hooks are called in order.
//
// Example:
//
//	mediator.WithOnDispatch(func(ctx context.Context, kind mediator.Kind, t reflect.Type) {
//	    logger.DebugContext(ctx, "dispatching", "kind", kind, "message", t)
//	})
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(m *Mediator) {
		m.hooks.onDispatch = append(m.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after a dispatch succeeds.
// Multiple hooks are called in order.
//
// Example:
//
//	mediator.WithOnSuccess(func(ctx context.Context, kind mediator.Kind, t reflect.Type, d time.Duration) {
//	    metrics.Timing("mediator.success", d, "kind:"+string(kind))
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(m *Mediator) {
		m.hooks.onSuccess = append(m.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after a dispatch fails.
// Multiple hooks are called in order.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(m *Mediator) {
		m.hooks.onFailure = append(m.hooks.onFailure, fn)
	}
}

// WithOnNoHandler adds a hook called when no handler exists for a message.
// Multiple hooks are called in order.
func WithOnNoHandler(fn OnNoHandlerFunc) Option {
	return func(m *Mediator) {
		m.hooks.onNoHandler = append(m.hooks.onNoHandler, fn)
	}
}

func (m *Mediator) callOnDispatch(ctx context.Context, kind Kind, t reflect.Type) {
	for _, fn := range m.hooks.onDispatch {
		m.guard(kind, func() { fn(ctx, kind, t) })
	}
}

func (m *Mediator) callOnSuccess(ctx context.Context, kind Kind, t reflect.Type, d time.Duration) {
	for _, fn := range m.hooks.onSuccess {
		m.guard(kind, func() { fn(ctx, kind, t, d) })
	}
}

func (m *Mediator) callOnFailure(ctx context.Context, kind Kind, t reflect.Type, err error, d time.Duration) {
	for _, fn := range m.hooks.onFailure {
		m.guard(kind, func() { fn(ctx, kind, t, err, d) })
	}
}

func (m *Mediator) callOnNoHandler(ctx context.Context, kind Kind, t reflect.Type) {
	for _, fn := range m.hooks.onNoHandler {
		m.guard(kind, func() { fn(ctx, kind, t) })
	}
}

// guard runs a hook, logging instead of propagating a panic.
func (m *Mediator) guard(kind Kind, fn func()) {
	if err := protect(func() error { fn(); return nil }); err != nil {
		m.logger.Error("hook panicked", "kind", kind, "error", err)
	}
}
