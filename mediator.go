package mediator

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/sourcegraph/conc/iter"
)

// Mediator dispatches messages to the handlers a Resolver supplies.
//
// Usage:
//  1. Register handlers and interceptors with a Resolver (see Container)
//  2. Create a mediator with New
//  3. Bind request types with Bind or BindAsync
//  4. Dispatch with Request, RequestAsync, Notify or NotifyAsync
//
// Mediator keeps no per-call state and is safe for concurrent use, provided
// the Resolver is safe for concurrent reads. Bind may be called at any time.
type Mediator struct {
	resolver Resolver
	logger   *slog.Logger
	hooks    hooks

	mu       sync.RWMutex
	bindings map[bindingKey]binding
}

// New creates a Mediator that resolves handlers and interceptors from r.
//
// Example:
//
//	c := mediator.NewContainer()
//	mediator.Provide(c, func() (mediator.RequestHandler[Ping, string], error) {
//	    return &PingHandler{}, nil
//	})
//
//	m := mediator.New(c, mediator.WithLogger(logger))
//	mediator.Bind[Ping, string](m)
//
//	res := mediator.Request[string](ctx, m, Ping{})
func New(r Resolver, opts ...Option) *Mediator {
	m := &Mediator{
		resolver: r,
		logger:   slog.Default(),
		bindings: make(map[bindingKey]binding),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Request dispatches msg to the single RequestHandler bound for its runtime
// type and response type R, running the handler's interceptors around it.
//
// Request never panics and never returns a separate error: resolution,
// interceptor and handler failures are all reported in Result.Err.
func Request[R any](ctx context.Context, m *Mediator, msg any) Result[R] {
	return send[R](ctx, m, KindRequest, msg)
}

// RequestAsync is the asynchronous counterpart of Request. The dispatch runs
// on its own goroutine using AsyncRequestHandler and AsyncInterceptor hooks;
// before hooks, handler and after hooks still run strictly one after another.
// The returned channel yields exactly one Result and is then closed.
//
// Example:
//
//	res := <-mediator.RequestAsync[string](ctx, m, Ping{})
func RequestAsync[R any](ctx context.Context, m *Mediator, msg any) <-chan Result[R] {
	ch := make(chan Result[R], 1)
	go func() {
		defer close(ch)
		ch <- send[R](ctx, m, KindAsyncRequest, msg)
	}()
	return ch
}

// Notify delivers msg to every NotificationHandler[N] the resolver
// supplies, one after another in resolution order. A failing handler does
// not stop the others. NotifyResult.Err lists each failure in order.
func Notify[N any](ctx context.Context, m *Mediator, msg N) NotifyResult {
	return fanOut(ctx, m, KindNotification, msg, TypeOf[NotificationHandler[N]](), "Handle",
		func(ctx context.Context, h any) error {
			return h.(NotificationHandler[N]).Handle(ctx, msg)
		})
}

// NotifyAsync delivers msg to every AsyncNotificationHandler[N] the resolver
// supplies. All handlers start together and the result is produced once
// every one of them has returned; one handler's failure never cancels or
// delays another. Failures are listed in resolution order, as with Notify.
// The returned channel yields exactly one NotifyResult and is then closed.
func NotifyAsync[N any](ctx context.Context, m *Mediator, msg N) <-chan NotifyResult {
	ch := make(chan NotifyResult, 1)
	go func() {
		defer close(ch)
		ch <- fanOut(ctx, m, KindAsyncNotification, msg, TypeOf[AsyncNotificationHandler[N]](), "HandleAsync",
			func(ctx context.Context, h any) error {
				return h.(AsyncNotificationHandler[N]).HandleAsync(ctx, msg)
			})
	}()
	return ch
}

func send[R any](ctx context.Context, m *Mediator, kind Kind, msg any) Result[R] {
	resp, err := m.dispatch(ctx, kind, msg, TypeOf[R]())
	if err != nil {
		return failure[R](err)
	}
	data, _ := resp.(R)
	return success(data)
}

func (m *Mediator) dispatch(ctx context.Context, kind Kind, msg any, respType reflect.Type) (any, error) {
	msgType := reflect.TypeOf(msg)
	start := time.Now()
	m.callOnDispatch(ctx, kind, msgType)

	var p *plan
	err := protect(func() error {
		var err error
		p, err = m.resolve(kind, msg, respType)
		return err
	})
	if err != nil {
		var rerr *ResolutionError
		if !errors.As(err, &rerr) {
			err = &ResolutionError{Type: msgType, Err: err}
		}
		if errors.Is(err, ErrNoHandler) {
			m.callOnNoHandler(ctx, kind, msgType)
		}
		m.fail(ctx, kind, msgType, "", err, time.Since(start))
		return nil, err
	}

	m.logger.DebugContext(ctx, "dispatching",
		"kind", kind,
		"message", typeName(msgType),
		"call_id", p.call.ID,
		"interceptors", len(p.interceptors),
	)

	resp, err := p.run(ctx, kind == KindAsyncRequest)
	if err != nil {
		m.fail(ctx, kind, msgType, p.call.ID, err, time.Since(start))
		return nil, err
	}

	m.callOnSuccess(ctx, kind, msgType, time.Since(start))
	return resp, nil
}

type notifier func(ctx context.Context, handler any) error

func fanOut[N any](ctx context.Context, m *Mediator, kind Kind, msg N, contract reflect.Type, method string, notify notifier) NotifyResult {
	msgType := TypeOf[N]()
	start := time.Now()
	m.callOnDispatch(ctx, kind, msgType)

	var handlers []any
	if err := protect(func() error {
		handlers = m.resolver.GetInstances(contract)
		return nil
	}); err != nil {
		merr := collect([]error{&ResolutionError{Type: contract, Err: err}})
		m.fail(ctx, kind, msgType, "", merr, time.Since(start))
		return NotifyResult{Err: merr}
	}

	if len(handlers) == 0 {
		m.callOnNoHandler(ctx, kind, msgType)
		m.callOnSuccess(ctx, kind, msgType, time.Since(start))
		return NotifyResult{}
	}

	deliver := func(h any) error {
		if !satisfies(h, contract) {
			return &ResolutionError{Type: contract, Err: errContract(h)}
		}
		if err := protect(func() error { return notify(ctx, h) }); err != nil {
			return &HandlerError{Handler: reflect.TypeOf(h), Method: method, Err: err}
		}
		return nil
	}

	var errs []error
	if kind == KindAsyncNotification {
		errs = iter.Mapper[any, error]{MaxGoroutines: len(handlers)}.Map(handlers, func(h *any) error {
			return deliver(*h)
		})
	} else {
		errs = make([]error, 0, len(handlers))
		for _, h := range handlers {
			errs = append(errs, deliver(h))
		}
	}

	if merr := collect(errs); merr != nil {
		m.fail(ctx, kind, msgType, "", merr, time.Since(start))
		return NotifyResult{Err: merr}
	}

	m.callOnSuccess(ctx, kind, msgType, time.Since(start))
	return NotifyResult{}
}

func (m *Mediator) fail(ctx context.Context, kind Kind, msgType reflect.Type, callID string, err error, d time.Duration) {
	attrs := []any{"kind", kind, "message", typeName(msgType), "error", err, "duration", d}
	if callID != "" {
		attrs = append(attrs, "call_id", callID)
	}
	m.logger.WarnContext(ctx, "dispatch failed", attrs...)
	m.callOnFailure(ctx, kind, msgType, err, d)
}
