package mediator

import "context"

// RequestHandler handles a request of type M and produces a response of
// type R. Exactly one RequestHandler may serve a (M, R) pair.
//
// Example:
//
//	type PingHandler struct{}
//
//	func (h *PingHandler) Handle(ctx context.Context, p Ping) (string, error) {
//	    return "PONG!", nil
//	}
type RequestHandler[M, R any] interface {
	Handle(ctx context.Context, msg M) (R, error)
}

// RequestHandlerFunc is a function adapter for RequestHandler. Use for simple
// handlers that don't need a struct:
//
//	mediator.Provide(c, mediator.RequestHandlerFunc[Ping, string](func(ctx context.Context, p Ping) (string, error) {
//	    return "PONG!", nil
//	}).Factory())
type RequestHandlerFunc[M, R any] func(ctx context.Context, msg M) (R, error)

// Handle implements the RequestHandler interface.
func (f RequestHandlerFunc[M, R]) Handle(ctx context.Context, msg M) (R, error) {
	return f(ctx, msg)
}

// Factory returns a provider that always yields f.
func (f RequestHandlerFunc[M, R]) Factory() func() (RequestHandler[M, R], error) {
	return func() (RequestHandler[M, R], error) { return f, nil }
}

// AsyncRequestHandler is the asynchronous counterpart of RequestHandler.
// The mediator calls HandleAsync off the caller's goroutine, so the handler
// may block freely.
type AsyncRequestHandler[M, R any] interface {
	HandleAsync(ctx context.Context, msg M) (R, error)
}

// AsyncRequestHandlerFunc is a function adapter for AsyncRequestHandler.
type AsyncRequestHandlerFunc[M, R any] func(ctx context.Context, msg M) (R, error)

// HandleAsync implements the AsyncRequestHandler interface.
func (f AsyncRequestHandlerFunc[M, R]) HandleAsync(ctx context.Context, msg M) (R, error) {
	return f(ctx, msg)
}

// Factory returns a provider that always yields f.
func (f AsyncRequestHandlerFunc[M, R]) Factory() func() (AsyncRequestHandler[M, R], error) {
	return func() (AsyncRequestHandler[M, R], error) { return f, nil }
}

// NotificationHandler receives notifications of type N. Any number of
// NotificationHandlers may be registered for one notification type.
type NotificationHandler[N any] interface {
	Handle(ctx context.Context, msg N) error
}

// NotificationHandlerFunc is a function adapter for NotificationHandler.
type NotificationHandlerFunc[N any] func(ctx context.Context, msg N) error

// Handle implements the NotificationHandler interface.
func (f NotificationHandlerFunc[N]) Handle(ctx context.Context, msg N) error {
	return f(ctx, msg)
}

// Factory returns a provider that always yields f.
func (f NotificationHandlerFunc[N]) Factory() func() (NotificationHandler[N], error) {
	return func() (NotificationHandler[N], error) { return f, nil }
}

// AsyncNotificationHandler receives notifications dispatched with
// NotifyAsync. All handlers for a notification run concurrently.
type AsyncNotificationHandler[N any] interface {
	HandleAsync(ctx context.Context, msg N) error
}

// AsyncNotificationHandlerFunc is a function adapter for
// AsyncNotificationHandler.
type AsyncNotificationHandlerFunc[N any] func(ctx context.Context, msg N) error

// HandleAsync implements the AsyncNotificationHandler interface.
func (f AsyncNotificationHandlerFunc[N]) HandleAsync(ctx context.Context, msg N) error {
	return f(ctx, msg)
}

// Factory returns a provider that always yields f.
func (f AsyncNotificationHandlerFunc[N]) Factory() func() (AsyncNotificationHandler[N], error) {
	return func() (AsyncNotificationHandler[N], error) { return f, nil }
}
