// Package mediator provides an in-process message mediator for requests,
// queries and notifications.
//
// Callers hand a message to the mediator; the mediator finds the handler
// registered for the message's type, runs the interceptors attached to that
// handler around the call, and returns a Result. Failures never escape as
// panics or separate error returns: they are reported as data.
//
// # Quick Start
//
// Define a message and a handler for it:
//
//	type Ping struct{ Text string }
//
//	type PingHandler struct{}
//
//	func (h *PingHandler) Handle(ctx context.Context, p Ping) (string, error) {
//	    return "PONG " + p.Text, nil
//	}
//
// Register the handler with a resolver, bind the request type, and send:
//
//	c := mediator.NewContainer()
//	mediator.Provide(c, func() (mediator.RequestHandler[Ping, string], error) {
//	    return &PingHandler{}, nil
//	})
//
//	m := mediator.New(c)
//	mediator.Bind[Ping, string](m)
//
//	res := mediator.Request[string](ctx, m, Ping{Text: "hi"})
//	if res.Err != nil {
//	    // resolution, interceptor or handler failure
//	}
//
// # Design Philosophy
//
// The package separates concerns into three layers:
//
//   - Resolver: supplies handler and interceptor instances by type token
//   - Mediator: matches messages to bindings and drives the pipeline
//   - Handlers: pure business logic with typed messages
//
// Handlers never see interceptors, and callers never see handlers.
//
// # Operations
//
// Four entry points cover the message kinds:
//
//   - Request: one RequestHandler, called synchronously
//   - RequestAsync: one AsyncRequestHandler, run on its own goroutine
//   - Notify: every NotificationHandler, one after another
//   - NotifyAsync: every AsyncNotificationHandler, all at once
//
// Requests are looked up by the message's runtime type and the requested
// response type, so the response type is always spelled out:
//
//	res := mediator.Request[string](ctx, m, Ping{})
//	res := <-mediator.RequestAsync[*User](ctx, m, GetUser{ID: "42"})
//
// Notifications are looked up by the static type of the message:
//
//	res := mediator.Notify(ctx, m, UserCreated{ID: "42"})
//	res := <-mediator.NotifyAsync(ctx, m, UserCreated{ID: "42"})
//
// Nothing is cached between calls. Every dispatch resolves its handler and
// interceptors afresh, so registrations take effect immediately.
//
// # Interceptors and Markers
//
// An Interceptor wraps a single-handler dispatch with BeforeInvoke and
// AfterInvoke hooks. Interceptors are attached through Markers, which name
// the interceptor types to resolve and carry their configuration:
//
//	type Timed struct{ Label string }
//
//	func (Timed) InterceptorTypes() []reflect.Type {
//	    return []reflect.Type{mediator.InterceptorType[*Timing]()}
//	}
//
//	mediator.Bind[Ping, string](m, mediator.WithMarkers(Timed{Label: "ping"}))
//
// A handler may also declare markers itself by implementing Marked. Those
// follow the markers given to Bind.
//
// Interceptors that embed MarkerBase receive the marker that attached them:
//
//	type Timing struct {
//	    mediator.MarkerBase
//	    start time.Time
//	}
//
//	func (t *Timing) AfterInvoke(ctx context.Context, call mediator.Call, resp any) error {
//	    label := t.Marker().(Timed).Label
//	    ...
//	}
//
// The pipeline is all-or-nothing on each side of the handler:
//
//  1. BeforeInvoke runs on each interceptor in order
//  2. The first before failure aborts: no handler, no after hooks
//  3. The handler runs once; a failure aborts with no after hooks
//  4. AfterInvoke runs on each interceptor in order
//  5. The first after failure skips the remaining after hooks
//
// RequestAsync uses the AsyncInterceptor hooks of interceptors that
// implement them and the synchronous hooks otherwise.
//
// # Results and Errors
//
// Result.Data is valid only when Result.Err is nil. When an after hook fails
// the handler's value is discarded, so callers branch on Err alone.
//
// Errors are typed and compatible with errors.Is and errors.As:
//
//   - *ResolutionError: no binding, no instance, or a contract mismatch
//   - *HandlerError: the handler returned an error or panicked
//   - *InterceptorError: a hook failed; Phase tells which side
//   - *MultiError: one entry per failed notification handler
//
// Panics in handlers and hooks are recovered and surface as *PanicError.
//
// # Hooks
//
// Hooks provide observability without coupling to a specific metrics system:
//
//	m := mediator.New(c,
//	    mediator.WithOnSuccess(func(ctx context.Context, kind mediator.Kind, t reflect.Type, d time.Duration) {
//	        metrics.Timing("mediator.success", d, "kind:"+string(kind))
//	    }),
//	    mediator.WithOnFailure(func(ctx context.Context, kind mediator.Kind, t reflect.Type, err error, d time.Duration) {
//	        metrics.Incr("mediator.failure", "kind:"+string(kind))
//	    }),
//	)
//
// Available hooks:
//   - WithOnDispatch: Called before resolution
//   - WithOnSuccess: Called after a successful dispatch
//   - WithOnFailure: Called after a failed dispatch
//   - WithOnNoHandler: Called when nothing handles the message
//
// Multiple hooks of the same type are called in order. Hooks cannot change
// the outcome of a dispatch.
//
// # Thread Safety
//
// Mediator and Container are safe for concurrent use. The mediator does not
// cancel handlers or impose deadlines; the context is passed through as is.
package mediator
