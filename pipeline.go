package mediator

import (
	"context"
	"reflect"
	"runtime/debug"
)

// run drives the interceptor pipeline around the handler call.
//
// Before hooks run in order; the first failure aborts the call without
// touching the handler or any after hook. A handler failure aborts likewise.
// After hooks run in order only after success; the first failure skips the
// rest. async selects AsyncInterceptor hooks where implemented.
func (p *plan) run(ctx context.Context, async bool) (any, error) {
	for _, ic := range p.interceptors {
		if err := protect(func() error { return p.before(ctx, ic, async) }); err != nil {
			return nil, &InterceptorError{Interceptor: reflect.TypeOf(ic), Phase: PhaseBefore, Err: err}
		}
	}

	var resp any
	err := protect(func() error {
		var err error
		resp, err = p.invoke(ctx, p.handler, p.call.Message)
		return err
	})
	if err != nil {
		return nil, &HandlerError{Handler: p.call.Method.Receiver, Method: p.call.Method.Name, Err: err}
	}

	for _, ic := range p.interceptors {
		if err := protect(func() error { return p.after(ctx, ic, resp, async) }); err != nil {
			return nil, &InterceptorError{Interceptor: reflect.TypeOf(ic), Phase: PhaseAfter, Err: err}
		}
	}

	return resp, nil
}

func (p *plan) before(ctx context.Context, ic Interceptor, async bool) error {
	if async {
		if a, ok := ic.(AsyncInterceptor); ok {
			return a.BeforeInvokeAsync(ctx, p.call)
		}
	}
	return ic.BeforeInvoke(ctx, p.call)
}

func (p *plan) after(ctx context.Context, ic Interceptor, resp any, async bool) error {
	if async {
		if a, ok := ic.(AsyncInterceptor); ok {
			return a.AfterInvokeAsync(ctx, p.call, resp)
		}
	}
	return ic.AfterInvoke(ctx, p.call, resp)
}

// protect runs fn and converts a panic into a *PanicError.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
