package mediator

import (
	"strconv"
	"strings"
)

// Result is returned by Request and RequestAsync in place of an error
// return. Every failure is captured in Err.
//
// Data is meaningful only when Err is nil. When any stage fails, including
// an AfterInvoke hook that runs after the handler already produced a value,
// Data is the zero value of R. Callers branch on Err alone.
type Result[R any] struct {
	Data R
	Err  error
}

// OK reports whether the call succeeded.
func (r Result[R]) OK() bool { return r.Err == nil }

func success[R any](data R) Result[R] {
	return Result[R]{Data: data}
}

func failure[R any](err error) Result[R] {
	return Result[R]{Err: err}
}

// NotifyResult is returned by Notify and NotifyAsync. Err is nil when no
// handler was found or every handler succeeded.
type NotifyResult struct {
	Err *MultiError
}

// OK reports whether every handler succeeded.
func (r NotifyResult) OK() bool { return r.Err == nil }

// MultiError holds one error per failing notification handler, in
// invocation order. Each entry keeps the handler's original error reachable
// through errors.Is and errors.As.
type MultiError struct {
	errs []error
}

// Errors returns the per-handler errors in invocation order.
func (e *MultiError) Errors() []error {
	out := make([]error, len(e.errs))
	copy(out, e.errs)
	return out
}

// Len returns the number of failed handlers.
func (e *MultiError) Len() int { return len(e.errs) }

func (e *MultiError) Error() string {
	if len(e.errs) == 1 {
		return "1 handler failed: " + e.errs[0].Error()
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(e.errs)))
	b.WriteString(" handlers failed: ")
	for i, err := range e.errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes every entry to errors.Is and errors.As.
func (e *MultiError) Unwrap() []error { return e.errs }

// collect builds a MultiError from errs, skipping nils and preserving order.
// It returns nil when no error remains.
func collect(errs []error) *MultiError {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &MultiError{errs: kept}
}
