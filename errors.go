package mediator

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNilMessage is returned when a nil message is dispatched.
	ErrNilMessage = errors.New("nil message")

	// ErrNoHandler is returned when no binding exists for a message type.
	ErrNoHandler = errors.New("no handler bound")

	// ErrNotRegistered is returned by Container when nothing is registered
	// for a type.
	ErrNotRegistered = errors.New("type not registered")

	// ErrAmbiguous is returned by Container when a single instance is
	// requested for a type with more than one registration.
	ErrAmbiguous = errors.New("ambiguous registration")

	// ErrContractMismatch is returned when a resolved instance does not
	// implement the contract it was resolved for.
	ErrContractMismatch = errors.New("instance does not implement contract")
)

// ResolutionError reports a failure to resolve a handler, an interceptor,
// or the dispatch method of a handler. It is fatal to the call and never
// retried.
type ResolutionError struct {
	Type reflect.Type
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", typeName(e.Type), e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// HandlerError wraps an error raised by the handler's own logic.
type HandlerError struct {
	Handler reflect.Type
	Method  string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s.%s: %v", typeName(e.Handler), e.Method, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Phase identifies which interceptor hook failed.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// InterceptorError wraps an error raised by a BeforeInvoke or AfterInvoke
// hook. A failing hook short-circuits the rest of the pipeline.
type InterceptorError struct {
	Interceptor reflect.Type
	Phase       Phase
	Err         error
}

func (e *InterceptorError) Error() string {
	return fmt.Sprintf("interceptor %s (%s): %v", typeName(e.Interceptor), e.Phase, e.Err)
}

func (e *InterceptorError) Unwrap() error { return e.Err }

// PanicError carries a value recovered from a panicking handler or hook.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func errContract(v any) error {
	return fmt.Errorf("%w: got %T", ErrContractMismatch, v)
}
