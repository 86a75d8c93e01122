package mediator

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Resolver supplies handler and interceptor instances. Type tokens are
// reflect.Type values; use TypeOf to obtain one for an interface type.
//
// Implementations must be safe for concurrent reads when the Mediator is
// shared between goroutines.
type Resolver interface {
	// GetInstance returns exactly one instance for t. It fails when nothing
	// is registered. Resolvers must not return an arbitrary pick when more
	// than one registration exists.
	GetInstance(t reflect.Type) (any, error)

	// GetInstances returns every instance registered for t in the
	// resolver's registration order. It returns an empty slice, never an
	// error, when nothing is registered.
	GetInstances(t reflect.Type) []any
}

// TypeOf returns the type token for T. It works for interface types, which
// reflect.TypeOf cannot see through a value.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Instance resolves a single T from r.
func Instance[T any](r Resolver) (T, error) {
	var zero T
	t := TypeOf[T]()
	v, err := r.GetInstance(t)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, &ResolutionError{Type: t, Err: errContract(v)}
	}
	return out, nil
}

// Instances resolves every T from r. Values not assignable to T are
// dropped.
func Instances[T any](r Resolver) []T {
	vs := r.GetInstances(TypeOf[T]())
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		if t, ok := v.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

type factory func() (any, error)

// Container is an in-memory Resolver backed by factories registered per
// type token. Factories run on every resolution, so each dispatch sees a
// fresh instance unless the factory returns a shared value.
//
// Container is safe for concurrent use, including registration while
// dispatches are in flight.
type Container struct {
	mu        sync.RWMutex
	factories map[reflect.Type][]factory
	logger    *slog.Logger
}

// ContainerOption configures a Container.
type ContainerOption func(*Container)

// WithContainerLogger sets the logger used to report factory failures
// during GetInstances.
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.logger = logger
	}
}

// NewContainer creates an empty Container.
func NewContainer(opts ...ContainerOption) *Container {
	c := &Container{
		factories: make(map[reflect.Type][]factory),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provide appends a factory for T. Registering several factories for the
// same T makes them all visible to GetInstances, in registration order.
//
// This is a package-level function (not a method) because methods cannot
// have type parameters independent of the receiver.
//
// Example:
//
//	mediator.Provide(c, func() (mediator.RequestHandler[Ping, string], error) {
//	    return &PingHandler{}, nil
//	})
func Provide[T any](c *Container, fn func() (T, error)) {
	c.add(TypeOf[T](), func() (any, error) {
		v, err := fn()
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// ProvideValue registers v as a shared instance of T.
func ProvideValue[T any](c *Container, v T) {
	c.add(TypeOf[T](), func() (any, error) { return v, nil })
}

func (c *Container) add(t reflect.Type, f factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[t] = append(c.factories[t], f)
}

func (c *Container) lookup(t reflect.Type) []factory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fs := c.factories[t]
	out := make([]factory, len(fs))
	copy(out, fs)
	return out
}

// GetInstance implements Resolver.
func (c *Container) GetInstance(t reflect.Type) (any, error) {
	fs := c.lookup(t)
	switch len(fs) {
	case 0:
		return nil, &ResolutionError{Type: t, Err: ErrNotRegistered}
	case 1:
	default:
		return nil, &ResolutionError{Type: t, Err: fmt.Errorf("%w: %d registrations", ErrAmbiguous, len(fs))}
	}

	v, err := fs[0]()
	if err != nil {
		return nil, &ResolutionError{Type: t, Err: err}
	}
	return v, nil
}

// GetInstances implements Resolver. A factory that fails is skipped and
// logged at warn level.
func (c *Container) GetInstances(t reflect.Type) []any {
	fs := c.lookup(t)
	out := make([]any, 0, len(fs))
	for i, f := range fs {
		v, err := f()
		if err != nil {
			c.logger.Warn("factory failed", "type", typeName(t), "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}
