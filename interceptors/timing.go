package interceptors

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/bjaus/mediator"
)

// Timed attaches a Timing interceptor. Label is included in the log line.
type Timed struct {
	Label string
}

// InterceptorTypes implements mediator.Marker.
func (Timed) InterceptorTypes() []reflect.Type {
	return []reflect.Type{mediator.InterceptorType[*Timing]()}
}

// Timing measures the time between its before and after hooks and logs it
// at info level.
type Timing struct {
	mediator.MarkerBase

	logger  *slog.Logger
	start   time.Time
	elapsed time.Duration
}

// NewTiming returns a Timing interceptor logging to logger, or to
// slog.Default() when logger is nil.
func NewTiming(logger *slog.Logger) *Timing {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timing{logger: logger}
}

// Elapsed returns the duration measured by the last completed call.
func (t *Timing) Elapsed() time.Duration { return t.elapsed }

// Label returns the label of the attaching Timed marker.
func (t *Timing) Label() string {
	switch m := t.Marker().(type) {
	case Timed:
		return m.Label
	case *Timed:
		return m.Label
	}
	return ""
}

func (t *Timing) BeforeInvoke(ctx context.Context, call mediator.Call) error {
	t.start = time.Now()
	return nil
}

func (t *Timing) AfterInvoke(ctx context.Context, call mediator.Call, response any) error {
	t.elapsed = time.Since(t.start)
	t.logger.InfoContext(ctx, "call timed",
		"message", call.MessageType.String(),
		"method", call.Method.Name,
		"elapsed", t.elapsed,
		"label", t.Label(),
		"call_id", call.ID,
	)
	return nil
}

func (t *Timing) BeforeInvokeAsync(ctx context.Context, call mediator.Call) error {
	return t.BeforeInvoke(ctx, call)
}

func (t *Timing) AfterInvokeAsync(ctx context.Context, call mediator.Call, response any) error {
	return t.AfterInvoke(ctx, call, response)
}
