package mediator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type ping struct {
	Text string
}

type tick struct {
	Seq int
}

// recorder collects events from handlers and interceptors in call order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

type pingHandler struct {
	rec       *recorder
	err       error
	panicWith any
}

func (h *pingHandler) Handle(ctx context.Context, p ping) (string, error) {
	h.rec.add("handle")
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	if h.err != nil {
		return "partial", h.err
	}
	return "PONG " + p.Text, nil
}

func (h *pingHandler) HandleAsync(ctx context.Context, p ping) (string, error) {
	h.rec.add("handle_async")
	if h.err != nil {
		return "", h.err
	}
	return "ASYNC PONG " + p.Text, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMediator(r Resolver, opts ...Option) *Mediator {
	return New(r, append([]Option{WithLogger(discardLogger())}, opts...)...)
}

func provideHandler(c *Container, h *pingHandler) {
	Provide(c, func() (RequestHandler[ping, string], error) { return h, nil })
	Provide(c, func() (AsyncRequestHandler[ping, string], error) { return h, nil })
}

// stubResolver is a Resolver that returns fixed values.
type stubResolver struct {
	instance  any
	err       error
	instances []any
}

func (r *stubResolver) GetInstance(reflect.Type) (any, error) { return r.instance, r.err }
func (r *stubResolver) GetInstances(reflect.Type) []any      { return r.instances }

func TestRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("returns handler data", func(t *testing.T) {
		c := NewContainer()
		rec := &recorder{}
		provideHandler(c, &pingHandler{rec: rec})
		m := newTestMediator(c)
		Bind[ping, string](m)

		res := Request[string](ctx, m, ping{Text: "hi"})
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.Data != "PONG hi" {
			t.Errorf("Data = %q, want %q", res.Data, "PONG hi")
		}
		if !res.OK() {
			t.Error("OK() = false, want true")
		}
	})

	t.Run("wraps handler error and clears data", func(t *testing.T) {
		c := NewContainer()
		wantErr := errors.New("boom")
		provideHandler(c, &pingHandler{rec: &recorder{}, err: wantErr})
		m := newTestMediator(c)
		Bind[ping, string](m)

		res := Request[string](ctx, m, ping{})
		if !errors.Is(res.Err, wantErr) {
			t.Errorf("error = %v, want %v", res.Err, wantErr)
		}
		var herr *HandlerError
		if !errors.As(res.Err, &herr) {
			t.Fatalf("error = %T, want *HandlerError", res.Err)
		}
		if herr.Method != "Handle" {
			t.Errorf("Method = %q, want Handle", herr.Method)
		}
		if res.Data != "" {
			t.Errorf("Data = %q, want empty", res.Data)
		}
	})

	t.Run("returns resolution error when nothing is bound", func(t *testing.T) {
		c := NewContainer()
		rec := &recorder{}
		provideHandler(c, &pingHandler{rec: rec})
		m := newTestMediator(c)

		res := Request[string](ctx, m, ping{})
		if !errors.Is(res.Err, ErrNoHandler) {
			t.Errorf("error = %v, want ErrNoHandler", res.Err)
		}
		var rerr *ResolutionError
		if !errors.As(res.Err, &rerr) {
			t.Errorf("error = %T, want *ResolutionError", res.Err)
		}
		if len(rec.list()) != 0 {
			t.Errorf("handler ran: %v", rec.list())
		}
	})

	t.Run("returns resolution error when resolver has no handler", func(t *testing.T) {
		m := newTestMediator(NewContainer())
		Bind[ping, string](m)

		res := Request[string](ctx, m, ping{})
		if !errors.Is(res.Err, ErrNotRegistered) {
			t.Errorf("error = %v, want ErrNotRegistered", res.Err)
		}
	})

	t.Run("matches on response type", func(t *testing.T) {
		c := NewContainer()
		provideHandler(c, &pingHandler{rec: &recorder{}})
		m := newTestMediator(c)
		Bind[ping, string](m)

		res := Request[int](ctx, m, ping{})
		if !errors.Is(res.Err, ErrNoHandler) {
			t.Errorf("error = %v, want ErrNoHandler", res.Err)
		}
	})

	t.Run("matches on runtime message type", func(t *testing.T) {
		c := NewContainer()
		Provide(c, RequestHandlerFunc[*ping, string](func(ctx context.Context, p *ping) (string, error) {
			return "ptr " + p.Text, nil
		}).Factory())
		m := newTestMediator(c)
		Bind[*ping, string](m)

		var msg any = &ping{Text: "x"}
		res := Request[string](ctx, m, msg)
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.Data != "ptr x" {
			t.Errorf("Data = %q, want %q", res.Data, "ptr x")
		}

		res = Request[string](ctx, m, ping{Text: "x"})
		if !errors.Is(res.Err, ErrNoHandler) {
			t.Errorf("error = %v, want ErrNoHandler for value message", res.Err)
		}
	})

	t.Run("rejects nil message", func(t *testing.T) {
		m := newTestMediator(NewContainer())

		res := Request[string](ctx, m, nil)
		if !errors.Is(res.Err, ErrNilMessage) {
			t.Errorf("error = %v, want ErrNilMessage", res.Err)
		}
	})

	t.Run("recovers handler panic", func(t *testing.T) {
		c := NewContainer()
		provideHandler(c, &pingHandler{rec: &recorder{}, panicWith: "kaboom"})
		m := newTestMediator(c)
		Bind[ping, string](m)

		res := Request[string](ctx, m, ping{})
		var perr *PanicError
		if !errors.As(res.Err, &perr) {
			t.Fatalf("error = %v, want *PanicError", res.Err)
		}
		if perr.Value != "kaboom" {
			t.Errorf("Value = %v, want kaboom", perr.Value)
		}
		var herr *HandlerError
		if !errors.As(res.Err, &herr) {
			t.Errorf("error = %T, want *HandlerError", res.Err)
		}
	})

	t.Run("rejects instance not implementing contract", func(t *testing.T) {
		m := newTestMediator(&stubResolver{instance: "not a handler"})
		Bind[ping, string](m)

		res := Request[string](ctx, m, ping{})
		if !errors.Is(res.Err, ErrContractMismatch) {
			t.Errorf("error = %v, want ErrContractMismatch", res.Err)
		}
	})

	t.Run("wraps foreign resolver error", func(t *testing.T) {
		wantErr := errors.New("container offline")
		m := newTestMediator(&stubResolver{err: wantErr})
		Bind[ping, string](m)

		res := Request[string](ctx, m, ping{})
		var rerr *ResolutionError
		if !errors.As(res.Err, &rerr) {
			t.Fatalf("error = %T, want *ResolutionError", res.Err)
		}
		if !errors.Is(res.Err, wantErr) {
			t.Errorf("error = %v, want %v", res.Err, wantErr)
		}
	})

	t.Run("resolves handler on every call", func(t *testing.T) {
		c := NewContainer()
		var built atomic.Int32
		Provide(c, func() (RequestHandler[ping, string], error) {
			built.Add(1)
			return &pingHandler{rec: &recorder{}}, nil
		})
		m := newTestMediator(c)
		Bind[ping, string](m)

		for range 3 {
			if res := Request[string](ctx, m, ping{}); res.Err != nil {
				t.Fatalf("unexpected error: %v", res.Err)
			}
		}
		if got := built.Load(); got != 3 {
			t.Errorf("factory calls = %d, want 3", got)
		}
	})

	t.Run("sees registrations made after the first call", func(t *testing.T) {
		c := NewContainer()
		m := newTestMediator(c)
		Bind[ping, string](m)

		if res := Request[string](ctx, m, ping{}); res.Err == nil {
			t.Fatal("expected error before registration")
		}

		provideHandler(c, &pingHandler{rec: &recorder{}})
		if res := Request[string](ctx, m, ping{Text: "late"}); res.Data != "PONG late" {
			t.Errorf("Data = %q, err = %v", res.Data, res.Err)
		}
	})

	t.Run("rebinding replaces markers", func(t *testing.T) {
		c := NewContainer()
		rec := &recorder{}
		provideHandler(c, &pingHandler{rec: rec})
		provideProbes(c, rec)
		m := newTestMediator(c)
		Bind[ping, string](m, WithMarkers(step{name: "1"}))
		Bind[ping, string](m)

		if res := Request[string](ctx, m, ping{}); res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if got := rec.list(); !reflect.DeepEqual(got, []string{"handle"}) {
			t.Errorf("events = %v, want [handle]", got)
		}
	})
}

func TestRequestAsync(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers one result then closes", func(t *testing.T) {
		c := NewContainer()
		rec := &recorder{}
		provideHandler(c, &pingHandler{rec: rec})
		m := newTestMediator(c)
		BindAsync[ping, string](m)

		ch := RequestAsync[string](ctx, m, ping{Text: "hi"})
		res, ok := <-ch
		if !ok {
			t.Fatal("channel closed without a result")
		}
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.Data != "ASYNC PONG hi" {
			t.Errorf("Data = %q, want %q", res.Data, "ASYNC PONG hi")
		}
		if _, ok := <-ch; ok {
			t.Error("channel yielded a second value")
		}
		if got := rec.list(); !reflect.DeepEqual(got, []string{"handle_async"}) {
			t.Errorf("events = %v, want [handle_async]", got)
		}
	})

	t.Run("wraps handler error", func(t *testing.T) {
		c := NewContainer()
		wantErr := errors.New("async boom")
		provideHandler(c, &pingHandler{rec: &recorder{}, err: wantErr})
		m := newTestMediator(c)
		BindAsync[ping, string](m)

		res := <-RequestAsync[string](ctx, m, ping{})
		if !errors.Is(res.Err, wantErr) {
			t.Errorf("error = %v, want %v", res.Err, wantErr)
		}
		var herr *HandlerError
		if errors.As(res.Err, &herr) && herr.Method != "HandleAsync" {
			t.Errorf("Method = %q, want HandleAsync", herr.Method)
		}
	})

	t.Run("sync binding does not serve async requests", func(t *testing.T) {
		c := NewContainer()
		provideHandler(c, &pingHandler{rec: &recorder{}})
		m := newTestMediator(c)
		Bind[ping, string](m)

		res := <-RequestAsync[string](ctx, m, ping{})
		if !errors.Is(res.Err, ErrNoHandler) {
			t.Errorf("error = %v, want ErrNoHandler", res.Err)
		}
	})

	t.Run("resolution failure still resolves to a result", func(t *testing.T) {
		m := newTestMediator(NewContainer())

		select {
		case res := <-RequestAsync[string](ctx, m, nil):
			if !errors.Is(res.Err, ErrNilMessage) {
				t.Errorf("error = %v, want ErrNilMessage", res.Err)
			}
		case <-time.After(time.Second):
			t.Fatal("no result")
		}
	})
}
