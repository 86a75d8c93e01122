package mediator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type HooksSuite struct {
	suite.Suite
	ctx   context.Context
	c     *Container
	order []string
}

func TestHooksSuite(t *testing.T) {
	suite.Run(t, new(HooksSuite))
}

func (s *HooksSuite) SetupTest() {
	s.ctx = context.Background()
	s.c = NewContainer()
	s.order = nil
}

func (s *HooksSuite) TestOnDispatchAndOnSuccessForRequest() {
	provideHandler(s.c, &pingHandler{rec: &recorder{}})
	m := newTestMediator(s.c,
		WithOnDispatch(func(ctx context.Context, kind Kind, t reflect.Type) {
			s.order = append(s.order, "dispatch:"+string(kind)+":"+t.String())
		}),
		WithOnSuccess(func(ctx context.Context, kind Kind, t reflect.Type, d time.Duration) {
			s.order = append(s.order, "success:"+string(kind))
		}),
		WithOnFailure(func(ctx context.Context, kind Kind, t reflect.Type, err error, d time.Duration) {
			s.order = append(s.order, "failure")
		}),
	)
	Bind[ping, string](m)

	res := Request[string](s.ctx, m, ping{})

	s.Require().NoError(res.Err)
	s.Assert().Equal([]string{"dispatch:request:mediator.ping", "success:request"}, s.order)
}

func (s *HooksSuite) TestOnFailureReceivesError() {
	wantErr := errors.New("nope")
	provideHandler(s.c, &pingHandler{rec: &recorder{}, err: wantErr})

	var got error
	m := newTestMediator(s.c, WithOnFailure(func(ctx context.Context, kind Kind, t reflect.Type, err error, d time.Duration) {
		got = err
	}))
	Bind[ping, string](m)

	res := Request[string](s.ctx, m, ping{})

	s.Assert().ErrorIs(got, wantErr)
	s.Assert().Equal(res.Err, got)
}

func (s *HooksSuite) TestOnNoHandlerForUnboundRequest() {
	m := newTestMediator(s.c,
		WithOnNoHandler(func(ctx context.Context, kind Kind, t reflect.Type) {
			s.order = append(s.order, "no-handler:"+string(kind))
		}),
		WithOnFailure(func(ctx context.Context, kind Kind, t reflect.Type, err error, d time.Duration) {
			s.order = append(s.order, "failure")
		}),
	)

	res := Request[string](s.ctx, m, ping{})

	s.Assert().ErrorIs(res.Err, ErrNoHandler)
	s.Assert().Equal([]string{"no-handler:request", "failure"}, s.order)
}

func (s *HooksSuite) TestOnNoHandlerForEmptyNotification() {
	m := newTestMediator(s.c,
		WithOnNoHandler(func(ctx context.Context, kind Kind, t reflect.Type) {
			s.order = append(s.order, "no-handler:"+string(kind))
		}),
		WithOnSuccess(func(ctx context.Context, kind Kind, t reflect.Type, d time.Duration) {
			s.order = append(s.order, "success")
		}),
	)

	res := <-NotifyAsync(s.ctx, m, tick{})

	s.Assert().Nil(res.Err)
	s.Assert().Equal([]string{"no-handler:async_notification", "success"}, s.order)
}

func (s *HooksSuite) TestOnFailureReceivesMultiErrorForNotification() {
	provideNotifiers(s.c, &countingNotifier{err: errors.New("one")})

	var got error
	m := newTestMediator(s.c, WithOnFailure(func(ctx context.Context, kind Kind, t reflect.Type, err error, d time.Duration) {
		got = err
	}))

	res := Notify(s.ctx, m, tick{})

	var merr *MultiError
	s.Require().ErrorAs(got, &merr)
	s.Assert().Same(res.Err, merr)
}

func (s *HooksSuite) TestMultipleHooksRunInOrder() {
	provideHandler(s.c, &pingHandler{rec: &recorder{}})
	m := newTestMediator(s.c,
		WithOnSuccess(func(ctx context.Context, kind Kind, t reflect.Type, d time.Duration) {
			s.order = append(s.order, "first")
		}),
		WithOnSuccess(func(ctx context.Context, kind Kind, t reflect.Type, d time.Duration) {
			s.order = append(s.order, "second")
		}),
	)
	Bind[ping, string](m)

	Request[string](s.ctx, m, ping{})

	s.Assert().Equal([]string{"first", "second"}, s.order)
}

func (s *HooksSuite) TestPanickingHookDoesNotAffectResult() {
	provideHandler(s.c, &pingHandler{rec: &recorder{}})
	var buf bytes.Buffer
	m := New(s.c,
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithOnDispatch(func(ctx context.Context, kind Kind, t reflect.Type) {
			panic("hook exploded")
		}),
		WithOnSuccess(func(ctx context.Context, kind Kind, t reflect.Type, d time.Duration) {
			s.order = append(s.order, "success")
		}),
	)
	Bind[ping, string](m)

	res := Request[string](s.ctx, m, ping{Text: "x"})

	s.Require().NoError(res.Err)
	s.Assert().Equal("PONG x", res.Data)
	s.Assert().Equal([]string{"success"}, s.order)
	s.Assert().Contains(buf.String(), "hook panicked")
}

func (s *HooksSuite) TestLogsFailuresAtWarn() {
	var buf bytes.Buffer
	m := New(s.c, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	Request[string](s.ctx, m, ping{})

	out := buf.String()
	s.Assert().Contains(out, "level=WARN")
	s.Assert().Contains(out, "dispatch failed")
	s.Assert().True(strings.Contains(out, "kind=request"), out)
}
