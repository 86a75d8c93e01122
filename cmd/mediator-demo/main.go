// Command mediator-demo exercises every mediator operation against a small
// set of in-memory handlers and prints the outcomes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bjaus/mediator"
	"github.com/bjaus/mediator/ingress"
	"github.com/bjaus/mediator/interceptors"
)

type Ping struct {
	Text string `json:"text" validate:"required"`
}

type Lookup struct {
	Key string `json:"key" validate:"required"`
}

type Tick struct {
	Seq int `json:"seq"`
}

type config struct {
	LogLevel  string        `mapstructure:"log-level"`
	LogFormat string        `mapstructure:"log-format"`
	Sleep     time.Duration `mapstructure:"sleep"`
	Handlers  int           `mapstructure:"handlers"`
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "mediator-demo",
		Short:         "Run each mediator operation against demo handlers",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg config
			if err := v.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, logger)
		},
	}

	flags := root.Flags()
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "tint", "log format: tint, json, text")
	flags.Duration("sleep", 100*time.Millisecond, "how long each notification handler sleeps")
	flags.Int("handlers", 3, "number of notification handlers")

	v.SetEnvPrefix("MEDIATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	return root
}

func newLogger(cfg config) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}

	switch cfg.LogFormat {
	case "tint":
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
	}
	return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	c := mediator.NewContainer(mediator.WithContainerLogger(logger))
	collectors, err := interceptors.NewMetricsCollectors(nil)
	if err != nil {
		return err
	}
	interceptors.Register(c, interceptors.Config{Logger: logger, Metrics: collectors})

	mediator.Provide(c, mediator.RequestHandlerFunc[Ping, string](func(ctx context.Context, p Ping) (string, error) {
		return "PONG " + p.Text, nil
	}).Factory())
	mediator.Provide(c, mediator.AsyncRequestHandlerFunc[Lookup, string](func(ctx context.Context, l Lookup) (string, error) {
		time.Sleep(cfg.Sleep)
		if l.Key == "missing" {
			return "", errors.New("key not found")
		}
		return strings.ToUpper(l.Key), nil
	}).Factory())

	for i := range cfg.Handlers {
		mediator.Provide(c, mediator.NotificationHandlerFunc[Tick](func(ctx context.Context, t Tick) error {
			logger.DebugContext(ctx, "tick", "handler", i, "seq", t.Seq)
			return nil
		}).Factory())
		mediator.Provide(c, mediator.AsyncNotificationHandlerFunc[Tick](func(ctx context.Context, t Tick) error {
			time.Sleep(cfg.Sleep)
			if i == 0 {
				return fmt.Errorf("handler %d rejected tick %d", i, t.Seq)
			}
			return nil
		}).Factory())
	}

	m := mediator.New(c, mediator.WithLogger(logger))
	mediator.Bind[Ping, string](m, mediator.WithMarkers(
		interceptors.Validated{},
		interceptors.Timed{Label: "ping"},
		interceptors.Measured{Name: "ping"},
	))
	mediator.BindAsync[Lookup, string](m, mediator.WithMarkers(interceptors.Timed{Label: "lookup"}))

	report("request", mediator.Request[string](ctx, m, Ping{Text: "hello"}))
	report("request (invalid)", mediator.Request[string](ctx, m, Ping{}))
	report("request (unbound)", mediator.Request[int](ctx, m, Ping{Text: "hello"}))
	report("request async", <-mediator.RequestAsync[string](ctx, m, Lookup{Key: "abc"}))
	report("request async (fails)", <-mediator.RequestAsync[string](ctx, m, Lookup{Key: "missing"}))

	start := time.Now()
	nres := mediator.Notify(ctx, m, Tick{Seq: 1})
	reportNotify("notify", nres, time.Since(start))

	start = time.Now()
	nres = <-mediator.NotifyAsync(ctx, m, Tick{Seq: 2})
	reportNotify("notify async", nres, time.Since(start))

	in := ingress.New(m, ingress.WithLogger(logger))
	ingress.Request[Ping, string](in, "ping")
	ingress.Notification[Tick](in, "tick")
	for _, raw := range []string{
		`{"type": "ping", "payload": {"text": "from json"}}`,
		`{"type": "tick", "payload": {"seq": 3}}`,
		`{"type": "unknown", "payload": {}}`,
	} {
		out := in.Dispatch(ctx, []byte(raw))
		fmt.Printf("%-24s name=%q data=%v err=%v\n", "ingress", out.Name, out.Data, out.Err)
	}

	return nil
}

func report[R any](label string, res mediator.Result[R]) {
	if res.Err != nil {
		fmt.Printf("%-24s error: %v\n", label, res.Err)
		return
	}
	fmt.Printf("%-24s data: %v\n", label, res.Data)
}

func reportNotify(label string, res mediator.NotifyResult, d time.Duration) {
	if res.Err != nil {
		fmt.Printf("%-24s %d failed in %v: %v\n", label, res.Err.Len(), d.Round(time.Millisecond), res.Err)
		return
	}
	fmt.Printf("%-24s ok in %v\n", label, d.Round(time.Millisecond))
}
