package interceptors

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/bjaus/mediator"
)

// Config holds the shared dependencies of the stock interceptors.
type Config struct {
	// Logger is used by Timing. Defaults to slog.Default().
	Logger *slog.Logger

	// Validator is shared by every Validation instance. Defaults to a new
	// validator with required-struct checks enabled.
	Validator *validator.Validate

	// Metrics enables the Metrics interceptor. When nil, Measured markers
	// fail to resolve.
	Metrics *MetricsCollectors
}

// Register provides the stock interceptors to c. Each dispatch gets fresh
// interceptor instances; the logger, validator and collectors are shared.
func Register(c *mediator.Container, cfg Config) {
	if cfg.Validator == nil {
		cfg.Validator = validator.New(validator.WithRequiredStructEnabled())
	}

	mediator.Provide(c, func() (*Timing, error) {
		return NewTiming(cfg.Logger), nil
	})
	mediator.Provide(c, func() (*Validation, error) {
		return NewValidation(cfg.Validator), nil
	})
	if cfg.Metrics != nil {
		mediator.Provide(c, func() (*Metrics, error) {
			return NewMetrics(cfg.Metrics), nil
		})
	}
}
