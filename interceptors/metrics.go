package interceptors

import (
	"context"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/mediator"
)

// Measured attaches a Metrics interceptor. Name is the value of the "name"
// label; it defaults to the message type.
type Measured struct {
	Name string
}

// InterceptorTypes implements mediator.Marker.
func (Measured) InterceptorTypes() []reflect.Type {
	return []reflect.Type{mediator.InterceptorType[*Metrics]()}
}

// Stage label values.
const (
	StageStarted   = "started"
	StageCompleted = "completed"
)

// MetricsCollectors are the prometheus collectors shared by every Metrics
// interceptor instance.
type MetricsCollectors struct {
	// Calls counts calls by name and stage. Started minus completed is the
	// number of calls that failed in the handler or a later hook.
	Calls *prometheus.CounterVec

	// Duration observes handler latency in seconds for completed calls.
	Duration *prometheus.HistogramVec
}

// NewMetricsCollectors creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetricsCollectors(reg prometheus.Registerer) (*MetricsCollectors, error) {
	c := &MetricsCollectors{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediator",
			Name:      "calls_total",
			Help:      "Intercepted calls by name and stage.",
		}, []string{"name", "stage"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediator",
			Name:      "call_duration_seconds",
			Help:      "Latency of completed intercepted calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.Calls, c.Duration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Metrics records call counts and latency.
type Metrics struct {
	mediator.MarkerBase

	collectors *MetricsCollectors
	start      time.Time
}

// NewMetrics returns a Metrics interceptor recording into c.
func NewMetrics(c *MetricsCollectors) *Metrics {
	return &Metrics{collectors: c}
}

func (i *Metrics) name(call mediator.Call) string {
	switch m := i.Marker().(type) {
	case Measured:
		if m.Name != "" {
			return m.Name
		}
	case *Measured:
		if m.Name != "" {
			return m.Name
		}
	}
	return call.MessageType.String()
}

func (i *Metrics) BeforeInvoke(ctx context.Context, call mediator.Call) error {
	i.start = time.Now()
	i.collectors.Calls.WithLabelValues(i.name(call), StageStarted).Inc()
	return nil
}

func (i *Metrics) AfterInvoke(ctx context.Context, call mediator.Call, response any) error {
	name := i.name(call)
	i.collectors.Duration.WithLabelValues(name).Observe(time.Since(i.start).Seconds())
	i.collectors.Calls.WithLabelValues(name, StageCompleted).Inc()
	return nil
}
