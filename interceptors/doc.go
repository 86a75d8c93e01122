// Package interceptors provides stock interceptors and the markers that
// attach them.
//
//   - Timed / Timing: logs how long the call took, with the marker's label
//   - Validated / Validation: validates the message's struct tags before the
//     handler runs
//   - Measured / Metrics: records prometheus call counts and latency
//
// Register wires all of them into a mediator.Container:
//
//	c := mediator.NewContainer()
//	collectors, _ := interceptors.NewMetricsCollectors(prometheus.DefaultRegisterer)
//	interceptors.Register(c, interceptors.Config{Logger: logger, Metrics: collectors})
//
//	mediator.Bind[CreateUser, *User](m, mediator.WithMarkers(
//	    interceptors.Validated{},
//	    interceptors.Timed{Label: "create-user"},
//	    interceptors.Measured{Name: "create_user"},
//	))
package interceptors
