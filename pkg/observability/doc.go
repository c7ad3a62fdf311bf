/*
Package observability turns workflow lifecycle hooks into Prometheus metrics.

	m, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	assistant, _ := newbackend.New(..., newbackend.WithLifecycleHooks(m.Hooks()))

Stage visits, per-attempt external call latency and turn outcomes are recorded.
*/
package observability
