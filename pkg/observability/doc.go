/*
Package observability turns dispatcher lifecycle hooks into Prometheus metrics
and structured audit logs.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	d := dispatcher.New(sdk, dispatcher.WithLifecycleHooks(
		observability.Chain(metrics.Hooks(), observability.LogHooks(logger)),
	))
*/
package observability
