// Package metrics aggregates per-phase request outcomes.
//
// Workers never touch shared counters. They send immutable [Event] values over
// a channel and a single [Aggregator] consumes them, updating a [Table] it owns
// exclusively:
//
//	agg := metrics.NewAggregator(metrics.AggregatorOptions{
//		Workers:  4,
//		Interval: time.Second,
//		Report:   func(s metrics.Snapshot, final bool) { ... },
//	})
//	final, err := agg.Run(events) // returns once events is closed
//
// # Table
//
// The [Table] keeps one [WorkerStats] record per worker index (total, success,
// error, client error), an HDR latency histogram, status code counts and a
// breakdown of transport errors by category. It is not safe for concurrent use.
//
// # Reporting policy
//
// The aggregator reports a baseline snapshot before the first event, then after
// every event when no interval is configured, or once the interval has passed
// since the previous snapshot otherwise, and a final snapshot after the channel
// closes.
//
// # Prometheus
//
// An optional [Exporter] mirrors the counters into a Prometheus registry that
// can be served with [Exporter.Handler].
package metrics
