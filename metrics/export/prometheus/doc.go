// Package prometheus renders permguard metrics in Prometheus text exposition
// format.
//
// [NewExporter] reads [permguard.Engine.MetricsSnapshot] on every scrape. Counter
// names are permguard_*_total; the single histogram is
// permguard_check_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
