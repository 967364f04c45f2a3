// Package metrics keeps lock-free counters and a latency histogram for
// permission checks.
//
// Counters are cache-line padded and updated with atomic adds, so recording is
// safe from any number of request goroutines. A disabled or nil *Metrics drops
// every update. Exporters under metrics/export read a [Snapshot].
package metrics
