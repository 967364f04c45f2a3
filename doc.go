// Package permguard guards procedures behind named permission flags.
//
// An [Engine] ties a permission table, a Redis flag store, an access token
// manager, metrics, and audit together. [Protect] extends a procedure chain
// with a stage that rejects callers lacking the required flags; the engine
// observes every check for metrics, audit, and logging.
//
// Engine methods are safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// The bitmask lives in bitfield, the protected stage in permission, and the
// middleware chain in procedure. This package only wires them to storage and
// observability. HTTP integration lives in middleware.
//
// # What this package must NOT do
//
//   - Cache flags between requests in ModeStrict.
//   - Treat an unknown flag name as a denial.
//   - Import middleware or the metric exporters (they import this package).
package permguard
