// Package internaldefs holds the metric names and bucket boundaries shared by the
// exporter implementations.
//
// Both the Prometheus and OTel exporters read these tables, so they always expose
// identical names. Changes here affect every exporter at once.
//
// # What this package must NOT do
//
//   - Import permguard or any exporter package.
//   - Perform I/O.
package internaldefs
