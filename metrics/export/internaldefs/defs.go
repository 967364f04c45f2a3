package internaldefs

import (
	"github.com/MrEthical07/permguard/metrics"
)

// CounterDef names one exported counter. Decision is set for permission check
// outcomes so exporters that support labels can fold them into one family.
type CounterDef struct {
	ID       metrics.ID
	Name     string
	Help     string
	Decision string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   metrics.ID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: metrics.PermissionGranted, Name: "permguard_permission_granted_total", Help: "Permission checks that allowed the request.", Decision: "granted"},
	{ID: metrics.PermissionDenied, Name: "permguard_permission_denied_total", Help: "Permission checks rejected for a missing permission.", Decision: "denied"},
	{ID: metrics.PermissionFetchFailure, Name: "permguard_permission_fetch_failure_total", Help: "Permission checks whose flag lookup failed.", Decision: "fetch_failure"},
	{ID: metrics.PermissionInvalidFlag, Name: "permguard_permission_invalid_flag_total", Help: "Permission checks aborted by an unknown flag or malformed mask.", Decision: "invalid_flag"},
	{ID: metrics.StoreWrite, Name: "permguard_store_write_total", Help: "Successful flag store mutations."},
	{ID: metrics.StoreError, Name: "permguard_store_error_total", Help: "Flag store operations that failed."},
	{ID: metrics.TokenIssued, Name: "permguard_token_issued_total", Help: "Access tokens issued."},
	{ID: metrics.TokenRejected, Name: "permguard_token_rejected_total", Help: "Bearer tokens rejected during parsing."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: metrics.CheckLatency, Name: "permguard_check_latency_seconds", Help: "Permission check latency histogram."},
}

// HistogramBounds are the le labels of the histogram buckets.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.005",
	"0.025",
	"+Inf",
}

// DecisionCounterName is the labeled family holding every Decision counter.
const DecisionCounterName = "permguard_permission_checks_total"

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [metrics.BucketCount]uint64 {
	var out [metrics.BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [metrics.BucketCount]uint64) [metrics.BucketCount]uint64 {
	var out [metrics.BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
