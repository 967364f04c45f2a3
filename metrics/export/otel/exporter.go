package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/permguard"
	"github.com/MrEthical07/permguard/metrics"
	"github.com/MrEthical07/permguard/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Attribute keys set on exported points.
const (
	DecisionKey = attribute.Key("decision")
	BoundKey    = attribute.Key("le")
)

type metricsSource interface {
	MetricsSnapshot() metrics.Snapshot
	AuditDropped() uint64
}

// labeled is one snapshot value reported under a fixed attribute set.
type labeled struct {
	id    metrics.ID
	attrs metric.MeasurementOption
}

type plainCounter struct {
	id         metrics.ID
	instrument metric.Int64ObservableCounter
}

type latency struct {
	id      metrics.ID
	buckets metric.Int64ObservableGauge
	bounds  [metrics.BucketCount]metric.MeasurementOption
	count   metric.Int64ObservableGauge
}

// Exporter publishes engine metrics as OpenTelemetry observable instruments.
// Permission check outcomes share one counter distinguished by the decision
// attribute; latency buckets share one gauge distinguished by le.
type Exporter struct {
	source       metricsSource
	registration metric.Registration

	checks       metric.Int64ObservableCounter
	decisions    []labeled
	counters     []plainCounter
	latencies    []latency
	auditDropped metric.Int64ObservableCounter
}

func NewExporter(meter metric.Meter, engine *permguard.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var observables []metric.Observable

	checks, err := meter.Int64ObservableCounter(
		internaldefs.DecisionCounterName,
		metric.WithDescription("Permission checks by decision."),
	)
	if err != nil {
		return nil, fmt.Errorf("create observable counter %s: %w", internaldefs.DecisionCounterName, err)
	}
	e.checks = checks
	observables = append(observables, checks)

	for _, def := range internaldefs.CounterDefs {
		if def.Decision != "" {
			e.decisions = append(e.decisions, labeled{
				id:    def.ID,
				attrs: metric.WithAttributeSet(attribute.NewSet(DecisionKey.String(def.Decision))),
			})
			continue
		}
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, plainCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		l := latency{id: def.ID}
		l.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram bucket gauge %s: %w", def.Name, err)
		}
		for i, le := range internaldefs.HistogramBounds {
			l.bounds[i] = metric.WithAttributeSet(attribute.NewSet(BoundKey.String(le)))
		}
		l.count, err = meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", def.Name, err)
		}
		e.latencies = append(e.latencies, l)
		observables = append(observables, l.buckets, l.count)
	}

	e.auditDropped, err = meter.Int64ObservableCounter(
		"permguard_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	observables = append(observables, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, d := range e.decisions {
		o.ObserveInt64(e.checks, int64(snapshot.Counters[d.id]), d.attrs)
	}
	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, l := range e.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i, n := range cumulative {
			o.ObserveInt64(l.buckets, int64(n), l.bounds[i])
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
