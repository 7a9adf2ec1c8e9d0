// Package observe provides application-wide observability for metrovoice:
// OpenTelemetry metrics with a Prometheus exporter bridge so metrics can be
// scraped via the standard /metrics endpoint.
//
// The composition root owns one Metrics instance and hands it to the
// components that record into it. Tests construct their own Metrics over an
// in-memory metric.MeterProvider to avoid cross-test pollution.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrovoice metrics.
const meterName = "metrovoice"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ModelAttempts counts individual model invocations inside the fallback
	// chain. Attributes: model, status (ok | unavailable | error | invalid_json).
	ModelAttempts metric.Int64Counter

	// ResolveDuration tracks end-to-end resolution latency across the whole
	// fallback chain. Attribute: outcome (resolved | exhausted).
	ResolveDuration metric.Float64Histogram

	// CatalogFallbacks counts route requests served from the static catalog
	// after the model chain produced nothing.
	CatalogFallbacks metric.Int64Counter

	// NarratedSegments counts segments handed to the synthesis backend.
	NarratedSegments metric.Int64Counter

	// ActiveJourneys tracks currently open journey sessions.
	ActiveJourneys metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// multi-model resolution chains, which can span several provider calls.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40,
}

// NewMetrics creates a fully initialised Metrics struct using the given
// metric.MeterProvider. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ModelAttempts, err = m.Int64Counter("metrovoice.resolver.attempts",
		metric.WithDescription("Model invocations inside the fallback chain."),
	); err != nil {
		return nil, err
	}
	if met.ResolveDuration, err = m.Float64Histogram("metrovoice.resolver.duration",
		metric.WithDescription("End-to-end resolution latency across the fallback chain."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CatalogFallbacks, err = m.Int64Counter("metrovoice.planner.catalog_fallbacks",
		metric.WithDescription("Route requests served from the static catalog."),
	); err != nil {
		return nil, err
	}
	if met.NarratedSegments, err = m.Int64Counter("metrovoice.narrator.segments",
		metric.WithDescription("Segments handed to the speech synthesis backend."),
	); err != nil {
		return nil, err
	}
	if met.ActiveJourneys, err = m.Int64UpDownCounter("metrovoice.journeys.active",
		metric.WithDescription("Currently open journey sessions."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// ResolverObserver adapts Metrics to the resolver's Observer interface.
type ResolverObserver struct {
	M *Metrics
}

// Attempt implements resolver.Observer.
func (o ResolverObserver) Attempt(model, status string) {
	o.M.ModelAttempts.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("status", status),
		))
}

// Resolved implements resolver.Observer.
func (o ResolverObserver) Resolved(ok bool, elapsed time.Duration) {
	outcome := "resolved"
	if !ok {
		outcome = "exhausted"
	}
	o.M.ResolveDuration.Record(context.Background(), elapsed.Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
