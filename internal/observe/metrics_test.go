package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestCounterRecording(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.CatalogFallbacks.Add(ctx, 1)
	m.CatalogFallbacks.Add(ctx, 1)
	m.NarratedSegments.Add(ctx, 3)
	m.ActiveJourneys.Add(ctx, 1)
	m.ActiveJourneys.Add(ctx, -1)

	rm := collect(t, reader)

	checks := []struct {
		name string
		want int64
	}{
		{"metrovoice.planner.catalog_fallbacks", 2},
		{"metrovoice.narrator.segments", 3},
		{"metrovoice.journeys.active", 0},
	}
	for _, tc := range checks {
		md := findMetric(rm, tc.name)
		if md == nil {
			t.Fatalf("metric %q not found", tc.name)
		}
		sum, ok := md.Data.(metricdata.Sum[int64])
		if !ok {
			t.Fatalf("metric %q data type = %T, want Sum[int64]", tc.name, md.Data)
		}
		var total int64
		for _, dp := range sum.DataPoints {
			total += dp.Value
		}
		if total != tc.want {
			t.Errorf("metric %q total = %d, want %d", tc.name, total, tc.want)
		}
	}
}

func TestResolverObserver(t *testing.T) {
	m, reader := newTestMetrics(t)
	obs := ResolverObserver{M: m}

	obs.Attempt("gemini-2.0-flash", "unavailable")
	obs.Attempt("gemini-pro-latest", "ok")
	obs.Resolved(true, 1200*time.Millisecond)

	rm := collect(t, reader)

	attempts := findMetric(rm, "metrovoice.resolver.attempts")
	if attempts == nil {
		t.Fatal("attempts metric not found")
	}
	sum, ok := attempts.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("attempts data type = %T, want Sum[int64]", attempts.Data)
	}
	// One data point per model/status attribute pair.
	if len(sum.DataPoints) != 2 {
		t.Errorf("attempts data points = %d, want 2", len(sum.DataPoints))
	}

	duration := findMetric(rm, "metrovoice.resolver.duration")
	if duration == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration data type = %T, want Histogram[float64]", duration.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("duration data points = %+v, want one recording", hist.DataPoints)
	}
}
