package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
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

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"sameer.generation.duration", m.GenerationDuration},
		{"sameer.synthesis.duration", m.SynthesisDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			md := findMetric(rm, tc.name)
			if md == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := md.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is %T, want Histogram[float64]", tc.name, md.Data)
			}
			if len(hist.DataPoints) != 1 {
				t.Fatalf("DataPoints = %d, want 1", len(hist.DataPoints))
			}
			if hist.DataPoints[0].Count != 2 {
				t.Errorf("Count = %d, want 2", hist.DataPoints[0].Count)
			}
		})
	}
}

func TestCountersAndGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordModeTransition(ctx, "conversation")
	m.RecordModeTransition(ctx, "monitoring")
	m.RecordQuestionAsked(ctx, "proactive")
	m.RecordProviderError(ctx, "llm")
	m.WakeDetections.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)

	for _, name := range []string{
		"sameer.session.mode_transitions",
		"sameer.proactive.questions",
		"sameer.provider.errors",
		"sameer.wake.detections",
		"sameer.active_sessions",
	} {
		if findMetric(rm, name) == nil {
			t.Errorf("metric %q not found", name)
		}
	}

	md := findMetric(rm, "sameer.active_sessions")
	sum, ok := md.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("active_sessions is %T, want Sum[int64]", md.Data)
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 0 {
		t.Errorf("active_sessions = %+v, want single zero data point", sum.DataPoints)
	}
}
