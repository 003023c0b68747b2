// Package observe provides application-wide observability primitives for
// the Sameer server: OpenTelemetry metrics, tracing, and HTTP middleware
// that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/avirajsharma-ops/sameer"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// GenerationDuration tracks reply-generation latency.
	GenerationDuration metric.Float64Histogram

	// SynthesisDuration tracks speech-synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// --- Counters ---

	// WakeDetections counts wake-phrase hits.
	WakeDetections metric.Int64Counter

	// ModeTransitions counts session mode changes. Use with attribute:
	//   attribute.String("to", "monitoring"|"conversation")
	ModeTransitions metric.Int64Counter

	// UtterancesDispatched counts complete utterances flushed for dispatch.
	UtterancesDispatched metric.Int64Counter

	// QuestionsAsked counts delivered proactive questions. Use with
	// attribute: attribute.String("origin", "proactive"|"contextual")
	QuestionsAsked metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attribute:
	//   attribute.String("kind", "stt"|"llm"|"tts"|"embeddings")
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.GenerationDuration, err = m.Float64Histogram("sameer.generation.duration",
		metric.WithDescription("Latency of reply generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("sameer.synthesis.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.WakeDetections, err = m.Int64Counter("sameer.wake.detections",
		metric.WithDescription("Total wake-phrase detections by matcher stage."),
	); err != nil {
		return nil, err
	}
	if met.ModeTransitions, err = m.Int64Counter("sameer.session.mode_transitions",
		metric.WithDescription("Total session mode transitions by target mode."),
	); err != nil {
		return nil, err
	}
	if met.UtterancesDispatched, err = m.Int64Counter("sameer.session.utterances",
		metric.WithDescription("Total complete utterances dispatched."),
	); err != nil {
		return nil, err
	}
	if met.QuestionsAsked, err = m.Int64Counter("sameer.proactive.questions",
		metric.WithDescription("Total proactive questions asked by origin."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("sameer.provider.errors",
		metric.WithDescription("Total provider errors by kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("sameer.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("sameer.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordModeTransition records a session mode change.
func (m *Metrics) RecordModeTransition(ctx context.Context, to string) {
	m.ModeTransitions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("to", to)),
	)
}

// RecordQuestionAsked records a delivered question by origin.
func (m *Metrics) RecordQuestionAsked(ctx context.Context, origin string) {
	m.QuestionsAsked.Add(ctx, 1,
		metric.WithAttributes(attribute.String("origin", origin)),
	)
}

// RecordProviderError records a provider error by kind.
func (m *Metrics) RecordProviderError(ctx context.Context, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
