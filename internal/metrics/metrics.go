// Package metrics exposes Prometheus instruments for the conversation and
// generation pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fitness_coach" // Prefix of every metric name

// Metrics groups the instruments recorded by the services and the LLM client.
type Metrics struct {
	ingestTotal        *prometheus.CounterVec // stage, outcome
	generationTotal    *prometheus.CounterVec // status
	generationAttempts prometheus.Histogram
	repairRules        *prometheus.CounterVec
	llmDuration        *prometheus.HistogramVec // kind (chat, extract, transcribe), outcome
	llmFallbacks       prometheus.Counter
}

// New registers all instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg) // Panics on duplicate registration
	return &Metrics{
		ingestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Stage ingestions by requested stage and outcome.",
		}, []string{"stage", "outcome"}),
		generationTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_total",
			Help:      "Workout generations by result status.",
		}, []string{"status"}),
		generationAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_attempts",
			Help:      "Model calls needed per workout generation.",
			Buckets:   []float64{1, 2, 3, 4},
		}),
		repairRules: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_rules_applied_total",
			Help:      "JSON repair rules that changed model output.",
		}, []string{"rule"}),
		llmDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of provider calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"kind", "outcome"}),
		llmFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_fallback_total",
			Help:      "Completions answered with canned content after a provider failure.",
		}),
	}
}

// --- Recording ---

// ObserveIngest counts one ingest outcome such as "advanced" or "precondition".
func (m *Metrics) ObserveIngest(stage, outcome string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveGeneration counts a finished generation and its attempt count.
func (m *Metrics) ObserveGeneration(status string, attempts int) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(status).Inc()
	m.generationAttempts.Observe(float64(attempts))
}

// ObserveRepair counts each repair rule that changed model output.
func (m *Metrics) ObserveRepair(rules []string) {
	if m == nil {
		return
	}
	for _, r := range rules {
		m.repairRules.WithLabelValues(r).Inc()
	}
}

// ObserveLLM records the latency of one provider call.
func (m *Metrics) ObserveLLM(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.llmDuration.WithLabelValues(kind, outcome).Observe(elapsed.Seconds())
}

// ObserveFallback counts a completion served from canned content.
func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.llmFallbacks.Inc()
}
