package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the certificate module.
type Metrics struct {
	// Per-participant pipeline outcomes
	GenerationOutcome *prometheus.CounterVec

	// Render latency including auto-scaling and QR composition
	RenderLatency prometheus.Histogram

	// Whole-batch latency
	BatchLatency prometheus.Histogram

	// Verification lookups by outcome
	Verifications *prometheus.CounterVec

	// Code collisions observed before retry
	CodeCollisions prometheus.Counter
}

// New creates a Metrics instance with all certificate module metrics registered.
func New() *Metrics {
	return &Metrics{
		GenerationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certnexus_certificates_generated_total",
			Help: "Per-participant generation outcomes",
		}, []string{"outcome"}), // outcome: "generated", "failed"

		RenderLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certnexus_render_duration_seconds",
			Help:    "Duration of single-certificate rendering",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		BatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certnexus_batch_duration_seconds",
			Help:    "Duration of full bulk-generation runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),

		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certnexus_verifications_total",
			Help: "Public verification lookups by outcome",
		}, []string{"outcome"}), // outcome: "valid", "invalid"

		CodeCollisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certnexus_code_collisions_total",
			Help: "Verification code collisions that triggered a regeneration",
		}),
	}
}

// IncrementGenerated records a successful per-participant pipeline.
func (m *Metrics) IncrementGenerated() {
	if m != nil {
		m.GenerationOutcome.WithLabelValues("generated").Inc()
	}
}

// IncrementFailed records a failed per-participant pipeline.
func (m *Metrics) IncrementFailed() {
	if m != nil {
		m.GenerationOutcome.WithLabelValues("failed").Inc()
	}
}

// ObserveRenderLatency records one render duration.
func (m *Metrics) ObserveRenderLatency(d time.Duration) {
	if m != nil {
		m.RenderLatency.Observe(d.Seconds())
	}
}

// ObserveBatchLatency records a whole batch run duration.
func (m *Metrics) ObserveBatchLatency(d time.Duration) {
	if m != nil {
		m.BatchLatency.Observe(d.Seconds())
	}
}

// IncrementVerification records a verification lookup outcome.
func (m *Metrics) IncrementVerification(valid bool) {
	if m == nil {
		return
	}
	if valid {
		m.Verifications.WithLabelValues("valid").Inc()
	} else {
		m.Verifications.WithLabelValues("invalid").Inc()
	}
}

// IncrementCodeCollision records a code collision retry.
func (m *Metrics) IncrementCodeCollision() {
	if m != nil {
		m.CodeCollisions.Inc()
	}
}
