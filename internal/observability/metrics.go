package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Each
// instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Computations       *prometheus.CounterVec
	ComputeLatency     *prometheus.HistogramVec
	FocusCoverage      *prometheus.GaugeVec
	TaskCoverage       *prometheus.GaugeVec
	AutoplanCandidates *prometheus.GaugeVec
	RecordWrites       *prometheus.CounterVec
	Imports            *prometheus.CounterVec
	SSEClients         prometheus.Gauge
}

// NewMetrics registers the instruments under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Computations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insight_computations_total",
			Help:      "Insight computations by kind.",
		}, []string{"kind"}),
		ComputeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "insight_compute_duration_ms",
			Help:      "Snapshot load plus computation time in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"kind"}),
		FocusCoverage: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "focus_coverage_percent",
			Help:      "Last computed focus coverage per project.",
		}, []string{"project"}),
		TaskCoverage: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_coverage_percent",
			Help:      "Last computed task coverage per project.",
		}, []string{"project"}),
		AutoplanCandidates: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "autoplan_candidates",
			Help:      "Last computed autoplan candidate count per project.",
		}, []string{"project"}),
		RecordWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_writes_total",
			Help:      "Event and task writes by kind and action.",
		}, []string{"kind", "action"}),
		Imports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ics_imports_total",
			Help:      "ICS imports by origin and result.",
		}, []string{"origin", "result"}),
		SSEClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected SSE clients.",
		}),
	}
}

// ObserveCompute records one computation of kind that took d.
func (m *Metrics) ObserveCompute(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.Computations.WithLabelValues(kind).Inc()
	m.ComputeLatency.WithLabelValues(kind).Observe(float64(d.Microseconds()) / 1000)
}

// ObserveCoverage stores the latest coverage figures for a project.
func (m *Metrics) ObserveCoverage(projectID string, focus, task int) {
	if m == nil {
		return
	}
	m.FocusCoverage.WithLabelValues(projectID).Set(float64(focus))
	m.TaskCoverage.WithLabelValues(projectID).Set(float64(task))
}

// ObserveCandidates stores the latest autoplan candidate count for a project.
func (m *Metrics) ObserveCandidates(projectID string, n int) {
	if m == nil {
		return
	}
	m.AutoplanCandidates.WithLabelValues(projectID).Set(float64(n))
}

// CountWrite increments the write counter.
func (m *Metrics) CountWrite(kind, action string) {
	if m == nil {
		return
	}
	m.RecordWrites.WithLabelValues(kind, action).Inc()
}

// CountImport increments the import counter.
func (m *Metrics) CountImport(origin string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Imports.WithLabelValues(origin, result).Inc()
}

// ClientConnected adjusts the SSE client gauge by delta.
func (m *Metrics) ClientConnected(delta int) {
	if m == nil {
		return
	}
	m.SSEClients.Add(float64(delta))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
