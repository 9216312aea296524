package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics covers the three long-running stages of the pipeline:
// batch classification, report synthesis, and export rendering.
type PipelineMetrics struct {
	registry *prometheus.Registry

	batchesTotal      *prometheus.CounterVec
	classifyDuration  *prometheus.HistogramVec
	synthesisDuration *prometheus.HistogramVec
	exportDuration    *prometheus.HistogramVec
	documentsStored   prometheus.Gauge
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	batchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medvault",
			Subsystem: "pipeline",
			Name:      "classification_batches_total",
			Help:      "Total classification batches by status.",
		},
		[]string{"service", "status"},
	)
	classifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medvault",
			Subsystem: "pipeline",
			Name:      "classification_duration_seconds",
			Help:      "Whole-ingestion classification duration by status.",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	synthesisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medvault",
			Subsystem: "pipeline",
			Name:      "synthesis_duration_seconds",
			Help:      "Report synthesis duration by status.",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	exportDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medvault",
			Subsystem: "pipeline",
			Name:      "export_duration_seconds",
			Help:      "Export render duration by encoding and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "encoding", "status"},
	)
	documentsStored := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "medvault",
			Subsystem: "pipeline",
			Name:      "documents_stored",
			Help:      "Number of documents currently persisted.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(batchesTotal, classifyDuration, synthesisDuration, exportDuration, documentsStored)

	return &PipelineMetrics{
		registry:          registry,
		batchesTotal:      batchesTotal,
		classifyDuration:  classifyDuration,
		synthesisDuration: synthesisDuration,
		exportDuration:    exportDuration,
		documentsStored:   documentsStored,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *PipelineMetrics) ObserveBatch(service string, err error) {
	m.batchesTotal.WithLabelValues(service, statusLabel(err)).Inc()
}

func (m *PipelineMetrics) ObserveClassification(service string, duration time.Duration, err error) {
	m.classifyDuration.WithLabelValues(service, statusLabel(err)).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveSynthesis(service string, duration time.Duration, err error) {
	m.synthesisDuration.WithLabelValues(service, statusLabel(err)).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveExport(service, encoding string, duration time.Duration, err error) {
	m.exportDuration.WithLabelValues(service, encoding, statusLabel(err)).Observe(duration.Seconds())
}

func (m *PipelineMetrics) SetDocumentsStored(count int) {
	m.documentsStored.Set(float64(count))
}
