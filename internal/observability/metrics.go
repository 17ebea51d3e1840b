// Package observability provides Prometheus metrics for the surveillance
// pipeline.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline metric collectors. A nil *Metrics is safe to
// use, every record method checks the receiver so callers do not need to.
type Metrics struct {
	registry *prometheus.Registry

	FramesProcessed   *prometheus.CounterVec
	Detections        *prometheus.CounterVec
	AlertsPublished   prometheus.Counter
	ActiveWorkers     prometheus.Gauge
	StreamClients     prometheus.Gauge
	InferenceDuration prometheus.Histogram
}

// NewMetrics creates a registry and registers all pipeline collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		FramesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mallwatch_frames_processed_total",
			Help: "Number of camera frames run through the detector.",
		}, []string{"camera_id"}),
		Detections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mallwatch_detections_total",
			Help: "Number of flushed detections by label and threat level.",
		}, []string{"label", "threat_level"}),
		AlertsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "mallwatch_alerts_published_total",
			Help: "Number of alerts pushed to the dashboard feed.",
		}),
		ActiveWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mallwatch_camera_workers_active",
			Help: "Number of running camera capture workers.",
		}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mallwatch_stream_clients",
			Help: "Number of connected event stream clients.",
		}),
		InferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mallwatch_inference_duration_seconds",
			Help:    "Latency of a single model inference.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
}

// Handler returns an HTTP handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFrame counts a processed frame for a camera.
func (m *Metrics) RecordFrame(cameraID string) {
	if m == nil {
		return
	}
	m.FramesProcessed.WithLabelValues(cameraID).Inc()
}

// RecordDetection counts a flushed detection.
func (m *Metrics) RecordDetection(label, threatLevel string) {
	if m == nil {
		return
	}
	m.Detections.WithLabelValues(label, threatLevel).Inc()
}

// RecordAlert counts a published alert.
func (m *Metrics) RecordAlert() {
	if m == nil {
		return
	}
	m.AlertsPublished.Inc()
}

// SetActiveWorkers records the current worker count.
func (m *Metrics) SetActiveWorkers(n int) {
	if m == nil {
		return
	}
	m.ActiveWorkers.Set(float64(n))
}

// AddStreamClient adjusts the connected stream client gauge.
func (m *Metrics) AddStreamClient(delta int) {
	if m == nil {
		return
	}
	m.StreamClients.Add(float64(delta))
}

// ObserveInference records one inference latency sample in seconds.
func (m *Metrics) ObserveInference(seconds float64) {
	if m == nil {
		return
	}
	m.InferenceDuration.Observe(seconds)
}
