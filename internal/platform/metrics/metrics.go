package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	SnapshotSaves     *prometheus.CounterVec
	SnapshotLoads     *prometheus.CounterVec
	SaveDuration      prometheus.Histogram
	ComponentSize     *prometheus.GaugeVec
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hospitalcore_operations_total",
			Help: "Total number of state operations by result of the save that followed",
		}, []string{"operation", "result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hospitalcore_operation_duration_seconds",
			Help:    "Duration of state operations including the snapshot save",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		SnapshotSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hospitalcore_snapshot_saves_total",
			Help: "Total number of snapshot saves",
		}, []string{"result"}),
		SnapshotLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hospitalcore_snapshot_loads_total",
			Help: "Total number of snapshot loads",
		}, []string{"result"}),
		SaveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hospitalcore_snapshot_save_duration_seconds",
			Help:    "Duration of snapshot saves",
			Buckets: prometheus.DefBuckets,
		}),
		ComponentSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hospitalcore_component_size",
			Help: "Current number of elements held by each component",
		}, []string{"component"}),
	}
}

// Observe records one state operation.
func (m *Metrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	m.Operations.WithLabelValues(operation, result(success)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveSnapshot records one snapshot save or load.
func (m *Metrics) ObserveSnapshot(_ context.Context, kind string, success bool, duration time.Duration) {
	switch kind {
	case "save":
		m.SnapshotSaves.WithLabelValues(result(success)).Inc()
		m.SaveDuration.Observe(duration.Seconds())
	case "load":
		m.SnapshotLoads.WithLabelValues(result(success)).Inc()
	}
}

// SetComponentSize updates the size gauge for component.
func (m *Metrics) SetComponentSize(component string, size int) {
	m.ComponentSize.WithLabelValues(component).Set(float64(size))
}

func result(success bool) string {
	if success {
		return resultSuccess
	}
	return resultError
}
