/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetchqueue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roadnet/roadkit/internal/libinfo"
)

// Values of the "result" label.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// MetricsCollector represents a collector of metrics to analyze how the queue is loaded.
type MetricsCollector interface {
	// SetPending sets the number of submitted requests that wait for a free slot.
	SetPending(n int)

	// SetInFlight sets the number of requests being performed now.
	SetInFlight(n int)

	// ObserveWaitDuration observes how long a request stayed pending.
	ObserveWaitDuration(d time.Duration)

	// ObserveCompletion observes how long a request was in flight and counts it by result.
	ObserveCompletion(result string, d time.Duration)

	// IncDrains increments the number of times the queue became idle.
	IncDrains()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	// The roadkit_version label is always added.
	ConstLabels prometheus.Labels

	// DurationBuckets is a list of buckets for the wait and run duration histograms.
	// prometheus.DefBuckets is used if empty.
	DurationBuckets []float64
}

// PrometheusMetrics represents Prometheus metrics for the queue.
type PrometheusMetrics struct {
	PendingItems   prometheus.Gauge
	InFlightItems  prometheus.Gauge
	WaitDuration   prometheus.Histogram
	RunDuration    *prometheus.HistogramVec
	CompletedTotal *prometheus.CounterVec
	DrainsTotal    prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	return &PrometheusMetrics{
		PendingItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "fetch_queue_pending_items",
			Help:        "Number of submitted requests waiting for a free slot.",
			ConstLabels: constLabels,
		}),
		InFlightItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "fetch_queue_in_flight_items",
			Help:        "Number of requests being performed.",
			ConstLabels: constLabels,
		}),
		WaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "fetch_queue_wait_duration_seconds",
			Help:        "Time a request spent pending before dispatch.",
			Buckets:     buckets,
			ConstLabels: constLabels,
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "fetch_queue_run_duration_seconds",
			Help:        "Time a request spent in flight.",
			Buckets:     buckets,
			ConstLabels: constLabels,
		}, []string{"result"}),
		CompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "fetch_queue_completed_total",
			Help:        "Number of completed requests.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		DrainsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "fetch_queue_drains_total",
			Help:        "Number of times the queue became idle.",
			ConstLabels: constLabels,
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.PendingItems,
		pm.InFlightItems,
		pm.WaitDuration,
		pm.RunDuration,
		pm.CompletedTotal,
		pm.DrainsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.PendingItems)
	prometheus.Unregister(pm.InFlightItems)
	prometheus.Unregister(pm.WaitDuration)
	prometheus.Unregister(pm.RunDuration)
	prometheus.Unregister(pm.CompletedTotal)
	prometheus.Unregister(pm.DrainsTotal)
}

// SetPending sets the number of pending requests.
func (pm *PrometheusMetrics) SetPending(n int) {
	pm.PendingItems.Set(float64(n))
}

// SetInFlight sets the number of in-flight requests.
func (pm *PrometheusMetrics) SetInFlight(n int) {
	pm.InFlightItems.Set(float64(n))
}

// ObserveWaitDuration observes how long a request stayed pending.
func (pm *PrometheusMetrics) ObserveWaitDuration(d time.Duration) {
	pm.WaitDuration.Observe(d.Seconds())
}

// ObserveCompletion observes request run duration and counts it by result.
func (pm *PrometheusMetrics) ObserveCompletion(result string, d time.Duration) {
	pm.RunDuration.WithLabelValues(result).Observe(d.Seconds())
	pm.CompletedTotal.WithLabelValues(result).Inc()
}

// IncDrains increments the number of drains.
func (pm *PrometheusMetrics) IncDrains() {
	pm.DrainsTotal.Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetPending(int)                          {}
func (disabledMetrics) SetInFlight(int)                         {}
func (disabledMetrics) ObserveWaitDuration(time.Duration)       {}
func (disabledMetrics) ObserveCompletion(string, time.Duration) {}
func (disabledMetrics) IncDrains()                              {}

var disabledMetricsCollector = disabledMetrics{}
