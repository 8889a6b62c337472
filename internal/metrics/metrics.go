package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the ad scheduling service.
type Metrics struct {
	registry             *prometheus.Registry
	breaksEnteredTotal   prometheus.Counter
	breaksCompletedTotal prometheus.Counter
	breaksSkippedTotal   prometheus.Counter
	resolveFailuresTotal prometheus.Counter
	trackingEventsTotal  prometheus.Counter
	trackingFailedTotal  prometheus.Counter
	activeSessions       prometheus.Gauge
}

// New creates and registers Prometheus metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	breaksEnteredTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cuepoint_breaks_entered_total",
		Help: "Total number of ad breaks entered",
	})
	breaksCompletedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cuepoint_breaks_completed_total",
		Help: "Total number of ad breaks exited normally",
	})
	breaksSkippedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cuepoint_breaks_skipped_total",
		Help: "Total number of ad breaks skipped by the user",
	})
	resolveFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cuepoint_resolve_failures_total",
		Help: "Total number of ad metadata resolutions that failed soft",
	})
	trackingEventsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cuepoint_tracking_events_total",
		Help: "Total number of tracking beacons dispatched",
	})
	trackingFailedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cuepoint_tracking_failures_total",
		Help: "Total number of tracking beacons dropped or failed",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cuepoint_active_sessions",
		Help: "Number of live playback sessions",
	})

	registry.MustRegister(
		breaksEnteredTotal,
		breaksCompletedTotal,
		breaksSkippedTotal,
		resolveFailuresTotal,
		trackingEventsTotal,
		trackingFailedTotal,
		activeSessions,
	)

	return &Metrics{
		registry:             registry,
		breaksEnteredTotal:   breaksEnteredTotal,
		breaksCompletedTotal: breaksCompletedTotal,
		breaksSkippedTotal:   breaksSkippedTotal,
		resolveFailuresTotal: resolveFailuresTotal,
		trackingEventsTotal:  trackingEventsTotal,
		trackingFailedTotal:  trackingFailedTotal,
		activeSessions:       activeSessions,
	}
}

// IncBreaksEntered increments the breaks entered counter.
func (m *Metrics) IncBreaksEntered() {
	m.breaksEnteredTotal.Inc()
}

// IncBreaksCompleted increments the breaks completed counter.
func (m *Metrics) IncBreaksCompleted() {
	m.breaksCompletedTotal.Inc()
}

// IncBreaksSkipped increments the breaks skipped counter.
func (m *Metrics) IncBreaksSkipped() {
	m.breaksSkippedTotal.Inc()
}

// IncResolveFailures increments the soft resolution failure counter.
func (m *Metrics) IncResolveFailures() {
	m.resolveFailuresTotal.Inc()
}

// IncTrackingEvents increments the dispatched beacon counter.
func (m *Metrics) IncTrackingEvents() {
	m.trackingEventsTotal.Inc()
}

// IncTrackingFailures increments the dropped/failed beacon counter.
func (m *Metrics) IncTrackingFailures() {
	m.trackingFailedTotal.Inc()
}

// SetActiveSessions sets the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves the metrics endpoint.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
