package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	throttle *prometheus.CounterVec
}

var (
	httpMetricsOnce sync.Once
	httpRegistry    *httpMetrics

	lendFormOnce     sync.Once
	lendFormRegistry *LendFormMetrics
)

// HTTP returns the lazily-initialised registry recording lendformd API traffic.
func HTTP() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpRegistry = &httpMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "corefi",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "corefi",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			throttle: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "corefi",
				Subsystem: "http",
				Name:      "throttles_total",
				Help:      "Requests rejected by the rate limiter.",
			}, []string{"route"}),
		}
		prometheus.MustRegister(httpRegistry.requests, httpRegistry.latency, httpRegistry.throttle)
	})
	return httpRegistry
}

// Observe records one served request.
func (m *httpMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.requests.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordThrottle counts a rate-limited request.
func (m *httpMetrics) RecordThrottle(route string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.throttle.WithLabelValues(route).Inc()
}

// LendFormMetrics wraps the collectors tracking approve-then-lend submissions.
type LendFormMetrics struct {
	submissions  *prometheus.CounterVec
	stepErrors   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	inFlight     prometheus.Gauge
}

// LendForm exposes the metrics registry for the lend form.
func LendForm() *LendFormMetrics {
	lendFormOnce.Do(func() {
		lendFormRegistry = &LendFormMetrics{
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "corefi",
				Subsystem: "lendform",
				Name:      "submissions_total",
				Help:      "Lend submissions segmented by outcome.",
			}, []string{"outcome"}),
			stepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "corefi",
				Subsystem: "lendform",
				Name:      "step_errors_total",
				Help:      "Failed submission steps segmented by step name.",
			}, []string{"step"}),
			stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "corefi",
				Subsystem: "lendform",
				Name:      "step_duration_seconds",
				Help:      "Latency of approve, confirmation and lend steps.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 7, 10, 20, 30, 60, 120},
			}, []string{"step"}),
			inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "corefi",
				Subsystem: "lendform",
				Name:      "in_flight",
				Help:      "Set to 1 while a submission is between approve and lend completion.",
			}),
		}
		prometheus.MustRegister(
			lendFormRegistry.submissions,
			lendFormRegistry.stepErrors,
			lendFormRegistry.stepDuration,
			lendFormRegistry.inFlight,
		)
	})
	return lendFormRegistry
}

// RecordSubmission increments the outcome counter.
func (m *LendFormMetrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		outcome = "unknown"
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// RecordStepError increments the failure counter for the step.
func (m *LendFormMetrics) RecordStepError(step string) {
	if m == nil {
		return
	}
	m.stepErrors.WithLabelValues(step).Inc()
}

// ObserveStep records how long a step took, successful or not.
func (m *LendFormMetrics) ObserveStep(step string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// SetInFlight toggles the in-flight gauge.
func (m *LendFormMetrics) SetInFlight(active bool) {
	if m == nil {
		return
	}
	if active {
		m.inFlight.Set(1)
		return
	}
	m.inFlight.Set(0)
}
