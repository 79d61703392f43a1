package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the bot core and
// the dashboard API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	reviewsRecorded    prometheus.Counter
	tosOutcomes        *prometheus.CounterVec
	sweepClosures      prometheus.Counter
	sweepFailures      prometheus.Counter
	suppressedMessages prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	reviewsRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviews_recorded_total",
		Help: "Reviews successfully persisted",
	})

	tosOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tos_outcomes_total",
		Help: "Terminal TOS gate outcomes by kind",
	}, []string{"outcome"})

	sweepClosures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_closures_total",
		Help: "Threads closed by the auto-close sweep",
	})

	sweepFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_item_failures_total",
		Help: "Per-item failures inside the auto-close sweep",
	})

	suppressedMessages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tos_suppressed_messages_total",
		Help: "Messages deleted while a thread awaited TOS resolution",
	})

	registry.MustRegister(requestDuration, requestTotal, reviewsRecorded,
		tosOutcomes, sweepClosures, sweepFailures, suppressedMessages)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		reviewsRecorded:    reviewsRecorded,
		tosOutcomes:        tosOutcomes,
		sweepClosures:      sweepClosures,
		sweepFailures:      sweepFailures,
		suppressedMessages: suppressedMessages,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return promhttp.Handler()
	}
	return s.handler
}

// ObserveHTTPRequest records one HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ReviewRecorded counts one persisted review.
func (s *MetricsService) ReviewRecorded() {
	if s == nil {
		return
	}
	s.reviewsRecorded.Inc()
}

// TosOutcome counts one terminal TOS transition: accepted, declined, or timeout.
func (s *MetricsService) TosOutcome(outcome string) {
	if s == nil {
		return
	}
	s.tosOutcomes.WithLabelValues(outcome).Inc()
}

// SweepClosed counts threads closed by the sweep.
func (s *MetricsService) SweepClosed(n int) {
	if s == nil || n <= 0 {
		return
	}
	s.sweepClosures.Add(float64(n))
}

// SweepItemFailed counts one skipped sweep item.
func (s *MetricsService) SweepItemFailed() {
	if s == nil {
		return
	}
	s.sweepFailures.Inc()
}

// MessageSuppressed counts one deleted pre-TOS message.
func (s *MetricsService) MessageSuppressed() {
	if s == nil {
		return
	}
	s.suppressedMessages.Inc()
}
