package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric namespaces for the two processes that record request metrics.
const (
	MetricsNamespaceClient = "smartsql_client"
	MetricsNamespaceMock   = "smartsql_mock"
)

// MetricsSnapshot is a point-in-time summary of recorded metrics.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	FailedRequests           uint64    `json:"failed_requests"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Submissions              uint64    `json:"submissions"`
	CorrectSubmissions       uint64    `json:"correct_submissions"`
	ChatReplies              uint64    `json:"chat_replies"`
	ChatFailures             uint64    `json:"chat_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	chatReplies     *prometheus.CounterVec

	requestCount         uint64
	requestFailures      uint64
	requestDurationTotal uint64
	submissionCount      uint64
	correctCount         uint64
	chatCount            uint64
	chatFailureCount     uint64
}

// NewMetricsService registers core Prometheus collectors under namespace.
func NewMetricsService(namespace string) *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exercise_submissions_total",
		Help:      "Graded exercise submissions by verdict",
	}, []string{"verdict"})

	chatReplies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_replies_total",
		Help:      "Assistant replies by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "goroutines_total",
		Help:      "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissions, chatReplies, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissions:     submissions,
		chatReplies:     chatReplies,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for gathering in tests and tools.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics. A zero status means the request
// never produced a response.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
	if status == 0 || status >= http.StatusBadRequest {
		atomic.AddUint64(&m.requestFailures, 1)
	}
}

// RecordSubmission counts a graded submission.
func (m *MetricsService) RecordSubmission(correct bool) {
	if m == nil {
		return
	}
	verdict := "incorrect"
	if correct {
		verdict = "correct"
		atomic.AddUint64(&m.correctCount, 1)
	}
	m.submissions.WithLabelValues(verdict).Inc()
	atomic.AddUint64(&m.submissionCount, 1)
}

// RecordChatReply counts an assistant round trip.
func (m *MetricsService) RecordChatReply(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
		atomic.AddUint64(&m.chatFailureCount, 1)
	}
	m.chatReplies.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.chatCount, 1)
}

// Snapshot returns aggregated metrics.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		FailedRequests:           atomic.LoadUint64(&m.requestFailures),
		AverageRequestDurationMs: avgRequestMs,
		Submissions:              atomic.LoadUint64(&m.submissionCount),
		CorrectSubmissions:       atomic.LoadUint64(&m.correctCount),
		ChatReplies:              atomic.LoadUint64(&m.chatCount),
		ChatFailures:             atomic.LoadUint64(&m.chatFailureCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
