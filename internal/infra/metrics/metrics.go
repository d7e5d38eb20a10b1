package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests and multiple fx apps never collide on
// the global default registerer. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	LockOpsTotal    *prometheus.CounterVec   // op=acquire|heartbeat|release|takeover_*, result=ok|conflict|not_holder|error...
	LockOpLatencyMS *prometheus.HistogramVec // op
	TakeoversTotal  *prometheus.CounterVec   // outcome=accepted|declined|expired|cancelled
	ExpiredTotal    prometheus.Counter

	PackSendTotal     *prometheus.CounterVec // outcome=ok|replay|<error code>
	PackSendLatencyMS prometheus.Histogram
	MirrorTotal       *prometheus.CounterVec // result=ok|declined|error|disabled

	HTTPRequestsTotal *prometheus.CounterVec // method, route, status
	HTTPLatencyMS     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LockOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packsend_lock_ops_total",
				Help: "Lock operations by op and result",
			},
			[]string{"op", "result"},
		),
		LockOpLatencyMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "packsend_lock_op_latency_ms",
				Help:    "Latency of lock operations (ms)",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1ms .. ~2048ms
			},
			[]string{"op"},
		),
		TakeoversTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packsend_takeovers_total",
				Help: "Resolved takeover requests by outcome",
			},
			[]string{"outcome"},
		),
		ExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "packsend_lease_expired_total",
			Help: "Expired leases purged by the sweeper",
		}),
		PackSendTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packsend_submissions_total",
				Help: "Pack/send submissions by outcome",
			},
			[]string{"outcome"},
		),
		PackSendLatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "packsend_submission_latency_ms",
			Help:    "End to end pack/send latency (ms)",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		}),
		MirrorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packsend_mirror_total",
				Help: "Downstream mirror calls by result",
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packsend_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPLatencyMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "packsend_http_latency_ms",
				Help:    "HTTP request latency (ms)",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.LockOpsTotal,
		m.LockOpLatencyMS,
		m.TakeoversTotal,
		m.ExpiredTotal,
		m.PackSendTotal,
		m.PackSendLatencyMS,
		m.MirrorTotal,
		m.HTTPRequestsTotal,
		m.HTTPLatencyMS,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLockOp(op, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LockOpsTotal.WithLabelValues(op, result).Inc()
	m.LockOpLatencyMS.WithLabelValues(op).Observe(ms(elapsed))
}

func (m *Metrics) ObserveTakeover(outcome string) {
	if m == nil {
		return
	}
	m.TakeoversTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredTotal.Add(float64(n))
}

func (m *Metrics) ObservePackSend(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PackSendTotal.WithLabelValues(outcome).Inc()
	m.PackSendLatencyMS.Observe(ms(elapsed))
}

func (m *Metrics) ObserveMirror(result string) {
	if m == nil {
		return
	}
	m.MirrorTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatencyMS.WithLabelValues(method, route).Observe(ms(elapsed))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
