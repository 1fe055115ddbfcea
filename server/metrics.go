package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "feedback_gateway"

// Metrics is the set of Prometheus collectors for the HTTP surface.
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	requestsInProgress *prometheus.GaugeVec
	responseSizeBytes  *prometheus.HistogramVec
}

// newMetrics registers the HTTP collectors, the process collectors and a
// gauge reporting the number of live MCP sessions.
func newMetrics(reg *prometheus.Registry, activeSessions func() int) (m *Metrics, err error) {
	defer func() {
		// promauto panics on duplicate registration.
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	factory := promauto.With(reg)
	m = &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		requestsInProgress: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "requests_in_progress",
				Help:      "Number of HTTP requests currently being served",
			},
			[]string{"route"},
		),
		responseSizeBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"route"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "mcp_sessions_active",
			Help:      "Number of live MCP sessions",
		},
		func() float64 { return float64(activeSessions()) },
	)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m, nil
}

// Instrument records request counts, latency and response size under the route label.
func (m *Metrics) Instrument(route string) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			inProgress := m.requestsInProgress.WithLabelValues(route)
			inProgress.Inc()
			defer inProgress.Dec()

			start := time.Now()
			rec := recorderFor(w)
			next(rec, r)

			m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			m.responseSizeBytes.WithLabelValues(route).Observe(float64(rec.bytes))
		}
	}
}
