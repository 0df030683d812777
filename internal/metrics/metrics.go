package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics はアプリ専用のレジストリとコレクタ。
// nilのままでも各メソッドは何もしない。
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	pantryOps    *prometheus.CounterVec
	pantryItems  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pantry",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pantry",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method", "path"},
		),
		pantryOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pantry",
				Name:      "operations_total",
				Help:      "Pantry store operations by result.",
			},
			[]string{"op", "result"},
		),
		pantryItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pantry",
				Name:      "items",
				Help:      "Number of pantry documents seen on the last full fetch.",
			},
		),
	}

	m.Registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.pantryOps,
		m.pantryItems,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler は /metrics 用
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) RecordPantryOp(op, result string) {
	if m == nil {
		return
	}
	m.pantryOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) SetPantryItems(n int) {
	if m == nil {
		return
	}
	m.pantryItems.Set(float64(n))
}
