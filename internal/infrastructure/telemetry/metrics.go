package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pharmaerp/internal/domain/sales"
)

// Metrics owns a private registry so tests and multiple binaries never collide
// on the global one.
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	salesPosted  *prometheus.CounterVec
	soldItems    prometheus.Counter
}

// NewMetrics registers the HTTP, sales and runtime collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		namespace: namespace,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		salesPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "invoices_posted_total",
			Help:      "Sales invoices committed as POSTED, by location.",
		}, []string{"location_id"}),
		soldItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "batches_sold_total",
			Help:      "Distinct product batches drawn down by posted invoices.",
		}),
	}

	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.salesPosted,
		m.soldItems,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// PoolStats is a snapshot of database pool counters.
type PoolStats struct {
	TotalConns      int32
	AcquiredConns   int32
	IdleConns       int32
	MaxConns        int32
	AcquireCount    int64
	AcquireDuration time.Duration
}

// PoolStatsSource reports pool counters on demand.
type PoolStatsSource interface {
	Stats() PoolStats
}

// ObservePool exports pool counters, read from src at scrape time.
func (m *Metrics) ObservePool(src PoolStatsSource) {
	gauge := func(name, help string, read func(PoolStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return read(src.Stats()) })
	}
	counter := func(name, help string, read func(PoolStats) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return read(src.Stats()) })
	}

	m.registry.MustRegister(
		gauge("total_conns", "Open connections.", func(s PoolStats) float64 { return float64(s.TotalConns) }),
		gauge("acquired_conns", "Connections checked out.", func(s PoolStats) float64 { return float64(s.AcquiredConns) }),
		gauge("idle_conns", "Idle connections.", func(s PoolStats) float64 { return float64(s.IdleConns) }),
		gauge("max_conns", "Configured pool size.", func(s PoolStats) float64 { return float64(s.MaxConns) }),
		counter("acquires_total", "Successful connection acquires.", func(s PoolStats) float64 { return float64(s.AcquireCount) }),
		counter("acquire_duration_seconds_total", "Time spent waiting for connections.",
			func(s PoolStats) float64 { return s.AcquireDuration.Seconds() }),
	)
}

// NotifySale implements sales.SaleObserver.
func (m *Metrics) NotifySale(_ context.Context, sale sales.PostedSale) {
	m.salesPosted.WithLabelValues(sale.LocationID.String()).Inc()
	m.soldItems.Add(float64(len(sale.Items)))
}

var _ sales.SaleObserver = (*Metrics)(nil)
