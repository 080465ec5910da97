package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics is registered on its own registry so that tests can build several
// routers in one process.
type metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.HistogramVec
	datasets prometheus.Gauge
	records  prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rxsavings_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rxsavings_http_request_duration_seconds",
			Help:    "Time to answer an HTTP request",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"route"}),
		rows: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rxsavings_recipe_rows",
			Help:    "Rows returned per recipe call",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"recipe"}),
		datasets: f.NewGauge(prometheus.GaugeOpts{
			Name: "rxsavings_snapshot_datasets",
			Help: "Datasets in the loaded snapshot",
		}),
		records: f.NewGauge(prometheus.GaugeOpts{
			Name: "rxsavings_snapshot_records",
			Help: "Claim records in the loaded snapshot",
		}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
