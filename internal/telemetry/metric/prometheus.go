// Package metric provides Prometheus metrics for LexMesh.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Transaction log metrics, driven by the startup integrity scan.
	TlogFiles       prometheus.Gauge
	TlogScanRecords prometheus.Counter
	TlogScanBytes   prometheus.Counter

	// Encryption status metrics
	StatusRequests *prometheus.CounterVec
	StatusDuration prometheus.Histogram
	KeyActivations prometheus.Counter

	// Cluster metrics
	ClusterNodes prometheus.Gauge
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		TlogFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lexmesh_tlog_files",
			Help: "Transaction log files found at the last startup scan.",
		}),
		TlogScanRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lexmesh_tlog_scan_records_total",
			Help: "Records verified during startup log scans.",
		}),
		TlogScanBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lexmesh_tlog_scan_bytes_total",
			Help: "Logical bytes read during startup log scans.",
		}),
		StatusRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexmesh_encryption_status_requests_total",
			Help: "Encryption status requests by mode and outcome.",
		}, []string{"distrib", "status"}),
		StatusDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lexmesh_encryption_status_duration_seconds",
			Help:    "Latency of encryption status requests.",
			Buckets: prometheus.DefBuckets,
		}),
		KeyActivations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lexmesh_key_activations_total",
			Help: "Total encryption key activations.",
		}),
		ClusterNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lexmesh_cluster_nodes",
			Help: "Known cluster members.",
		}),
	}

	reg.MustRegister(
		r.TlogFiles,
		r.TlogScanRecords,
		r.TlogScanBytes,
		r.StatusRequests,
		r.StatusDuration,
		r.KeyActivations,
		r.ClusterNodes,
	)
	return r
}

// MustRegister adds external collectors, such as the keystore, to the
// registry.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.reg.MustRegister(cs...)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
