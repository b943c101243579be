// Package metric provides Prometheus metrics for LexMesh.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//
// Metrics include:
//
//   - Status request counters and latency histograms
//   - Transaction log write statistics
//   - Cluster membership gauges
//
// Metrics are exposed at /metrics in Prometheus format.
//
// @req RQ-0403
// @design DS-0402
package metric
