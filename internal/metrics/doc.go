// Package metrics defines the Prometheus instruments for pipeline runs,
// stage latencies, stored artifact sizes and the HTTP API.
package metrics
