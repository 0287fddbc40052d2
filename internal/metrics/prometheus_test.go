package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRun(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRun(true, "")
	m.RecordRun(false, "contract")
	m.RecordRun(false, "contract")

	if got := testutil.ToFloat64(m.PipelineRuns.WithLabelValues("success")); got != 1 {
		t.Errorf("Expected 1 successful run, got %v", got)
	}
	if got := testutil.ToFloat64(m.PipelineRuns.WithLabelValues("failure")); got != 2 {
		t.Errorf("Expected 2 failed runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.PipelineFailures.WithLabelValues("contract")); got != 2 {
		t.Errorf("Expected 2 contract failures, got %v", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordRun(true, "")
	m.ObserveStage("analysis", 1)
	m.RecordArtifact("image", 10)
	m.RecordHTTPRequest("GET", "/health", "200", 0.1)
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances must not collide when registered on separate registries
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}
