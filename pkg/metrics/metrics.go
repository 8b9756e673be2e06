package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RemoteRequestDuration *prometheus.HistogramVec
	RemoteRequestFailures *prometheus.CounterVec
	WorkflowOutcomes      *prometheus.CounterVec
	AgentSelections       *prometheus.CounterVec
	LoadScanPages         prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		RemoteRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_remote_request_duration_seconds",
			Help:    "Time taken for outbound helpdesk API calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		RemoteRequestFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_remote_request_failures_total",
			Help: "Total outbound helpdesk API failures by kind",
		}, []string{"endpoint", "kind"}),
		WorkflowOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assignment_workflow_outcomes_total",
			Help: "Terminal workflow outcomes by step tag",
		}, []string{"step"}),
		AgentSelections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assignment_agent_selections_total",
			Help: "Auto-assignment selections by result",
		}, []string{"result"}),
		LoadScanPages: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "assignment_load_scan_pages",
			Help:    "Pages fetched per load computation",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 200},
		}),
	}
}
