package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry exposes the executor's observability surface: a counter of
// completed flow executions and a histogram of per-node execution
// latency, as required by spec.md §6.
type Registry struct {
	FlowExecutionsTotal    *prometheus.CounterVec
	NodeExecutionDuration  *prometheus.HistogramVec
	RetryAttemptsTotal     *prometheus.CounterVec
}

// NewRegistry creates and registers the executor's Prometheus metrics
// against the default registry.
func NewRegistry() *Registry {
	return &Registry{
		FlowExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flow_executions_total",
			Help: "Total number of flow executions, labeled by flow_id and final status.",
		}, []string{"flow_id", "status"}),

		NodeExecutionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "node_execution_duration_seconds",
			Help:    "Duration of a single node execution, labeled by node_id and hoop kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"node_id", "hoop"}),

		RetryAttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "node_retry_attempts_total",
			Help: "Total retry attempts made by action handlers, labeled by node_id and outcome.",
		}, []string{"node_id", "outcome"}),
	}
}

// ObserveFlowExecution increments the flow_executions_total counter.
func (r *Registry) ObserveFlowExecution(flowID, status string) {
	r.FlowExecutionsTotal.WithLabelValues(flowID, status).Inc()
}

// ObserveNodeExecution records a single node's execution duration in seconds.
func (r *Registry) ObserveNodeExecution(nodeID, hoop string, seconds float64) {
	r.NodeExecutionDuration.WithLabelValues(nodeID, hoop).Observe(seconds)
}

// ObserveRetry records a single retry attempt outcome ("retried" or "exhausted").
func (r *Registry) ObserveRetry(nodeID, outcome string) {
	r.RetryAttemptsTotal.WithLabelValues(nodeID, outcome).Inc()
}
