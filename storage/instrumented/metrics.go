package instrumented

import "github.com/prometheus/client_golang/prometheus"

var (
	operationsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jamii",
		Subsystem: "records",
		Name:      "operations_total",
		Help:      "Number of record store calls, labeled by table, operation and outcome.",
	}, []string{"table", "operation", "outcome"})

	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jamii",
		Subsystem: "records",
		Name:      "operation_duration_seconds",
		Help:      "Time spent in record store calls.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"table", "operation"})

	notifyFailedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jamii",
		Subsystem: "records",
		Name:      "notifications_failed_total",
		Help:      "Number of change notifications that could not be published.",
	}, []string{"table"})
)

func init() {
	prometheus.MustRegister(operationsCounter, operationDuration, notifyFailedCounter)
}
