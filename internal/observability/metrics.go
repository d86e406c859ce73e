package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kinesis"

var (
	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "query_duration_seconds",
		Help:      "Time spent in database calls, labeled by operation.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"op"})

	slowQueries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "slow_queries_total",
		Help:      "Number of database calls slower than the configured threshold.",
	})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency, labeled by method, route pattern and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	domainEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "domain",
		Name:      "events_total",
		Help:      "Plan, assignment and account events, labeled by event name.",
	}, []string{"event"})

	provisioningFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "provisioning_failures_total",
		Help:      "Client accounts whose external identity could not be provisioned.",
	})

	outboxDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "entries_delivered_total",
		Help:      "Outbox entries executed successfully, labeled by action type.",
	}, []string{"action"})

	outboxFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "entries_failed_total",
		Help:      "Outbox attempts that returned an error, labeled by action type.",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(
		queryDuration,
		slowQueries,
		httpDuration,
		domainEvents,
		provisioningFailures,
		outboxDelivered,
		outboxFailed,
	)
}

// ObserveQuery records the duration of one database call.
func ObserveQuery(op string, d time.Duration, slow bool) {
	queryDuration.WithLabelValues(op).Observe(d.Seconds())
	if slow {
		slowQueries.Inc()
	}
}

// ObserveHTTP records one served request. route is the mux pattern, not the
// raw path, so label cardinality stays bounded.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordEvent counts a domain event such as "plan_created".
func RecordEvent(event string) {
	domainEvents.WithLabelValues(event).Inc()
}

// RecordProvisioningFailure counts a swallowed identity provisioning error.
func RecordProvisioningFailure() {
	provisioningFailures.Inc()
}

// RecordOutboxDelivered counts a successful outbox execution.
func RecordOutboxDelivered(action string) {
	outboxDelivered.WithLabelValues(action).Inc()
}

// RecordOutboxFailed counts a failed outbox attempt.
func RecordOutboxFailed(action string) {
	outboxFailed.WithLabelValues(action).Inc()
}
