// Package metrics defines and registers all custom Prometheus metrics for the
// feedback API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feedback"

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// FeedbackCreatedTotal counts newly created feedback records.
// Label:
//   - sentiment: "positive", "neutral" or "negative"
var FeedbackCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_created_total",
		Help:      "Total number of feedback records created, by sentiment.",
	},
	[]string{"sentiment"},
)

// FeedbackAcknowledgedTotal counts Pending -> Acknowledged transitions.
// Label:
//   - result: "transitioned" or "noop" (already acknowledged)
var FeedbackAcknowledgedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "acknowledgements_total",
		Help:      "Total number of acknowledge calls, labelled by result (transitioned/noop).",
	},
	[]string{"result"},
)

// OperationErrorsTotal counts failed core operations.
// Labels:
//   - operation: e.g. "create", "update", "acknowledge", "dashboard_stats"
//   - kind: error taxonomy class (e.g. "forbidden", "not_found", "unavailable")
var OperationErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_errors_total",
		Help:      "Total number of failed feedback operations, by operation and error kind.",
	},
	[]string{"operation", "kind"},
)

// ── Aggregation metrics ───────────────────────────────────────────────────────

// DegradedAggregationsTotal counts read-side aggregations that recovered from
// a transient failure by contributing zero counts.
// Label:
//   - aggregation: "dashboard_stats" or "team_overview_member"
var DegradedAggregationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "degraded_aggregations_total",
		Help:      "Total number of aggregations that fell back to zero counts.",
	},
	[]string{"aggregation"},
)

// TeamOverviewDuration measures the fan-out over a manager's team.
var TeamOverviewDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "team_overview_duration_seconds",
		Help:      "Duration of team overview derivation across all direct reports.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
)

// SerializerQueueDepth tracks the number of mutations waiting in each
// serializer shard.
// Label:
//   - shard: numeric shard index (e.g. "0", "1", …)
var SerializerQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "serializer_queue_depth",
		Help:      "Current number of record mutations pending in each serializer shard.",
	},
	[]string{"shard"},
)
