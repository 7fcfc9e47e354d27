package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Vote outcomes reported by VotesApplied.
const (
	OutcomeCreated = "created"
	OutcomeChanged = "changed"
	OutcomeCleared = "cleared"
)

var (
	// VotesApplied counts applied votes by target kind and outcome.
	VotesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readit_votes_applied_total",
		Help: "Votes applied, by target kind and outcome",
	}, []string{"kind", "outcome"})

	// DatabaseQueryLatency records query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "readit_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts cache-aside lookups by key family and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readit_cache_lookups_total",
		Help: "Cache lookups by key family and result (hit, miss, error)",
	}, []string{"family", "result"})

	// WebSocketEventsTotal counts realtime events sent, by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readit_websocket_events_total",
		Help: "Realtime events delivered to websocket clients",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped for slow clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readit_websocket_backpressure_drops_total",
		Help: "Websocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics records query latency for one repository.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a recorder labelled with table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// TrackQuery starts timing operation; call the returned func when it is done.
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
	}
}

// RecordVote counts one applied vote.
func RecordVote(kind, outcome string) {
	VotesApplied.WithLabelValues(kind, outcome).Inc()
}
