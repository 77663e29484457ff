package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_engine_events_total",
	Help: "Number of events processed by the engine",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_engine_event_errors_total",
	Help: "Number of events dropped due to processing errors",
}, []string{"type"})

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "warden_engine_event_duration_seconds",
	Help:    "Time to process an event through rules and enforcement",
	Buckets: prometheus.ExponentialBucketsRange(0.0001, 2, 12),
}, []string{"type"})

var messagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_engine_messages_deleted_total",
	Help: "Number of flagged messages deleted",
})

var warningsRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_engine_warnings_total",
	Help: "Number of spam warnings recorded",
})

var timeoutsApplied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_engine_timeouts_total",
	Help: "Number of timeouts applied at the warning threshold",
})

var xpAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_engine_xp_awarded_total",
	Help: "Total XP granted for messages",
})

var levelUps = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_engine_level_ups_total",
	Help: "Number of level-up announcements",
})
