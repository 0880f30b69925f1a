package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "servicehub", Name: "booking_transitions_total", Help: "Booking status transitions applied"},
		[]string{"from", "to"},
	)
	TransitionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "servicehub", Name: "booking_transition_rejections_total", Help: "Booking transitions refused"},
		[]string{"reason"},
	)
	BookingResets = promauto.NewCounter(prometheus.CounterOpts{Namespace: "servicehub", Name: "booking_resets_total", Help: "Administrative booking resets"})

	ParticipantsAdded = promauto.NewCounter(prometheus.CounterOpts{Namespace: "servicehub", Name: "conversation_participants_added_total", Help: "Participants added by reconciliation"})
	DeletedFlagsCleared = promauto.NewCounter(prometheus.CounterOpts{Namespace: "servicehub", Name: "conversation_deleted_flags_cleared_total", Help: "Stale deleted flags cleared"})
	StatsRecomputed     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "servicehub", Name: "provider_stats_recomputed_total", Help: "Provider statistics recomputations written"})

	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "servicehub", Name: "batch_items_total", Help: "Batch items processed by outcome"},
		[]string{"kind", "outcome"},
	)
	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "servicehub",
			Name:      "batch_duration_seconds",
			Help:      "Batch run duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
