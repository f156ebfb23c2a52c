package tracking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// scanDuration tracks full-document literal scans
	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "livelits_scan_duration_seconds",
		Help:    "Literal scan duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	})

	// recomputeDuration tracks one coalesced recomputation across dirty documents
	recomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "livelits_recompute_duration_seconds",
		Help:    "Coalesced recomputation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	// storePushes counts remapping store writes by result
	storePushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livelits_store_push_total",
		Help: "Remapping store pushes by result",
	}, []string{"result"})

	// notifications counts listener notifications by kind
	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livelits_notifications_total",
		Help: "Listener notifications by kind",
	}, []string{"kind"})

	// trackedReferences is the number of references across registered documents
	trackedReferences = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livelits_tracked_references",
		Help: "Literal references currently tracked",
	})

	// discardedJobs counts recomputations dropped because tracking changed state
	discardedJobs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livelits_discarded_jobs_total",
		Help: "Queued jobs discarded after deactivation or unregistration",
	})
)
