package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters and timings, labelled by terminal outcome or stage.
var (
	DocumentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docfiler",
		Name:      "documents_processed_total",
		Help:      "Documents that reached a terminal pipeline state.",
	}, []string{"status"})

	DocumentsNeedingReview = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docfiler",
		Name:      "documents_needs_review_total",
		Help:      "Documents routed to the review holding area.",
	})

	PagesExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docfiler",
		Name:      "pages_extracted_total",
		Help:      "Pages run through an extraction engine.",
	})

	FoldersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docfiler",
		Name:      "folders_created_total",
		Help:      "Folders created by the resolver.",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docfiler",
		Name:      "stage_duration_seconds",
		Help:      "Wall time spent per pipeline stage.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"stage"})
)
