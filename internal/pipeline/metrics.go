package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotgate_records_total",
			Help: "Total number of committed records",
		},
		[]string{"status"}, // SUCCESS, FAILED
	)

	recordDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lotgate_record_duration_seconds",
			Help:    "Time spent processing one record",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300, 600},
		},
	)

	duplicatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lotgate_duplicates_total",
			Help: "Records skipped as already processed",
		},
	)

	timeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lotgate_timeouts_total",
			Help: "Records abandoned after their processing deadline",
		},
	)

	ocrConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lotgate_ocr_confidence",
			Help:    "Confidence of the selected extraction result",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"engine"},
	)

	recordsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lotgate_records_in_flight",
			Help: "Records currently being processed",
		},
	)
)
