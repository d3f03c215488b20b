// Package metrics holds the prometheus collectors for feature extraction runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsTotal counts documents passed through each operation.
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldvec_documents_total",
			Help: "Total number of documents processed",
		},
		[]string{"op"},
	)

	// OpDuration measures how long each operation took over a whole batch.
	OpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldvec_op_duration_seconds",
			Help:    "Duration of fit and transform calls in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"op"},
	)

	// OpErrors counts failed operations.
	OpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldvec_op_errors_total",
			Help: "Total number of failed fit and transform calls",
		},
		[]string{"op"},
	)

	// Features tracks the width of the combined feature matrix.
	Features = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fieldvec_features",
		Help: "Number of features produced by the fitted rules",
	})

	// NonZeros tracks stored entries in the last produced matrix.
	NonZeros = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fieldvec_matrix_nonzeros",
		Help: "Number of non-zero entries in the last feature matrix",
	})
)

// Observe records one operation over n documents.
func Observe(op string, n int, took time.Duration, err error) {
	OpDuration.WithLabelValues(op).Observe(took.Seconds())
	if err != nil {
		OpErrors.WithLabelValues(op).Inc()
		return
	}
	DocumentsTotal.WithLabelValues(op).Add(float64(n))
}
