package printclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal counts individual HTTP attempts by result
	// (accepted, or the error kind)
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoprint_submission_attempts_total",
			Help: "Print request attempts by result",
		},
		[]string{"result"},
	)

	// SubmissionsTotal counts finished submissions by outcome
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoprint_submissions_total",
			Help: "Print submissions by final outcome",
		},
		[]string{"outcome"},
	)

	// SubmissionDuration tracks the wall time of a whole submission,
	// retries included
	SubmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autoprint_submission_duration_seconds",
			Help:    "Print submission duration in seconds, retries included",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		},
	)
)

func resultLabel(err *Error) string {
	if err == nil {
		return "accepted"
	}
	return err.Kind.String()
}
