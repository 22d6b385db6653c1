package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cvmatcher"

var (
	DocumentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_classified_total",
			Help:      "Documents run through the CV gate by result",
		},
		[]string{"result"},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Calls to the text generation model by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ScoreRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_repairs_total",
			Help:      "Match scores overwritten because they disagreed with the breakdown",
		},
	)

	Candidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidates processed by matching runs by outcome",
		},
		[]string{"outcome"},
	)

	RequirementCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requirement_cache_total",
			Help:      "Requirement cache lookups by result",
		},
		[]string{"result"},
	)

	MatchRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_run_duration_seconds",
			Help:      "Duration of a full matching run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

// Outcome labels shared by the counters.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeLenient  = "lenient"
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeSkipped  = "skipped"
)
