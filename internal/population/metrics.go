package population

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	coveringTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcs_covering_classifiers_total",
		Help: "Classifiers created by covering",
	})

	deletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcs_deletions_total",
		Help: "Micro-classifiers removed by the deletion roulette",
	})

	// deletionAnomalies counts roulette walks that selected nothing despite a
	// population above capacity.
	deletionAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcs_deletion_anomalies_total",
		Help: "Deletion roulette walks that selected no classifier",
	})

	gaRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcs_ga_runs_total",
		Help: "Triggered niche GA cycles",
	})

	subsumptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xcs_subsumptions_total",
		Help: "Classifiers folded into a more general one, by kind",
	}, []string{"kind"})

	matchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xcs_match_duration_seconds",
		Help:    "Match set construction time excluding covering",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
	})
)
