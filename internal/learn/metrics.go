package learn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	iterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcs_learning_iterations_total",
		Help: "Explore iterations completed",
	})

	// trackedAccuracy is the rolling exploit accuracy of the most recent run.
	trackedAccuracy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xcs_tracked_accuracy",
		Help: "Rolling accuracy of exploit steps",
	})
)
