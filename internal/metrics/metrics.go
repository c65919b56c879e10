// Package metrics exposes pipeline counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stageOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sensoria",
		Name:      "pipeline_stage_outcomes_total",
		Help:      "Pipeline stage completions by outcome.",
	},
	[]string{"stage", "outcome"},
)

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
	OutcomeSkipped  = "skipped"
)

func ObserveStage(stage, outcome string) {
	stageOutcomes.WithLabelValues(stage, outcome).Inc()
}
