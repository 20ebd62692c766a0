package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_questions_total",
			Help: "Total number of questions by final outcome (answered, or the stage that failed).",
		},
		[]string{"outcome"},
	)
	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_stage_duration_seconds",
			Help:    "Pipeline stage latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage", "outcome"},
	)
	selectedTables = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_selected_tables",
			Help:    "Number of tables placed in the prompt per question.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)
	selectionFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_selection_fallback_total",
			Help: "Total number of questions where no table matched and the leading tables were used.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		stageDurationSeconds,
		selectedTables,
		selectionFallbackTotal,
	)
}

func ObserveStage(stage, outcome string, elapsed time.Duration) {
	stageDurationSeconds.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}

func ObserveQuestion(outcome string) {
	questionsTotal.WithLabelValues(outcome).Inc()
}

func ObserveSelection(tables int, fallback bool) {
	if tables < 0 {
		tables = 0
	}
	selectedTables.Observe(float64(tables))
	if fallback {
		selectionFallbackTotal.Inc()
	}
}
