package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/atlekbai/filter_engine/internal/query"
)

var (
	compiledJoins = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "filter_engine",
		Subsystem: "compile",
		Name:      "joins",
		Help:      "Joins per compiled filter.",
		Buckets:   []float64{0, 1, 2, 4, 8, 16},
	})

	compiledSubSelects = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "filter_engine",
		Subsystem: "compile",
		Name:      "sub_selects",
		Help:      "Sub-selects per compiled filter.",
		Buckets:   []float64{0, 1, 2, 4, 8, 16},
	})

	compileFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filter_engine",
		Subsystem: "compile",
		Name:      "failures_total",
		Help:      "Filters that failed to decode or compile, by result code.",
	}, []string{"code"})
)

func observeTree(tree query.Tree) {
	compiledJoins.Observe(float64(query.CountJoins(tree)))
	compiledSubSelects.Observe(float64(query.CountSubSelects(tree)))
}
