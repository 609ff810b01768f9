package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// QueriesTotal counts dispatched queries by kind.
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alertdex",
			Name:      "queries_total",
			Help:      "Total number of dispatched queries by kind",
		},
		[]string{"kind"},
	)

	// FilterSubmissionsTotal counts filter submissions by outcome.
	FilterSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alertdex",
			Name:      "filter_submissions_total",
			Help:      "Total number of filter submissions by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(FilterSubmissionsTotal)
}
