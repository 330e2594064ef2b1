// Package metrics provides Prometheus instrumentation for the comment
// services. It exposes counters for edit outcomes and status transitions,
// a histogram for edit latency, and gauges for cached view sizes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EditsTotal counts edit and publish requests by outcome. The result
	// label is "ok" or the lower-cased error code.
	EditsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_edits_total",
		Help: "Total number of comment edits processed",
	}, []string{"op", "result"}) // op = "publish", "edit", "status"

	// StatusTransitions counts moderation status changes caused by writes.
	StatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_status_transitions_total",
		Help: "Moderation status transitions",
	}, []string{"from", "to"})

	// EditConflicts counts optimistic version conflicts, including ones that
	// a retry later resolved.
	EditConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "comments_edit_conflicts_total",
		Help: "Version conflicts observed while saving comments",
	})

	// EditDuration records end-to-end editor latency in seconds.
	EditDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "comments_edit_duration_seconds",
		Help:    "Comment write latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// ViewSize tracks the length of the last cached view written, labeled
	// by view name: "featured" or "premod".
	ViewSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "comments_view_size",
		Help: "Number of comments in the last updated cached view",
	}, []string{"view"})
)

func init() {
	prometheus.MustRegister(
		EditsTotal,
		StatusTransitions,
		EditConflicts,
		EditDuration,
		ViewSize,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
