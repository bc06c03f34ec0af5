package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigfeed_events_total",
			Help: "Events processed by the pipeline, by outcome",
		},
		[]string{"outcome"}, // normalized | degraded | filtered
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigfeed_pipeline_runs_total",
			Help: "Pipeline runs, by result",
		},
		[]string{"result"}, // ok | error
	)

	// Enrichment metrics
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigfeed_geocode_lookups_total",
			Help: "Reverse-geocode lookups, by result",
		},
		[]string{"result"}, // hit | empty | timeout | error
	)

	// Feed metrics
	FeedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigfeed_feed_fetches_total",
			Help: "Upstream feed fetches, by result",
		},
		[]string{"result"}, // ok | error
	)
)
