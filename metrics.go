package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pageFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_page_fetches_total",
		Help: "Pages fetched from the profile store",
	})

	fetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_page_fetch_failures_total",
		Help: "Replenishment fetches that errored and were dropped",
	})

	decisionsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "decisions_persisted_total",
		Help: "Decision rows written to the log",
	})

	decisionWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "decision_write_failures_total",
		Help: "Decision writes that failed after the optimistic removal",
	})

	classifierFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "score_classifier_fallbacks_total",
		Help: "Scores served by the local heuristic instead of the classifier",
	})

	liveEventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_events_published_total",
		Help: "Change events published on the broadcast relay",
	})

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_live_clients",
		Help: "Currently connected live WebSocket clients",
	})
)
