// Package metrics registers the Prometheus metrics of techsupport-web.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Turn outcomes.
const (
	TurnOK        = "ok"
	TurnFailed    = "failed"
	TurnDiscarded = "discarded"
)

var (
	ChatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techsupport_chat_turns_total",
		Help: "Completed chat turns by outcome",
	}, []string{"outcome"})

	RejectedSubmitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "techsupport_chat_rejected_submits_total",
		Help: "Submits ignored because the input was blank or a reply was pending",
	})

	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techsupport_backend_request_duration_seconds",
		Help:    "Latency of calls to the remote support backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	BackendFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techsupport_backend_failures_total",
		Help: "Failed calls to the remote support backend",
	}, []string{"operation"})

	VisitorSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "techsupport_visitor_sessions",
		Help: "Visitors currently held in memory",
	})
)
