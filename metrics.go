package vmix

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("vmix")

var (
	// frameUpdateDuration tracks Session.Update latency.
	frameUpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vmix_frame_update_duration_seconds",
		Help:    "Session update and compose duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~400ms
	})

	// sessionSources is the number of sources in the active session.
	sessionSources = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vmix_session_sources",
		Help: "Number of sources in the last updated session",
	})

	// failedSources counts producer failures by source kind.
	failedSources = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmix_failed_sources_total",
		Help: "Sources removed after a producer failure, by kind",
	}, []string{"kind"})

	// historyActions counts store, undo, redo, step and snapshot actions.
	historyActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmix_history_actions_total",
		Help: "History and snapshot actions by operation",
	}, []string{"operation"})

	// jobsTotal counts background jobs by kind and outcome.
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmix_jobs_total",
		Help: "Background save/load/import jobs by kind and status",
	}, []string{"kind", "status"})

	// jobDuration tracks background job latency.
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vmix_job_duration_seconds",
		Help:    "Background job duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
	}, []string{"kind"})
)
