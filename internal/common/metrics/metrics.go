package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Business Metrics
// ============================================================

var (
	SceneEdits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layout_scene_edits_total",
			Help: "Total scene mutations across editing sessions",
		},
	)

	SessionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layout_sessions_opened_total",
			Help: "Total editing sessions opened",
		},
	)

	LayoutsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_documents_saved_total",
			Help: "Total layout documents saved",
		},
		[]string{"owner_kind"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_messages_sent_total",
			Help: "Total messages posted to threads",
		},
		[]string{"with_layout"}, // "yes" / "no"
	)
)
