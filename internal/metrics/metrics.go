package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts completed evaluation cycles by terminal decision.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "volsignal_cycles_total",
		Help: "Completed evaluation cycles by decision.",
	}, []string{"decision"})

	// CycleErrors counts cycles aborted before a signal was produced.
	CycleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "volsignal_cycle_errors_total",
		Help: "Evaluation cycles aborted by stage.",
	}, []string{"stage"})

	// WebhookDispatches counts webhook posts by result.
	WebhookDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "volsignal_webhook_dispatches_total",
		Help: "Execution webhook dispatches by result.",
	}, []string{"result"})

	// AssessorFallbacks counts cycles that used the conservative default
	// news-risk score.
	AssessorFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "volsignal_assessor_fallbacks_total",
		Help: "Cycles scored with the conservative news-risk default.",
	})

	// FeedFailures counts RSS feed fetch failures by feed name.
	FeedFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "volsignal_feed_failures_total",
		Help: "News feed fetch failures by feed.",
	}, []string{"feed"})

	// CompositeScore tracks the latest composite score.
	CompositeScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "volsignal_composite_score",
		Help: "Composite score of the most recent cycle.",
	})
)
