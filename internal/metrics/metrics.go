// Package metrics holds the Prometheus collectors shared across mockview.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedbackGenerations counts generator outcomes by result kind
	// ("created", "updated", "existing", or a failure kind).
	FeedbackGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mockview",
		Name:      "feedback_generations_total",
		Help:      "Interview feedback generation attempts by result.",
	}, []string{"result"})

	ResumeAnalyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mockview",
		Name:      "resume_analyses_total",
		Help:      "Resume analysis attempts by result.",
	}, []string{"result"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mockview",
		Name:      "llm_request_duration_seconds",
		Help:      "Latency of language model completions.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"operation"})

	CallTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mockview",
		Name:      "call_transitions_total",
		Help:      "Call lifecycle transitions by target status.",
	}, []string{"status"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mockview",
		Name:      "rate_limited_requests_total",
		Help:      "Requests rejected by the per-user rate limiter.",
	})
)
