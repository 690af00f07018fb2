// Package metrics provides Prometheus metrics for the assistant.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the assistant.
type Metrics struct {
	// HTTP metrics
	ChatRequestsTotal *prometheus.CounterVec

	// Conversation metrics
	RepliesTotal     *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
	SessionsCreated  prometheus.Counter
	BriefingFailures prometheus.Counter

	// Provider metrics
	ProviderCallsTotal   *prometheus.CounterVec
	ProviderCallDuration *prometheus.HistogramVec
}

// New creates all metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.ChatRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_chat_requests_total",
			Help: "Total number of chat API requests",
		},
		[]string{"route", "status"},
	)

	m.RepliesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_replies_total",
			Help: "Assistant replies by resolver",
		},
		[]string{"resolver"},
	)

	m.RateLimitedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_rate_limited_total",
			Help: "Chat messages rejected by the per-account rate limit",
		},
	)

	m.SessionsCreated = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_sessions_created_total",
			Help: "Chat sessions created",
		},
	)

	m.BriefingFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_briefing_failures_total",
			Help: "Domain briefings that degraded to the unavailable placeholder",
		},
	)

	m.ProviderCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_llm_provider_calls_total",
			Help: "Language-model provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	m.ProviderCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_llm_provider_call_duration_seconds",
			Help:    "Duration of language-model provider calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)

	return m
}

// NewNop returns metrics registered on a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveProviderCall records one provider attempt.
func (m *Metrics) ObserveProviderCall(provider string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.ProviderCallsTotal.WithLabelValues(provider, outcome).Inc()
	m.ProviderCallDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// ObserveReply records which resolver answered a message.
func (m *Metrics) ObserveReply(resolver string) {
	if m == nil {
		return
	}
	m.RepliesTotal.WithLabelValues(resolver).Inc()
}
