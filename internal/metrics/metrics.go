package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "orchestrator_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_turns_total",
			Help: "Conversation turns by dispatched action",
		},
		[]string{"action"},
	)

	ClassifierOverrides = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_classifier_overrides_total",
			Help: "Turns forced back into the create flow after a NO_TOOL classification",
		},
	)

	ClassifierFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_classifier_fallbacks_total",
			Help: "Turns classified by the keyword heuristic because the model failed",
		},
	)

	FlowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_flow_transitions_total",
			Help: "Create-flow outcomes per turn",
		},
		[]string{"outcome"},
	)

	CollaboratorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "orchestrator_collaborator_latency_seconds",
			Help: "Latency of calls to external collaborators",
		},
		[]string{"collaborator"},
	)

	CollaboratorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_collaborator_errors_total",
			Help: "Failed calls to external collaborators",
		},
		[]string{"collaborator"},
	)

	InferenceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "orchestrator_inference_latency_seconds",
			Help: "Inference latency in seconds",
		},
		[]string{"lane"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_active_sessions",
			Help: "Number of conversations with stored form state",
		},
	)

	CollaboratorUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orchestrator_collaborator_up",
			Help: "Last probe result per collaborator (1 up, 0 down)",
		},
		[]string{"collaborator"},
	)
)
