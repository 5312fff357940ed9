package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jobchat"

var (
	// Turns counts handled utterances by orchestrator branch.
	Turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "turns_total",
		Help:      "Handled user turns by branch and outcome.",
	}, []string{"branch", "outcome"})

	// PhaseTransitions counts slot-filling phase edges.
	PhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "phase_transitions_total",
		Help:      "Conversation phase transitions.",
	}, []string{"from", "to"})

	// Intents counts classifier outputs per vocabulary.
	Intents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "intent",
		Name:      "classifications_total",
		Help:      "Classifier results by prompt and tag.",
	}, []string{"prompt", "tag"})

	gatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "calls_total",
		Help:      "Model backend calls by gateway, method and status.",
	}, []string{"gateway", "method", "status"})

	gatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "call_duration_seconds",
		Help:      "Model backend call latency.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"gateway", "method"})

	tokenCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "cost_usd_total",
		Help:      "Estimated model cost in USD.",
	}, []string{"model"})

	tokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "tokens_total",
		Help:      "Model tokens by direction.",
	}, []string{"model", "direction"})

	// ToolInvocations counts registry invocations by tool and status.
	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tools",
		Name:      "invocations_total",
		Help:      "Tool invocations by tool and status.",
	}, []string{"tool", "status"})

	// LoopSteps observes the steps used by each tool-calling loop run.
	LoopSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "toolloop",
		Name:      "steps",
		Help:      "Steps used per tool-calling loop run.",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	})

	// ActiveSessions tracks sessions currently held by the store.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Sessions currently stored.",
	})

	// ExpiredSessions counts sessions removed by the expiry sweep.
	ExpiredSessions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "expired_total",
		Help:      "Sessions removed by the expiry sweep.",
	})
)

// ObserveGatewayCall records one backend call.
func ObserveGatewayCall(gateway, method string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	gatewayCalls.WithLabelValues(gateway, method, status).Inc()
	gatewayLatency.WithLabelValues(gateway, method).Observe(time.Since(started).Seconds())
}

// ObserveUsage records token counts and their estimated cost.
func ObserveUsage(model string, promptTokens, completionTokens int, costUSD float64) {
	tokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	tokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	if costUSD > 0 {
		tokenCost.WithLabelValues(model).Add(costUSD)
	}
}

// ObserveTool records a tool invocation.
func ObserveTool(tool string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ToolInvocations.WithLabelValues(tool, status).Inc()
}
