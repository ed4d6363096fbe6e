// Package metrics holds the Prometheus collectors shared by the payment services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
)

var (
	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "servicepay",
		Name:      "tool_invocations_total",
		Help:      "Tool calls received, by tool and outcome.",
	}, []string{"tool", "outcome"})

	Payments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "servicepay",
		Name:      "payments_total",
		Help:      "Payment attempts, by outcome.",
	}, []string{"outcome"})
)

// ResultOutcome maps a result-embedded error message to an outcome label.
func ResultOutcome(errorMessage string) string {
	if errorMessage == "" {
		return OutcomeOK
	}
	return OutcomeRejected
}
