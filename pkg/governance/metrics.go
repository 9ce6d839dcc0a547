package governance

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the governance metric instruments. It is injected rather
// than process-global so tests can instantiate isolated instances; a nil
// *Metrics disables recording entirely.
type Metrics struct {
	TransitionChecks       metric.Int64Counter
	TransitionRejects      metric.Int64Counter
	EvaluationRuns         metric.Int64Counter
	EvaluationViolations   metric.Int64Counter
	HandoffRecommendations metric.Int64Counter
	ProtocolLookups        metric.Int64Counter
	ProtocolMisses         metric.Int64Counter
	PromptSyntheses        metric.Int64Counter
}

// NewMetrics creates all governance instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.TransitionChecks, err = meter.Int64Counter("warden.transition.checks",
		metric.WithDescription("Status transitions validated"),
	)
	if err != nil {
		return nil, err
	}

	m.TransitionRejects, err = meter.Int64Counter("warden.transition.rejects",
		metric.WithDescription("Status transitions rejected"),
	)
	if err != nil {
		return nil, err
	}

	m.EvaluationRuns, err = meter.Int64Counter("warden.evaluation.runs",
		metric.WithDescription("Completion evaluations executed"),
	)
	if err != nil {
		return nil, err
	}

	m.EvaluationViolations, err = meter.Int64Counter("warden.evaluation.violations",
		metric.WithDescription("Verification requirement violations recorded"),
	)
	if err != nil {
		return nil, err
	}

	m.HandoffRecommendations, err = meter.Int64Counter("warden.handoff.recommendations",
		metric.WithDescription("Handoff criteria matched"),
	)
	if err != nil {
		return nil, err
	}

	m.ProtocolLookups, err = meter.Int64Counter("warden.protocol.lookups",
		metric.WithDescription("Error protocol resolutions attempted"),
	)
	if err != nil {
		return nil, err
	}

	m.ProtocolMisses, err = meter.Int64Counter("warden.protocol.misses",
		metric.WithDescription("Error protocol resolutions with no match"),
	)
	if err != nil {
		return nil, err
	}

	m.PromptSyntheses, err = meter.Int64Counter("warden.prompt.syntheses",
		metric.WithDescription("Agent prompts synthesized"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) addTransitionCheck(ctx context.Context) {
	if m == nil {
		return
	}
	m.TransitionChecks.Add(ctx, 1)
}

func (m *Metrics) addTransitionReject(ctx context.Context, reason RejectReason) {
	if m == nil {
		return
	}
	m.TransitionRejects.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
}

func (m *Metrics) addEvaluation(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.EvaluationRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("agent_role", role)))
}

func (m *Metrics) addViolations(ctx context.Context, role string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.EvaluationViolations.Add(ctx, int64(n), metric.WithAttributes(attribute.String("agent_role", role)))
}

func (m *Metrics) addHandoffs(ctx context.Context, role string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.HandoffRecommendations.Add(ctx, int64(n), metric.WithAttributes(attribute.String("agent_role", role)))
}

func (m *Metrics) addProtocolLookup(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.ProtocolLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("agent_role", role)))
}

func (m *Metrics) addProtocolMiss(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.ProtocolMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("agent_role", role)))
}

func (m *Metrics) addSynthesis(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.PromptSyntheses.Add(ctx, 1, metric.WithAttributes(attribute.String("agent_role", role)))
}
