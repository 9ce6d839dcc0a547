package governance

import (
	"context"
	"strings"
)

// Violation is one failed verification requirement.
type Violation struct {
	RequirementID string `json:"requirement_id"`
	Requirement   string `json:"requirement"`
	Mandatory     bool   `json:"mandatory"`
}

// HandoffRecommendation is one matched handoff criterion. When several
// criteria match with different targets, all are returned in insertion
// order; the calling orchestrator picks one, this core does not arbitrate.
type HandoffRecommendation struct {
	CriteriaID      string `json:"criteria_id"`
	Criteria        string `json:"criteria"`
	TargetAgentRole string `json:"target_agent_role"`
}

// EvaluationResult is the outcome of a completion check. CanComplete is
// false only when a mandatory requirement failed; a non-empty Violations
// list is a normal successful result, not an error.
type EvaluationResult struct {
	CanComplete         bool                    `json:"can_complete"`
	Violations          []Violation             `json:"violations,omitempty"`
	RecommendedHandoffs []HandoffRecommendation `json:"recommended_handoffs,omitempty"`
}

// Evaluator checks task data against an agent role's active rules. It is a
// pure function of its inputs and current rule-store state: no side effects
// beyond metrics, safe to call repeatedly.
type Evaluator struct {
	rules   RuleSource
	metrics *Metrics
}

// NewEvaluator creates an evaluator over a rule source. metrics may be nil.
func NewEvaluator(rules RuleSource, metrics *Metrics) *Evaluator {
	return &Evaluator{rules: rules, metrics: metrics}
}

// EvaluateCompletion validates task data against the role's active
// verification requirements and handoff criteria. A role with zero active
// rules of a family contributes nothing from that family: no rules means
// permissive, not blocked.
func (e *Evaluator) EvaluateCompletion(ctx context.Context, agentRole string, data TaskData) (EvaluationResult, error) {
	agentRole = strings.TrimSpace(agentRole)
	e.metrics.addEvaluation(ctx, agentRole)

	result := EvaluationResult{CanComplete: true}

	reqs, err := e.rules.ActiveVerificationRequirements(ctx, agentRole)
	if err != nil {
		return EvaluationResult{}, storeErr("list verification requirements", err)
	}
	for _, req := range reqs {
		if req.Predicate.IsZero() {
			// Text-only requirement: documentation for the synthesized
			// prompt, never machine-evaluated.
			continue
		}
		ok, err := req.Predicate.Holds(data)
		if err != nil {
			return EvaluationResult{}, err
		}
		if ok {
			continue
		}
		result.Violations = append(result.Violations, Violation{
			RequirementID: req.ID,
			Requirement:   req.Requirement,
			Mandatory:     req.IsMandatory,
		})
		if req.IsMandatory {
			result.CanComplete = false
		}
	}
	e.metrics.addViolations(ctx, agentRole, len(result.Violations))

	criteria, err := e.rules.ActiveHandoffCriteria(ctx, agentRole)
	if err != nil {
		return EvaluationResult{}, storeErr("list handoff criteria", err)
	}
	for _, hc := range criteria {
		if hc.Predicate.IsZero() {
			continue
		}
		ok, err := hc.Predicate.Holds(data)
		if err != nil {
			return EvaluationResult{}, err
		}
		if !ok {
			continue
		}
		result.RecommendedHandoffs = append(result.RecommendedHandoffs, HandoffRecommendation{
			CriteriaID:      hc.ID,
			Criteria:        hc.Criteria,
			TargetAgentRole: hc.TargetAgentRole,
		})
	}
	e.metrics.addHandoffs(ctx, agentRole, len(result.RecommendedHandoffs))

	return result, nil
}
