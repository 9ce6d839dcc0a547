package governance

import (
	"context"
	"fmt"
	"strings"
)

// Synthesizer composes a single instructional text blob for an agent role
// from its active rules, for injection into an LLM-driven worker's context
// at session start.
type Synthesizer struct {
	rules   RuleSource
	metrics *Metrics
}

// NewSynthesizer creates a prompt synthesizer over a rule source.
func NewSynthesizer(rules RuleSource, metrics *Metrics) *Synthesizer {
	return &Synthesizer{rules: rules, metrics: metrics}
}

// Synthesize concatenates the role's active rules in fixed order:
// verification requirements, handoff criteria, then error protocols grouped
// by error type and ordered by priority. A rule family with zero active rows
// contributes no section at all, heading included. Output is plain text.
func (s *Synthesizer) Synthesize(ctx context.Context, agentRole string) (string, error) {
	agentRole = strings.TrimSpace(agentRole)
	s.metrics.addSynthesis(ctx, agentRole)

	reqs, err := s.rules.ActiveVerificationRequirements(ctx, agentRole)
	if err != nil {
		return "", storeErr("list verification requirements", err)
	}
	criteria, err := s.rules.ActiveHandoffCriteria(ctx, agentRole)
	if err != nil {
		return "", storeErr("list handoff criteria", err)
	}
	protocols, err := s.rules.ActiveErrorProtocols(ctx, agentRole)
	if err != nil {
		return "", storeErr("list error protocols", err)
	}

	var b strings.Builder

	if len(reqs) > 0 {
		b.WriteString("## Verification\n\n")
		b.WriteString("Before marking a task complete, verify:\n")
		for _, req := range reqs {
			b.WriteString("- ")
			b.WriteString(req.Requirement)
			if req.Description != "" {
				b.WriteString(": ")
				b.WriteString(req.Description)
			}
			if req.IsMandatory {
				b.WriteString(" (mandatory)")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(criteria) > 0 {
		b.WriteString("## Handoff\n\n")
		for _, hc := range criteria {
			fmt.Fprintf(&b, "- When %s, hand off to %s", hc.Criteria, hc.TargetAgentRole)
			if hc.Description != "" {
				b.WriteString(": ")
				b.WriteString(hc.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(protocols) > 0 {
		b.WriteString("## Error Handling\n")
		// Rule source order is error type ascending, then priority ascending,
		// so groups fall out of a single pass.
		lastType := ""
		for _, p := range protocols {
			if p.ErrorType != lastType {
				fmt.Fprintf(&b, "\nOn %s:\n", p.ErrorType)
				lastType = p.ErrorType
			}
			fmt.Fprintf(&b, "%d. %s\n", p.Priority, p.Protocol)
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}
