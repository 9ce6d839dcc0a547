package governance

import (
	"context"
	"time"
)

// TaskData is the generic field map a task is evaluated against. Rules never
// reference a live task handle, which keeps evaluation decoupled from
// whatever persistence the calling service uses for tasks.
type TaskData map[string]any

// HandoffCriteria recommends transferring a task from one agent role to
// another when its predicate holds. Criteria carries the human-readable
// condition; Predicate, when non-zero, is the machine-evaluated form.
type HandoffCriteria struct {
	ID              string    `json:"id"`
	AgentRole       string    `json:"agent_role"`
	Criteria        string    `json:"criteria"`
	Description     string    `json:"description,omitempty"`
	TargetAgentRole string    `json:"target_agent_role"`
	Predicate       Predicate `json:"predicate,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// VerificationRequirement is a condition a task must satisfy before the
// owning agent role may mark it complete. Mandatory failures block
// completion; non-mandatory ones are advisory.
type VerificationRequirement struct {
	ID          string    `json:"id"`
	AgentRole   string    `json:"agent_role"`
	Requirement string    `json:"requirement"`
	Description string    `json:"description,omitempty"`
	Predicate   Predicate `json:"predicate,omitempty"`
	IsMandatory bool      `json:"is_mandatory"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ErrorProtocol maps an error classification to a remediation instruction
// for an agent role. Lower Priority wins; ties go to the most recently
// created protocol.
type ErrorProtocol struct {
	ID        string    `json:"id"`
	AgentRole string    `json:"agent_role"`
	ErrorType string    `json:"error_type"`
	Protocol  string    `json:"protocol"`
	Priority  int       `json:"priority"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RuleSource is the read surface the evaluator and synthesizer share.
// Implementations return only active rows, in deterministic order:
// creation order for requirements and handoff criteria; error type
// ascending, then priority ascending, then newest-first for protocols.
type RuleSource interface {
	ActiveVerificationRequirements(ctx context.Context, agentRole string) ([]VerificationRequirement, error)
	ActiveHandoffCriteria(ctx context.Context, agentRole string) ([]HandoffCriteria, error)
	ActiveErrorProtocols(ctx context.Context, agentRole string) ([]ErrorProtocol, error)
}
