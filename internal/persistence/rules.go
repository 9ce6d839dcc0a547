package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/basket/go-warden/pkg/governance"
	"github.com/google/uuid"
)

// CreateHandoffCriteria inserts a handoff criterion. The (agent_role,
// criteria) natural key maps duplicates to ErrConflict.
func (s *Store) CreateHandoffCriteria(ctx context.Context, hc governance.HandoffCriteria) (string, error) {
	if strings.TrimSpace(hc.AgentRole) == "" || strings.TrimSpace(hc.Criteria) == "" || strings.TrimSpace(hc.TargetAgentRole) == "" {
		return "", fmt.Errorf("handoff criteria requires agent_role, criteria, and target_agent_role: %w", governance.ErrValidation)
	}
	if err := hc.Predicate.Validate(); err != nil {
		return "", err
	}
	pred, err := json.Marshal(hc.Predicate)
	if err != nil {
		return "", fmt.Errorf("marshal predicate: %w", err)
	}

	id := hc.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	err = retryOnBusy(ctx, 5, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO handoff_criteria (id, agent_role, criteria, description, target_agent_role, predicate, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, id, hc.AgentRole, hc.Criteria, hc.Description, hc.TargetAgentRole, string(pred), hc.IsActive, now, now)
		return err
	})
	if isUniqueViolation(err) {
		return "", fmt.Errorf("handoff criteria %q for role %q already exists: %w", hc.Criteria, hc.AgentRole, governance.ErrConflict)
	}
	if err != nil {
		return "", fmt.Errorf("create handoff criteria: %w", err)
	}
	return id, nil
}

// CreateVerificationRequirement inserts a verification requirement under the
// (agent_role, requirement) natural key.
func (s *Store) CreateVerificationRequirement(ctx context.Context, vr governance.VerificationRequirement) (string, error) {
	if strings.TrimSpace(vr.AgentRole) == "" || strings.TrimSpace(vr.Requirement) == "" {
		return "", fmt.Errorf("verification requirement requires agent_role and requirement: %w", governance.ErrValidation)
	}
	if err := vr.Predicate.Validate(); err != nil {
		return "", err
	}
	pred, err := json.Marshal(vr.Predicate)
	if err != nil {
		return "", fmt.Errorf("marshal predicate: %w", err)
	}

	id := vr.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	err = retryOnBusy(ctx, 5, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO verification_requirements (id, agent_role, requirement, description, predicate, is_mandatory, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, id, vr.AgentRole, vr.Requirement, vr.Description, string(pred), vr.IsMandatory, vr.IsActive, now, now)
		return err
	})
	if isUniqueViolation(err) {
		return "", fmt.Errorf("verification requirement %q for role %q already exists: %w", vr.Requirement, vr.AgentRole, governance.ErrConflict)
	}
	if err != nil {
		return "", fmt.Errorf("create verification requirement: %w", err)
	}
	return id, nil
}

// CreateErrorProtocol inserts an error protocol. Several protocols may share
// an error type at different (or equal) priorities; only the exact
// (agent_role, error_type, protocol) triple is unique.
func (s *Store) CreateErrorProtocol(ctx context.Context, ep governance.ErrorProtocol) (string, error) {
	if strings.TrimSpace(ep.AgentRole) == "" || strings.TrimSpace(ep.ErrorType) == "" || strings.TrimSpace(ep.Protocol) == "" {
		return "", fmt.Errorf("error protocol requires agent_role, error_type, and protocol: %w", governance.ErrValidation)
	}

	id := ep.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	err := retryOnBusy(ctx, 5, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO error_protocols (id, agent_role, error_type, protocol, priority, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?);
		`, id, ep.AgentRole, ep.ErrorType, ep.Protocol, ep.Priority, ep.IsActive, now, now)
		return err
	})
	if isUniqueViolation(err) {
		return "", fmt.Errorf("protocol for role %q error type %q already exists: %w", ep.AgentRole, ep.ErrorType, governance.ErrConflict)
	}
	if err != nil {
		return "", fmt.Errorf("create error protocol: %w", err)
	}
	return id, nil
}

// SetRuleActive flips the is_active flag on a rule row in the given family
// table. Family must be one of "handoff_criteria", "verification_requirements",
// or "error_protocols".
func (s *Store) SetRuleActive(ctx context.Context, family, id string, active bool) error {
	switch family {
	case "handoff_criteria", "verification_requirements", "error_protocols":
	default:
		return fmt.Errorf("unknown rule family %q: %w", family, governance.ErrValidation)
	}
	return retryOnBusy(ctx, 5, func() error {
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET is_active = ?, updated_at = ? WHERE id = ?;`, family),
			active, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("set rule active: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("set rule active rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("rule %s/%s: %w", family, id, governance.ErrNotFound)
		}
		return nil
	})
}

// ActiveVerificationRequirements returns the role's active requirements in
// creation order. Insertion recency (rowid) breaks equal-timestamp ties so
// ordering never depends on randomly assigned ids.
func (s *Store) ActiveVerificationRequirements(ctx context.Context, agentRole string) ([]governance.VerificationRequirement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_role, requirement, description, predicate, is_mandatory, is_active, created_at, updated_at
		FROM verification_requirements
		WHERE agent_role = ? AND is_active = 1
		ORDER BY created_at ASC, rowid ASC;
	`, agentRole)
	if err != nil {
		return nil, fmt.Errorf("list verification requirements: %w", err)
	}
	defer rows.Close()

	var out []governance.VerificationRequirement
	for rows.Next() {
		var vr governance.VerificationRequirement
		var pred string
		if err := rows.Scan(&vr.ID, &vr.AgentRole, &vr.Requirement, &vr.Description, &pred, &vr.IsMandatory, &vr.IsActive, &vr.CreatedAt, &vr.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan verification requirement: %w", err)
		}
		if err := json.Unmarshal([]byte(pred), &vr.Predicate); err != nil {
			return nil, fmt.Errorf("unmarshal predicate for requirement %s: %w", vr.ID, err)
		}
		out = append(out, vr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("verification requirement rows: %w", err)
	}
	return out, nil
}

// ActiveHandoffCriteria returns the role's active criteria in creation order.
func (s *Store) ActiveHandoffCriteria(ctx context.Context, agentRole string) ([]governance.HandoffCriteria, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_role, criteria, description, target_agent_role, predicate, is_active, created_at, updated_at
		FROM handoff_criteria
		WHERE agent_role = ? AND is_active = 1
		ORDER BY created_at ASC, rowid ASC;
	`, agentRole)
	if err != nil {
		return nil, fmt.Errorf("list handoff criteria: %w", err)
	}
	defer rows.Close()

	var out []governance.HandoffCriteria
	for rows.Next() {
		var hc governance.HandoffCriteria
		var pred string
		if err := rows.Scan(&hc.ID, &hc.AgentRole, &hc.Criteria, &hc.Description, &hc.TargetAgentRole, &pred, &hc.IsActive, &hc.CreatedAt, &hc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan handoff criteria: %w", err)
		}
		if err := json.Unmarshal([]byte(pred), &hc.Predicate); err != nil {
			return nil, fmt.Errorf("unmarshal predicate for criteria %s: %w", hc.ID, err)
		}
		out = append(out, hc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("handoff criteria rows: %w", err)
	}
	return out, nil
}

// ActiveErrorProtocols returns the role's active protocols ordered by error
// type ascending, then priority ascending, then newest-first. Protocol
// resolution takes the first row of a type; the synthesizer gets its
// grouping from the same ordering.
func (s *Store) ActiveErrorProtocols(ctx context.Context, agentRole string) ([]governance.ErrorProtocol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_role, error_type, protocol, priority, is_active, created_at, updated_at
		FROM error_protocols
		WHERE agent_role = ? AND is_active = 1
		ORDER BY error_type ASC, priority ASC, created_at DESC, rowid DESC;
	`, agentRole)
	if err != nil {
		return nil, fmt.Errorf("list error protocols: %w", err)
	}
	defer rows.Close()

	var out []governance.ErrorProtocol
	for rows.Next() {
		var ep governance.ErrorProtocol
		if err := rows.Scan(&ep.ID, &ep.AgentRole, &ep.ErrorType, &ep.Protocol, &ep.Priority, &ep.IsActive, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan error protocol: %w", err)
		}
		out = append(out, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error protocol rows: %w", err)
	}
	return out, nil
}
