package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/basket/go-warden/internal/persistence"
	"github.com/basket/go-warden/pkg/governance"
)

// Apply seeds the record store from a workflow definition. Re-applying an
// unchanged file is a no-op: rows that already exist are skipped on their
// natural keys, so the seed command can run repeatedly and on file change.
func Apply(ctx context.Context, wf *Workflow, store *persistence.Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := governance.NewCatalog(store)
	registry := governance.NewRegistry(catalog, store, nil)

	var created, skipped int

	for _, st := range wf.Statuses {
		_, err := catalog.Create(ctx, governance.TaskStatus{
			Name:        st.Name,
			Description: st.Description,
			Order:       st.Order,
			IsFinal:     st.Final,
		})
		if errors.Is(err, governance.ErrConflict) {
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("seed status %q: %w", st.Name, err)
		}
		created++
	}

	for _, tr := range wf.Transitions {
		err := registry.AddEdge(ctx, tr.From, tr.To)
		if errors.Is(err, governance.ErrConflict) {
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("seed transition %q -> %q: %w", tr.From, tr.To, err)
		}
		created++
	}

	for _, role := range wf.Roles {
		for _, v := range role.Verification {
			_, err := store.CreateVerificationRequirement(ctx, governance.VerificationRequirement{
				AgentRole:   role.Role,
				Requirement: v.Requirement,
				Description: v.Description,
				Predicate:   v.Predicate,
				IsMandatory: v.Mandatory,
				IsActive:    true,
			})
			if errors.Is(err, governance.ErrConflict) {
				skipped++
				continue
			}
			if err != nil {
				return fmt.Errorf("seed requirement %q for role %q: %w", v.Requirement, role.Role, err)
			}
			created++
		}
		for _, h := range role.Handoffs {
			_, err := store.CreateHandoffCriteria(ctx, governance.HandoffCriteria{
				AgentRole:       role.Role,
				Criteria:        h.Criteria,
				Description:     h.Description,
				TargetAgentRole: h.Target,
				Predicate:       h.Predicate,
				IsActive:        true,
			})
			if errors.Is(err, governance.ErrConflict) {
				skipped++
				continue
			}
			if err != nil {
				return fmt.Errorf("seed handoff %q for role %q: %w", h.Criteria, role.Role, err)
			}
			created++
		}
		for _, p := range role.Protocols {
			priority := p.Priority
			if priority == 0 {
				priority = 100
			}
			_, err := store.CreateErrorProtocol(ctx, governance.ErrorProtocol{
				AgentRole: role.Role,
				ErrorType: p.ErrorType,
				Protocol:  p.Protocol,
				Priority:  priority,
				IsActive:  true,
			})
			if errors.Is(err, governance.ErrConflict) {
				skipped++
				continue
			}
			if err != nil {
				return fmt.Errorf("seed protocol %q/%q for role %q: %w", p.ErrorType, p.Protocol, role.Role, err)
			}
			created++
		}
	}

	logger.Info("workflow applied", "created", created, "skipped", skipped)
	return nil
}
