package governance_test

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/basket/go-warden/pkg/governance"
)

// fakeStore is an in-memory record store implementing StatusStore,
// TransitionStore, and RuleSource with the same ordering contracts as the
// SQLite implementation.
type fakeStore struct {
	statuses     []governance.TaskStatus
	transitions  []governance.StatusTransition
	requirements []governance.VerificationRequirement
	criteria     []governance.HandoffCriteria
	protocols    []governance.ErrorProtocol

	failWith error
}

func (f *fakeStore) ListStatuses(ctx context.Context) ([]governance.TaskStatus, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return slices.Clone(f.statuses), nil
}

func (f *fakeStore) GetStatus(ctx context.Context, name string) (*governance.TaskStatus, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for i := range f.statuses {
		if f.statuses[i].Name == name {
			st := f.statuses[i]
			return &st, nil
		}
	}
	return nil, fmt.Errorf("status %q: %w", name, governance.ErrNotFound)
}

func (f *fakeStore) CreateStatus(ctx context.Context, st governance.TaskStatus) (string, error) {
	if _, err := f.GetStatus(ctx, st.Name); err == nil {
		return "", fmt.Errorf("status %q: %w", st.Name, governance.ErrConflict)
	}
	if st.ID == "" {
		st.ID = fmt.Sprintf("st-%d", len(f.statuses)+1)
	}
	f.statuses = append(f.statuses, st)
	return st.ID, nil
}

func (f *fakeStore) DeleteStatus(ctx context.Context, name string) error {
	for _, tr := range f.transitions {
		if tr.FromStatus == name || tr.ToStatus == name {
			return fmt.Errorf("status %q referenced: %w", name, governance.ErrConflict)
		}
	}
	for i := range f.statuses {
		if f.statuses[i].Name == name {
			f.statuses = append(f.statuses[:i], f.statuses[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("status %q: %w", name, governance.ErrNotFound)
}

func (f *fakeStore) ListTransitions(ctx context.Context) ([]governance.StatusTransition, error) {
	return slices.Clone(f.transitions), nil
}

func (f *fakeStore) HasTransition(ctx context.Context, from, to string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	for _, tr := range f.transitions {
		if tr.FromStatus == from && tr.ToStatus == to {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateTransition(ctx context.Context, from, to string) error {
	if ok, _ := f.HasTransition(ctx, from, to); ok {
		return fmt.Errorf("transition exists: %w", governance.ErrConflict)
	}
	f.transitions = append(f.transitions, governance.StatusTransition{
		FromStatus: from, ToStatus: to, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeStore) DeleteTransition(ctx context.Context, from, to string) error {
	for i, tr := range f.transitions {
		if tr.FromStatus == from && tr.ToStatus == to {
			f.transitions = append(f.transitions[:i], f.transitions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transition absent: %w", governance.ErrNotFound)
}

func (f *fakeStore) ActiveVerificationRequirements(ctx context.Context, agentRole string) ([]governance.VerificationRequirement, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []governance.VerificationRequirement
	for _, vr := range f.requirements {
		if vr.AgentRole == agentRole && vr.IsActive {
			out = append(out, vr)
		}
	}
	return out, nil
}

func (f *fakeStore) ActiveHandoffCriteria(ctx context.Context, agentRole string) ([]governance.HandoffCriteria, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []governance.HandoffCriteria
	for _, hc := range f.criteria {
		if hc.AgentRole == agentRole && hc.IsActive {
			out = append(out, hc)
		}
	}
	return out, nil
}

func (f *fakeStore) ActiveErrorProtocols(ctx context.Context, agentRole string) ([]governance.ErrorProtocol, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []governance.ErrorProtocol
	for _, ep := range f.protocols {
		if ep.AgentRole == agentRole && ep.IsActive {
			out = append(out, ep)
		}
	}
	// Same contract as the SQLite store: error type asc, priority asc,
	// newest first within a priority.
	slices.SortStableFunc(out, func(a, b governance.ErrorProtocol) int {
		if a.ErrorType != b.ErrorType {
			if a.ErrorType < b.ErrorType {
				return -1
			}
			return 1
		}
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// linearWorkflow builds the To Do / In Progress / Done catalog used across
// the transition tests.
func linearWorkflow() *fakeStore {
	return &fakeStore{
		statuses: []governance.TaskStatus{
			{ID: "st-1", Name: "To Do", Order: 1},
			{ID: "st-2", Name: "In Progress", Order: 2},
			{ID: "st-3", Name: "Done", Order: 3, IsFinal: true},
		},
	}
}
